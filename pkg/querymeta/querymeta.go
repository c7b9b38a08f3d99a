// Package querymeta attaches per-call query metadata to a context so
// the transport can report which API operation a request belongs to
// without threading the information through every function call.
package querymeta

import (
	"context"
	"encoding/json"
	"math/rand"
)

// Header is the request header carrying the encoded metadata.
const Header = "X-Neptune-Client-Metadata"

// Version identifies this client build in query metadata and the
// User-Agent string.
const Version = "0.1.0"

// Field length caps keep the header bounded; values are truncated,
// never rejected.
const (
	maxAPIFunctionLen = 32
	maxVersionLen     = 24
	queryIDLen        = 8
	maxUserDataLen    = 82
)

const queryIDAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// Metadata describes one logical API call. It is captured once at
// call start and read-only afterwards, so workers can share it.
type Metadata struct {
	// APIFunction is the public operation name, e.g. "fetch_metrics".
	APIFunction string

	// ClientVersion is the client identifier, e.g. "nq-go/0.1.0".
	ClientVersion string

	// QueryID is a short random correlation identifier, unique per
	// logical call rather than per request.
	QueryID string

	// UserData is an optional caller-supplied tag.
	UserData string
}

// New creates metadata for one logical call with a fresh query ID.
func New(apiFunction, userData string) Metadata {
	id := make([]byte, queryIDLen)
	for i := range id {
		id[i] = queryIDAlphabet[rand.Intn(len(queryIDAlphabet))]
	}
	return Metadata{
		APIFunction:   apiFunction,
		ClientVersion: "nq-go/" + Version,
		QueryID:       string(id),
		UserData:      userData,
	}
}

// HeaderValue encodes the metadata as the JSON header payload.
func (m Metadata) HeaderValue() string {
	payload := map[string]any{
		"fn":  truncate(m.APIFunction, maxAPIFunctionLen),
		"v":   truncate(m.ClientVersion, maxVersionLen),
		"qid": truncate(m.QueryID, queryIDLen),
		"ud":  m.userData(),
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return ""
	}
	return string(encoded)
}

// userData returns the user tag decoded as JSON when possible, capped
// at maxUserDataLen encoded bytes.
func (m Metadata) userData() any {
	if m.UserData == "" {
		return nil
	}

	var value any = m.UserData
	var decoded any
	if err := json.Unmarshal([]byte(m.UserData), &decoded); err == nil {
		value = decoded
	}

	encoded, err := json.Marshal(value)
	if err != nil || len(encoded) > maxUserDataLen {
		return "user metadata too long"
	}
	return value
}

func truncate(s string, max int) string {
	if len(s) > max {
		return s[:max]
	}
	return s
}

type contextKey struct{}

// With returns a context carrying the metadata.
func With(ctx context.Context, m Metadata) context.Context {
	return context.WithValue(ctx, contextKey{}, m)
}

// From extracts metadata from the context, if present.
func From(ctx context.Context) (Metadata, bool) {
	m, ok := ctx.Value(contextKey{}).(Metadata)
	return m, ok
}
