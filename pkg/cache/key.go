package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
)

// Request kinds with distinct key namespaces.
const (
	KindAttributeDefinitions = "attr-definitions"
	KindAttributeValues      = "attr-values"
)

// Key identifies one cached page.
type Key struct {
	// Kind is the request kind, one of the Kind constants.
	Kind string

	// Project is the qualified project identifier.
	Project string

	// FilterHash is a digest of the request filter, typically from
	// HashStrings over the attribute-name filter.
	FilterHash string

	// Offset is the page offset within the filtered listing.
	Offset int
}

// String generates the deterministic Redis key.
// Format: nq:kind:project:filterhash:offset
func (k Key) String() string {
	hash := k.FilterHash
	if hash == "" {
		hash = "all"
	}
	return fmt.Sprintf("nq:%s:%s:%s:%d", k.Kind, k.Project, hash, k.Offset)
}

// HashStrings digests a set of strings into a short hex key fragment.
// Order does not matter; the input is sorted before hashing.
func HashStrings(values []string) string {
	sorted := make([]string, len(values))
	copy(sorted, values)
	sort.Strings(sorted)

	h := sha256.New()
	for _, v := range sorted {
		h.Write([]byte(v))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}
