package querymeta

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	m := New("fetch_metrics", "")

	if m.APIFunction != "fetch_metrics" {
		t.Errorf("APIFunction = %q, want fetch_metrics", m.APIFunction)
	}
	if !strings.HasPrefix(m.ClientVersion, "nq-go/") {
		t.Errorf("ClientVersion = %q, want nq-go/ prefix", m.ClientVersion)
	}
	if len(m.QueryID) != queryIDLen {
		t.Errorf("QueryID length = %d, want %d", len(m.QueryID), queryIDLen)
	}
}

func TestNew_UniqueQueryIDs(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		seen[New("op", "").QueryID] = true
	}
	if len(seen) < 90 {
		t.Errorf("expected mostly unique query IDs, got %d distinct of 100", len(seen))
	}
}

func TestHeaderValue(t *testing.T) {
	m := Metadata{
		APIFunction:   "fetch_experiments_table",
		ClientVersion: "nq-go/0.1.0",
		QueryID:       "abcd1234",
	}

	var decoded map[string]any
	if err := json.Unmarshal([]byte(m.HeaderValue()), &decoded); err != nil {
		t.Fatalf("header is not valid JSON: %v", err)
	}
	if decoded["fn"] != "fetch_experiments_table" {
		t.Errorf("fn = %v, want fetch_experiments_table", decoded["fn"])
	}
	if decoded["qid"] != "abcd1234" {
		t.Errorf("qid = %v, want abcd1234", decoded["qid"])
	}
	if decoded["ud"] != nil {
		t.Errorf("ud = %v, want null", decoded["ud"])
	}
}

func TestHeaderValue_TruncatesLongFunctionName(t *testing.T) {
	m := Metadata{APIFunction: strings.Repeat("x", 100), QueryID: "abcd1234"}

	var decoded map[string]any
	if err := json.Unmarshal([]byte(m.HeaderValue()), &decoded); err != nil {
		t.Fatalf("header is not valid JSON: %v", err)
	}
	if got := decoded["fn"].(string); len(got) != maxAPIFunctionLen {
		t.Errorf("fn length = %d, want %d", len(got), maxAPIFunctionLen)
	}
}

func TestHeaderValue_UserData(t *testing.T) {
	tests := []struct {
		name     string
		userData string
		want     any
	}{
		{"plain string", "my-pipeline", "my-pipeline"},
		{"json object", `{"team":"ml"}`, map[string]any{"team": "ml"}},
		{"too long", strings.Repeat("a", 200), "user metadata too long"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := Metadata{QueryID: "abcd1234", UserData: tt.userData}

			var decoded map[string]any
			if err := json.Unmarshal([]byte(m.HeaderValue()), &decoded); err != nil {
				t.Fatalf("header is not valid JSON: %v", err)
			}

			got, _ := json.Marshal(decoded["ud"])
			want, _ := json.Marshal(tt.want)
			if string(got) != string(want) {
				t.Errorf("ud = %s, want %s", got, want)
			}
		})
	}
}

func TestContextRoundTrip(t *testing.T) {
	m := New("list_experiments", "")

	ctx := With(context.Background(), m)
	got, ok := From(ctx)
	if !ok {
		t.Fatal("metadata not found in context")
	}
	if got != m {
		t.Errorf("From = %+v, want %+v", got, m)
	}

	if _, ok := From(context.Background()); ok {
		t.Error("empty context should not carry metadata")
	}
}
