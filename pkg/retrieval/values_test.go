package retrieval

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/neptune-ai/neptune-query-go/pkg/identifiers"
	"github.com/neptune-ai/neptune-query-go/pkg/retry"
)

func scalarDefs(names ...string) []identifiers.AttributeDefinition {
	defs := make([]identifiers.AttributeDefinition, len(names))
	for i, name := range names {
		defs[i] = identifiers.AttributeDefinition{Name: name, Type: identifiers.TypeFloat}
	}
	return defs
}

func TestAttributeValues_SingleBatch(t *testing.T) {
	e := newTestEngine(t, testLimits(), func(_ context.Context, path string, body any) ([]byte, error) {
		if path != pathAttributeValues {
			t.Errorf("path = %q", path)
		}
		req := decodeRequest[valuesRequest](t, body)
		if len(req.RunIDs) != 2 || len(req.AttributeNames) != 2 {
			t.Errorf("request = %+v", req)
		}

		var resp valuesResponse
		for _, id := range req.RunIDs {
			for _, name := range req.AttributeNames {
				resp.Values = append(resp.Values, valueEntry{
					RunID: id,
					Name:  name,
					Type:  "float",
					Value: []byte(`0.5`),
				})
			}
		}
		return encodeResponse(t, resp), nil
	})

	values, err := e.AttributeValues(context.Background(), "ws/pr",
		sysIDs("RUN-1", "RUN-2"), scalarDefs("lr", "loss"))
	if err != nil {
		t.Fatalf("AttributeValues() error = %v", err)
	}
	if len(values) != 4 {
		t.Fatalf("len = %d, want 4", len(values))
	}
	if values[0].Run != "RUN-1" || values[0].Name != "lr" {
		t.Errorf("values[0] = %+v", values[0])
	}
	if string(values[0].Value) != "0.5" {
		t.Errorf("Value = %s", values[0].Value)
	}
}

func TestAttributeValues_GridSplitCoversEveryCell(t *testing.T) {
	limits := testLimits()
	// Force small batches: 4 cells per request at most.
	limits.AttributeValuesBatchSize = 4

	var mu sync.Mutex
	seen := map[[2]string]int{}
	e := newTestEngine(t, limits, func(_ context.Context, _ string, body any) ([]byte, error) {
		req := decodeRequest[valuesRequest](t, body)
		var resp valuesResponse
		mu.Lock()
		for _, id := range req.RunIDs {
			for _, name := range req.AttributeNames {
				seen[[2]string{id, name}]++
				resp.Values = append(resp.Values, valueEntry{
					RunID: id, Name: name, Type: "int", Value: []byte(`1`),
				})
			}
		}
		mu.Unlock()
		return encodeResponse(t, resp), nil
	})

	runs := sysIDs("RUN-1", "RUN-2", "RUN-3")
	defs := scalarDefs("a", "b", "c")
	values, err := e.AttributeValues(context.Background(), "ws/pr", runs, defs)
	if err != nil {
		t.Fatalf("AttributeValues() error = %v", err)
	}
	if len(values) != 9 {
		t.Errorf("len = %d, want 9", len(values))
	}
	for _, id := range runs {
		for _, def := range defs {
			if n := seen[[2]string{string(id), def.Name}]; n != 1 {
				t.Errorf("cell (%s, %s) requested %d times, want 1", id, def.Name, n)
			}
		}
	}
}

func TestAttributeValues_EmptyInput(t *testing.T) {
	e := newTestEngine(t, testLimits(), func(context.Context, string, any) ([]byte, error) {
		t.Fatal("backend should not be called")
		return nil, nil
	})

	values, err := e.AttributeValues(context.Background(), "ws/pr", nil, nil)
	if err != nil {
		t.Fatalf("AttributeValues() error = %v", err)
	}
	if values != nil {
		t.Errorf("values = %v, want nil", values)
	}
}

func TestAttributeValues_EmptyResultStatusYieldsNoValues(t *testing.T) {
	e := newTestEngine(t, testLimits(), func(context.Context, string, any) ([]byte, error) {
		return nil, fmt.Errorf("status 404: %w", retry.ErrEmptyResult)
	})

	values, err := e.AttributeValues(context.Background(), "ws/pr",
		sysIDs("RUN-1"), scalarDefs("lr"))
	if err != nil {
		t.Fatalf("AttributeValues() error = %v", err)
	}
	if len(values) != 0 {
		t.Errorf("values = %v, want empty", values)
	}
}

func TestAttributeValues_UnknownTypeIsError(t *testing.T) {
	e := newTestEngine(t, testLimits(), func(context.Context, string, any) ([]byte, error) {
		return []byte(`{"values":[{"runId":"RUN-1","name":"x","type":"hologram","value":1}]}`), nil
	})

	_, err := e.AttributeValues(context.Background(), "ws/pr", sysIDs("RUN-1"), scalarDefs("x"))
	if err == nil {
		t.Error("error = nil, want unknown type error")
	}
}
