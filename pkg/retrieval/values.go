package retrieval

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/neptune-ai/neptune-query-go/pkg/cache"
	"github.com/neptune-ai/neptune-query-go/pkg/identifiers"
	"github.com/neptune-ai/neptune-query-go/pkg/pagination"
	"github.com/neptune-ai/neptune-query-go/pkg/retry"
	"github.com/neptune-ai/neptune-query-go/pkg/split"
)

// AttributeValue is one resolved run x attribute cell. Value holds the
// raw JSON of the backend value; callers decode it per Type.
type AttributeValue struct {
	Run   identifiers.SysID
	Name  string
	Type  identifiers.AttributeType
	Value json.RawMessage
}

type valuesRequest struct {
	ProjectIdentifier string   `json:"projectIdentifier"`
	RunIDs            []string `json:"runIds"`
	AttributeNames    []string `json:"attributeNames"`
}

type valuesResponse struct {
	Values []valueEntry `json:"values"`
}

type valueEntry struct {
	RunID string          `json:"runId"`
	Name  string          `json:"name"`
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

// AttributeValues fetches the current values of the given attributes
// on the given runs. The run x attribute grid is split into bounded
// batches fetched concurrently; results come back grouped by run in
// input order, then by attribute batch.
func (e *Engine) AttributeValues(
	ctx context.Context,
	project identifiers.ProjectIdentifier,
	runs []identifiers.SysID,
	defs []identifiers.AttributeDefinition,
) ([]AttributeValue, error) {
	batches := split.RunsAttributes(runs, defs,
		e.limits.MaxRequestSize,
		e.limits.AttributeValuesBatchSize,
		e.limits.MaxWorkers)

	jobs := make([]pagination.Job[AttributeValue], len(batches))
	for i, batch := range batches {
		batch := batch
		jobs[i] = func(ctx context.Context) ([]AttributeValue, error) {
			return e.fetchValuesBatch(ctx, project, batch)
		}
	}
	return pagination.FanOut(ctx, e.limits.MaxWorkers, jobs)
}

func (e *Engine) fetchValuesBatch(
	ctx context.Context,
	project identifiers.ProjectIdentifier,
	batch split.RunsAttributesBatch,
) ([]AttributeValue, error) {
	runIDs := make([]string, len(batch.SysIDs))
	for i, id := range batch.SysIDs {
		runIDs[i] = string(id)
	}
	names := make([]string, len(batch.Attributes))
	for i, def := range batch.Attributes {
		names[i] = def.Name
	}

	key := cache.Key{
		Kind:       cache.KindAttributeValues,
		Project:    string(project),
		FilterHash: cache.HashStrings(append(append([]string{}, runIDs...), names...)),
	}
	if entry, err := e.cache.Get(ctx, key); err == nil {
		return decodeValuesPage(entry.Data)
	}

	body, err := e.backend.Call(ctx, pathAttributeValues, valuesRequest{
		ProjectIdentifier: string(project),
		RunIDs:            runIDs,
		AttributeNames:    names,
	})
	if err != nil {
		// A no-data status empties this batch without failing the
		// whole retrieval.
		if errors.Is(err, retry.ErrEmptyResult) {
			return nil, nil
		}
		return nil, err
	}

	values, err := decodeValuesPage(body)
	if err != nil {
		return nil, err
	}
	if cacheErr := e.cache.Put(ctx, key, body); cacheErr != nil {
		e.logger.Warn().Err(cacheErr).Msg("Value batch cache write failed")
	}
	return values, nil
}

func decodeValuesPage(body []byte) ([]AttributeValue, error) {
	var resp valuesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode attribute values: %w", err)
	}

	values := make([]AttributeValue, 0, len(resp.Values))
	for _, entry := range resp.Values {
		attrType, err := identifiers.ParseAttributeType(entry.Type)
		if err != nil {
			return nil, err
		}
		values = append(values, AttributeValue{
			Run:   identifiers.SysID(entry.RunID),
			Name:  entry.Name,
			Type:  attrType,
			Value: entry.Value,
		})
	}
	return values, nil
}
