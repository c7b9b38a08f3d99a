package retrieval

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/neptune-ai/neptune-query-go/pkg/cache"
	"github.com/neptune-ai/neptune-query-go/pkg/identifiers"
	"github.com/neptune-ai/neptune-query-go/pkg/pagination"
	"github.com/neptune-ai/neptune-query-go/pkg/split"
)

type definitionsRequest struct {
	ProjectIdentifier string   `json:"projectIdentifier"`
	RunIDs            []string `json:"runIds,omitempty"`
	AttributeFilter   []string `json:"attributeFilter,omitempty"`
	Offset            int      `json:"offset"`
	Limit             int      `json:"limit"`
}

type definitionsResponse struct {
	Entries []definitionEntry `json:"entries"`
}

type definitionEntry struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// AttributeDefinitions lists the attribute definitions present on the
// given runs, optionally narrowed by an attribute-name filter. Runs
// and the name filter are split into size-bounded batches fetched
// concurrently; duplicates across batches and pages are removed,
// keeping first-seen order.
func (e *Engine) AttributeDefinitions(
	ctx context.Context,
	project identifiers.ProjectIdentifier,
	runs []identifiers.SysID,
	nameFilter []string,
) ([]identifiers.AttributeDefinition, error) {
	runBatches := split.RunIDs(runs, e.limits.MaxRequestSize)
	if len(runBatches) == 0 {
		// No run filter means a project-wide listing.
		runBatches = [][]identifiers.SysID{nil}
	}
	filterBatches := split.AttributeNames(nameFilter, e.limits.MaxAttributeFilterSize)
	if len(filterBatches) == 0 {
		filterBatches = [][]string{nil}
	}

	var jobs []pagination.Job[identifiers.AttributeDefinition]
	for _, runBatch := range runBatches {
		for _, filterBatch := range filterBatches {
			runBatch, filterBatch := runBatch, filterBatch
			jobs = append(jobs, func(ctx context.Context) ([]identifiers.AttributeDefinition, error) {
				return e.fetchDefinitionBatch(ctx, project, runBatch, filterBatch)
			})
		}
	}

	merged, err := pagination.FanOut(ctx, e.limits.MaxWorkers, jobs)
	if err != nil {
		return nil, err
	}
	return dedupeDefinitions(merged), nil
}

// fetchDefinitionBatch pages through one run x filter batch.
func (e *Engine) fetchDefinitionBatch(
	ctx context.Context,
	project identifiers.ProjectIdentifier,
	runs []identifiers.SysID,
	filter []string,
) ([]identifiers.AttributeDefinition, error) {
	runIDs := make([]string, len(runs))
	for i, id := range runs {
		runIDs[i] = string(id)
	}
	cacheHash := cache.HashStrings(append(append([]string{}, runIDs...), filter...))

	fetch := func(ctx context.Context, offset, limit int) ([]identifiers.AttributeDefinition, error) {
		key := cache.Key{
			Kind:       cache.KindAttributeDefinitions,
			Project:    string(project),
			FilterHash: cacheHash,
			Offset:     offset,
		}
		if entry, err := e.cache.Get(ctx, key); err == nil {
			return decodeDefinitionsPage(entry.Data, limit)
		}

		body, err := e.backend.Call(ctx, pathAttributeDefinitions, definitionsRequest{
			ProjectIdentifier: string(project),
			RunIDs:            runIDs,
			AttributeFilter:   filter,
			Offset:            offset,
			Limit:             limit,
		})
		if err != nil {
			return nil, err
		}

		page, err := decodeDefinitionsPage(body, limit)
		if err != nil {
			return nil, err
		}
		if cacheErr := e.cache.Put(ctx, key, body); cacheErr != nil {
			e.logger.Warn().Err(cacheErr).Msg("Definition page cache write failed")
		}
		return page, nil
	}

	it := pagination.NewIterator(fetch, e.limits.DefinitionsBatchSize, pagination.Unlimited)
	return it.Collect(ctx)
}

func decodeDefinitionsPage(body []byte, limit int) ([]identifiers.AttributeDefinition, error) {
	var resp definitionsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode definitions page: %w", err)
	}

	defs := make([]identifiers.AttributeDefinition, 0, len(resp.Entries))
	for _, entry := range resp.Entries {
		attrType, err := identifiers.ParseAttributeType(entry.Type)
		if err != nil {
			return nil, err
		}
		defs = append(defs, identifiers.AttributeDefinition{
			Name: entry.Name,
			Type: attrType,
		})
	}
	return defs, nil
}

// dedupeDefinitions removes duplicates keeping first-seen order. The
// same attribute listed under two types stays as two definitions.
func dedupeDefinitions(defs []identifiers.AttributeDefinition) []identifiers.AttributeDefinition {
	seen := make(map[identifiers.AttributeDefinition]struct{}, len(defs))
	out := make([]identifiers.AttributeDefinition, 0, len(defs))
	for _, def := range defs {
		if _, ok := seen[def]; ok {
			continue
		}
		seen[def] = struct{}{}
		out = append(out, def)
	}
	return out
}
