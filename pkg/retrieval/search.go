package retrieval

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/neptune-ai/neptune-query-go/pkg/identifiers"
	"github.com/neptune-ai/neptune-query-go/pkg/pagination"
)

// SearchRequest describes one run search.
type SearchRequest struct {
	Project identifiers.ProjectIdentifier

	// Query filters the runs; empty matches every run.
	Query string

	// Sort names the attribute to order by; empty means backend
	// default order.
	Sort      string
	Ascending bool

	// Limit caps the returned runs; 0 means all. The final page is
	// truncated to honor it exactly.
	Limit int
}

// RunInfo identifies one run found by a search.
type RunInfo struct {
	SysID          identifiers.SysID
	CustomRunID    identifiers.CustomRunID
	ExperimentName string
}

type searchRequest struct {
	ProjectIdentifier string      `json:"projectIdentifier"`
	Query             string      `json:"query,omitempty"`
	Sort              *searchSort `json:"sort,omitempty"`
	Offset            int         `json:"offset"`
	Limit             int         `json:"limit"`
}

type searchSort struct {
	Field     string `json:"field"`
	Ascending bool   `json:"ascending"`
}

type searchResponse struct {
	Entries []searchEntry `json:"entries"`
}

type searchEntry struct {
	SysID          string `json:"sysId"`
	CustomRunID    string `json:"customRunId"`
	ExperimentName string `json:"experimentName,omitempty"`
}

// SearchRuns lists the runs matching the query in a stable order.
// Pages are fetched sequentially so the backend sees a consistent
// offset walk even while runs are being created.
func (e *Engine) SearchRuns(ctx context.Context, req SearchRequest) ([]RunInfo, error) {
	var sort *searchSort
	if req.Sort != "" {
		sort = &searchSort{Field: req.Sort, Ascending: req.Ascending}
	}

	fetch := func(ctx context.Context, offset, limit int) ([]RunInfo, error) {
		body, err := e.backend.Call(ctx, pathSearch, searchRequest{
			ProjectIdentifier: string(req.Project),
			Query:             req.Query,
			Sort:              sort,
			Offset:            offset,
			Limit:             limit,
		})
		if err != nil {
			return nil, err
		}

		var resp searchResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, fmt.Errorf("decode search page: %w", err)
		}

		runs := make([]RunInfo, len(resp.Entries))
		for i, entry := range resp.Entries {
			runs[i] = RunInfo{
				SysID:          identifiers.SysID(entry.SysID),
				CustomRunID:    identifiers.CustomRunID(entry.CustomRunID),
				ExperimentName: entry.ExperimentName,
			}
		}
		return runs, nil
	}

	limit := req.Limit
	if limit <= 0 {
		limit = pagination.Unlimited
	}
	it := pagination.NewIterator(fetch, e.limits.SysAttrsBatchSize, limit)
	return it.Collect(ctx)
}
