package retrieval

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/neptune-ai/neptune-query-go/pkg/identifiers"
	"github.com/neptune-ai/neptune-query-go/pkg/pagination"
	"github.com/neptune-ai/neptune-query-go/pkg/retry"
	"github.com/neptune-ai/neptune-query-go/pkg/split"
)

// TotalPointLimit caps the points one backend call may return across
// all series in the call. The per-series page size is this limit
// divided by the number of series still producing points.
const TotalPointLimit = 1_000_000

var totalPointLimit = TotalPointLimit

// StepRange restricts a series fetch to steps in [From, To]. Nil
// bounds are open.
type StepRange struct {
	From *float64 `json:"from,omitempty"`
	To   *float64 `json:"to,omitempty"`
}

// MetricsRequest describes one metrics fetch.
type MetricsRequest struct {
	Project identifiers.ProjectIdentifier

	// Series to fetch, one entry per run x attribute pair.
	Series []identifiers.RunAttributeDefinition

	// StepRange optionally restricts the fetched steps.
	StepRange *StepRange

	// Limit caps the points returned per series; 0 means all.
	Limit int

	// Tail keeps the last Limit points of each series instead of the
	// first. Requires Limit > 0.
	Tail bool

	// IncludePreview also returns not-yet-committed points.
	IncludePreview bool
}

// MetricPoint is one (step, value) sample.
type MetricPoint struct {
	Step        float64
	Value       float64
	TimestampMS int64
	IsPreview   bool
	Completion  float64
}

// SeriesPoints holds the fetched points of one series in ascending
// step order.
type SeriesPoints struct {
	Run       identifiers.RunIdentifier
	Attribute identifiers.AttributeDefinition
	Points    []MetricPoint
}

type seriesCallRequest struct {
	ProjectIdentifier string         `json:"projectIdentifier"`
	Series            []seriesCursor `json:"series"`
	Order             string         `json:"order"`
	StepRange         *StepRange     `json:"stepRange,omitempty"`
	IncludePreview    bool           `json:"includePreview,omitempty"`
}

type seriesCursor struct {
	RunID     string   `json:"runId"`
	Attribute string   `json:"attribute"`
	AfterStep *float64 `json:"afterStep,omitempty"`
	Limit     int      `json:"limit"`
}

type seriesCallResponse struct {
	Series []seriesPayload `json:"series"`
}

type seriesPayload struct {
	RunID     string       `json:"runId"`
	Attribute string       `json:"attribute"`
	Points    []pointEntry `json:"points"`
}

type pointEntry struct {
	Step        float64 `json:"step"`
	Value       float64 `json:"value"`
	TimestampMS int64   `json:"timestampMs"`
	IsPreview   bool    `json:"isPreview,omitempty"`
	Completion  float64 `json:"completion,omitempty"`
}

// Metrics fetches series points for every requested run x attribute
// pair. The pairs are split into bounded batches fetched concurrently;
// within a batch the engine walks all series in lockstep with
// per-series step cursors until each is exhausted or its limit is
// reached. Results follow the request order with ascending steps, also
// in tail mode.
func (e *Engine) Metrics(ctx context.Context, req MetricsRequest) ([]SeriesPoints, error) {
	if req.Tail && req.Limit <= 0 {
		return nil, fmt.Errorf("tail mode requires a positive limit")
	}

	batches := split.SeriesAttributes(req.Series,
		e.limits.MaxRequestSize,
		e.limits.SeriesBatchSize,
		e.limits.MaxWorkers)

	jobs := make([]pagination.Job[SeriesPoints], len(batches))
	for i, batch := range batches {
		batch := batch
		jobs[i] = func(ctx context.Context) ([]SeriesPoints, error) {
			return e.fetchSeriesBatch(ctx, req, batch)
		}
	}
	return pagination.FanOut(ctx, e.limits.MaxWorkers, jobs)
}

// seriesState tracks one series through the cursor loop.
type seriesState struct {
	result    *SeriesPoints
	afterStep *float64
	remaining int // pagination.Unlimited for no cap
	live      bool
}

// fetchSeriesBatch drives the cursor loop for one batch of series.
func (e *Engine) fetchSeriesBatch(
	ctx context.Context,
	req MetricsRequest,
	batch []identifiers.RunAttributeDefinition,
) ([]SeriesPoints, error) {
	results := make([]SeriesPoints, len(batch))
	states := make(map[identifiers.RunAttributeDefinition]*seriesState, len(batch))
	for i, def := range batch {
		results[i] = SeriesPoints{Run: def.Run, Attribute: def.Attribute}
		remaining := pagination.Unlimited
		if req.Limit > 0 {
			remaining = req.Limit
		}
		states[def] = &seriesState{
			result:    &results[i],
			remaining: remaining,
			live:      true,
		}
	}

	order := "asc"
	if req.Tail {
		order = "desc"
	}

	for {
		cursors, requested := buildCursors(batch, states)
		if len(cursors) == 0 {
			break
		}

		body, err := e.backend.Call(ctx, pathMetricsSeries, seriesCallRequest{
			ProjectIdentifier: string(req.Project),
			Series:            cursors,
			Order:             order,
			StepRange:         req.StepRange,
			IncludePreview:    req.IncludePreview,
		})
		if err != nil {
			// A no-data status means these series have nothing more;
			// keep what was already fetched.
			if errors.Is(err, retry.ErrEmptyResult) {
				break
			}
			return nil, err
		}

		var resp seriesCallResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, fmt.Errorf("decode series points: %w", err)
		}

		returned := make(map[identifiers.RunAttributeDefinition]bool, len(resp.Series))
		for _, payload := range resp.Series {
			def, state, err := matchSeries(req.Project, payload, states)
			if err != nil {
				return nil, err
			}
			returned[def] = true
			advanceSeries(state, payload.Points, requested[def])
		}

		// Series absent from the response have no more points.
		for def, state := range states {
			if state.live && !returned[def] {
				state.live = false
			}
		}
	}

	if req.Tail {
		for i := range results {
			reversePoints(results[i].Points)
		}
	}
	return results, nil
}

// buildCursors assembles the next call's cursor list and records how
// many points each live series was asked for.
func buildCursors(
	batch []identifiers.RunAttributeDefinition,
	states map[identifiers.RunAttributeDefinition]*seriesState,
) ([]seriesCursor, map[identifiers.RunAttributeDefinition]int) {
	live := 0
	for _, state := range states {
		if state.live {
			live++
		}
	}
	if live == 0 {
		return nil, nil
	}

	perSeries := totalPointLimit / live
	if perSeries < 1 {
		perSeries = 1
	}

	cursors := make([]seriesCursor, 0, live)
	requested := make(map[identifiers.RunAttributeDefinition]int, live)
	for _, def := range batch {
		state := states[def]
		if !state.live {
			continue
		}
		limit := perSeries
		if state.remaining != pagination.Unlimited && state.remaining < limit {
			limit = state.remaining
		}
		requested[def] = limit
		cursors = append(cursors, seriesCursor{
			RunID:     string(def.Run.SysID),
			Attribute: def.Attribute.Name,
			AfterStep: state.afterStep,
			Limit:     limit,
		})
	}
	return cursors, requested
}

func matchSeries(
	project identifiers.ProjectIdentifier,
	payload seriesPayload,
	states map[identifiers.RunAttributeDefinition]*seriesState,
) (identifiers.RunAttributeDefinition, *seriesState, error) {
	for def, state := range states {
		if string(def.Run.SysID) == payload.RunID && def.Attribute.Name == payload.Attribute {
			return def, state, nil
		}
	}
	return identifiers.RunAttributeDefinition{}, nil,
		fmt.Errorf("backend returned unrequested series %s/%s:%s", project, payload.RunID, payload.Attribute)
}

// advanceSeries appends a page of points and updates the cursor. A
// short page exhausts the series.
func advanceSeries(state *seriesState, points []pointEntry, requested int) {
	for _, p := range points {
		state.result.Points = append(state.result.Points, MetricPoint{
			Step:        p.Step,
			Value:       p.Value,
			TimestampMS: p.TimestampMS,
			IsPreview:   p.IsPreview,
			Completion:  p.Completion,
		})
	}

	if len(points) > 0 {
		last := points[len(points)-1].Step
		state.afterStep = &last
	}
	if state.remaining != pagination.Unlimited {
		state.remaining -= len(points)
		if state.remaining <= 0 {
			state.live = false
		}
	}
	if len(points) < requested {
		state.live = false
	}
}

func reversePoints(points []MetricPoint) {
	for i, j := 0, len(points)-1; i < j; i, j = i+1, j-1 {
		points[i], points[j] = points[j], points[i]
	}
}
