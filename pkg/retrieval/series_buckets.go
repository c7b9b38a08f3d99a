package retrieval

import (
	"context"
	"fmt"

	"github.com/neptune-ai/neptune-query-go/pkg/buckets"
	"github.com/neptune-ai/neptune-query-go/pkg/identifiers"
)

// MetricBucketsRequest describes one bucket aggregation fetch.
type MetricBucketsRequest struct {
	Project identifiers.ProjectIdentifier

	// Series to aggregate, one entry per run x attribute pair.
	Series []identifiers.RunAttributeDefinition

	// Limit is the interior bucket count; must be at least 1.
	Limit int

	// XRange optionally fixes the bucketed x interval. When nil the
	// interval spans each series' own step extent.
	XRange *buckets.Range

	// IncludePreview also aggregates not-yet-committed points.
	IncludePreview bool
}

// SeriesBuckets holds the non-empty buckets of one series.
type SeriesBuckets struct {
	Run       identifiers.RunIdentifier
	Attribute identifiers.AttributeDefinition
	Buckets   []buckets.TimeseriesBucket
}

// MetricBuckets fetches the requested series and reduces each to at
// most Limit+1 summary buckets over the step axis. Sentinel values
// are counted per bucket but never summarized.
func (e *Engine) MetricBuckets(ctx context.Context, req MetricBucketsRequest) ([]SeriesBuckets, error) {
	if req.Limit < 1 {
		return nil, fmt.Errorf("bucket limit must be at least 1, got %d", req.Limit)
	}

	var stepRange *StepRange
	if req.XRange != nil {
		from, to := req.XRange.From, req.XRange.To
		stepRange = &StepRange{From: &from, To: &to}
	}

	series, err := e.Metrics(ctx, MetricsRequest{
		Project:        req.Project,
		Series:         req.Series,
		StepRange:      stepRange,
		IncludePreview: req.IncludePreview,
	})
	if err != nil {
		return nil, err
	}

	out := make([]SeriesBuckets, len(series))
	for i, s := range series {
		points := make([]buckets.Point, len(s.Points))
		for j, p := range s.Points {
			points[j] = buckets.Point{X: p.Step, Y: p.Value}
		}
		aggregated, err := buckets.Aggregate(points, req.Limit, req.XRange)
		if err != nil {
			return nil, err
		}
		out[i] = SeriesBuckets{
			Run:       s.Run,
			Attribute: s.Attribute,
			Buckets:   aggregated,
		}
	}
	return out, nil
}
