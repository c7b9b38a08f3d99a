package retrieval

import (
	"context"
	"testing"

	"github.com/neptune-ai/neptune-query-go/pkg/buckets"
	"github.com/neptune-ai/neptune-query-go/pkg/identifiers"
)

func TestMetricBuckets_AggregatesFetchedSeries(t *testing.T) {
	mb := newMetricsBackend(t)
	mb.addSeries("RUN-1", "loss", 0, 1, 2)

	result, err := mb.engine.MetricBuckets(context.Background(), MetricBucketsRequest{
		Project: "ws/pr",
		Series:  []identifiers.RunAttributeDefinition{floatSeries("ws/pr", "RUN-1", "loss")},
		Limit:   2,
	})
	if err != nil {
		t.Fatalf("MetricBuckets() error = %v", err)
	}
	if len(result) != 1 {
		t.Fatalf("result = %d series, want 1", len(result))
	}
	got := result[0].Buckets
	if len(got) != 2 {
		t.Fatalf("buckets = %d, want 2", len(got))
	}
	// Backend values are step*10. The opening bucket holds step 0,
	// the closing interior bucket the remaining two points.
	if got[0].Index != 0 || got[0].FinitePointCount != 1 || got[0].FirstY != 0 {
		t.Errorf("bucket 0 = %+v", got[0])
	}
	if got[1].Index != 1 || got[1].FinitePointCount != 2 || got[1].LastY != 20 {
		t.Errorf("bucket 1 = %+v", got[1])
	}
}

func TestMetricBuckets_ExplicitRangeForwardedAsStepRange(t *testing.T) {
	mb := newMetricsBackend(t)
	mb.addSeries("RUN-1", "loss", 0, 5, 10)

	_, err := mb.engine.MetricBuckets(context.Background(), MetricBucketsRequest{
		Project: "ws/pr",
		Series:  []identifiers.RunAttributeDefinition{floatSeries("ws/pr", "RUN-1", "loss")},
		Limit:   3,
		XRange:  &buckets.Range{From: 0, To: 10},
	})
	if err != nil {
		t.Fatalf("MetricBuckets() error = %v", err)
	}
	sr := mb.calls[0].StepRange
	if sr == nil || *sr.From != 0 || *sr.To != 10 {
		t.Errorf("stepRange = %+v, want [0, 10]", sr)
	}
}

func TestMetricBuckets_InvalidLimit(t *testing.T) {
	mb := newMetricsBackend(t)
	_, err := mb.engine.MetricBuckets(context.Background(), MetricBucketsRequest{
		Project: "ws/pr",
		Series:  []identifiers.RunAttributeDefinition{floatSeries("ws/pr", "RUN-1", "loss")},
		Limit:   0,
	})
	if err == nil {
		t.Error("MetricBuckets() error = nil, want error")
	}
	if len(mb.calls) != 0 {
		t.Errorf("calls = %d, want 0", len(mb.calls))
	}
}

func TestMetricBuckets_EmptySeriesProducesNoBuckets(t *testing.T) {
	mb := newMetricsBackend(t)
	mb.addSeries("RUN-1", "loss")

	result, err := mb.engine.MetricBuckets(context.Background(), MetricBucketsRequest{
		Project: "ws/pr",
		Series:  []identifiers.RunAttributeDefinition{floatSeries("ws/pr", "RUN-1", "loss")},
		Limit:   5,
	})
	if err != nil {
		t.Fatalf("MetricBuckets() error = %v", err)
	}
	if len(result) != 1 || len(result[0].Buckets) != 0 {
		t.Errorf("result = %+v, want one series with no buckets", result)
	}
}
