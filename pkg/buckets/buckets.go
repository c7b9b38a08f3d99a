// Package buckets downsamples a raw time series into a small, fixed
// number of summary buckets for visualization.
//
// The bucket layout for a requested limit is limit+1 half-open
// intervals covering the entire real line: bucket 0 is (-inf, from],
// buckets 1..limit-1 are equal-width right-closed slices of
// [from, to], and bucket limit is (to, +inf). The two outer buckets
// are usually empty; collapsing them for display is a presentation
// concern and deliberately not done here.
package buckets

import (
	"fmt"
	"math"
)

// Point is one (x, y) sample of a series. Y may be NaN or infinite.
type Point struct {
	X float64
	Y float64
}

// Range is an explicit x-range for bucketing.
type Range struct {
	From float64
	To   float64
}

// TimeseriesBucket summarizes the points of one series whose x falls
// into the bucket's interval. FirstX/FirstY and LastX/LastY describe
// the first and last point in x order with a finite y; they are NaN
// when the bucket holds only non-finite values. Non-finite y values
// are excluded from the summary statistics but still counted, so no
// point is silently lost.
type TimeseriesBucket struct {
	Index int

	FromX float64
	ToX   float64

	FirstX float64
	FirstY float64
	LastX  float64
	LastY  float64

	YMin            float64
	YMax            float64
	FinitePointsSum float64

	FinitePointCount int
	NaNCount         int
	PositiveInfCount int
	NegativeInfCount int
}

// Aggregate reduces points to at most limit+1 buckets. When xRange is
// nil the range is the min/max of the points' x values. A degenerate
// range (from == to) produces the single unbounded bucket [from, +inf);
// points with x below from fall outside that bucket and are excluded
// from the result, counts included. Empty input yields no buckets;
// buckets without any points are omitted. A limit below 1 is a caller
// error.
func Aggregate(points []Point, limit int, xRange *Range) ([]TimeseriesBucket, error) {
	if limit < 1 {
		return nil, fmt.Errorf("bucket limit must be >= 1, got %d", limit)
	}
	if len(points) == 0 {
		return nil, nil
	}

	from, to := resolveRange(points, xRange)
	if from == to {
		return aggregateDegenerate(points, from), nil
	}

	width := 0.0
	if limit > 1 {
		width = (to - from) / float64(limit-1)
	}

	acc := make([]*TimeseriesBucket, limit+1)
	for _, p := range points {
		idx := bucketIndex(p.X, from, to, width, limit)
		if acc[idx] == nil {
			acc[idx] = newBucket(idx, from, width, limit)
		}
		acc[idx].add(p)
	}

	result := make([]TimeseriesBucket, 0, limit+1)
	for _, b := range acc {
		if b != nil {
			result = append(result, *b)
		}
	}
	return result, nil
}

func resolveRange(points []Point, xRange *Range) (float64, float64) {
	if xRange != nil {
		return xRange.From, xRange.To
	}
	from, to := points[0].X, points[0].X
	for _, p := range points[1:] {
		if p.X < from {
			from = p.X
		}
		if p.X > to {
			to = p.X
		}
	}
	return from, to
}

// bucketIndex assigns x to the right-closed interval containing it.
// Bucket 0 additionally owns its right endpoint's left neighborhood
// down to -inf, so every real x lands in exactly one bucket.
func bucketIndex(x, from, to, width float64, limit int) int {
	if x <= from {
		return 0
	}
	if x > to || limit == 1 {
		return limit
	}
	idx := int(math.Ceil((x - from) / width))
	if idx < 1 {
		idx = 1
	}
	if idx > limit-1 {
		idx = limit - 1
	}
	return idx
}

func newBucket(idx int, from, width float64, limit int) *TimeseriesBucket {
	b := &TimeseriesBucket{
		Index:  idx,
		FromX:  math.Inf(-1),
		ToX:    math.Inf(1),
		FirstX: math.NaN(),
		FirstY: math.NaN(),
		LastX:  math.NaN(),
		LastY:  math.NaN(),
		YMin:   math.NaN(),
		YMax:   math.NaN(),
	}
	if idx > 0 {
		b.FromX = from + width*float64(idx-1)
	}
	if idx < limit {
		b.ToX = from + width*float64(idx)
	}
	return b
}

func (b *TimeseriesBucket) add(p Point) {
	switch {
	case math.IsNaN(p.Y):
		b.NaNCount++
		return
	case math.IsInf(p.Y, 1):
		b.PositiveInfCount++
		return
	case math.IsInf(p.Y, -1):
		b.NegativeInfCount++
		return
	}

	if b.FinitePointCount == 0 || p.X < b.FirstX {
		b.FirstX = p.X
		b.FirstY = p.Y
	}
	if b.FinitePointCount == 0 || p.X >= b.LastX {
		b.LastX = p.X
		b.LastY = p.Y
	}
	if b.FinitePointCount == 0 || p.Y < b.YMin {
		b.YMin = p.Y
	}
	if b.FinitePointCount == 0 || p.Y > b.YMax {
		b.YMax = p.Y
	}
	b.FinitePointsSum += p.Y
	b.FinitePointCount++
}

// aggregateDegenerate handles from == to: the backend reports one
// unbounded bucket [from, +inf) in this case, and we mirror it.
func aggregateDegenerate(points []Point, from float64) []TimeseriesBucket {
	b := newBucket(0, from, 0, 0)
	b.FromX = from
	count := 0
	for _, p := range points {
		if p.X >= from {
			b.add(p)
			count++
		}
	}
	if count == 0 {
		return nil
	}
	return []TimeseriesBucket{*b}
}
