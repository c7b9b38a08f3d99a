// Package split partitions retrieval work into batches that respect
// the backend's request-size and item-count limits.
//
// All functions are pure: identical inputs always produce identical
// batch shapes, and concatenating the returned batches in order
// reproduces the input exactly. Batches are subslices of the input,
// never copies. A single item whose estimated size exceeds the budget
// still forms its own batch, so a split can always make progress.
package split

import (
	"math"

	"github.com/neptune-ai/neptune-query-go/pkg/identifiers"
)

// RunIDs splits run identifiers into evenly sized groups under the
// request-size budget. Every identifier is assumed to occupy a fixed
// number of bytes, so the split first derives the minimum number of
// batches and then levels them: each batch holds ceil(n/k) items, the
// last one the remainder. 9 identifiers with room for 4 per request
// come out as [3 3 3] rather than [4 4 1].
func RunIDs(ids []identifiers.SysID, maxRequestSize int) [][]identifiers.SysID {
	n := len(ids)
	if n == 0 {
		return nil
	}

	maxPerBatch := maxRequestSize / identifiers.SysIDSizeEstimate
	if maxPerBatch < 1 {
		maxPerBatch = 1
	}

	numBatches := ceilDiv(n, maxPerBatch)
	perBatch := ceilDiv(n, numBatches)

	batches := make([][]identifiers.SysID, 0, numBatches)
	for start := 0; start < n; start += perBatch {
		end := start + perBatch
		if end > n {
			end = n
		}
		batches = append(batches, ids[start:end])
	}
	return batches
}

// AttributeNames splits attribute names into groups whose summed byte
// size stays within the filter budget. Names have variable length, so
// the split is a greedy fill: each batch takes names until the next
// one would overflow. A name larger than the whole budget gets a batch
// of its own.
func AttributeNames(names []string, maxFilterSize int) [][]string {
	n := len(names)
	if n == 0 {
		return nil
	}

	var batches [][]string
	start := 0
	size := 0
	for i, name := range names {
		if i > start && size+len(name) > maxFilterSize {
			batches = append(batches, names[start:i])
			start = i
			size = 0
		}
		size += len(name)
	}
	return append(batches, names[start:])
}

// SeriesAttributes splits run-attribute pairs for series retrieval.
//
// The backend divides a fixed total point budget across the series in
// one request, so batches should be neither tiny (too many round
// trips) nor huge (too few points per series). The target batch size
// is n^(2/3), which balances batch count against batch width, raised
// to ceil(n/maxWorkers) so the number of batches never exceeds the
// worker pool, and capped by the per-request series limit. Batches
// are then filled greedily under the request-size budget.
func SeriesAttributes(
	items []identifiers.RunAttributeDefinition,
	maxRequestSize int,
	seriesBatchSize int,
	maxWorkers int,
) [][]identifiers.RunAttributeDefinition {
	n := len(items)
	if n == 0 {
		return nil
	}

	target := ceilRoot23(n)
	if maxWorkers > 0 {
		if floor := ceilDiv(n, maxWorkers); floor > target {
			target = floor
		}
	}
	if seriesBatchSize > 0 && target > seriesBatchSize {
		target = seriesBatchSize
	}
	if target < 1 {
		target = 1
	}

	var batches [][]identifiers.RunAttributeDefinition
	start := 0
	size := 0
	for i, item := range items {
		itemSize := item.Attribute.EstimatedSize()
		if i > start && (i-start >= target || size+itemSize > maxRequestSize) {
			batches = append(batches, items[start:i])
			start = i
			size = 0
		}
		size += itemSize
	}
	return append(batches, items[start:])
}

// RunsAttributesBatch is one cell of the 2-D grid split: a group of
// runs paired with a group of attribute definitions, fetched in one
// request.
type RunsAttributesBatch struct {
	SysIDs     []identifiers.SysID
	Attributes []identifiers.AttributeDefinition
}

// RunsAttributes splits the cross product of runs and attribute
// definitions into grid cells bounded by the request-size budget and
// the per-request value-count cap.
//
// Attribute definitions are grouped greedily first, leaving room for
// at least one run identifier in the size budget. A single run-group
// size is then derived from the tightest attribute group, so all
// cells share the same run partition and the output enumerates cells
// run-major. When maxBatches > 0 and the grid would exceed it, run
// groups are merged until the cell count fits: the worker cap is a
// hard ceiling, and coarser cells are preferred over more of them.
func RunsAttributes(
	ids []identifiers.SysID,
	defs []identifiers.AttributeDefinition,
	maxRequestSize int,
	valuesBatchSize int,
	maxBatches int,
) []RunsAttributesBatch {
	if len(ids) == 0 || len(defs) == 0 {
		return nil
	}
	if valuesBatchSize < 1 {
		valuesBatchSize = 1
	}

	attrGroups := splitDefinitions(defs, valuesBatchSize, maxRequestSize-identifiers.SysIDSizeEstimate)

	runsPerBatch := math.MaxInt
	for _, group := range attrGroups {
		byCount := valuesBatchSize / len(group)
		groupSize := 0
		for _, def := range group {
			groupSize += def.EstimatedSize()
		}
		bySize := (maxRequestSize - groupSize) / identifiers.SysIDSizeEstimate
		if byCount < runsPerBatch {
			runsPerBatch = byCount
		}
		if bySize < runsPerBatch {
			runsPerBatch = bySize
		}
	}
	if runsPerBatch < 1 {
		runsPerBatch = 1
	}

	if maxBatches > 0 {
		// Coarsen the run partition until the grid fits the cap.
		for ceilDiv(len(ids), runsPerBatch)*len(attrGroups) > maxBatches && runsPerBatch < len(ids) {
			runsPerBatch = ceilDiv(len(ids), ceilDiv(len(ids), runsPerBatch)-1)
		}
	}

	var batches []RunsAttributesBatch
	for start := 0; start < len(ids); start += runsPerBatch {
		end := start + runsPerBatch
		if end > len(ids) {
			end = len(ids)
		}
		for _, group := range attrGroups {
			batches = append(batches, RunsAttributesBatch{
				SysIDs:     ids[start:end],
				Attributes: group,
			})
		}
	}
	return batches
}

// splitDefinitions greedily groups definitions under a count cap and a
// size budget, one oversized definition per batch if need be.
func splitDefinitions(
	defs []identifiers.AttributeDefinition,
	maxCount int,
	maxSize int,
) [][]identifiers.AttributeDefinition {
	var groups [][]identifiers.AttributeDefinition
	start := 0
	size := 0
	for i, def := range defs {
		if i > start && (i-start >= maxCount || size+def.EstimatedSize() > maxSize) {
			groups = append(groups, defs[start:i])
			start = i
			size = 0
		}
		size += def.EstimatedSize()
	}
	return append(groups, defs[start:])
}

// ceilRoot23 computes ceil(n^(2/3)) with a guard against float noise
// on exact cubes.
func ceilRoot23(n int) int {
	v := math.Cbrt(float64(n) * float64(n))
	return int(math.Ceil(v - 1e-9))
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
