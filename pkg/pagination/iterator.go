package pagination

import (
	"context"
	"errors"
	"fmt"

	"github.com/neptune-ai/neptune-query-go/pkg/retry"
)

// Unlimited disables the caller limit on an Iterator.
const Unlimited = -1

// PageFunc fetches one page of items starting at offset. It must
// return at most limit items; returning fewer marks the final page.
type PageFunc[T any] func(ctx context.Context, offset, limit int) ([]T, error)

// Iterator pulls pages of a single logical batch on demand. It is not
// safe for concurrent use; run one iterator per goroutine.
type Iterator[T any] struct {
	fetch     PageFunc[T]
	pageSize  int
	remaining int
	offset    int
	page      []T
	err       error
	done      bool
}

// NewIterator creates a page iterator. pageSize is the per-request
// item count; limit caps the total items delivered (Unlimited for no
// cap).
func NewIterator[T any](fetch PageFunc[T], pageSize, limit int) *Iterator[T] {
	if pageSize <= 0 {
		pageSize = 1
	}
	return &Iterator[T]{
		fetch:     fetch,
		pageSize:  pageSize,
		remaining: limit,
	}
}

// Next fetches the next page and reports whether one is available.
// After Next returns false the caller must check Err.
func (it *Iterator[T]) Next(ctx context.Context) bool {
	if it.done || it.err != nil {
		return false
	}
	if it.remaining == 0 {
		it.done = true
		return false
	}

	request := it.pageSize
	if it.remaining != Unlimited && it.remaining < request {
		request = it.remaining
	}

	page, err := it.fetch(ctx, it.offset, request)
	if err != nil {
		// Missing projects, unknown attributes and similar
		// client-data conditions end the batch with what was
		// fetched so far.
		if errors.Is(err, retry.ErrEmptyResult) {
			it.done = true
			return false
		}
		it.err = err
		return false
	}

	if len(page) > request {
		it.err = fmt.Errorf("backend returned %d items for a page of %d", len(page), request)
		return false
	}

	it.offset += len(page)
	if it.remaining != Unlimited {
		it.remaining -= len(page)
	}
	if len(page) < request {
		it.done = true
	}
	if len(page) == 0 {
		return false
	}

	it.page = page
	return true
}

// Page returns the page fetched by the last successful Next call.
func (it *Iterator[T]) Page() []T {
	return it.page
}

// Err returns the fatal error that stopped iteration, if any.
func (it *Iterator[T]) Err() error {
	return it.err
}

// Collect drains the iterator into a single slice.
func (it *Iterator[T]) Collect(ctx context.Context) ([]T, error) {
	var items []T
	for it.Next(ctx) {
		items = append(items, it.page...)
	}
	if err := it.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
