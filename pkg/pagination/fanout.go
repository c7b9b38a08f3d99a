package pagination

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Job produces the full item stream of one batch, typically by
// draining an Iterator.
type Job[T any] func(ctx context.Context) ([]T, error)

// FanOut runs one job per batch on at most maxWorkers goroutines and
// returns the merged results in batch order. The first fatal error
// cancels the remaining work and discards all partial results.
func FanOut[T any](ctx context.Context, maxWorkers int, jobs []Job[T]) ([]T, error) {
	if len(jobs) == 0 {
		return nil, nil
	}
	if maxWorkers <= 0 {
		maxWorkers = 1
	}
	if maxWorkers > len(jobs) {
		maxWorkers = len(jobs)
	}

	start := time.Now()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	queue := make(chan int)
	results := make([][]T, len(jobs))
	errs := make(chan error, maxWorkers)

	go func() {
		defer close(queue)
		for i := range jobs {
			select {
			case queue <- i:
			case <-ctx.Done():
				// A worker failed; leave the remaining
				// batches undispatched.
				return
			}
		}
	}()

	var wg sync.WaitGroup
	for w := 0; w < maxWorkers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for i := range queue {
				items, err := jobs[i](ctx)
				if err != nil {
					log.Warn().
						Err(err).
						Int("worker_id", workerID).
						Int("batch", i).
						Msg("Batch fetch failed")
					select {
					case errs <- err:
					default:
					}
					cancel()
					return
				}
				results[i] = items
			}
		}(w)
	}
	wg.Wait()
	close(errs)

	if err := <-errs; err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var total int
	for _, r := range results {
		total += len(r)
	}
	merged := make([]T, 0, total)
	for _, r := range results {
		merged = append(merged, r...)
	}

	log.Debug().
		Int("batches", len(jobs)).
		Int("items", total).
		Dur("duration", time.Since(start)).
		Msg("Fan-out complete")

	return merged, nil
}
