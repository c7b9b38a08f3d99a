package pagination

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

func TestFanOut_MergesInBatchOrder(t *testing.T) {
	ctx := context.Background()
	jobs := []Job[int]{
		func(context.Context) ([]int, error) { return []int{1, 2}, nil },
		func(context.Context) ([]int, error) { return []int{3}, nil },
		func(context.Context) ([]int, error) { return nil, nil },
		func(context.Context) ([]int, error) { return []int{4, 5, 6}, nil },
	}

	got, err := FanOut(ctx, 2, jobs)
	if err != nil {
		t.Fatalf("FanOut() error = %v", err)
	}
	want := []int{1, 2, 3, 4, 5, 6}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestFanOut_NoJobs(t *testing.T) {
	got, err := FanOut[int](context.Background(), 4, nil)
	if err != nil {
		t.Fatalf("FanOut() error = %v", err)
	}
	if got != nil {
		t.Errorf("FanOut() = %v, want nil", got)
	}
}

func TestFanOut_BoundsConcurrency(t *testing.T) {
	ctx := context.Background()
	const maxWorkers = 3

	var active, peak int32
	var mu sync.Mutex
	job := func(context.Context) ([]int, error) {
		n := atomic.AddInt32(&active, 1)
		mu.Lock()
		if n > peak {
			peak = n
		}
		mu.Unlock()
		defer atomic.AddInt32(&active, -1)
		return []int{1}, nil
	}

	jobs := make([]Job[int], 20)
	for i := range jobs {
		jobs[i] = job
	}

	if _, err := FanOut(ctx, maxWorkers, jobs); err != nil {
		t.Fatalf("FanOut() error = %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if peak > maxWorkers {
		t.Errorf("peak concurrency = %d, want <= %d", peak, maxWorkers)
	}
}

func TestFanOut_FatalErrorDiscardsPartialResults(t *testing.T) {
	ctx := context.Background()
	fatal := errors.New("unauthorized")
	jobs := []Job[int]{
		func(context.Context) ([]int, error) { return []int{1}, nil },
		func(context.Context) ([]int, error) { return nil, fatal },
		func(ctx context.Context) ([]int, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}

	got, err := FanOut(ctx, 3, jobs)
	if !errors.Is(err, fatal) {
		t.Fatalf("FanOut() error = %v, want %v", err, fatal)
	}
	if got != nil {
		t.Errorf("FanOut() = %v, want nil on error", got)
	}
}

func TestFanOut_StopsDispatchingAfterError(t *testing.T) {
	ctx := context.Background()
	fatal := errors.New("boom")

	var started int32
	jobs := make([]Job[int], 50)
	jobs[0] = func(context.Context) ([]int, error) {
		atomic.AddInt32(&started, 1)
		return nil, fatal
	}
	for i := 1; i < len(jobs); i++ {
		jobs[i] = func(context.Context) ([]int, error) {
			atomic.AddInt32(&started, 1)
			return []int{1}, nil
		}
	}

	if _, err := FanOut(ctx, 1, jobs); !errors.Is(err, fatal) {
		t.Fatalf("FanOut() error = %v, want %v", err, fatal)
	}
	// The single worker fails on the first batch; the dispatcher
	// must not hand out the remaining ones.
	if n := atomic.LoadInt32(&started); n != 1 {
		t.Errorf("jobs started = %d, want 1", n)
	}
}

func TestFanOut_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	jobs := []Job[int]{
		func(ctx context.Context) ([]int, error) {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			return []int{1}, nil
		},
	}

	if _, err := FanOut(ctx, 1, jobs); !errors.Is(err, context.Canceled) {
		t.Fatalf("FanOut() error = %v, want context.Canceled", err)
	}
}
