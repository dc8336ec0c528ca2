package facts

import (
	"context"
	"sync"

	"github.com/marusama/semaphore/v2"
	"golang.org/x/sync/singleflight"
)

// queue runs the I/O for one fact kind. At most limit operations run at once and
// concurrent requests for the same path share a single operation.
type queue[T any] struct {
	mu    sync.Mutex
	limit int
	sem   semaphore.Semaphore
	group singleflight.Group
	run   func(ctx context.Context, path string) (T, error)
}

func newQueue[T any](limit int, run func(ctx context.Context, path string) (T, error)) *queue[T] {
	limit = max(limit, 1)
	return &queue[T]{
		limit: limit,
		sem:   semaphore.New(limit),
		run:   run,
	}
}

// do returns the result of the operation for path. The shared operation is detached
// from ctx so that one caller giving up does not fail the others; the caller itself
// stops waiting when ctx is done.
func (q *queue[T]) do(ctx context.Context, path string) (T, error) {
	ch := q.group.DoChan(path, func() (any, error) {
		opCtx := context.WithoutCancel(ctx)
		if err := q.sem.Acquire(opCtx, 1); err != nil {
			return nil, err
		}
		defer q.sem.Release(1)
		return q.run(opCtx, path)
	})

	var zero T
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		v, _ := res.Val.(T)
		return v, nil
	}
}

// widen lets one more operation run while a running operation waits on nested
// operations of the same kind. Without it a full queue of directories waiting on
// their subdirectories would never make progress.
func (q *queue[T]) widen() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.limit++
	q.sem.SetLimit(q.limit)
}

// narrow undoes widen.
func (q *queue[T]) narrow() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.limit--
	q.sem.SetLimit(q.limit)
}

func (q *queue[T]) currentLimit() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.limit
}
