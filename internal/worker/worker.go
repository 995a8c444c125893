package worker

import (
	"context"
	"log/slog"
	"sync"
)

type ProcessFunc[T any] func(ctx context.Context, job T) error

// WorkerPool runs jobs on a fixed number of goroutines. Submit blocks once the
// buffer is full; Stop closes the queue and waits for in-flight jobs.
type WorkerPool[T any] struct {
	name       string
	numWorkers int
	jobs       chan T
	processor  ProcessFunc[T]
	wg         sync.WaitGroup
	stopOnce   sync.Once
}

func NewWorkerPool[T any](name string, numWorkers int, bufferSize int, processor ProcessFunc[T]) *WorkerPool[T] {
	if numWorkers < 1 {
		numWorkers = 1
	}
	return &WorkerPool[T]{
		name:       name,
		numWorkers: numWorkers,
		jobs:       make(chan T, bufferSize),
		processor:  processor,
	}
}

func (wp *WorkerPool[T]) Start(ctx context.Context) {
	for i := 1; i <= wp.numWorkers; i++ {
		wp.wg.Add(1)
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool[T]) worker(ctx context.Context, id int) {
	defer wp.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-wp.jobs:
			if !ok {
				return
			}
			if err := wp.processor(ctx, job); err != nil {
				slog.Warn("job failed", "pool", wp.name, "worker", id, "error", err)
			}
		}
	}
}

func (wp *WorkerPool[T]) Submit(job T) {
	wp.jobs <- job
}

// TrySubmit enqueues job unless the buffer is full.
func (wp *WorkerPool[T]) TrySubmit(job T) bool {
	select {
	case wp.jobs <- job:
		return true
	default:
		return false
	}
}

func (wp *WorkerPool[T]) Stop() {
	wp.stopOnce.Do(func() {
		close(wp.jobs)
	})
	wp.wg.Wait()
}
