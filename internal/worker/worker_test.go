package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestWorkerPool_StartStop(t *testing.T) {
	var processed atomic.Int64
	processor := func(ctx context.Context, job int) error {
		processed.Add(1)
		return nil
	}

	pool := NewWorkerPool("test", 2, 10, processor)

	ctx, cancel := context.WithCancel(context.Background())
	pool.Start(ctx)

	for i := 0; i < 5; i++ {
		pool.Submit(i)
	}

	time.Sleep(50 * time.Millisecond)

	cancel()
	pool.Stop()

	if processed.Load() != 5 {
		t.Errorf("expected 5 jobs processed, got %d", processed.Load())
	}
}

func TestWorkerPool_StopDrainsQueue(t *testing.T) {
	var processed atomic.Int64
	processor := func(ctx context.Context, job int) error {
		processed.Add(int64(job))
		return nil
	}

	pool := NewWorkerPool("test", 1, 10, processor)
	pool.Start(context.Background())

	for i := 1; i <= 4; i++ {
		pool.Submit(i)
	}
	pool.Stop()

	if processed.Load() != 10 {
		t.Errorf("expected sum 10, got %d", processed.Load())
	}
}

func TestWorkerPool_ConcurrentSubmit(t *testing.T) {
	var processed atomic.Int64
	processor := func(ctx context.Context, job int) error {
		processed.Add(1)
		return nil
	}

	pool := NewWorkerPool("test", 4, 100, processor)

	ctx, cancel := context.WithCancel(context.Background())
	pool.Start(ctx)

	for i := 0; i < 100; i++ {
		go func(n int) {
			pool.Submit(n)
		}(i)
	}

	time.Sleep(100 * time.Millisecond)

	cancel()
	pool.Stop()

	if processed.Load() != 100 {
		t.Errorf("expected 100 jobs processed, got %d", processed.Load())
	}
}

func TestWorkerPool_ErrorsDoNotStopWorkers(t *testing.T) {
	var processed atomic.Int64
	processor := func(ctx context.Context, job int) error {
		processed.Add(1)
		if job%2 == 0 {
			return errors.New("even job")
		}
		return nil
	}

	pool := NewWorkerPool("test", 1, 10, processor)
	pool.Start(context.Background())
	for i := 0; i < 6; i++ {
		pool.Submit(i)
	}
	pool.Stop()

	if processed.Load() != 6 {
		t.Errorf("expected 6 jobs processed, got %d", processed.Load())
	}
}

func TestWorkerPool_TrySubmitFull(t *testing.T) {
	block := make(chan struct{})
	processor := func(ctx context.Context, job int) error {
		<-block
		return nil
	}

	pool := NewWorkerPool("test", 1, 1, processor)
	pool.Start(context.Background())

	// first job is picked up by the worker, second fills the buffer
	pool.Submit(1)
	deadline := time.Now().Add(time.Second)
	for !pool.TrySubmit(2) {
		if time.Now().After(deadline) {
			t.Fatal("buffer never had room")
		}
		time.Sleep(time.Millisecond)
	}
	if pool.TrySubmit(3) {
		t.Error("expected TrySubmit to fail on a full buffer")
	}

	close(block)
	pool.Stop()
}

func TestWorkerPool_GracefulShutdown(t *testing.T) {
	var processed atomic.Int64
	processor := func(ctx context.Context, job int) error {
		time.Sleep(10 * time.Millisecond)
		processed.Add(1)
		return nil
	}

	pool := NewWorkerPool("test", 2, 50, processor)

	ctx, cancel := context.WithCancel(context.Background())
	pool.Start(ctx)

	for i := 0; i < 20; i++ {
		pool.Submit(i)
	}

	cancel()

	done := make(chan struct{})
	go func() {
		pool.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("pool.Stop() timed out")
	}

	// Stop is idempotent
	pool.Stop()

	t.Logf("processed %d jobs before shutdown", processed.Load())
}
