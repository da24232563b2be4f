package http

import (
	"bytes"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func TestNewWorkerPoolInvalidSize(t *testing.T) {
	_, err := NewWorkerPool(0, 8, nil)
	assert.ErrorIs(t, err, ErrInvalidPoolSize)
}

func TestWorkerPoolRunsEveryJobOnce(t *testing.T) {
	const (
		workers = 4
		jobs    = 200
	)

	wp, err := NewWorkerPool(workers, jobs, discardLogger())
	require.NoError(t, err)
	assert.Equal(t, workers, wp.Size())

	var (
		runs    [jobs]atomic.Int32
		running atomic.Int32
		peak    atomic.Int32
	)

	for i := range jobs {
		require.NoError(t, wp.Execute(func() {
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			runs[i].Add(1)
			running.Add(-1)
		}))
	}

	wp.Shutdown()

	for i := range runs {
		assert.Equal(t, int32(1), runs[i].Load(), "job %d", i)
	}
	assert.LessOrEqual(t, peak.Load(), int32(workers))
	assert.Positive(t, peak.Load())
}

func TestWorkerPoolKeepsSubmissionOrder(t *testing.T) {
	wp, err := NewWorkerPool(1, 64, discardLogger())
	require.NoError(t, err)

	var (
		mu    sync.Mutex
		order []int
	)
	for i := range 50 {
		require.NoError(t, wp.Execute(func() {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		}))
	}
	wp.Shutdown()

	require.Len(t, order, 50)
	for i, v := range order {
		assert.Equal(t, i, v)
	}
}

func TestWorkerPoolSurvivesPanics(t *testing.T) {
	var logs bytes.Buffer
	wp, err := NewWorkerPool(2, 16, slog.New(slog.NewTextHandler(&logs, nil)))
	require.NoError(t, err)

	var done atomic.Int32
	for range 4 {
		require.NoError(t, wp.Execute(func() { panic("bad connection") }))
	}
	for range 4 {
		require.NoError(t, wp.Execute(func() { done.Add(1) }))
	}
	wp.Shutdown()

	assert.Equal(t, int32(4), done.Load())
	assert.Contains(t, logs.String(), "bad connection")
}

func TestWorkerPoolRejectsAfterShutdown(t *testing.T) {
	wp, err := NewWorkerPool(2, 4, discardLogger())
	require.NoError(t, err)

	wp.Shutdown()
	wp.Shutdown()

	assert.ErrorIs(t, wp.Execute(func() {}), ErrPoolClosed)
}

func TestWorkerPoolShutdownWaitsForQueuedJobs(t *testing.T) {
	wp, err := NewWorkerPool(1, 8, discardLogger())
	require.NoError(t, err)

	release := make(chan struct{})
	var finished atomic.Int32
	for range 5 {
		require.NoError(t, wp.Execute(func() {
			<-release
			finished.Add(1)
		}))
	}

	shutdownDone := make(chan struct{})
	go func() {
		wp.Shutdown()
		close(shutdownDone)
	}()

	select {
	case <-shutdownDone:
		t.Fatal("shutdown returned while jobs were pending")
	case <-time.After(20 * time.Millisecond):
	}

	close(release)
	<-shutdownDone
	assert.Equal(t, int32(5), finished.Load())
}

func TestWorkerPoolSaturation(t *testing.T) {
	wp, err := NewWorkerPool(1, 2, discardLogger())
	require.NoError(t, err)

	release := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, wp.Execute(func() {
		close(started)
		<-release
	}))
	<-started

	require.NoError(t, wp.Execute(func() {}))
	require.NoError(t, wp.Execute(func() {}))
	assert.ErrorIs(t, wp.Execute(func() {}), ErrPoolSaturated)

	close(release)
	wp.Shutdown()
}

func BenchmarkWorkerPoolExecute(b *testing.B) {
	wp, err := NewWorkerPool(4, 1024, discardLogger())
	if err != nil {
		b.Fatal(err)
	}
	defer wp.Shutdown()

	var wg sync.WaitGroup
	for b.Loop() {
		wg.Add(1)
		for wp.Execute(wg.Done) != nil {
		}
	}
	wg.Wait()
}
