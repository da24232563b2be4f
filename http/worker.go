package http

import (
	"errors"
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/puzpuzpuz/xsync/v3"
)

var (
	ErrPoolClosed      = errors.New("http: worker pool is shut down")
	ErrPoolSaturated   = errors.New("http: worker pool queue is full")
	ErrInvalidPoolSize = errors.New("http: worker pool size must be at least 1")
)

// Job is a unit of work run by exactly one worker.
type Job func()

// WorkerPool runs jobs on a fixed number of goroutines fed by a shared FIFO
// queue. A nil entry in the queue tells a worker to exit.
type WorkerPool struct {
	size   int
	queue  *xsync.MPMCQueueOf[Job]
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool

	wg       sync.WaitGroup
	shutdown sync.Once
}

func NewWorkerPool(size, queueSize int, logger *slog.Logger) (*WorkerPool, error) {
	if size < 1 {
		return nil, ErrInvalidPoolSize
	}
	if queueSize < 1 {
		queueSize = DefaultQueueSize
	}
	if logger == nil {
		logger = slog.Default()
	}

	wp := &WorkerPool{
		size:   size,
		queue:  xsync.NewMPMCQueueOf[Job](queueSize),
		logger: logger,
	}

	wp.wg.Add(size)
	for i := range size {
		go wp.work(i)
	}

	return wp, nil
}

func (wp *WorkerPool) Size() int {
	return wp.size
}

// Execute enqueues job without blocking. Jobs submitted from one goroutine
// start in submission order.
func (wp *WorkerPool) Execute(job Job) error {
	if job == nil {
		return nil
	}

	wp.mu.RLock()
	defer wp.mu.RUnlock()

	if wp.closed {
		return ErrPoolClosed
	}
	if !wp.queue.TryEnqueue(job) {
		return ErrPoolSaturated
	}
	return nil
}

// Shutdown stops accepting jobs, waits for every queued job to finish and
// joins all workers. It is safe to call more than once.
func (wp *WorkerPool) Shutdown() {
	wp.shutdown.Do(func() {
		wp.mu.Lock()
		wp.closed = true
		wp.mu.Unlock()

		// Stop markers queue up behind every accepted job.
		for range wp.size {
			wp.queue.Enqueue(nil)
		}
		wp.wg.Wait()
	})
}

func (wp *WorkerPool) work(id int) {
	defer wp.wg.Done()

	for {
		job := wp.queue.Dequeue()
		if job == nil {
			return
		}
		wp.run(id, job)
	}
}

func (wp *WorkerPool) run(id int, job Job) {
	defer func() {
		if r := recover(); r != nil {
			wp.logger.Error("worker recovered from panicking job",
				"worker", id,
				"panic", r,
				"stack", string(debug.Stack()),
			)
		}
	}()

	job()
}
