package utils

import (
	"sync"
	"sync/atomic"
)

// WorkerPool runs submitted tasks on a fixed number of goroutines.
//
// Submissions are queued in a bounded buffer and never block the caller:
// when the buffer is full Submit fails with ErrPoolSaturated and the caller
// decides what to do with the rejected task. Close stops accepting new
// tasks and waits for every accepted task to finish.
type WorkerPool struct {
	workerCount int
	tasks       chan func()
	done        chan struct{}

	// Accepted tasks not yet finished.
	wg sync.WaitGroup

	// Running worker goroutines.
	workers sync.WaitGroup

	mu     sync.RWMutex
	closed bool

	active atomic.Int64
	queued atomic.Int64
}

// WorkerPoolStats is a snapshot of the pool occupancy.
type WorkerPoolStats struct {
	Workers int
	Active  int64
	Queued  int64
}

func NewWorkerPool(workerCount, queueSize int) *WorkerPool {
	if workerCount <= 0 {
		workerCount = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	return &WorkerPool{
		workerCount: workerCount,
		tasks:       make(chan func(), queueSize),
		done:        make(chan struct{}),
	}
}

func (wp *WorkerPool) Start() {
	for i := 0; i < wp.workerCount; i++ {
		wp.workers.Add(1)
		go func() {
			defer wp.workers.Done()
			for {
				select {
				case task := <-wp.tasks:
					wp.run(task)
				case <-wp.done:
					return
				}
			}
		}()
	}
}

func (wp *WorkerPool) run(task func()) {
	wp.queued.Add(-1)
	wp.active.Add(1)
	defer func() {
		wp.active.Add(-1)
		wp.wg.Done()
	}()
	task()
}

// Submit queues the task for execution.
func (wp *WorkerPool) Submit(task func()) error {
	wp.mu.RLock()
	defer wp.mu.RUnlock()

	if wp.closed {
		return ErrPoolClosed
	}

	wp.wg.Add(1)
	wp.queued.Add(1)
	select {
	case wp.tasks <- task:
		return nil
	default:
		wp.queued.Add(-1)
		wp.wg.Done()
		return ErrPoolSaturated
	}
}

// Go runs the task on a goroutine of its own while still counting it as
// pool work, so Close waits for it. Used for replies that must not occupy a slot.
func (wp *WorkerPool) Go(task func()) error {
	wp.mu.RLock()
	defer wp.mu.RUnlock()

	if wp.closed {
		return ErrPoolClosed
	}

	wp.wg.Add(1)
	go func() {
		defer wp.wg.Done()
		task()
	}()
	return nil
}

// Wait blocks until all accepted tasks have finished.
func (wp *WorkerPool) Wait() {
	wp.wg.Wait()
}

// Close rejects further submissions, drains the accepted tasks and
// stops the workers. It is safe to call more than once.
func (wp *WorkerPool) Close() {
	wp.mu.Lock()
	if wp.closed {
		wp.mu.Unlock()
		wp.workers.Wait()
		return
	}
	wp.closed = true
	wp.mu.Unlock()

	wp.wg.Wait()
	close(wp.done)
	wp.workers.Wait()
}

func (wp *WorkerPool) Closed() bool {
	wp.mu.RLock()
	defer wp.mu.RUnlock()
	return wp.closed
}

func (wp *WorkerPool) Stats() WorkerPoolStats {
	return WorkerPoolStats{
		Workers: wp.workerCount,
		Active:  wp.active.Load(),
		Queued:  wp.queued.Load(),
	}
}
