package worker

import (
	"errors"
	"sync"
)

// ErrQueueFull is returned by TrySubmit when no slot is free.
var ErrQueueFull = errors.New("worker queue full")

// ErrStopped is returned for submissions after Stop.
var ErrStopped = errors.New("worker pool stopped")

type task func()

// Pool runs submitted jobs on a fixed set of goroutines.
type Pool struct {
	wg      sync.WaitGroup
	mu      sync.RWMutex
	jobs    chan task
	stopped bool
	depth   func(int)
}

// NewPool starts n workers over a queue of the given capacity.
func NewPool(n, queue int) *Pool {
	if n <= 0 {
		n = 1
	}
	if queue <= 0 {
		queue = 1024
	}
	p := &Pool{jobs: make(chan task, queue), depth: func(int) {}}
	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for job := range p.jobs {
				p.depth(len(p.jobs))
				job()
			}
		}()
	}
	return p
}

// ObserveDepth installs a callback fed with the queue length. Call before
// submitting work.
func (p *Pool) ObserveDepth(fn func(int)) {
	if fn != nil {
		p.depth = fn
	}
}

// TrySubmit enqueues f without blocking.
func (p *Pool) TrySubmit(f func()) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return ErrStopped
	}
	select {
	case p.jobs <- f:
		p.depth(len(p.jobs))
		return nil
	default:
		return ErrQueueFull
	}
}

// Stop drains queued jobs and waits for workers to exit.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.jobs)
	p.mu.Unlock()
	p.wg.Wait()
}
