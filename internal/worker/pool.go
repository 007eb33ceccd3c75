// Package worker runs background jobs, such as asynchronous plan generations,
// on a fixed set of goroutines.
package worker

import (
	"runtime"
	"sync"
	"sync/atomic"

	"go-attack-planner/internal/logger"
)

// Stats is a snapshot of pool counters
type Stats struct {
	Workers       int   `json:"workers"`
	TotalJobs     int64 `json:"total_jobs"`
	CompletedJobs int64 `json:"completed_jobs"`
	ActiveWorkers int64 `json:"active_workers"`
	PanickedJobs  int64 `json:"panicked_jobs"`
}

// Pool manages concurrent background jobs
type Pool struct {
	workers  int
	jobQueue chan func()
	wg       sync.WaitGroup // outstanding jobs
	workerWg sync.WaitGroup // running worker goroutines
	start    sync.Once
	mu       sync.RWMutex
	closed   bool

	totalJobs     atomic.Int64
	completedJobs atomic.Int64
	activeWorkers atomic.Int64
	panickedJobs  atomic.Int64
}

// NewPool creates a pool; non-positive sizes default to runtime.NumCPU().
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	return &Pool{
		workers:  workers,
		jobQueue: make(chan func(), workers*2),
	}
}

// Start launches the workers. Calling it more than once has no effect.
func (p *Pool) Start() {
	p.start.Do(func() {
		p.workerWg.Add(p.workers)
		for i := 0; i < p.workers; i++ {
			go p.worker()
		}
	})
}

func (p *Pool) worker() {
	defer p.workerWg.Done()
	for job := range p.jobQueue {
		p.run(job)
	}
}

func (p *Pool) run(job func()) {
	p.activeWorkers.Add(1)
	defer func() {
		if r := recover(); r != nil {
			p.panickedJobs.Add(1)
			logger.WithField("panic", r).Error("Background job panicked")
		}
		p.activeWorkers.Add(-1)
		p.completedJobs.Add(1)
		p.wg.Done()
	}()
	job()
}

// Submit queues a job and reports whether it was accepted. It blocks while
// the queue is full and returns false once the pool is closed.
func (p *Pool) Submit(job func()) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return false
	}

	p.wg.Add(1)
	p.totalJobs.Add(1)
	p.jobQueue <- job
	return true
}

// Wait blocks until every accepted job has finished.
func (p *Pool) Wait() {
	p.wg.Wait()
}

// Close stops accepting jobs, lets queued jobs drain and waits for the
// workers to exit.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.jobQueue)
	p.mu.Unlock()

	p.Start() // queued jobs still need workers to drain them
	p.workerWg.Wait()
}

// GetStats returns current counters
func (p *Pool) GetStats() Stats {
	return Stats{
		Workers:       p.workers,
		TotalJobs:     p.totalJobs.Load(),
		CompletedJobs: p.completedJobs.Load(),
		ActiveWorkers: p.activeWorkers.Load(),
		PanickedJobs:  p.panickedJobs.Load(),
	}
}
