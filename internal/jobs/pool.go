// Package jobs implements the shared-stack worker pool running per-unit
// front-end pipelines.
package jobs

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"fortio.org/safecast"

	"biscuit/internal/arena"
)

// WorkerID identifies the goroutine executing a job. Workers are numbered
// 1..n, MainWorker is the coordinating goroutine.
type WorkerID = arena.OwnerID

// MainWorker runs jobs in single-thread mode.
const MainWorker WorkerID = 0

// Job is one unit of work.
type Job func(w WorkerID)

var (
	// ErrPendingJobs is raised when the pool is stopped with unprocessed jobs.
	ErrPendingJobs = errors.New("jobs: stopped with pending jobs")
	// ErrNotStarted is raised when jobs are waited for on a pool without workers.
	ErrNotStarted = errors.New("jobs: pool is not running")
)

// DefaultThreads returns the worker count used when nothing is configured.
func DefaultThreads() int {
	return max(runtime.NumCPU(), 2)
}

// Pool is a LIFO job stack consumed by a fixed set of worker goroutines.
type Pool struct {
	mu        sync.Mutex
	workAvail *sync.Cond
	workDone  *sync.Cond

	stack   []Job
	running int
	threads int
	single  bool
	exit    bool
	started bool
}

// NewPool creates a stopped pool.
func NewPool() *Pool {
	p := &Pool{}
	p.workAvail = sync.NewCond(&p.mu)
	p.workDone = sync.NewCond(&p.mu)
	return p
}

// Start spawns n workers.
func (p *Pool) Start(n int) {
	if n < 1 {
		panic(fmt.Errorf("jobs: invalid thread count %d", n))
	}
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		panic("jobs: pool is already running")
	}
	p.started = true
	p.exit = false
	p.single = false
	p.threads = n
	p.mu.Unlock()

	for i := 1; i <= n; i++ {
		id, err := safecast.Conv[uint32](i)
		if err != nil {
			panic(fmt.Errorf("worker id overflow: %w", err))
		}
		go p.worker(WorkerID(id))
	}
}

func (p *Pool) worker(id WorkerID) {
	p.mu.Lock()
	for {
		for (len(p.stack) == 0 || p.single) && !p.exit {
			p.workAvail.Wait()
		}
		if p.exit {
			break
		}
		job := p.pop()
		p.running++
		p.mu.Unlock()

		job(id)

		p.mu.Lock()
		p.running--
		if p.running == 0 && len(p.stack) == 0 {
			p.workDone.Broadcast()
		}
	}
	p.threads--
	p.workDone.Broadcast()
	p.mu.Unlock()
}

// pop must be called with mu held and a non-empty stack.
func (p *Pool) pop() Job {
	last := len(p.stack) - 1
	job := p.stack[last]
	p.stack[last] = nil
	p.stack = p.stack[:last]
	return job
}

// Submit pushes a job. In single-thread mode no worker is woken; the job
// waits for WaitForAll on the coordinating goroutine.
func (p *Pool) Submit(job Job) {
	if job == nil {
		panic("jobs: nil job")
	}
	p.mu.Lock()
	p.stack = append(p.stack, job)
	if !p.single {
		p.workAvail.Broadcast()
	}
	p.mu.Unlock()
}

// WaitForAll blocks until the stack is empty and no worker is busy.
// In single-thread mode the caller drains the stack itself as MainWorker.
func (p *Pool) WaitForAll() {
	p.mu.Lock()
	if p.single {
		for len(p.stack) > 0 {
			job := p.pop()
			p.mu.Unlock()
			job(MainWorker)
			p.mu.Lock()
		}
		p.mu.Unlock()
		return
	}
	if !p.started && len(p.stack) > 0 {
		p.mu.Unlock()
		panic(ErrNotStarted)
	}
	for len(p.stack) > 0 || p.running > 0 {
		p.workDone.Wait()
	}
	p.mu.Unlock()
}

// SetSingleThreadMode switches the mode after finishing outstanding work.
func (p *Pool) SetSingleThreadMode(single bool) {
	p.mu.Lock()
	same := p.single == single
	p.mu.Unlock()
	if same {
		return
	}
	p.WaitForAll()
	p.mu.Lock()
	p.single = single
	if !single {
		p.workAvail.Broadcast()
	}
	p.mu.Unlock()
}

// SingleThreadMode reports the current mode.
func (p *Pool) SingleThreadMode() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.single
}

// ThreadCount returns the number of goroutines that may run jobs.
func (p *Pool) ThreadCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.single {
		return 1
	}
	return p.threads
}

// Stop shuts the workers down and waits for them to exit. Unprocessed
// jobs at this point are a scheduling bug.
func (p *Pool) Stop() {
	p.mu.Lock()
	if n := len(p.stack); n > 0 {
		p.mu.Unlock()
		panic(fmt.Errorf("%w: %d left", ErrPendingJobs, n))
	}
	p.exit = true
	p.workAvail.Broadcast()
	for p.threads > 0 {
		p.workDone.Wait()
	}
	p.started = false
	p.mu.Unlock()
}
