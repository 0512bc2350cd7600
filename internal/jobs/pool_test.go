package jobs

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

func TestPoolRunsAllJobs(t *testing.T) {
	p := NewPool()
	p.Start(4)
	defer p.Stop()

	var done atomic.Int32
	for i := 0; i < 100; i++ {
		p.Submit(func(w WorkerID) {
			if w == MainWorker {
				t.Errorf("worker job ran on the main worker")
			}
			done.Add(1)
		})
	}
	p.WaitForAll()
	if done.Load() != 100 {
		t.Fatalf("expected 100 jobs, got %d", done.Load())
	}
}

func TestPoolNestedSubmit(t *testing.T) {
	p := NewPool()
	p.Start(2)
	defer p.Stop()

	var done atomic.Int32
	var spawn func(depth int) Job
	spawn = func(depth int) Job {
		return func(WorkerID) {
			done.Add(1)
			if depth > 0 {
				p.Submit(spawn(depth - 1))
				p.Submit(spawn(depth - 1))
			}
		}
	}
	p.Submit(spawn(4))
	p.WaitForAll()
	if done.Load() != 31 {
		t.Fatalf("expected 31 jobs, got %d", done.Load())
	}
}

func TestSingleThreadModeIsLIFOOnMain(t *testing.T) {
	p := NewPool()
	p.Start(2)
	defer p.Stop()
	p.SetSingleThreadMode(true)
	if p.ThreadCount() != 1 {
		t.Fatalf("single-thread mode must report one thread")
	}

	var mu sync.Mutex
	var order []int
	for i := 0; i < 3; i++ {
		p.Submit(func(w WorkerID) {
			if w != MainWorker {
				t.Errorf("job ran on worker %d in single-thread mode", w)
			}
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		})
	}
	p.WaitForAll()
	if len(order) != 3 || order[0] != 2 || order[2] != 0 {
		t.Fatalf("expected LIFO order, got %v", order)
	}

	p.SetSingleThreadMode(false)
	var ran atomic.Bool
	p.Submit(func(WorkerID) { ran.Store(true) })
	p.WaitForAll()
	if !ran.Load() {
		t.Fatalf("job did not run after leaving single-thread mode")
	}
}

func TestStopWithPendingJobsPanics(t *testing.T) {
	p := NewPool()
	p.Start(1)
	p.SetSingleThreadMode(true)
	p.Submit(func(WorkerID) {})

	func() {
		defer func() {
			r := recover()
			err, ok := r.(error)
			if !ok || !errors.Is(err, ErrPendingJobs) {
				t.Fatalf("expected ErrPendingJobs panic, got %v", r)
			}
		}()
		p.Stop()
	}()

	p.WaitForAll()
	p.Stop()
}
