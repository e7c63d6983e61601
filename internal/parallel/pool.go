package parallel

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// WorkerPool is a fixed set of goroutines with per-worker queues.
//
// Work items are distributed round-robin. A worker whose queue is empty
// steals from the others before blocking, which keeps slow work-groups
// from idling the rest of the pool.
type WorkerPool struct {
	// workers is the number of worker goroutines.
	workers int

	// workQueues holds per-worker work queues.
	workQueues []chan func()

	// done signals workers to stop.
	done chan struct{}

	// wg waits for all workers to finish.
	wg sync.WaitGroup

	// running indicates whether the pool is accepting work.
	running atomic.Bool
}

// NewWorkerPool creates a new worker pool with the specified number of workers.
// If workers is 0 or negative, GOMAXPROCS is used.
// The pool starts immediately and workers begin waiting for work.
func NewWorkerPool(workers int) *WorkerPool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	queueSize := max(workers*4, 8)

	p := &WorkerPool{
		workers:    workers,
		workQueues: make([]chan func(), workers),
		done:       make(chan struct{}),
	}
	for i := range workers {
		p.workQueues[i] = make(chan func(), queueSize)
	}

	p.running.Store(true)

	p.wg.Add(workers)
	for i := range workers {
		go p.worker(i)
	}

	return p
}

// worker is the main loop for each worker goroutine.
func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()

	myQueue := p.workQueues[id]

	for {
		select {
		case <-p.done:
			p.drainQueue(myQueue)
			return

		case work := <-myQueue:
			run(work)

		default:
			if stolen := p.steal(id); stolen != nil {
				stolen()
				continue
			}

			select {
			case <-p.done:
				p.drainQueue(myQueue)
				return
			case work := <-myQueue:
				run(work)
			}
		}
	}
}

func run(work func()) {
	if work != nil {
		work()
	}
}

// drainQueue executes all remaining work in a queue.
func (p *WorkerPool) drainQueue(queue chan func()) {
	for {
		select {
		case work := <-queue:
			run(work)
		default:
			return
		}
	}
}

// steal attempts to take work from another worker's queue.
// Returns nil if no work is available.
func (p *WorkerPool) steal(myID int) func() {
	for i := range p.workers {
		if i == myID {
			continue
		}

		select {
		case work := <-p.workQueues[i]:
			return work
		default:
		}
	}
	return nil
}

// ExecuteAll distributes work across workers and waits for all to complete.
// If the pool is closed, this is a no-op.
func (p *WorkerPool) ExecuteAll(work []func()) {
	if len(work) == 0 || !p.running.Load() {
		return
	}

	var completion sync.WaitGroup
	completion.Add(len(work))

	for i, fn := range work {
		wrapped := func() {
			defer completion.Done()
			fn()
		}

		select {
		case p.workQueues[i%p.workers] <- wrapped:
		case <-p.done:
			completion.Done()
		}
	}

	completion.Wait()
}

// Dispatch runs fn(0) … fn(groups-1) on the pool and returns when all of
// them have finished. Groups must not depend on each other.
// If the pool is closed, this is a no-op.
func (p *WorkerPool) Dispatch(groups int, fn func(group int)) {
	if groups <= 0 {
		return
	}

	work := make([]func(), groups)
	for g := range work {
		work[g] = func() { fn(g) }
	}
	p.ExecuteAll(work)
}

// Go schedules fn on the worker with the shortest queue and returns a
// channel that is closed once fn has returned.
//
// On a closed pool fn is not run and the returned channel is already
// closed, so waiting on it never blocks.
func (p *WorkerPool) Go(fn func()) <-chan struct{} {
	done := make(chan struct{})
	if fn == nil || !p.running.Load() {
		close(done)
		return done
	}

	minIdx := 0
	for i := 1; i < p.workers; i++ {
		if len(p.workQueues[i]) < len(p.workQueues[minIdx]) {
			minIdx = i
		}
	}

	task := func() {
		defer close(done)
		fn()
	}

	select {
	case p.workQueues[minIdx] <- task:
	case <-p.done:
		close(done)
	}
	return done
}

// Close gracefully shuts down the pool.
// It stops accepting new work, waits for all queued work to complete,
// and then stops all workers.
// Close is safe to call multiple times.
func (p *WorkerPool) Close() {
	if !p.running.CompareAndSwap(true, false) {
		return
	}

	close(p.done)
	p.wg.Wait()
}

// Workers returns the number of workers in the pool.
func (p *WorkerPool) Workers() int {
	return p.workers
}

// isRunning returns true if the pool is still accepting work.
func (p *WorkerPool) isRunning() bool {
	return p.running.Load()
}

// queuedWork returns the total number of work items currently queued.
// This is an approximation as queues can change while iterating.
func (p *WorkerPool) queuedWork() int {
	total := 0
	for _, q := range p.workQueues {
		total += len(q)
	}
	return total
}
