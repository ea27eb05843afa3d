package workers

import (
	"context"
	"errors"
	"runtime/debug"
	"sync"

	"thumbcache/internal/logging"
)

// ErrPoolClosed is returned by Submit after Shutdown has been called.
var ErrPoolClosed = errors.New("worker pool is shut down")

// Gate is consulted by a worker before it starts each task. WaitIfPaused may
// block while the process is under memory pressure. memory.Monitor satisfies it.
type Gate interface {
	WaitIfPaused() bool
}

// Pool runs submitted tasks on a fixed set of goroutines. The queue is
// unbounded, so Submit never blocks the caller.
type Pool struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []func()
	active int
	closed bool
	size   int
	gate   Gate
	wg     sync.WaitGroup
}

// NewPool starts size workers. A nil gate disables backpressure.
func NewPool(size int, gate Gate) *Pool {
	if size < 1 {
		size = 1
	}
	p := &Pool{size: size, gate: gate}
	p.cond = sync.NewCond(&p.mu)

	p.wg.Add(size)
	for i := 0; i < size; i++ {
		go p.worker(i)
	}
	logging.Debug("Worker pool started with %d workers", size)
	return p
}

// Submit queues task for execution.
func (p *Pool) Submit(task func()) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPoolClosed
	}
	p.queue = append(p.queue, task)
	p.cond.Signal()
	return nil
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return p.size
}

// QueueDepth returns the number of tasks waiting for a worker.
func (p *Pool) QueueDepth() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

// Active returns the number of tasks currently running.
func (p *Pool) Active() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

// Shutdown stops accepting tasks and waits until every queued task has run.
// It returns ctx.Err() if the context ends first; workers keep draining in
// the background in that case.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	p.closed = true
	p.cond.Broadcast()
	pending := len(p.queue)
	p.mu.Unlock()

	logging.Debug("Worker pool draining %d queued tasks", pending)

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for {
		p.mu.Lock()
		for len(p.queue) == 0 && !p.closed {
			p.cond.Wait()
		}
		if len(p.queue) == 0 {
			p.mu.Unlock()
			return
		}
		task := p.queue[0]
		p.queue[0] = nil
		p.queue = p.queue[1:]
		p.active++
		p.mu.Unlock()

		if p.gate != nil {
			p.gate.WaitIfPaused()
		}
		p.run(id, task)

		p.mu.Lock()
		p.active--
		p.mu.Unlock()
	}
}

func (p *Pool) run(id int, task func()) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error("Worker %d: task panicked: %v\n%s", id, r, debug.Stack())
		}
	}()
	task()
}
