// Package taskpool tracks in-flight encode submissions and drains them in
// submission order.
package taskpool

import (
	"errors"
	"fmt"
	"time"

	"github.com/user/vidpipe/pkg/ports"
	"github.com/user/vidpipe/pkg/ring"
)

// DefaultSyncTimeout bounds the wait for a single completion.
const DefaultSyncTimeout = 60 * time.Second

var (
	// ErrInvalidPoolSize is returned by New for a non-positive pool size.
	ErrInvalidPoolSize = errors.New("taskpool: invalid pool size")

	// ErrInvalidBufferSize is returned by New for a non-positive buffer size.
	ErrInvalidBufferSize = errors.New("taskpool: invalid buffer size")

	// ErrNotFound means no task matched: no free task, or no task in flight.
	ErrNotFound = errors.New("taskpool: not found")

	// ErrTaskAborted means the oldest encode was aborted by the device.
	ErrTaskAborted = errors.New("taskpool: task aborted")

	// ErrSyncTimeout means the oldest encode did not complete in time.
	ErrSyncTimeout = errors.New("taskpool: sync timeout")

	// ErrSyncFailed means waiting for the oldest encode reported an error.
	ErrSyncFailed = errors.New("taskpool: sync failed")

	// ErrTaskBusy is returned by Commit for a task that is already in flight.
	ErrTaskBusy = errors.New("taskpool: task already in flight")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("taskpool: closed")
)

// Waiter blocks on a sync point. ports.Session satisfies it.
type Waiter interface {
	Wait(sp ports.SyncPoint, timeout time.Duration) ports.Status
}

// Pool is a fixed ring of tasks. A task is in flight from Commit until
// SynchronizeFirstTask hands its bitstream to the writer.
// Pool is driven from a single goroutine.
type Pool struct {
	tasks   *ring.Ring[*Task]
	start   int
	writer  ports.BitstreamWriter
	waiter  Waiter
	logger  ports.Logger
	timeout time.Duration
	closed  bool

	written int
	grown   int
}

// New creates a pool of poolSize tasks, each with a bufferSize-byte bitstream.
func New(poolSize, bufferSize int, writer ports.BitstreamWriter, waiter Waiter, logger ports.Logger) (*Pool, error) {
	if poolSize <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPoolSize, poolSize)
	}
	if bufferSize <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidBufferSize, bufferSize)
	}
	return &Pool{
		tasks:   ring.New(poolSize, func(i int) *Task { return newTask(i, bufferSize) }),
		writer:  writer,
		waiter:  waiter,
		logger:  logger.WithComponent("taskpool"),
		timeout: DefaultSyncTimeout,
	}, nil
}

// SetSyncTimeout overrides DefaultSyncTimeout. Non-positive values are ignored.
func (p *Pool) SetSyncTimeout(d time.Duration) {
	if d > 0 {
		p.timeout = d
	}
}

// Size returns the number of tasks.
func (p *Pool) Size() int {
	return p.tasks.Len()
}

// InFlight returns the number of tasks awaiting completion.
func (p *Pool) InFlight() int {
	return p.tasks.Count()
}

// Written returns the number of bitstreams handed to the writer.
func (p *Pool) Written() int {
	return p.written
}

// Grown returns the number of buffer reallocations done through Grow.
func (p *Pool) Grown() int {
	return p.grown
}

// GetFreeTask returns the first idle task scanning from the oldest slot.
func (p *Pool) GetFreeTask() (*Task, error) {
	if p.closed {
		return nil, ErrClosed
	}
	idx, ok := p.tasks.FirstFree(p.start)
	if !ok {
		return nil, ErrNotFound
	}
	return p.tasks.At(idx), nil
}

// Commit marks task as in flight on sp.
func (p *Pool) Commit(task *Task, sp ports.SyncPoint) error {
	if p.closed {
		return ErrClosed
	}
	if sp.IsZero() {
		return fmt.Errorf("taskpool: commit task %d with empty sync point", task.index)
	}
	if p.tasks.Occupied(task.index) {
		return fmt.Errorf("%w: %d", ErrTaskBusy, task.index)
	}
	task.sp = sp
	p.tasks.Occupy(task.index)
	return nil
}

// Grow enlarges the task buffer to at least size bytes.
func (p *Pool) Grow(task *Task, size int) {
	if task.Grow(size) {
		p.grown++
		p.logger.Debug("Grew bitstream of task %d to %d bytes", task.index, size)
	}
}

// SynchronizeFirstTask waits for the oldest in-flight task, writes its
// bitstream and frees it. It returns ErrNotFound when nothing is in flight.
//
// On ErrSyncTimeout or ErrSyncFailed the task stays in flight. On
// ErrTaskAborted the VPP sync points the task depended on are drained and
// the task is freed without writing.
func (p *Pool) SynchronizeFirstTask() error {
	if p.closed {
		return ErrClosed
	}
	if !p.tasks.Occupied(p.start) {
		return ErrNotFound
	}
	task := p.tasks.At(p.start)

	st := p.waiter.Wait(task.sp, p.timeout)
	switch {
	case st == ports.StatusAborted:
		cause := p.drainDependencies(task)
		p.release(task)
		if cause != nil {
			return fmt.Errorf("%w: task %d: %w", ErrTaskAborted, task.index, cause)
		}
		return fmt.Errorf("%w: task %d", ErrTaskAborted, task.index)

	case st == ports.StatusTimeout:
		return fmt.Errorf("%w: task %d after %s", ErrSyncTimeout, task.index, p.timeout)

	case st.IsError():
		return fmt.Errorf("%w: task %d: %w", ErrSyncFailed, task.index, st.Err())
	}

	if st.IsWarning() {
		p.logger.Warn("Encode of task %d completed with warning: %s", task.index, st)
	}

	// Encode completion implies the VPP work it consumed is done; release the tokens.
	p.drainDependencies(task)

	if err := p.writer.WriteNextFrame(task.bs); err != nil {
		return fmt.Errorf("write bitstream of task %d: %w", task.index, err)
	}
	p.written++
	p.release(task)
	return nil
}

// drainDependencies consumes every pending VPP sync point of task and
// returns the first failure it saw.
func (p *Pool) drainDependencies(task *Task) error {
	var cause error
	for _, dep := range task.deps {
		st := p.waiter.Wait(dep, p.timeout)
		if st.IsError() && st != ports.StatusInvalidHandle && cause == nil {
			cause = fmt.Errorf("vpp: %w", st.Err())
		}
	}
	task.deps = task.deps[:0]
	return cause
}

// release frees task and moves the start to the next task in flight.
func (p *Pool) release(task *Task) {
	task.reset()
	p.tasks.Vacate(task.index)
	if next, ok := p.tasks.NextOccupied(p.start); ok {
		p.start = next
	}
}

// Close releases every task. It is safe to call more than once.
// Buffers of tasks still in flight are abandoned untouched since the device
// may still be writing into them.
func (p *Pool) Close() {
	if p.closed {
		return
	}
	p.closed = true
	if n := p.tasks.Count(); n > 0 {
		p.logger.Debug("Discarding %d tasks in flight", n)
	}
	p.tasks.Each(func(i int, t *Task, occupied bool) {
		if occupied {
			p.tasks.Vacate(i)
			return
		}
		t.reset()
		t.bs.Data = nil
	})
}
