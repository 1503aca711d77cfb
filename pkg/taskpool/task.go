package taskpool

import (
	"github.com/user/vidpipe/pkg/ports"
)

// Task is the bookkeeping for one encode submission: its output buffer, the
// encode sync point and the VPP sync points it depends on.
type Task struct {
	index int
	bs    *ports.Bitstream
	sp    ports.SyncPoint
	deps  []ports.SyncPoint
}

func newTask(index, bufferSize int) *Task {
	return &Task{
		index: index,
		bs:    ports.NewBitstream(bufferSize),
	}
}

// Index returns the slot index of the task in its pool.
func (t *Task) Index() int {
	return t.index
}

// Bitstream returns the output buffer.
func (t *Task) Bitstream() *ports.Bitstream {
	return t.bs
}

// SyncPoint returns the encode sync point, zero when the task is idle.
func (t *Task) SyncPoint() ports.SyncPoint {
	return t.sp
}

// InFlight reports whether an encode is outstanding for the task.
func (t *Task) InFlight() bool {
	return !t.sp.IsZero()
}

// AddDependency records a VPP sync point the encode depends on.
func (t *Task) AddDependency(sp ports.SyncPoint) {
	if sp.IsZero() {
		return
	}
	t.deps = append(t.deps, sp)
}

// Dependencies returns the pending VPP sync points in submission order.
func (t *Task) Dependencies() []ports.SyncPoint {
	return t.deps
}

// Grow enlarges the bitstream to at least size bytes, keeping its contents.
// It never shrinks the buffer and reports whether it reallocated.
func (t *Task) Grow(size int) bool {
	if size <= t.bs.Capacity() {
		return false
	}
	data := make([]byte, size)
	copy(data, t.bs.Data)
	t.bs.Data = data
	return true
}

func (t *Task) reset() {
	t.sp = ports.SyncPoint{}
	t.deps = t.deps[:0]
	t.bs.Reset()
}
