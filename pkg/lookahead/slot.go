// Package lookahead runs scene-change analysis ahead of the encoder on a
// ring of input slots.
package lookahead

import (
	"sync/atomic"

	"github.com/user/vidpipe/pkg/ports"
	"github.com/user/vidpipe/pkg/scenechange"
)

// State is the handshake state of a slot.
type State int32

const (
	// StateEmpty means the slot holds nothing; the feeder may fill it.
	StateEmpty State = iota
	// StateReadyForAnalysis means a frame (or the end marker) is loaded.
	StateReadyForAnalysis
	// StateAnnotated means the hint is stored; the encoder may take the frame.
	StateAnnotated
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateReadyForAnalysis:
		return "ready"
	case StateAnnotated:
		return "annotated"
	default:
		return "unknown"
	}
}

// Slot is one entry of the look-ahead ring.
//
// Each transition is published on a one-slot channel, so the goroutine that
// receives it observes every field written before the send.
type Slot struct {
	index   int
	state   atomic.Int32
	surface *ports.Surface
	end     bool
	hint    scenechange.Hint

	ready     chan struct{}
	annotated chan struct{}
}

func newSlot(index int) *Slot {
	return &Slot{
		index:     index,
		ready:     make(chan struct{}, 1),
		annotated: make(chan struct{}, 1),
	}
}

// State returns the current handshake state.
func (s *Slot) State() State {
	return State(s.state.Load())
}

// load parks surface in the slot, or the end marker when surface is nil.
func (s *Slot) load(surface *ports.Surface) {
	s.surface = surface
	s.end = surface == nil
	s.state.Store(int32(StateReadyForAnalysis))
	s.ready <- struct{}{}
}

func (s *Slot) annotate(h scenechange.Hint) {
	s.hint = h
	s.state.Store(int32(StateAnnotated))
	s.annotated <- struct{}{}
}

// take empties the slot and returns what it held.
func (s *Slot) take() (*ports.Surface, scenechange.Hint, bool) {
	surface, hint, end := s.surface, s.hint, s.end
	s.surface = nil
	s.hint = scenechange.Hint{}
	s.end = false
	s.state.Store(int32(StateEmpty))
	return surface, hint, end
}
