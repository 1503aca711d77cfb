// Package surface manages fixed-size pools of frame buffers shared with the
// hardware stages.
package surface

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/user/vidpipe/pkg/ports"
)

// None is returned by FreeIndex when every surface is in use.
const None = -1

// pollInterval is how often Acquire re-checks the pool.
const pollInterval = time.Millisecond

var (
	// ErrNoFreeSurface means no surface became free in time.
	// The pool was sized too small for the stage that uses it.
	ErrNoFreeSurface = errors.New("surface: no free surface")

	// ErrInvalidSize is returned for an empty pool request.
	ErrInvalidSize = errors.New("surface: invalid pool size")
)

// Pool is a fixed set of surfaces of identical geometry.
// Only the goroutine driving the pipeline mutates it; lock counters are
// updated by the stages.
type Pool struct {
	name     string
	surfaces []*ports.Surface
}

// NewPool allocates count surfaces for info.
func NewPool(name string, count int, info ports.FrameInfo) (*Pool, error) {
	if count <= 0 {
		return nil, fmt.Errorf("%w: %s pool with %d surfaces", ErrInvalidSize, name, count)
	}
	if info.Width <= 0 || info.Height <= 0 {
		return nil, fmt.Errorf("%w: %s pool with %dx%d frames", ErrInvalidSize, name, info.Width, info.Height)
	}
	p := &Pool{
		name:     name,
		surfaces: make([]*ports.Surface, count),
	}
	for i := range p.surfaces {
		p.surfaces[i] = ports.NewSurface(i, info)
	}
	return p, nil
}

// Name returns the pool name used in diagnostics.
func (p *Pool) Name() string {
	return p.name
}

// Len returns the number of surfaces.
func (p *Pool) Len() int {
	return len(p.surfaces)
}

// At returns the surface at index i.
func (p *Pool) At(i int) *ports.Surface {
	return p.surfaces[i]
}

// FreeIndex returns the index of the first free surface, or None.
func (p *Pool) FreeIndex() int {
	for i, s := range p.surfaces {
		if s.Free() {
			return i
		}
	}
	return None
}

// Acquire returns a free surface, polling until timeout for one to be
// released by an outstanding operation.
// The returned surface is not marked in any way: ownership moves to the
// stage when the caller submits it.
func (p *Pool) Acquire(ctx context.Context, timeout time.Duration) (*ports.Surface, error) {
	if idx := p.FreeIndex(); idx != None {
		return p.surfaces[idx], nil
	}

	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
		if idx := p.FreeIndex(); idx != None {
			return p.surfaces[idx], nil
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w in %s pool (%d surfaces)", ErrNoFreeSurface, p.name, len(p.surfaces))
		}
	}
}

// InUse returns the number of surfaces that are not free.
func (p *Pool) InUse() int {
	n := 0
	for _, s := range p.surfaces {
		if !s.Free() {
			n++
		}
	}
	return n
}

// FrameBytes returns the memory footprint of one surface.
func (p *Pool) FrameBytes() int {
	if len(p.surfaces) == 0 {
		return 0
	}
	return FrameBytes(p.surfaces[0].Info)
}

// FrameBytes returns the size of a 4:2:0 frame with the given geometry.
func FrameBytes(info ports.FrameInfo) int {
	return info.Width*info.Height + 2*((info.Width+1)/2)*((info.Height+1)/2)
}

// Size computes a pool size: the stage minimum, plus async depth headroom,
// plus the look-ahead buffer depth.
func Size(stageMin, asyncDepth, lookahead int) int {
	if stageMin < 1 {
		stageMin = 1
	}
	if asyncDepth < 1 {
		asyncDepth = 1
	}
	if lookahead < 0 {
		lookahead = 0
	}
	return stageMin + asyncDepth - 1 + lookahead
}
