// Package ports defines interfaces for external dependencies.
package ports

import "errors"

// ErrEndOfStream is returned by a FrameSource when no more frames are available.
var ErrEndOfStream = errors.New("source: end of stream")

// FrameSource produces raw frames on request.
type FrameSource interface {
	// FrameInfo returns the geometry and timing of the frames.
	FrameInfo() FrameInfo

	// LoadNextFrame writes the next frame into s.
	// Returns ErrEndOfStream when the input is exhausted.
	LoadNextFrame(s *Surface) error

	// Close releases the source.
	Close() error
}

// BitstreamWriter consumes encoded frames in order.
type BitstreamWriter interface {
	// WriteNextFrame writes the valid bytes of bs.
	WriteNextFrame(bs *Bitstream) error

	// Close flushes and releases the writer.
	Close() error
}

// OutputAware is implemented by writers that need the negotiated output
// parameters before the first frame, such as container muxers.
type OutputAware interface {
	SetOutputParams(out OutputParams) error
}
