package ports

import (
	"image"
	"sync/atomic"
)

// PicStruct describes how a picture is laid out in time.
type PicStruct int

const (
	// PicStructProgressive is a progressive frame.
	PicStructProgressive PicStruct = iota
	// PicStructFieldTFF is an interlaced frame, top field first.
	PicStructFieldTFF
	// PicStructFieldBFF is an interlaced frame, bottom field first.
	PicStructFieldBFF
)

// Interlaced reports whether the picture carries two fields.
func (p PicStruct) Interlaced() bool {
	return p == PicStructFieldTFF || p == PicStructFieldBFF
}

// String returns the picture structure name.
func (p PicStruct) String() string {
	switch p {
	case PicStructFieldTFF:
		return "tff"
	case PicStructFieldBFF:
		return "bff"
	default:
		return "progressive"
	}
}

// FrameInfo describes the geometry and timing of frames.
type FrameInfo struct {
	Width      int
	Height     int
	CropW      int // Visible width, defaults to Width
	CropH      int // Visible height, defaults to Height
	FrameRateN int
	FrameRateD int
	PicStruct  PicStruct
}

// FrameRate returns the frame rate as a float.
func (fi FrameInfo) FrameRate() float64 {
	if fi.FrameRateD == 0 {
		return 0
	}
	return float64(fi.FrameRateN) / float64(fi.FrameRateD)
}

// Visible returns the crop size, falling back to the full size.
func (fi FrameInfo) Visible() (int, int) {
	w, h := fi.CropW, fi.CropH
	if w <= 0 {
		w = fi.Width
	}
	if h <= 0 {
		h = fi.Height
	}
	return w, h
}

// Surface is a frame buffer handed to the hardware stages.
//
// The lock counter is owned by the stage that currently references the
// surface: it is incremented on submission and decremented on completion,
// possibly from another goroutine. The reservation flag is owned by the
// goroutine driving the pipeline and marks a surface parked in a look-ahead
// slot.
type Surface struct {
	ID        int
	Info      FrameInfo
	Data      *image.YCbCr
	Timestamp int64 // Frame index of the source frame, used for correlation

	locked   atomic.Int32
	reserved bool
}

// NewSurface allocates a 4:2:0 surface for the given frame info.
func NewSurface(id int, info FrameInfo) *Surface {
	return &Surface{
		ID:   id,
		Info: info,
		Data: image.NewYCbCr(image.Rect(0, 0, info.Width, info.Height), image.YCbCrSubsampleRatio420),
	}
}

// Lock marks the surface as referenced by an outstanding operation.
func (s *Surface) Lock() {
	s.locked.Add(1)
}

// Unlock releases one outstanding reference.
func (s *Surface) Unlock() {
	if s.locked.Add(-1) < 0 {
		s.locked.Store(0)
	}
}

// Locked returns the number of outstanding operations referencing the surface.
func (s *Surface) Locked() int {
	return int(s.locked.Load())
}

// Reserve parks the surface in a look-ahead slot.
func (s *Surface) Reserve() {
	s.reserved = true
}

// Release returns a parked surface.
func (s *Surface) Release() {
	s.reserved = false
}

// Reserved reports whether the surface is parked in a look-ahead slot.
func (s *Surface) Reserved() bool {
	return s.reserved
}

// Free reports whether no operation references the surface.
func (s *Surface) Free() bool {
	return s.Locked() == 0 && !s.reserved
}
