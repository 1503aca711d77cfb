// Package scenechange derives per-frame encoding hints from a cheap
// comparison of consecutive luma thumbnails.
package scenechange

import (
	"fmt"

	"github.com/user/vidpipe/pkg/ports"
)

// FieldHint is the hint for one encoded picture.
type FieldHint struct {
	FrameType ports.FrameType // Forced frame type, FrameTypeUnknown for none
	QPDelta   int
	SAD       float64 // Mean absolute luma difference to the previous picture, 0-1
	Histogram float64 // Luma histogram distance to the previous picture, 0-1
}

// Control converts the hint into a per-call encode control.
func (h FieldHint) Control() ports.EncodeControl {
	return ports.EncodeControl{FrameType: h.FrameType, QPDelta: h.QPDelta}
}

// Cut reports whether the hint forces a key frame.
func (h FieldHint) Cut() bool {
	return h.FrameType.Key()
}

// Hint holds the hints for one source frame. Second is only set when the
// frame is deinterlaced into two pictures.
type Hint struct {
	First  FieldHint
	Second FieldHint
}

// Field returns the hint for the n-th picture produced from the frame.
func (h Hint) Field(n int) FieldHint {
	if n == 1 {
		return h.Second
	}
	return h.First
}

// IsZero reports whether the hint carries no override.
func (h Hint) IsZero() bool {
	return h.First.Control().IsZero() && h.Second.Control().IsZero()
}

func (h Hint) String() string {
	return fmt.Sprintf("first=%s/%+d second=%s/%+d",
		h.First.FrameType, h.First.QPDelta, h.Second.FrameType, h.Second.QPDelta)
}
