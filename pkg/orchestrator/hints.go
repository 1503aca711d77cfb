package orchestrator

import (
	"github.com/user/vidpipe/pkg/ports"
	"github.com/user/vidpipe/pkg/scenechange"
)

// hintTable carries scene change hints from the look-ahead to the encode
// submission of the picture they were computed for. Pictures are matched by
// timestamp, so a VPP stage that holds frames back does not shift hints.
type hintTable struct {
	expands bool
	hints   map[int64]scenechange.Hint
}

func newHintTable(expands bool) *hintTable {
	return &hintTable{expands: expands, hints: make(map[int64]scenechange.Hint)}
}

// record stores the hint of the source frame ts.
func (t *hintTable) record(ts int64, h scenechange.Hint) {
	if h.IsZero() {
		return
	}
	t.hints[ts] = h
}

// control returns the encode control for surf, nil when it has none.
// With rate expansion a picture timestamp is twice the source frame plus
// the output phase.
func (t *hintTable) control(surf *ports.Surface) *ports.EncodeControl {
	frame, field := surf.Timestamp, 0
	if t.expands {
		frame, field = surf.Timestamp>>1, int(surf.Timestamp&1)
	}
	h, ok := t.hints[frame]
	if !ok {
		return nil
	}
	if !t.expands || field == 1 {
		delete(t.hints, frame)
	}
	c := h.Field(field).Control()
	if c.IsZero() {
		return nil
	}
	return &c
}

// pending returns the number of hints not yet applied.
func (t *hintTable) pending() int {
	return len(t.hints)
}
