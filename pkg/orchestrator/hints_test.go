package orchestrator

import (
	"testing"

	"github.com/user/vidpipe/pkg/ports"
	"github.com/user/vidpipe/pkg/scenechange"
)

func TestHintTable_Expanded(t *testing.T) {
	table := newHintTable(true)
	table.record(3, scenechange.Hint{
		Second: scenechange.FieldHint{FrameType: ports.FrameTypeI, QPDelta: -2},
	})
	table.record(4, scenechange.Hint{})

	if ctrl := table.control(&ports.Surface{Timestamp: 6}); ctrl != nil {
		t.Errorf("first field of frame 3 should have no control, got %+v", ctrl)
	}
	ctrl := table.control(&ports.Surface{Timestamp: 7})
	if ctrl == nil || ctrl.FrameType != ports.FrameTypeI || ctrl.QPDelta != -2 {
		t.Fatalf("second field of frame 3: got %+v", ctrl)
	}
	if table.pending() != 0 {
		t.Errorf("expected the hint to be consumed with its last field, %d left", table.pending())
	}
}

func TestHintTable_Single(t *testing.T) {
	table := newHintTable(false)
	table.record(10, scenechange.Hint{
		First: scenechange.FieldHint{FrameType: ports.FrameTypeIDR, QPDelta: -2},
	})

	if ctrl := table.control(&ports.Surface{Timestamp: 9}); ctrl != nil {
		t.Errorf("frame 9 should have no control, got %+v", ctrl)
	}
	ctrl := table.control(&ports.Surface{Timestamp: 10})
	if ctrl == nil || ctrl.FrameType != ports.FrameTypeIDR {
		t.Fatalf("frame 10: got %+v", ctrl)
	}
	if table.control(&ports.Surface{Timestamp: 10}) != nil || table.pending() != 0 {
		t.Error("a hint must apply to one picture only")
	}
}
