package orchestrator

import (
	"time"

	"github.com/user/vidpipe/pkg/ports"
)

// Status is the bookkeeping of one run. Counters only grow.
type Status struct {
	Topology Topology
	State    State

	FramesRead      int // Source frames consumed by the encoder side
	Submitted       int // Encode calls that returned a sync point
	Written         int // Bitstreams handed to the writer
	Bytes           int64
	KeyFrames       int
	ForcedKeyFrames int // Key frames requested by scene change hints
	BufferGrowths   int
	BusyRetries     int

	InputFrameRate  float64
	OutputFrameRate float64
	OutputCodec     ports.Codec

	Started   time.Time
	Elapsed   time.Duration
	Cancelled bool
	Finalized bool
}

func newStatus() *Status {
	return &Status{Started: time.Now()}
}

func (s *Status) advance(state State) {
	if state > s.State {
		s.State = state
	}
}

func (s *Status) finalize(state State) {
	if s.Finalized {
		return
	}
	s.advance(state)
	s.Elapsed = time.Since(s.Started)
	s.Finalized = true
}

// VideoDuration returns the playback duration of the written frames.
func (s Status) VideoDuration() time.Duration {
	if s.OutputFrameRate <= 0 {
		return 0
	}
	return time.Duration(float64(s.Written) / s.OutputFrameRate * float64(time.Second))
}

// EncodeFPS returns written frames per second of wall time.
func (s Status) EncodeFPS() float64 {
	if s.Elapsed <= 0 {
		return 0
	}
	return float64(s.Written) / s.Elapsed.Seconds()
}

// statusWriter counts what reaches the real writer.
type statusWriter struct {
	w      ports.BitstreamWriter
	status *Status
}

func (sw *statusWriter) WriteNextFrame(bs *ports.Bitstream) error {
	if err := sw.w.WriteNextFrame(bs); err != nil {
		return err
	}
	sw.status.Written++
	sw.status.Bytes += int64(bs.Length)
	if bs.FrameType.Key() {
		sw.status.KeyFrames++
	}
	return nil
}

// Close is a no-op: the caller closes the underlying writer.
func (sw *statusWriter) Close() error {
	return nil
}
