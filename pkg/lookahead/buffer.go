package lookahead

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/user/vidpipe/pkg/ports"
	"github.com/user/vidpipe/pkg/scenechange"
)

var (
	// ErrAnalysisStopped means the analysis goroutine exited before
	// annotating the frame the encoder is waiting for.
	ErrAnalysisStopped = errors.New("lookahead: analysis stopped")

	// ErrSlotBusy means the feeder tried to fill a slot the encoder has not
	// taken yet.
	ErrSlotBusy = errors.New("lookahead: slot busy")

	// ErrInvalidDepth is returned by New for a non-positive depth.
	ErrInvalidDepth = errors.New("lookahead: invalid depth")
)

// Analyzer computes the hint for one frame.
type Analyzer interface {
	Analyze(s *ports.Surface) scenechange.Hint
}

// Buffer holds up to depth source frames that have been loaded but not yet
// encoded. The main goroutine feeds it with SetNextSurface and consumes it
// with GetNextFrame; Run annotates the frames in between.
type Buffer struct {
	source   ports.FrameSource
	analyzer Analyzer
	logger   ports.Logger
	slots    []*Slot

	loaded   int64 // frames handed to slots, end marker included
	consumed int64
	ended    bool // end marker queued
	finished bool // end marker taken

	analyzed int64 // written by Run only
	done     chan struct{}
	err      error
}

// New creates a buffer of depth slots reading from source.
func New(source ports.FrameSource, depth int, analyzer Analyzer, logger ports.Logger) (*Buffer, error) {
	if depth <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidDepth, depth)
	}
	b := &Buffer{
		source:   source,
		analyzer: analyzer,
		logger:   logger.WithComponent("lookahead"),
		slots:    make([]*Slot, depth),
		done:     make(chan struct{}),
	}
	for i := range b.slots {
		b.slots[i] = newSlot(i)
	}
	return b, nil
}

// Depth returns the number of slots.
func (b *Buffer) Depth() int {
	return len(b.slots)
}

// Slot returns the slot for frame index i.
func (b *Buffer) Slot(i int64) *Slot {
	return b.slots[i%int64(len(b.slots))]
}

// Ended reports whether the source has been exhausted.
func (b *Buffer) Ended() bool {
	return b.ended
}

// Done is closed when Run returns.
func (b *Buffer) Done() <-chan struct{} {
	return b.done
}

// SetNextSurface loads the next source frame into s and queues it for
// analysis. s is reserved until GetNextFrame hands it back.
//
// At end of stream the end marker is queued instead, s is left untouched and
// ports.ErrEndOfStream is returned; later calls return it again without
// queuing anything.
func (b *Buffer) SetNextSurface(s *ports.Surface) error {
	if b.ended {
		return ports.ErrEndOfStream
	}
	slot := b.Slot(b.loaded)
	if slot.State() != StateEmpty {
		return fmt.Errorf("%w: slot %d is %s", ErrSlotBusy, slot.index, slot.State())
	}

	s.Reserve()
	err := b.source.LoadNextFrame(s)
	if errors.Is(err, ports.ErrEndOfStream) {
		s.Release()
		b.ended = true
		b.loaded++
		// The marker always goes out so the analysis goroutine can finish.
		slot.load(nil)
		b.logger.Debug("End of stream queued after %d frames", b.loaded-1)
		return ports.ErrEndOfStream
	}
	if err != nil {
		s.Release()
		return fmt.Errorf("load frame %d: %w", b.loaded, err)
	}

	b.loaded++
	slot.load(s)
	return nil
}

// GetNextFrame waits until the oldest queued frame is annotated and returns
// it with its hint. The surface's reservation is released. It returns
// ports.ErrEndOfStream once the end marker is reached.
func (b *Buffer) GetNextFrame(ctx context.Context) (*ports.Surface, scenechange.Hint, error) {
	if b.finished {
		return nil, scenechange.Hint{}, ports.ErrEndOfStream
	}
	if b.consumed >= b.loaded {
		return nil, scenechange.Hint{}, fmt.Errorf("lookahead: frame %d was never queued", b.consumed)
	}
	slot := b.Slot(b.consumed)

	select {
	case <-slot.annotated:
	default:
		select {
		case <-slot.annotated:
		case <-ctx.Done():
			return nil, scenechange.Hint{}, ctx.Err()
		case <-b.done:
			// Run may have annotated this slot right before returning.
			select {
			case <-slot.annotated:
			default:
				return nil, scenechange.Hint{}, b.stoppedError()
			}
		}
	}

	surface, hint, end := slot.take()
	b.consumed++
	if end {
		b.finished = true
		return nil, scenechange.Hint{}, ports.ErrEndOfStream
	}
	surface.Release()
	return surface, hint, nil
}

func (b *Buffer) stoppedError() error {
	if b.err != nil {
		return fmt.Errorf("%w: %w", ErrAnalysisStopped, b.err)
	}
	return ErrAnalysisStopped
}

// Run annotates queued frames in order until it reaches the end marker or
// ctx is done. A panic in the analyzer is returned as an error.
func (b *Buffer) Run(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Debug("%s", debug.Stack())
			err = fmt.Errorf("analyzer panic at frame %d: %v", b.analyzed, r)
		}
		b.err = err
		close(b.done)
	}()

	for {
		slot := b.Slot(b.analyzed)
		select {
		case <-slot.ready:
		case <-ctx.Done():
			return ctx.Err()
		}

		if slot.end {
			slot.annotate(scenechange.Hint{})
			b.logger.Debug("Analyzed %d frames", b.analyzed)
			return nil
		}
		hint := b.analyzer.Analyze(slot.surface)
		if !hint.IsZero() && b.logger.Enabled(ports.LevelDebug) {
			b.logger.Debug("Frame %d hint: %s", slot.surface.Timestamp, hint.String())
		}
		slot.annotate(hint)
		b.analyzed++
	}
}
