package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/user/vidpipe/pkg/lookahead"
	"github.com/user/vidpipe/pkg/ports"
	"github.com/user/vidpipe/pkg/scenechange"
	"github.com/user/vidpipe/pkg/surface"
)

// feeder hands source frames to the main loop.
type feeder interface {
	// Fill primes the feeder before the first frame.
	Fill(ctx context.Context) error
	// Next returns the next loaded surface with its hint, or
	// ports.ErrEndOfStream.
	Next(ctx context.Context) (*ports.Surface, scenechange.Hint, error)
	// Refill is called once the surface returned by Next has been
	// submitted for the last time, when it is locked by the stage.
	Refill(ctx context.Context) error
}

// directFeeder loads a frame into a free surface on demand.
type directFeeder struct {
	source  ports.FrameSource
	pool    *surface.Pool
	timeout time.Duration
}

func (f *directFeeder) Fill(ctx context.Context) error {
	return nil
}

func (f *directFeeder) Next(ctx context.Context) (*ports.Surface, scenechange.Hint, error) {
	s, err := f.pool.Acquire(ctx, f.timeout)
	if err != nil {
		return nil, scenechange.Hint{}, err
	}
	if err := f.source.LoadNextFrame(s); err != nil {
		return nil, scenechange.Hint{}, err
	}
	return s, scenechange.Hint{}, nil
}

func (f *directFeeder) Refill(ctx context.Context) error {
	return nil
}

// lookaheadFeeder keeps the look-ahead buffer full so analysis runs ahead
// of the encoder.
type lookaheadFeeder struct {
	buf     *lookahead.Buffer
	pool    *surface.Pool
	timeout time.Duration
}

// Fill loads up to depth frames. Reserved surfaces are skipped by Acquire.
func (f *lookaheadFeeder) Fill(ctx context.Context) error {
	for i := 0; i < f.buf.Depth(); i++ {
		if err := f.Refill(ctx); err != nil {
			return err
		}
		if f.buf.Ended() {
			return nil
		}
	}
	return nil
}

func (f *lookaheadFeeder) Next(ctx context.Context) (*ports.Surface, scenechange.Hint, error) {
	return f.buf.GetNextFrame(ctx)
}

func (f *lookaheadFeeder) Refill(ctx context.Context) error {
	if f.buf.Ended() {
		return nil
	}
	s, err := f.pool.Acquire(ctx, f.timeout)
	if err != nil {
		return err
	}
	err = f.buf.SetNextSurface(s)
	if errors.Is(err, ports.ErrEndOfStream) {
		return nil
	}
	return err
}
