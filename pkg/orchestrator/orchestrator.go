// Package orchestrator drives frames from a source through the VPP and encode
// stages of a session and writes the results in submission order.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/user/vidpipe/pkg/ports"
	"github.com/user/vidpipe/pkg/scenechange"
)

var (
	// ErrCancelled is returned when ctx is done before the stream ends.
	ErrCancelled = errors.New("orchestrator: cancelled")

	// ErrInvalidConfig is returned for configurations that cannot run.
	ErrInvalidConfig = errors.New("orchestrator: invalid config")
)

// StageError reports a fatal failure together with the stage and call that
// produced it.
type StageError struct {
	Stage string // setup, vpp, encode, sync, lookahead, source
	Call  string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Stage, e.Call, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func stageError(stage, call string, err error) error {
	return &StageError{Stage: stage, Call: call, Err: err}
}

// Config contains all configuration for the orchestrator.
type Config struct {
	// Encoding
	Codec       ports.Codec
	RateControl ports.RateControl
	QP          int
	BitrateKbps int
	GOPLength   int

	// Pipelining
	AsyncDepth   int // Encodes kept in flight
	TaskPoolSize int // 0 uses AsyncDepth

	// Scene change analysis
	SceneChange       bool
	LookaheadDepth    int // Frames loaded ahead of the encoder
	SceneChangeConfig scenechange.Config

	// Preprocessing. VPP runs when any of these is set.
	VPP         bool
	Width       int // 0 keeps the input size
	Height      int
	Deinterlace ports.DeinterlaceMode
	FrameRateX2 bool
	Denoise     int

	// Timing
	SyncTimeout    time.Duration // Bound on a single completion wait
	BusyRetry      time.Duration // Sleep between device busy retries
	SurfaceTimeout time.Duration // Bound on waiting for a free surface

	// Fraction of available memory the surface pools may use, 0 disables the check
	MemoryFraction float64
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Codec:             ports.CodecMJPEG,
		RateControl:       ports.RateControlCQP,
		QP:                26,
		GOPLength:         60,
		AsyncDepth:        4,
		SceneChange:       true,
		LookaheadDepth:    4,
		SceneChangeConfig: scenechange.DefaultConfig(),
		Deinterlace:       ports.DeinterlaceNone,
		SyncTimeout:       60 * time.Second,
		BusyRetry:         time.Millisecond,
		SurfaceTimeout:    5 * time.Second,
		MemoryFraction:    0.5,
	}
}

// withDefaults fills zero durations and depths.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Codec == "" {
		c.Codec = d.Codec
	}
	if c.RateControl == "" {
		c.RateControl = d.RateControl
	}
	if c.AsyncDepth == 0 {
		c.AsyncDepth = d.AsyncDepth
	}
	if c.TaskPoolSize == 0 {
		c.TaskPoolSize = c.AsyncDepth
	}
	if c.SceneChange && c.LookaheadDepth == 0 {
		c.LookaheadDepth = d.LookaheadDepth
	}
	if !c.SceneChange {
		c.LookaheadDepth = 0
	}
	if c.SceneChangeConfig == (scenechange.Config{}) {
		c.SceneChangeConfig = d.SceneChangeConfig
	}
	if c.Deinterlace == "" {
		c.Deinterlace = d.Deinterlace
	}
	if c.SyncTimeout == 0 {
		c.SyncTimeout = d.SyncTimeout
	}
	if c.BusyRetry == 0 {
		c.BusyRetry = d.BusyRetry
	}
	if c.SurfaceTimeout == 0 {
		c.SurfaceTimeout = d.SurfaceTimeout
	}
	return c
}

// Validate checks the pipelining parameters.
func (c Config) Validate() error {
	if c.AsyncDepth < 1 {
		return fmt.Errorf("%w: async depth %d", ErrInvalidConfig, c.AsyncDepth)
	}
	if c.TaskPoolSize != 0 && c.TaskPoolSize < c.AsyncDepth {
		return fmt.Errorf("%w: task pool of %d cannot hold async depth %d", ErrInvalidConfig, c.TaskPoolSize, c.AsyncDepth)
	}
	if c.LookaheadDepth < 0 {
		return fmt.Errorf("%w: look-ahead depth %d", ErrInvalidConfig, c.LookaheadDepth)
	}
	if c.Width < 0 || c.Height < 0 {
		return fmt.Errorf("%w: output size %dx%d", ErrInvalidConfig, c.Width, c.Height)
	}
	if c.Denoise < 0 || c.Denoise > 100 {
		return fmt.Errorf("%w: denoise %d", ErrInvalidConfig, c.Denoise)
	}
	switch c.Deinterlace {
	case "", ports.DeinterlaceNone, ports.DeinterlaceBob:
	default:
		return fmt.Errorf("%w: deinterlace mode %q", ErrInvalidConfig, c.Deinterlace)
	}
	if c.Deinterlace == ports.DeinterlaceBob && c.FrameRateX2 {
		return fmt.Errorf("%w: bob deinterlacing already doubles the frame rate", ErrInvalidConfig)
	}
	return nil
}

// vppRequested reports whether any preprocessing option is set.
func (c Config) vppRequested() bool {
	return c.VPP || c.Width > 0 || c.Height > 0 || c.Deinterlace == ports.DeinterlaceBob ||
		c.FrameRateX2 || c.Denoise > 0
}

// Orchestrator runs a session over a source and a writer. The caller owns
// and closes all three.
type Orchestrator struct {
	session ports.Session
	source  ports.FrameSource
	writer  ports.BitstreamWriter
	logger  ports.Logger
}

// New creates a new Orchestrator.
func New(session ports.Session, source ports.FrameSource, writer ports.BitstreamWriter, logger ports.Logger) *Orchestrator {
	return &Orchestrator{
		session: session,
		source:  source,
		writer:  writer,
		logger:  logger,
	}
}

// Run encodes the whole source. The returned Status is finalized on every
// path. Errors are ErrCancelled, a *StageError, or a configuration error.
func (o *Orchestrator) Run(ctx context.Context, config Config) (Status, error) {
	status := newStatus()
	config = config.withDefaults()
	if err := config.Validate(); err != nil {
		status.finalize(StateDone)
		return *status, err
	}

	o.logger.Info("Starting pipeline")
	r, err := o.setup(config, status)
	if err != nil {
		o.logger.Error("Pipeline setup failed: %s", err)
		status.finalize(StateDone)
		return *status, err
	}
	defer r.close()

	o.logger.Info("Topology %s, async depth %d, %d tasks", r.topology, config.AsyncDepth, r.tasks.Size())

	g, gctx := errgroup.WithContext(ctx)
	if r.lookahead != nil {
		g.Go(func() error {
			// Analysis failures reach the main loop through the buffer's
			// liveness check, so the main loop error is the one reported.
			if err := r.lookahead.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				o.logger.Debug("Analysis stopped: %s", err)
			}
			return nil
		})
	}
	g.Go(func() error {
		return r.loop(gctx)
	})
	err = g.Wait()

	switch {
	case err == nil:
		o.logger.Info("Encoded %d frames, %d bytes", status.Written, status.Bytes)
	case errors.Is(err, ErrCancelled):
		status.Cancelled = true
		o.logger.Warn("Interrupted after %d frames", status.Written)
	default:
		o.logger.Error("Pipeline failed: %s", err)
	}
	status.finalize(StateDone)
	return *status, err
}
