// Package softsession implements ports.Session in pure Go.
//
// It keeps the asynchronous contract of a hardware session: a bounded number
// of execution slots, sync points that resolve from worker goroutines,
// surface lock counting and an internal VPP to encode dependency. Encoding
// produces one baseline JPEG per frame (Motion JPEG).
package softsession

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/user/vidpipe/pkg/ports"
	"github.com/user/vidpipe/pkg/syncpoint"
)

// Config tunes the simulated device.
type Config struct {
	Slots   int           // Concurrent operations before StatusDeviceBusy, default 2
	Latency time.Duration // Fixed delay added to each operation
	Jitter  time.Duration // Random extra delay, completions may then finish out of order
}

// Session is a software VPP and encode session.
type Session struct {
	cfg    Config
	logger ports.Logger
	table  *syncpoint.Table
	slots  chan struct{}
	wg     sync.WaitGroup

	mu          sync.Mutex
	params      ports.Params
	initialized bool
	closed      bool
	output      ports.OutputParams
	producers   map[*ports.Surface]ports.SyncPoint
	vppPhase    int // Output index within the current input when VPP doubles frames
	encoded     int
	sinceKey    int
}

// New creates an uninitialized session.
func New(cfg Config, logger ports.Logger) *Session {
	if cfg.Slots <= 0 {
		cfg.Slots = 2
	}
	return &Session{
		cfg:       cfg,
		logger:    logger.WithComponent("softsession"),
		table:     syncpoint.NewTable(),
		slots:     make(chan struct{}, cfg.Slots),
		producers: make(map[*ports.Surface]ports.SyncPoint),
	}
}

// QuerySurfaceCount reports one surface per VPP side and two encode inputs,
// one being encoded and one held as reference.
func (s *Session) QuerySurfaceCount(params ports.Params) (ports.SurfaceRequest, error) {
	if err := validate(params); err != nil {
		return ports.SurfaceRequest{}, err
	}
	req := ports.SurfaceRequest{EncodeIn: 2}
	if params.VPP != nil {
		req.VPPIn = 1
		req.VPPOut = 1
	}
	return req, nil
}

// Init validates params and computes the output parameters.
func (s *Session) Init(params ports.Params) error {
	if err := validate(params); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	info := params.In
	if params.VPP != nil {
		info = params.VPP.Out
	}
	w, h := info.Visible()
	s.params = params
	s.output = ports.OutputParams{
		Codec:      ports.CodecMJPEG,
		Info:       info,
		BufferSize: w*h*2 + 4096,
	}
	s.initialized = true
	s.logger.Debug("Initialized %dx%d %s, %d slots", w, h, s.output.Codec, s.cfg.Slots)
	return nil
}

func validate(params ports.Params) error {
	if params.In.Width <= 0 || params.In.Height <= 0 {
		return fmt.Errorf("%w: input %dx%d", ports.ErrInvalidParams, params.In.Width, params.In.Height)
	}
	if params.Encode.Codec != "" && params.Encode.Codec != ports.CodecMJPEG {
		return fmt.Errorf("%w: codec %s", ports.ErrUnsupported, params.Encode.Codec)
	}
	if params.VPP != nil {
		out := params.VPP.Out
		if out.Width <= 0 || out.Height <= 0 {
			return fmt.Errorf("%w: vpp output %dx%d", ports.ErrInvalidParams, out.Width, out.Height)
		}
		if params.VPP.Deinterlace == ports.DeinterlaceBob && params.VPP.FrameRateX2 {
			return fmt.Errorf("%w: bob deinterlacing already doubles the frame rate", ports.ErrInvalidParams)
		}
	}
	return nil
}

// Wait blocks on sp.
func (s *Session) Wait(sp ports.SyncPoint, timeout time.Duration) ports.Status {
	return s.table.Wait(sp, timeout)
}

// OutputParams returns the negotiated output.
func (s *Session) OutputParams() (ports.OutputParams, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return ports.OutputParams{}, ports.ErrNotInitialized
	}
	return s.output, nil
}

// Close waits for running operations. It is safe to call more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.wg.Wait()
	s.table.ResolveAll(ports.StatusAborted)
	return nil
}

// acquire takes an execution slot without blocking.
func (s *Session) acquire() bool {
	select {
	case s.slots <- struct{}{}:
		return true
	default:
		return false
	}
}

// run executes job on a worker goroutine and resolves sp with its status.
func (s *Session) run(sp ports.SyncPoint, job func() ports.Status) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() { <-s.slots }()

		if d := s.delay(); d > 0 {
			time.Sleep(d)
		}
		s.table.Resolve(sp, job())
	}()
}

func (s *Session) delay() time.Duration {
	d := s.cfg.Latency
	if s.cfg.Jitter > 0 {
		d += time.Duration(rand.Int63n(int64(s.cfg.Jitter)))
	}
	return d
}

// ready reports whether submissions are accepted. Callers hold s.mu.
func (s *Session) ready() ports.Status {
	if !s.initialized || s.closed {
		return ports.StatusNotInitialized
	}
	return ports.StatusOK
}

var _ ports.Session = (*Session)(nil)
