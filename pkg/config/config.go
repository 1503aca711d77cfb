// Package config provides configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/user/vidpipe/pkg/adapters/softsession"
	"github.com/user/vidpipe/pkg/adapters/testsource"
	"github.com/user/vidpipe/pkg/orchestrator"
	"github.com/user/vidpipe/pkg/ports"
	"github.com/user/vidpipe/pkg/scenechange"
)

// TestInput selects the synthetic source instead of a file.
const TestInput = "test:"

// ErrInvalid is wrapped by every Validate error.
var ErrInvalid = errors.New("config: invalid")

// Config represents the full configuration for vidpipe.
type Config struct {
	// Input/Output
	Input       string `yaml:"input"`
	Output      string `yaml:"output"`
	Container   string `yaml:"container"` // mp4 or raw, empty picks by extension
	SummaryPath string `yaml:"summary"`

	Encode      EncodeConfig      `yaml:"encode"`
	Pipeline    PipelineConfig    `yaml:"pipeline"`
	SceneChange SceneChangeConfig `yaml:"scene_change"`
	VPP         VPPConfig         `yaml:"vpp"`
	Device      DeviceConfig      `yaml:"device"`
	TestSource  TestSourceConfig  `yaml:"test_source"`
}

// EncodeConfig represents encoder settings.
type EncodeConfig struct {
	Codec       string `yaml:"codec"`
	RateControl string `yaml:"rate_control"`
	QP          int    `yaml:"qp"`
	BitrateKbps int    `yaml:"bitrate_kbps"`
	GOPLength   int    `yaml:"gop"`
}

// PipelineConfig represents pipelining and timing settings.
type PipelineConfig struct {
	AsyncDepth     int           `yaml:"async_depth"`
	TaskPoolSize   int           `yaml:"task_pool_size"`
	SyncTimeout    time.Duration `yaml:"sync_timeout"`
	BusyRetry      time.Duration `yaml:"busy_retry"`
	SurfaceTimeout time.Duration `yaml:"surface_timeout"`
	MemoryFraction float64       `yaml:"memory_fraction"`
}

// SceneChangeConfig represents look-ahead analysis settings.
type SceneChangeConfig struct {
	Enabled            bool    `yaml:"enabled"`
	Lookahead          int     `yaml:"lookahead"`
	SADThreshold       float64 `yaml:"sad_threshold"`
	HistogramThreshold float64 `yaml:"histogram_threshold"`
	MotionThreshold    float64 `yaml:"motion_threshold"`
	MinKeyInterval     int     `yaml:"min_key_interval"`
	KeyQPDelta         int     `yaml:"key_qp_delta"`
	MotionQPDelta      int     `yaml:"motion_qp_delta"`
	ThumbnailWidth     int     `yaml:"thumbnail_width"`
}

// VPPConfig represents preprocessing settings.
type VPPConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Width       int    `yaml:"width"`
	Height      int    `yaml:"height"`
	Deinterlace string `yaml:"deinterlace"`
	FrameRateX2 bool   `yaml:"frame_rate_x2"`
	Denoise     int    `yaml:"denoise"`
}

// DeviceConfig tunes the software session.
type DeviceConfig struct {
	Slots   int           `yaml:"slots"`
	Latency time.Duration `yaml:"latency"`
	Jitter  time.Duration `yaml:"jitter"`
}

// TestSourceConfig describes the synthetic input.
type TestSourceConfig struct {
	Width      int  `yaml:"width"`
	Height     int  `yaml:"height"`
	FPS        int  `yaml:"fps"`
	Frames     int  `yaml:"frames"`
	CutEvery   int  `yaml:"cut_every"`
	Interlaced bool `yaml:"interlaced"`
}

// Defaults returns a Config with default values.
func Defaults() Config {
	oc := orchestrator.DefaultConfig()
	sc := scenechange.DefaultConfig()
	return Config{
		Input:  TestInput,
		Output: "out.mp4",

		Encode: EncodeConfig{
			Codec:       string(oc.Codec),
			RateControl: string(oc.RateControl),
			QP:          oc.QP,
			GOPLength:   oc.GOPLength,
		},
		Pipeline: PipelineConfig{
			AsyncDepth:     oc.AsyncDepth,
			SyncTimeout:    oc.SyncTimeout,
			BusyRetry:      oc.BusyRetry,
			SurfaceTimeout: oc.SurfaceTimeout,
			MemoryFraction: oc.MemoryFraction,
		},
		SceneChange: SceneChangeConfig{
			Enabled:            oc.SceneChange,
			Lookahead:          oc.LookaheadDepth,
			SADThreshold:       sc.SADThreshold,
			HistogramThreshold: sc.HistogramThreshold,
			MotionThreshold:    sc.MotionThreshold,
			MinKeyInterval:     sc.MinKeyInterval,
			KeyQPDelta:         sc.KeyQPDelta,
			MotionQPDelta:      sc.MotionQPDelta,
			ThumbnailWidth:     sc.ThumbnailWidth,
		},
		VPP: VPPConfig{
			Deinterlace: string(ports.DeinterlaceNone),
		},
		Device: DeviceConfig{
			Slots: 2,
		},
		TestSource: TestSourceConfig{
			Width:    320,
			Height:   240,
			FPS:      30,
			Frames:   150,
			CutEvery: 50,
		},
	}
}

// LoadFromFile loads configuration from a YAML file over the defaults.
func LoadFromFile(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks values that cannot be corrected later.
func (c Config) Validate() error {
	if c.Input == "" {
		return fmt.Errorf("%w: input is required", ErrInvalid)
	}
	if c.Output == "" {
		return fmt.Errorf("%w: output is required", ErrInvalid)
	}
	switch c.ContainerFormat() {
	case "mp4", "raw":
	default:
		return fmt.Errorf("%w: container %q", ErrInvalid, c.Container)
	}
	switch ports.Codec(c.Encode.Codec) {
	case ports.CodecAVC, ports.CodecHEVC, ports.CodecMJPEG:
	default:
		return fmt.Errorf("%w: codec %q", ErrInvalid, c.Encode.Codec)
	}
	switch ports.RateControl(c.Encode.RateControl) {
	case ports.RateControlCQP:
		if c.Encode.QP < 0 || c.Encode.QP > 51 {
			return fmt.Errorf("%w: qp %d out of 0-51", ErrInvalid, c.Encode.QP)
		}
	case ports.RateControlCBR, ports.RateControlVBR:
		if c.Encode.BitrateKbps <= 0 {
			return fmt.Errorf("%w: %s needs a bitrate", ErrInvalid, c.Encode.RateControl)
		}
	default:
		return fmt.Errorf("%w: rate control %q", ErrInvalid, c.Encode.RateControl)
	}
	if c.Pipeline.AsyncDepth < 1 {
		return fmt.Errorf("%w: async depth %d", ErrInvalid, c.Pipeline.AsyncDepth)
	}
	if c.Pipeline.TaskPoolSize != 0 && c.Pipeline.TaskPoolSize < c.Pipeline.AsyncDepth {
		return fmt.Errorf("%w: task pool size %d below async depth %d", ErrInvalid, c.Pipeline.TaskPoolSize, c.Pipeline.AsyncDepth)
	}
	if c.SceneChange.Enabled && c.SceneChange.Lookahead < 1 {
		return fmt.Errorf("%w: scene change needs a look-ahead of at least 1", ErrInvalid)
	}
	switch ports.DeinterlaceMode(c.VPP.Deinterlace) {
	case "", ports.DeinterlaceNone, ports.DeinterlaceBob:
	default:
		return fmt.Errorf("%w: deinterlace %q", ErrInvalid, c.VPP.Deinterlace)
	}
	if ports.DeinterlaceMode(c.VPP.Deinterlace) == ports.DeinterlaceBob && c.VPP.FrameRateX2 {
		return fmt.Errorf("%w: bob deinterlacing cannot be combined with frame_rate_x2", ErrInvalid)
	}
	if c.VPP.Denoise < 0 || c.VPP.Denoise > 100 {
		return fmt.Errorf("%w: denoise %d out of 0-100", ErrInvalid, c.VPP.Denoise)
	}
	return nil
}

// ContainerFormat returns the configured container, or picks one from the
// output extension.
func (c Config) ContainerFormat() string {
	if c.Container != "" {
		return strings.ToLower(c.Container)
	}
	if strings.EqualFold(filepath.Ext(c.Output), ".mp4") {
		return "mp4"
	}
	return "raw"
}

// UsesTestSource reports whether the synthetic source is selected.
func (c Config) UsesTestSource() bool {
	return strings.HasPrefix(c.Input, TestInput)
}

// ToOrchestratorConfig converts Config to orchestrator.Config.
func (c Config) ToOrchestratorConfig() orchestrator.Config {
	return orchestrator.Config{
		Codec:       ports.Codec(c.Encode.Codec),
		RateControl: ports.RateControl(c.Encode.RateControl),
		QP:          c.Encode.QP,
		BitrateKbps: c.Encode.BitrateKbps,
		GOPLength:   c.Encode.GOPLength,

		AsyncDepth:   c.Pipeline.AsyncDepth,
		TaskPoolSize: c.Pipeline.TaskPoolSize,

		SceneChange:    c.SceneChange.Enabled,
		LookaheadDepth: c.SceneChange.Lookahead,
		SceneChangeConfig: scenechange.Config{
			SADThreshold:       c.SceneChange.SADThreshold,
			HistogramThreshold: c.SceneChange.HistogramThreshold,
			MotionThreshold:    c.SceneChange.MotionThreshold,
			MinKeyInterval:     c.SceneChange.MinKeyInterval,
			KeyQPDelta:         c.SceneChange.KeyQPDelta,
			MotionQPDelta:      c.SceneChange.MotionQPDelta,
			ThumbnailWidth:     c.SceneChange.ThumbnailWidth,
		},

		VPP:         c.VPP.Enabled,
		Width:       c.VPP.Width,
		Height:      c.VPP.Height,
		Deinterlace: ports.DeinterlaceMode(c.VPP.Deinterlace),
		FrameRateX2: c.VPP.FrameRateX2,
		Denoise:     c.VPP.Denoise,

		SyncTimeout:    c.Pipeline.SyncTimeout,
		BusyRetry:      c.Pipeline.BusyRetry,
		SurfaceTimeout: c.Pipeline.SurfaceTimeout,
		MemoryFraction: c.Pipeline.MemoryFraction,
	}
}

// ToSessionConfig converts the device section for the software session.
func (c Config) ToSessionConfig() softsession.Config {
	return softsession.Config{
		Slots:   c.Device.Slots,
		Latency: c.Device.Latency,
		Jitter:  c.Device.Jitter,
	}
}

// ToTestSourceConfig converts the synthetic source section.
func (c Config) ToTestSourceConfig() testsource.Config {
	return testsource.Config{
		Width:      c.TestSource.Width,
		Height:     c.TestSource.Height,
		FrameRateN: c.TestSource.FPS,
		FrameRateD: 1,
		Frames:     c.TestSource.Frames,
		CutEvery:   c.TestSource.CutEvery,
		Interlaced: c.TestSource.Interlaced,
	}
}
