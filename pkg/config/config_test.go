package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/user/vidpipe/pkg/ports"
)

func TestDefaults_Valid(t *testing.T) {
	cfg := Defaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should be valid: %v", err)
	}
	if !cfg.UsesTestSource() {
		t.Error("defaults should use the synthetic source")
	}
	if cfg.ContainerFormat() != "mp4" {
		t.Errorf("expected mp4 for out.mp4, got %s", cfg.ContainerFormat())
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vidpipe.yaml")
	yamlData := `
input: clip.y4m
output: clip.mjpeg
encode:
  qp: 20
pipeline:
  async_depth: 6
  sync_timeout: 5s
scene_change:
  enabled: false
vpp:
  width: 640
  deinterlace: bob
device:
  jitter: 3ms
`
	if err := os.WriteFile(path, []byte(yamlData), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}
	if cfg.Input != "clip.y4m" || cfg.UsesTestSource() {
		t.Errorf("unexpected input %q", cfg.Input)
	}
	if cfg.ContainerFormat() != "raw" {
		t.Errorf("expected raw container, got %s", cfg.ContainerFormat())
	}
	if cfg.Encode.QP != 20 || cfg.Encode.Codec != "mjpeg" {
		t.Errorf("unexpected encode section %+v", cfg.Encode)
	}
	if cfg.Pipeline.AsyncDepth != 6 || cfg.Pipeline.SyncTimeout != 5*time.Second {
		t.Errorf("unexpected pipeline section %+v", cfg.Pipeline)
	}
	// Unset keys keep their defaults.
	if cfg.Pipeline.BusyRetry != time.Millisecond || cfg.SceneChange.Lookahead != 4 {
		t.Errorf("defaults were lost: %+v %+v", cfg.Pipeline, cfg.SceneChange)
	}
	if cfg.Device.Jitter != 3*time.Millisecond || cfg.Device.Slots != 2 {
		t.Errorf("unexpected device section %+v", cfg.Device)
	}

	oc := cfg.ToOrchestratorConfig()
	if oc.SceneChange || oc.AsyncDepth != 6 || oc.Width != 640 || oc.Deinterlace != ports.DeinterlaceBob {
		t.Errorf("unexpected orchestrator config %+v", oc)
	}
	if oc.SceneChangeConfig.MinKeyInterval != 8 {
		t.Errorf("scene change thresholds not carried over: %+v", oc.SceneChangeConfig)
	}
}

func TestLoadFromFile_Errors(t *testing.T) {
	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for a missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	os.WriteFile(path, []byte("pipeline: [1, 2"), 0644)
	if _, err := LoadFromFile(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(c *Config)
	}{
		{"no input", func(c *Config) { c.Input = "" }},
		{"no output", func(c *Config) { c.Output = "" }},
		{"container", func(c *Config) { c.Container = "mkv" }},
		{"codec", func(c *Config) { c.Encode.Codec = "vp9" }},
		{"qp", func(c *Config) { c.Encode.QP = 60 }},
		{"cbr without bitrate", func(c *Config) { c.Encode.RateControl = "cbr" }},
		{"rate control", func(c *Config) { c.Encode.RateControl = "abr" }},
		{"async depth", func(c *Config) { c.Pipeline.AsyncDepth = 0 }},
		{"task pool", func(c *Config) { c.Pipeline.TaskPoolSize = 2 }},
		{"lookahead", func(c *Config) { c.SceneChange.Lookahead = 0 }},
		{"deinterlace", func(c *Config) { c.VPP.Deinterlace = "yadif" }},
		{"bob with doubled rate", func(c *Config) {
			c.VPP.Deinterlace = "bob"
			c.VPP.FrameRateX2 = true
		}},
		{"denoise", func(c *Config) { c.VPP.Denoise = 101 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.modify(&cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalid) {
				t.Errorf("expected ErrInvalid, got %v", err)
			}
		})
	}
}

func TestToSourceAndSessionConfig(t *testing.T) {
	cfg := Defaults()
	cfg.TestSource.Interlaced = true
	cfg.Device.Latency = 2 * time.Millisecond

	ts := cfg.ToTestSourceConfig()
	if ts.Width != 320 || ts.FrameRateN != 30 || ts.FrameRateD != 1 || !ts.Interlaced || ts.CutEvery != 50 {
		t.Errorf("unexpected test source config %+v", ts)
	}
	sc := cfg.ToSessionConfig()
	if sc.Slots != 2 || sc.Latency != 2*time.Millisecond {
		t.Errorf("unexpected session config %+v", sc)
	}
}
