package main

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/user/vidpipe/pkg/adapters/logger"
	"github.com/user/vidpipe/pkg/config"
	"github.com/user/vidpipe/pkg/mocks"
	"github.com/user/vidpipe/pkg/orchestrator"
)

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }

func durPtr(v time.Duration) *time.Duration { return &v }

func TestEncodeCmd_BuildConfig(t *testing.T) {
	cmd := &EncodeCmd{
		Input:         "clip.y4m",
		Output:        "clip.mjpeg",
		QP:            intPtr(30),
		Bitrate:       intPtr(4000),
		AsyncDepth:    intPtr(6),
		SyncTimeout:   durPtr(2 * time.Second),
		NoSceneChange: true,
		Width:         intPtr(640),
		Deinterlace:   strPtr("bob"),
		DoubleRate:    true,
		Summary:       "summary.md",
	}

	cfg, err := cmd.buildConfig()
	if err != nil {
		t.Fatalf("buildConfig failed: %v", err)
	}
	if cfg.Input != "clip.y4m" || cfg.ContainerFormat() != "raw" || cfg.SummaryPath != "summary.md" {
		t.Errorf("unexpected paths %+v", cfg)
	}
	// A bitrate without an explicit rate control switches away from CQP.
	if cfg.Encode.RateControl != "vbr" || cfg.Encode.BitrateKbps != 4000 || cfg.Encode.QP != 30 {
		t.Errorf("unexpected encode section %+v", cfg.Encode)
	}
	if cfg.Pipeline.AsyncDepth != 6 || cfg.Pipeline.SyncTimeout != 2*time.Second {
		t.Errorf("unexpected pipeline section %+v", cfg.Pipeline)
	}
	if cfg.SceneChange.Enabled {
		t.Error("scene change should be disabled")
	}
	if cfg.VPP.Width != 640 || cfg.VPP.Deinterlace != "bob" || !cfg.VPP.FrameRateX2 {
		t.Errorf("unexpected vpp section %+v", cfg.VPP)
	}
}

func TestEncodeCmd_BuildConfigInvalid(t *testing.T) {
	cmd := &EncodeCmd{AsyncDepth: intPtr(0)}
	if _, err := cmd.buildConfig(); !errors.Is(err, config.ErrInvalid) {
		t.Errorf("expected ErrInvalid, got %v", err)
	}
}

func testEncodeConfig(output string) config.Config {
	cfg := config.Defaults()
	cfg.Output = output
	cfg.SummaryPath = "summary.md"
	cfg.TestSource.Width = 32
	cfg.TestSource.Height = 32
	cfg.TestSource.Frames = 12
	cfg.TestSource.CutEvery = 6
	cfg.Pipeline.MemoryFraction = 0
	cfg.Pipeline.SyncTimeout = 5 * time.Second
	return cfg
}

func TestEncode_MP4(t *testing.T) {
	fs := mocks.NewFileSystem()
	cfg := testEncodeConfig("out/test.mp4")

	if err := encode(context.Background(), cfg, fs, logger.NewNoop()); err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	data, err := fs.ReadFile("out/test.mp4")
	if err != nil {
		t.Fatalf("output not written: %v", err)
	}
	if len(data) < 8 || string(data[4:8]) != "ftyp" {
		t.Errorf("output does not start with an ftyp box")
	}

	summary, err := fs.ReadFile("summary.md")
	if err != nil {
		t.Fatalf("summary not written: %v", err)
	}
	// Labels follow the process language, values do not.
	if !strings.Contains(string(summary), "| 12 |") || !strings.Contains(string(summary), "out/test.mp4") {
		t.Errorf("summary missing frame count or output:\n%s", summary)
	}
}

func TestEncode_RawStream(t *testing.T) {
	fs := mocks.NewFileSystem()
	cfg := testEncodeConfig("test.mjpeg")
	cfg.SummaryPath = ""

	if err := encode(context.Background(), cfg, fs, logger.NewNoop()); err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	data, err := fs.ReadFile("test.mjpeg")
	if err != nil {
		t.Fatalf("output not written: %v", err)
	}
	if len(data) < 2 || data[0] != 0xFF || data[1] != 0xD8 {
		t.Error("raw stream should start with a JPEG image")
	}
	if !fs.Closed["test.mjpeg"] {
		t.Error("output was not closed")
	}
}

func TestEncode_Cancelled(t *testing.T) {
	fs := mocks.NewFileSystem()
	cfg := testEncodeConfig("test.mp4")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := encode(ctx, cfg, fs, logger.NewNoop())
	if !errors.Is(err, orchestrator.ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}

	summary, err := fs.ReadFile("summary.md")
	if err != nil {
		t.Fatalf("summary not written: %v", err)
	}
	if !strings.Contains(string(summary), "orchestrator: cancelled") {
		t.Error("summary should record the cancellation")
	}
}

func TestEncode_MissingInput(t *testing.T) {
	fs := mocks.NewFileSystem()
	cfg := testEncodeConfig("test.mp4")
	cfg.Input = "missing.y4m"

	if err := encode(context.Background(), cfg, fs, logger.NewNoop()); err == nil {
		t.Error("expected error for a missing input")
	}
}
