// Package main provides the CLI entry point for vidpipe.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/ideamans/go-l10n"

	"github.com/user/vidpipe/pkg/adapters/filewriter"
	"github.com/user/vidpipe/pkg/adapters/logger"
	"github.com/user/vidpipe/pkg/adapters/mp4writer"
	"github.com/user/vidpipe/pkg/adapters/osfilesystem"
	"github.com/user/vidpipe/pkg/adapters/softsession"
	"github.com/user/vidpipe/pkg/adapters/testsource"
	"github.com/user/vidpipe/pkg/adapters/y4msource"
	"github.com/user/vidpipe/pkg/config"
	"github.com/user/vidpipe/pkg/orchestrator"
	"github.com/user/vidpipe/pkg/ports"
	"github.com/user/vidpipe/pkg/summarizer"
)

// CLI defines the command-line interface with subcommands.
type CLI struct {
	Encode  EncodeCmd  `cmd:"" help:"Encode a raw video stream."`
	Version VersionCmd `cmd:"" help:"Show version information."`
}

// EncodeCmd defines the encode subcommand.
type EncodeCmd struct {
	// Input and output
	Input  string `arg:"" optional:"" help:"Input Y4M file, or test: for the synthetic source."`
	Output string `short:"o" help:"Output file (.mp4 for MP4, anything else for a raw stream)."`
	Config string `short:"c" type:"existingfile" help:"YAML configuration file."`

	// Encoding options (override the configuration file)
	Codec       *string `help:"Output codec (avc, hevc, mjpeg)."`
	RateControl *string `help:"Rate control (cqp, cbr, vbr)."`
	QP          *int    `short:"q" help:"Quantizer for constant QP (0-51)."`
	Bitrate     *int    `short:"b" help:"Target bitrate in kbps."`
	GOP         *int    `help:"Key frame interval in frames."`

	// Pipelining
	AsyncDepth   *int           `short:"a" help:"Encodes kept in flight."`
	TaskPoolSize *int           `help:"Output task slots (default: async depth)."`
	SyncTimeout  *time.Duration `help:"Bound on a single completion wait."`

	// Scene change analysis
	NoSceneChange bool `help:"Disable scene change analysis."`
	Lookahead     *int `help:"Frames analysed ahead of the encoder."`

	// Preprocessing
	Width       *int    `short:"W" help:"Output width (enables VPP)."`
	Height      *int    `short:"H" help:"Output height (enables VPP)."`
	Deinterlace *string `help:"Deinterlace mode (none, bob)."`
	DoubleRate  bool    `help:"Double the output frame rate."`
	Denoise     *int    `help:"Denoise strength (0-100)."`

	// Software device
	Jitter *time.Duration `help:"Random completion delay of the software device."`

	// Summary
	Summary string `short:"s" help:"Output execution summary to file (Markdown format)."`

	// Logging options
	LogLevel string `short:"l" default:"info" enum:"debug,info,warn,error" help:"Log level (debug, info, warn, error)."`
	Quiet    bool   `short:"Q" help:"Suppress all log output."`
}

// VersionCmd shows version information.
type VersionCmd struct{}

var version = "dev"

func main() {
	cli := CLI{}

	ctx := kong.Parse(&cli,
		kong.Name("vidpipe"),
		kong.Description(l10n.T("Pipelined video encoder with scene change look-ahead.")),
		kong.UsageOnError(),
	)

	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}

// Run executes the encode command.
func (cmd *EncodeCmd) Run() error {
	cfg, err := cmd.buildConfig()
	if err != nil {
		return err
	}

	// Create logger
	var log ports.Logger
	if cmd.Quiet {
		log = logger.NewNoop()
	} else {
		log = logger.NewConsole(ports.ParseLogLevel(cmd.LogLevel))
	}

	// Setup context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			log.Warn(l10n.T("Interrupted, shutting down..."))
			cancel()
		case <-ctx.Done():
		}
	}()

	return encode(ctx, cfg, osfilesystem.New(), log)
}

// buildConfig loads the configuration file and applies flag overrides.
func (cmd *EncodeCmd) buildConfig() (config.Config, error) {
	cfg := config.Defaults()
	if cmd.Config != "" {
		loaded, err := config.LoadFromFile(cmd.Config)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}

	if cmd.Input != "" {
		cfg.Input = cmd.Input
	}
	if cmd.Output != "" {
		cfg.Output = cmd.Output
	}
	if cmd.Summary != "" {
		cfg.SummaryPath = cmd.Summary
	}

	if cmd.Codec != nil {
		cfg.Encode.Codec = *cmd.Codec
	}
	if cmd.RateControl != nil {
		cfg.Encode.RateControl = *cmd.RateControl
	}
	if cmd.QP != nil {
		cfg.Encode.QP = *cmd.QP
	}
	if cmd.Bitrate != nil {
		cfg.Encode.BitrateKbps = *cmd.Bitrate
		if cmd.RateControl == nil && cfg.Encode.RateControl == string(ports.RateControlCQP) {
			cfg.Encode.RateControl = string(ports.RateControlVBR)
		}
	}
	if cmd.GOP != nil {
		cfg.Encode.GOPLength = *cmd.GOP
	}

	if cmd.AsyncDepth != nil {
		cfg.Pipeline.AsyncDepth = *cmd.AsyncDepth
	}
	if cmd.TaskPoolSize != nil {
		cfg.Pipeline.TaskPoolSize = *cmd.TaskPoolSize
	}
	if cmd.SyncTimeout != nil {
		cfg.Pipeline.SyncTimeout = *cmd.SyncTimeout
	}

	if cmd.NoSceneChange {
		cfg.SceneChange.Enabled = false
	}
	if cmd.Lookahead != nil {
		cfg.SceneChange.Lookahead = *cmd.Lookahead
	}

	if cmd.Width != nil {
		cfg.VPP.Width = *cmd.Width
	}
	if cmd.Height != nil {
		cfg.VPP.Height = *cmd.Height
	}
	if cmd.Deinterlace != nil {
		cfg.VPP.Deinterlace = *cmd.Deinterlace
	}
	if cmd.DoubleRate {
		cfg.VPP.FrameRateX2 = true
	}
	if cmd.Denoise != nil {
		cfg.VPP.Denoise = *cmd.Denoise
	}

	if cmd.Jitter != nil {
		cfg.Device.Jitter = *cmd.Jitter
	}

	return cfg, cfg.Validate()
}

// sizedWriter is a writer that reports its payload size.
type sizedWriter interface {
	ports.BitstreamWriter
	Bytes() int64
}

// encode wires the adapters for cfg and runs the pipeline once.
func encode(ctx context.Context, cfg config.Config, fs ports.FileSystem, log ports.Logger) error {
	source, err := openSource(cfg, fs, log)
	if err != nil {
		return err
	}
	defer source.Close()

	writer, err := openWriter(cfg, fs, log)
	if err != nil {
		return err
	}

	session := softsession.New(cfg.ToSessionConfig(), log)
	defer session.Close()

	info := source.FrameInfo()
	log.Info(l10n.F("Encoding %s to %s (%s)...", cfg.Input, cfg.Output, cfg.Encode.Codec))

	orch := orchestrator.New(session, source, writer, log)
	status, runErr := orch.Run(ctx, cfg.ToOrchestratorConfig())

	// A partial stream is still flushed on cancellation or failure.
	closeErr := writer.Close()
	switch {
	case runErr == nil && closeErr != nil:
		runErr = fmt.Errorf("close output: %w", closeErr)
	case closeErr != nil && !errors.Is(closeErr, mp4writer.ErrNoFrames):
		log.Warn(l10n.F("Failed to close output: %s", closeErr))
	case closeErr == nil:
		log.Info(l10n.F("Output saved to %s", cfg.Output))
	}

	if cfg.SummaryPath != "" {
		writeSummary(cfg, info, status, writer.Bytes(), runErr, fs, log)
	}

	return runErr
}

func openSource(cfg config.Config, fs ports.FileSystem, log ports.Logger) (ports.FrameSource, error) {
	if cfg.UsesTestSource() {
		return testsource.New(cfg.ToTestSourceConfig(), log), nil
	}
	return y4msource.Open(fs, cfg.Input, log)
}

func openWriter(cfg config.Config, fs ports.FileSystem, log ports.Logger) (sizedWriter, error) {
	if cfg.ContainerFormat() == "mp4" {
		return mp4writer.New(fs, cfg.Output, log), nil
	}
	return filewriter.New(fs, cfg.Output, log)
}

func writeSummary(cfg config.Config, info ports.FrameInfo, status orchestrator.Status, bytes int64, runErr error, fs ports.FileSystem, log ports.Logger) {
	width, height := info.Width, info.Height
	if info.CropW > 0 {
		width, height = info.CropW, info.CropH
	}

	summary := summarizer.NewBuilder().
		WithInput(summarizer.InputInfo{
			Path:       cfg.Input,
			Width:      width,
			Height:     height,
			FrameRate:  info.FrameRate(),
			Interlaced: info.PicStruct.Interlaced(),
		}).
		WithSettings(summarizer.Settings{
			Codec:       string(status.OutputCodec),
			RateControl: cfg.Encode.RateControl,
			QP:          cfg.Encode.QP,
			BitrateKbps: cfg.Encode.BitrateKbps,
			Topology:    status.Topology.String(),
			AsyncDepth:  cfg.Pipeline.AsyncDepth,
			SceneChange: cfg.SceneChange.Enabled,
			Lookahead:   cfg.SceneChange.Lookahead,
		}).
		WithResult(summarizer.ResultInfo{
			FramesRead:      status.FramesRead,
			FramesWritten:   status.Written,
			KeyFrames:       status.KeyFrames,
			ForcedKeyFrames: status.ForcedKeyFrames,
			BufferGrowths:   status.BufferGrowths,
			BusyRetries:     status.BusyRetries,
			FrameRate:       status.OutputFrameRate,
			DurationMs:      int(status.VideoDuration().Milliseconds()),
			ElapsedMs:       int(status.Elapsed.Milliseconds()),
			EncodeFPS:       status.EncodeFPS(),
			Cancelled:       status.Cancelled,
		}).
		WithError(runErr).
		WithOutput(cfg.Output, cfg.ContainerFormat(), bytes).
		Build()

	formatter := summarizer.NewMarkdownFormatter(
		summarizer.WithTranslator(func(key string) string { return l10n.T(key) }),
		summarizer.WithVersion(version),
	)
	if err := summarizer.NewWriter(formatter, fs).Write(cfg.SummaryPath, summary); err != nil {
		log.Warn(l10n.F("Failed to write summary: %s", err))
		return
	}
	log.Info(l10n.F("Summary saved to %s", cfg.SummaryPath))
}

// Run executes the version command.
func (cmd *VersionCmd) Run() error {
	fmt.Println(l10n.F("vidpipe version %s", version))
	return nil
}
