// Package summarizer provides summary generation for encode runs.
package summarizer

import "time"

// Summary contains all data collected during an encode run.
type Summary struct {
	// Metadata
	GeneratedAt time.Time

	// Input stream
	Input InputInfo

	// Encode settings
	Settings Settings

	// Pipeline results
	Result ResultInfo

	// Output file
	Output OutputInfo
}

// InputInfo describes the source stream.
type InputInfo struct {
	Path       string
	Width      int
	Height     int
	FrameRate  float64
	Interlaced bool
}

// Settings contains the encode configuration.
type Settings struct {
	Codec       string
	RateControl string
	QP          int
	BitrateKbps int
	Topology    string
	AsyncDepth  int
	SceneChange bool
	Lookahead   int
}

// ResultInfo contains the counters of a finished run.
type ResultInfo struct {
	FramesRead      int
	FramesWritten   int
	KeyFrames       int
	ForcedKeyFrames int
	BufferGrowths   int
	BusyRetries     int
	FrameRate       float64 // Output frame rate
	DurationMs      int     // Playback duration
	ElapsedMs       int     // Wall time
	EncodeFPS       float64
	Cancelled       bool
	Error           string
}

// OutputInfo describes the written file.
type OutputInfo struct {
	Path      string
	Container string
	Bytes     int64 // Encoded payload, excluding container overhead
}

// NewSummary creates a new Summary with the current timestamp.
func NewSummary() *Summary {
	return &Summary{
		GeneratedAt: time.Now(),
	}
}

// Builder provides a fluent interface for building a Summary.
type Builder struct {
	summary *Summary
}

// NewBuilder creates a new Builder.
func NewBuilder() *Builder {
	return &Builder{
		summary: NewSummary(),
	}
}

// WithInput sets input stream information.
func (b *Builder) WithInput(input InputInfo) *Builder {
	b.summary.Input = input
	return b
}

// WithSettings sets encode settings.
func (b *Builder) WithSettings(settings Settings) *Builder {
	b.summary.Settings = settings
	return b
}

// WithResult sets the run counters.
func (b *Builder) WithResult(result ResultInfo) *Builder {
	b.summary.Result = result
	return b
}

// WithError records the error that ended the run.
func (b *Builder) WithError(err error) *Builder {
	if err != nil {
		b.summary.Result.Error = err.Error()
	}
	return b
}

// WithOutput sets output file information.
func (b *Builder) WithOutput(path, container string, bytes int64) *Builder {
	b.summary.Output = OutputInfo{
		Path:      path,
		Container: container,
		Bytes:     bytes,
	}
	return b
}

// Build returns the constructed Summary.
func (b *Builder) Build() *Summary {
	return b.summary
}
