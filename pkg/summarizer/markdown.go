package summarizer

import (
	"fmt"
	"strings"
)

// Translator maps an English label to the display language.
type Translator func(key string) string

// MarkdownFormatter renders a Summary as a Markdown report.
type MarkdownFormatter struct {
	translate Translator
	version   string
}

// MarkdownOption configures a MarkdownFormatter.
type MarkdownOption func(*MarkdownFormatter)

// WithTranslator sets the label translator.
func WithTranslator(t Translator) MarkdownOption {
	return func(f *MarkdownFormatter) {
		f.translate = t
	}
}

// WithVersion adds the tool version to the footer.
func WithVersion(v string) MarkdownOption {
	return func(f *MarkdownFormatter) {
		f.version = v
	}
}

// NewMarkdownFormatter creates a new MarkdownFormatter.
func NewMarkdownFormatter(opts ...MarkdownOption) *MarkdownFormatter {
	f := &MarkdownFormatter{
		translate: func(key string) string { return key },
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Format implements the Formatter interface.
func (f *MarkdownFormatter) Format(s *Summary) string {
	t := f.translate
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", t("Encode Summary"))
	fmt.Fprintf(&b, "%s: %s\n\n", t("Generated"), s.GeneratedAt.Format("2006-01-02 15:04:05"))

	if s.Result.Cancelled {
		fmt.Fprintf(&b, "> **%s**\n\n", t("Interrupted before the end of the input"))
	}
	if s.Result.Error != "" {
		fmt.Fprintf(&b, "> **%s**: %s\n\n", t("Error"), s.Result.Error)
	}

	fmt.Fprintf(&b, "## %s\n\n", t("Input"))
	row := tableWriter(&b, t)
	row("Source", s.Input.Path)
	if s.Input.Width > 0 {
		row("Resolution", fmt.Sprintf("%dx%d", s.Input.Width, s.Input.Height))
	}
	if s.Input.FrameRate > 0 {
		row("Frame Rate", formatRate(s.Input.FrameRate))
	}
	if s.Input.Interlaced {
		row("Scan", t("Interlaced"))
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "## %s\n\n", t("Settings"))
	row = tableWriter(&b, t)
	row("Codec", s.Settings.Codec)
	switch s.Settings.RateControl {
	case "cqp", "":
		row("Rate Control", fmt.Sprintf("CQP %d", s.Settings.QP))
	default:
		row("Rate Control", fmt.Sprintf("%s %d kbps", strings.ToUpper(s.Settings.RateControl), s.Settings.BitrateKbps))
	}
	row("Topology", s.Settings.Topology)
	row("Async Depth", fmt.Sprintf("%d", s.Settings.AsyncDepth))
	if s.Settings.SceneChange {
		row("Scene Change Look-ahead", fmt.Sprintf("%d", s.Settings.Lookahead))
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "## %s\n\n", t("Result"))
	row = tableWriter(&b, t)
	row("Frames Read", fmt.Sprintf("%d", s.Result.FramesRead))
	row("Frames Written", fmt.Sprintf("%d", s.Result.FramesWritten))
	row("Key Frames", fmt.Sprintf("%d (%d %s)", s.Result.KeyFrames, s.Result.ForcedKeyFrames, t("forced")))
	if s.Result.FrameRate > 0 {
		row("Output Frame Rate", formatRate(s.Result.FrameRate))
	}
	row("Video Duration", fmt.Sprintf("%d ms", s.Result.DurationMs))
	row("Encode Time", fmt.Sprintf("%d ms", s.Result.ElapsedMs))
	row("Encode Speed", fmt.Sprintf("%.1f fps", s.Result.EncodeFPS))
	if s.Result.BufferGrowths > 0 {
		row("Buffer Growths", fmt.Sprintf("%d", s.Result.BufferGrowths))
	}
	if s.Result.BusyRetries > 0 {
		row("Device Busy Retries", fmt.Sprintf("%d", s.Result.BusyRetries))
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "## %s\n\n", t("Output"))
	row = tableWriter(&b, t)
	row("File", s.Output.Path)
	row("Container", s.Output.Container)
	row("Bitstream Size", formatBytes(s.Output.Bytes))
	b.WriteString("\n")

	if f.version != "" {
		fmt.Fprintf(&b, "---\n\nvidpipe %s\n", f.version)
	}

	return b.String()
}

// tableWriter writes a two column table header and returns a row writer.
func tableWriter(b *strings.Builder, t Translator) func(label, value string) {
	fmt.Fprintf(b, "| %s | %s |\n|---|---|\n", t("Item"), t("Value"))
	return func(label, value string) {
		fmt.Fprintf(b, "| %s | %s |\n", t(label), value)
	}
}

func formatRate(fps float64) string {
	if fps == float64(int(fps)) {
		return fmt.Sprintf("%d fps", int(fps))
	}
	return fmt.Sprintf("%.2f fps", fps)
}

// formatBytes formats a byte count with binary units.
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit && exp < 2; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.2f %cB", float64(bytes)/float64(div), "KMG"[exp])
}
