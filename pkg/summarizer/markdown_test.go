package summarizer

import (
	"strings"
	"testing"
	"time"
)

func testSummary() *Summary {
	return &Summary{
		GeneratedAt: time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC),
		Input: InputInfo{
			Path:       "clip.y4m",
			Width:      720,
			Height:     576,
			FrameRate:  25,
			Interlaced: true,
		},
		Settings: Settings{
			Codec:       "mjpeg",
			RateControl: "cqp",
			QP:          26,
			Topology:    "vpp+hints",
			AsyncDepth:  4,
			SceneChange: true,
			Lookahead:   4,
		},
		Result: ResultInfo{
			FramesRead:      100,
			FramesWritten:   200,
			KeyFrames:       7,
			ForcedKeyFrames: 3,
			FrameRate:       50,
			DurationMs:      4000,
			ElapsedMs:       1250,
			EncodeFPS:       160,
		},
		Output: OutputInfo{
			Path:      "out.mp4",
			Container: "mp4",
			Bytes:     1024 * 1024,
		},
	}
}

func TestMarkdownFormatter_Format_Basic(t *testing.T) {
	formatter := NewMarkdownFormatter()

	result := formatter.Format(testSummary())

	checks := []string{
		"# Encode Summary",
		"2024-01-15 10:30:00",
		"clip.y4m",
		"720x576",
		"25 fps",
		"Interlaced",
		"CQP 26",
		"vpp+hints",
		"| Frames Written | 200 |",
		"7 (3 forced)",
		"50 fps",
		"4000 ms",
		"160.0 fps",
		"1.00 MB",
	}

	for _, check := range checks {
		if !strings.Contains(result, check) {
			t.Errorf("expected output to contain %q", check)
		}
	}

	// Zero counters are omitted.
	if strings.Contains(result, "Buffer Growths") || strings.Contains(result, "Device Busy Retries") {
		t.Error("zero retry counters should not be listed")
	}
	if strings.Contains(result, "Interrupted") {
		t.Error("complete run should not be marked interrupted")
	}
}

func TestMarkdownFormatter_Format_Bitrate(t *testing.T) {
	s := testSummary()
	s.Settings.RateControl = "vbr"
	s.Settings.BitrateKbps = 2500
	s.Input.FrameRate = 29.97

	result := NewMarkdownFormatter().Format(s)

	if !strings.Contains(result, "VBR 2500 kbps") {
		t.Error("expected bitrate rate control")
	}
	if !strings.Contains(result, "29.97 fps") {
		t.Error("expected fractional frame rate")
	}
}

func TestMarkdownFormatter_Format_Interrupted(t *testing.T) {
	s := testSummary()
	s.Result.Cancelled = true
	s.Result.BusyRetries = 12
	s.Result.BufferGrowths = 1
	s.Result.Error = "orchestrator: cancelled: context canceled"

	result := NewMarkdownFormatter().Format(s)

	checks := []string{
		"Interrupted before the end of the input",
		"orchestrator: cancelled",
		"| Buffer Growths | 1 |",
		"| Device Busy Retries | 12 |",
	}
	for _, check := range checks {
		if !strings.Contains(result, check) {
			t.Errorf("expected output to contain %q", check)
		}
	}
}

func TestMarkdownFormatter_WithTranslator(t *testing.T) {
	translator := func(key string) string {
		translations := map[string]string{
			"Encode Summary": "エンコードサマリー",
			"Frames Written": "書き込みフレーム数",
			"forced":         "強制",
		}
		if v, ok := translations[key]; ok {
			return v
		}
		return key
	}

	formatter := NewMarkdownFormatter(WithTranslator(translator))
	result := formatter.Format(testSummary())

	if !strings.Contains(result, "エンコードサマリー") {
		t.Error("expected translated 'Encode Summary'")
	}
	if !strings.Contains(result, "書き込みフレーム数") {
		t.Error("expected translated 'Frames Written'")
	}
	if !strings.Contains(result, "7 (3 強制)") {
		t.Error("expected translated 'forced'")
	}
}

func TestMarkdownFormatter_WithVersion(t *testing.T) {
	formatter := NewMarkdownFormatter(WithVersion("v1.2.0"))

	result := formatter.Format(testSummary())

	if !strings.Contains(result, "vidpipe v1.2.0") {
		t.Error("expected output to contain version 'v1.2.0'")
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		bytes int64
		want  string
	}{
		{0, "0 B"},
		{100, "100 B"},
		{1024, "1.00 KB"},
		{1536, "1.50 KB"},
		{1024 * 1024, "1.00 MB"},
		{1024 * 1024 * 1024, "1.00 GB"},
		{1536 * 1024 * 1024, "1.50 GB"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got := formatBytes(tt.bytes)
			if got != tt.want {
				t.Errorf("formatBytes(%d) = %q, want %q", tt.bytes, got, tt.want)
			}
		})
	}
}
