package scenechange

import (
	"image"

	"golang.org/x/image/draw"

	"github.com/user/vidpipe/pkg/ports"
)

const histogramBins = 32

// Config tunes the detector.
type Config struct {
	SADThreshold       float64 // Mean absolute difference above which a cut is possible
	HistogramThreshold float64 // Histogram distance above which a cut is possible
	MotionThreshold    float64 // SAD above which a picture is treated as high motion
	MinKeyInterval     int     // Minimum pictures between two forced key frames
	KeyQPDelta         int     // Quantizer bias applied to forced key frames
	MotionQPDelta      int     // Quantizer bias applied to high motion pictures
	ThumbnailWidth     int
}

// DefaultConfig returns the detector defaults.
func DefaultConfig() Config {
	return Config{
		SADThreshold:       0.18,
		HistogramThreshold: 0.35,
		MotionThreshold:    0.06,
		MinKeyInterval:     8,
		KeyQPDelta:         -2,
		MotionQPDelta:      1,
		ThumbnailWidth:     64,
	}
}

type thumbnail struct {
	w, h int
	pix  []uint8
	hist [histogramBins]float64
}

// Analyzer compares each picture to the one before it.
// It keeps state between calls and must be used by a single goroutine.
type Analyzer struct {
	cfg      Config
	fields   bool
	prev     *thumbnail
	sinceKey int
	frames   int
	cuts     int
}

// New creates an analyzer. With fields set, every frame is analyzed as two
// pictures in field order, matching a bob deinterlacer downstream.
func New(cfg Config, fields bool) *Analyzer {
	if cfg.ThumbnailWidth <= 0 {
		cfg.ThumbnailWidth = DefaultConfig().ThumbnailWidth
	}
	if cfg.MinKeyInterval < 1 {
		cfg.MinKeyInterval = 1
	}
	return &Analyzer{cfg: cfg, fields: fields}
}

// Frames returns the number of frames analyzed.
func (a *Analyzer) Frames() int {
	return a.frames
}

// Cuts returns the number of forced key frames.
func (a *Analyzer) Cuts() int {
	return a.cuts
}

// Analyze computes the hint for the frame held by s.
func (a *Analyzer) Analyze(s *ports.Surface) Hint {
	a.frames++
	if !a.fields {
		return Hint{First: a.picture(newThumbnail(s, 0, 1, a.cfg.ThumbnailWidth), ports.FrameTypeIDR)}
	}

	first, second := 0, 1
	if s.Info.PicStruct == ports.PicStructFieldBFF {
		first, second = 1, 0
	}
	var h Hint
	h.First = a.picture(newThumbnail(s, first, 2, a.cfg.ThumbnailWidth), ports.FrameTypeIDR)
	// A cut between the two fields of one frame starts a new GOP mid-frame;
	// it is coded as I, not IDR.
	h.Second = a.picture(newThumbnail(s, second, 2, a.cfg.ThumbnailWidth), ports.FrameTypeI)
	return h
}

func (a *Analyzer) picture(t *thumbnail, keyType ports.FrameType) FieldHint {
	prev := a.prev
	a.prev = t
	a.sinceKey++
	if prev == nil {
		// The encoder opens the stream with a key frame anyway.
		a.sinceKey = 0
		return FieldHint{}
	}

	h := FieldHint{
		SAD:       sad(prev, t),
		Histogram: histogramDistance(prev, t),
	}
	switch {
	case h.SAD >= a.cfg.SADThreshold && h.Histogram >= a.cfg.HistogramThreshold && a.sinceKey >= a.cfg.MinKeyInterval:
		h.FrameType = keyType
		h.QPDelta = a.cfg.KeyQPDelta
		a.sinceKey = 0
		a.cuts++
	case h.SAD >= a.cfg.MotionThreshold:
		h.QPDelta = a.cfg.MotionQPDelta
	}
	return h
}

// newThumbnail scales the visible luma rows offset, offset+step, ... down to
// width columns. A field is addressed as a gray image with a doubled stride.
func newThumbnail(s *ports.Surface, offset, step, width int) *thumbnail {
	vw, vh := s.Info.Visible()
	rows := (vh - offset + step - 1) / step
	if rows < 1 {
		rows = 1
	}
	if width > vw {
		width = vw
	}
	height := rows * width / vw
	if height < 1 {
		height = 1
	}

	stride := s.Data.YStride
	src := &image.Gray{
		Pix:    s.Data.Y[offset*stride:],
		Stride: stride * step,
		Rect:   image.Rect(0, 0, vw, rows),
	}
	dst := image.NewGray(image.Rect(0, 0, width, height))
	draw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)

	t := &thumbnail{w: width, h: height, pix: dst.Pix}
	for _, v := range t.pix {
		t.hist[int(v)*histogramBins/256]++
	}
	total := float64(len(t.pix))
	for i := range t.hist {
		t.hist[i] /= total
	}
	return t
}

func sad(a, b *thumbnail) float64 {
	if len(a.pix) != len(b.pix) {
		return 1
	}
	var sum int
	for i := range a.pix {
		d := int(a.pix[i]) - int(b.pix[i])
		if d < 0 {
			d = -d
		}
		sum += d
	}
	return float64(sum) / float64(len(a.pix)*255)
}

func histogramDistance(a, b *thumbnail) float64 {
	var d float64
	for i := range a.hist {
		x := a.hist[i] - b.hist[i]
		if x < 0 {
			x = -x
		}
		d += x
	}
	return d / 2
}
