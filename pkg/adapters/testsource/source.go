// Package testsource generates synthetic frames: a ball moving over a
// gradient, with the palette switching every few frames to create hard
// scene cuts.
package testsource

import (
	"image"
	"image/color"
	"math"

	"github.com/fogleman/gg"

	"github.com/user/vidpipe/pkg/ports"
)

// Config describes the generated stream.
type Config struct {
	Width      int
	Height     int
	FrameRateN int
	FrameRateD int
	Frames     int  // Number of frames before end of stream
	CutEvery   int  // Frames per scene, 0 for a single scene
	Interlaced bool // Mark frames as top field first
}

type palette struct {
	top, bottom, ball color.RGBA
}

var palettes = []palette{
	{color.RGBA{20, 30, 80, 255}, color.RGBA{60, 90, 160, 255}, color.RGBA{250, 220, 60, 255}},
	{color.RGBA{230, 230, 220, 255}, color.RGBA{180, 170, 150, 255}, color.RGBA{200, 40, 40, 255}},
	{color.RGBA{10, 60, 20, 255}, color.RGBA{90, 160, 60, 255}, color.RGBA{240, 240, 255, 255}},
	{color.RGBA{90, 20, 90, 255}, color.RGBA{10, 10, 10, 255}, color.RGBA{80, 220, 220, 255}},
}

// Source renders frames on demand.
type Source struct {
	cfg    Config
	info   ports.FrameInfo
	dc     *gg.Context
	frame  int
	logger ports.Logger
}

// New creates a source. Zero fields fall back to 320x240 at 30 fps.
func New(cfg Config, logger ports.Logger) *Source {
	if cfg.Width <= 0 {
		cfg.Width = 320
	}
	if cfg.Height <= 0 {
		cfg.Height = 240
	}
	if cfg.FrameRateN <= 0 || cfg.FrameRateD <= 0 {
		cfg.FrameRateN, cfg.FrameRateD = 30, 1
	}
	info := ports.FrameInfo{
		Width:      cfg.Width,
		Height:     cfg.Height,
		FrameRateN: cfg.FrameRateN,
		FrameRateD: cfg.FrameRateD,
	}
	if cfg.Interlaced {
		info.PicStruct = ports.PicStructFieldTFF
	}
	return &Source{
		cfg:    cfg,
		info:   info,
		dc:     gg.NewContext(cfg.Width, cfg.Height),
		logger: logger.WithComponent("testsource"),
	}
}

// FrameInfo returns the generated geometry.
func (s *Source) FrameInfo() ports.FrameInfo {
	return s.info
}

// Scene returns the scene index of frame i.
func (s *Source) Scene(i int) int {
	if s.cfg.CutEvery <= 0 {
		return 0
	}
	return i / s.cfg.CutEvery
}

// LoadNextFrame renders the next frame into surf.
func (s *Source) LoadNextFrame(surf *ports.Surface) error {
	if s.frame >= s.cfg.Frames {
		return ports.ErrEndOfStream
	}
	s.render(s.frame)
	toYCbCr(s.dc, surf)
	surf.Timestamp = int64(s.frame)
	s.frame++
	return nil
}

func (s *Source) render(i int) {
	p := palettes[s.Scene(i)%len(palettes)]
	w, h := float64(s.cfg.Width), float64(s.cfg.Height)
	dc := s.dc

	grad := gg.NewLinearGradient(0, 0, 0, h)
	grad.AddColorStop(0, p.top)
	grad.AddColorStop(1, p.bottom)
	dc.SetFillStyle(grad)
	dc.DrawRectangle(0, 0, w, h)
	dc.Fill()

	// The ball crosses the frame once per second.
	fps := float64(s.cfg.FrameRateN) / float64(s.cfg.FrameRateD)
	t := math.Mod(float64(i)/fps, 1)
	r := math.Min(w, h) / 8
	x := r + t*(w-2*r)
	y := h/2 + math.Sin(t*2*math.Pi)*(h/2-r)
	dc.SetColor(p.ball)
	dc.DrawCircle(x, y, r)
	dc.Fill()
}

// toYCbCr converts the rendered RGBA image into the surface, averaging each
// 2x2 block for the chroma planes.
func toYCbCr(dc *gg.Context, surf *ports.Surface) {
	img := dc.Image().(*image.RGBA)
	b := img.Bounds()
	w, h := surf.Info.Visible()
	if w > b.Dx() {
		w = b.Dx()
	}
	if h > b.Dy() {
		h = b.Dy()
	}
	d := surf.Data

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			o := img.PixOffset(b.Min.X+x, b.Min.Y+y)
			yy, _, _ := color.RGBToYCbCr(img.Pix[o], img.Pix[o+1], img.Pix[o+2])
			d.Y[y*d.YStride+x] = yy
		}
	}
	for cy := 0; cy < (h+1)/2; cy++ {
		for cx := 0; cx < (w+1)/2; cx++ {
			var r, g, bl, n int
			for dy := 0; dy < 2; dy++ {
				for dx := 0; dx < 2; dx++ {
					x, y := cx*2+dx, cy*2+dy
					if x >= w || y >= h {
						continue
					}
					o := img.PixOffset(b.Min.X+x, b.Min.Y+y)
					r += int(img.Pix[o])
					g += int(img.Pix[o+1])
					bl += int(img.Pix[o+2])
					n++
				}
			}
			_, cb, cr := color.RGBToYCbCr(uint8(r/n), uint8(g/n), uint8(bl/n))
			d.Cb[cy*d.CStride+cx] = cb
			d.Cr[cy*d.CStride+cx] = cr
		}
	}
}

// Close logs the number of generated frames.
func (s *Source) Close() error {
	s.logger.Debug("Generated %d frames", s.frame)
	return nil
}

var _ ports.FrameSource = (*Source)(nil)
