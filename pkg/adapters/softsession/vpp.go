package softsession

import (
	"image"

	"golang.org/x/image/draw"

	"github.com/user/vidpipe/pkg/ports"
)

// SubmitVPP scales in into out. With bob deinterlacing or frame rate
// doubling each input produces two outputs: the first call reports
// StatusMoreSurface and expects the same input again.
func (s *Session) SubmitVPP(in, out *ports.Surface) (ports.Status, ports.SyncPoint) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if st := s.ready(); st != ports.StatusOK {
		return st, ports.SyncPoint{}
	}
	vpp := s.params.VPP
	if vpp == nil {
		return ports.StatusNotInitialized, ports.SyncPoint{}
	}
	if in == nil {
		// Nothing is buffered between calls.
		return ports.StatusMoreData, ports.SyncPoint{}
	}
	if out == nil {
		return ports.StatusNullPointer, ports.SyncPoint{}
	}
	if !s.acquire() {
		return ports.StatusDeviceBusy, ports.SyncPoint{}
	}

	bob := vpp.Deinterlace == ports.DeinterlaceBob && in.Info.PicStruct.Interlaced()
	doubles := bob || vpp.FrameRateX2
	phase := s.vppPhase

	field := -1
	if bob {
		field = phase
		if in.Info.PicStruct == ports.PicStructFieldBFF {
			field = 1 - phase
		}
	}
	ts := in.Timestamp
	if doubles {
		// Output indices stay unique when one input yields two frames.
		ts = in.Timestamp*2 + int64(phase)
	}
	denoise := vpp.Denoise

	sp := s.table.Issue()
	in.Lock()
	out.Lock()
	out.Timestamp = ts
	s.producers[out] = sp
	s.run(sp, func() ports.Status {
		defer in.Unlock()
		defer out.Unlock()
		scale(in, out, field)
		if denoise > 0 {
			smooth(out.Data.Y, out.Data.YStride, out.Info.Width, out.Info.Height, denoise)
		}
		return ports.StatusOK
	})

	if doubles && phase == 0 {
		s.vppPhase = 1
		return ports.StatusMoreSurface, sp
	}
	s.vppPhase = 0
	return ports.StatusOK, sp
}

// scale resizes the visible part of in into out plane by plane. A field of
// 0 or 1 selects the even or odd rows only.
func scale(in, out *ports.Surface, field int) {
	sw, sh := in.Info.Visible()
	dw, dh := out.Info.Visible()
	src, dst := in.Data, out.Data

	planes := []struct {
		src, dst             []uint8
		srcStride, dstStride int
		sw, sh, dw, dh       int
	}{
		{src.Y, dst.Y, src.YStride, dst.YStride, sw, sh, dw, dh},
		{src.Cb, dst.Cb, src.CStride, dst.CStride, (sw + 1) / 2, (sh + 1) / 2, (dw + 1) / 2, (dh + 1) / 2},
		{src.Cr, dst.Cr, src.CStride, dst.CStride, (sw + 1) / 2, (sh + 1) / 2, (dw + 1) / 2, (dh + 1) / 2},
	}

	for _, p := range planes {
		s := plane(p.src, p.srcStride, p.sw, p.sh, field)
		d := plane(p.dst, p.dstStride, p.dw, p.dh, -1)
		if s.Rect.Dx() == d.Rect.Dx() && s.Rect.Dy() == d.Rect.Dy() {
			draw.Copy(d, image.Point{}, s, s.Rect, draw.Src, nil)
			continue
		}
		draw.ApproxBiLinear.Scale(d, d.Rect, s, s.Rect, draw.Src, nil)
	}
}

// plane wraps a sample plane as a grey image, optionally keeping only the
// rows of one field.
func plane(pix []uint8, stride, w, h, field int) *image.Gray {
	if field < 0 {
		return &image.Gray{Pix: pix, Stride: stride, Rect: image.Rect(0, 0, w, h)}
	}
	rows := (h - field + 1) / 2
	return &image.Gray{Pix: pix[field*stride:], Stride: stride * 2, Rect: image.Rect(0, 0, w, rows)}
}

// smooth blends the plane with its 3x3 box average. strength is 1-100.
func smooth(pix []uint8, stride, w, h, strength int) {
	if strength > 100 {
		strength = 100
	}
	orig := make([]uint8, len(pix))
	copy(orig, pix)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var sum, n int
			for dy := -1; dy <= 1; dy++ {
				yy := y + dy
				if yy < 0 || yy >= h {
					continue
				}
				for dx := -1; dx <= 1; dx++ {
					xx := x + dx
					if xx < 0 || xx >= w {
						continue
					}
					sum += int(orig[yy*stride+xx])
					n++
				}
			}
			v := int(orig[y*stride+x])
			pix[y*stride+x] = uint8((v*(100-strength) + sum/n*strength) / 100)
		}
	}
}
