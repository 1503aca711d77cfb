package softsession

import (
	"bytes"
	"image"
	"image/jpeg"

	"github.com/user/vidpipe/pkg/ports"
)

// SubmitEncode compresses surf into bs as a JPEG image. If surf was produced
// by a VPP call that is still running, the encode waits for it.
func (s *Session) SubmitEncode(ctrl *ports.EncodeControl, surf *ports.Surface, bs *ports.Bitstream) (ports.Status, ports.SyncPoint) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if st := s.ready(); st != ports.StatusOK {
		return st, ports.SyncPoint{}
	}
	if surf == nil {
		// Intra-only coding keeps no frames back.
		return ports.StatusMoreData, ports.SyncPoint{}
	}
	if bs == nil {
		return ports.StatusNullPointer, ports.SyncPoint{}
	}
	if bs.Capacity() < s.output.BufferSize {
		return ports.StatusNotEnoughBuffer, ports.SyncPoint{}
	}
	if !s.acquire() {
		return ports.StatusDeviceBusy, ports.SyncPoint{}
	}

	var c ports.EncodeControl
	if ctrl != nil {
		c = *ctrl
	}
	frameType := s.nextFrameType(c.FrameType)
	quality := qualityFor(s.params.Encode.QP + c.QPDelta)
	ts := surf.Timestamp

	dep, hasDep := s.producers[surf]
	if hasDep {
		delete(s.producers, surf)
	}
	depDone, _ := s.table.Done(dep)

	sp := s.table.Issue()
	surf.Lock()
	s.run(sp, func() ports.Status {
		defer surf.Unlock()
		if hasDep && depDone != nil {
			<-depDone
			if st := s.table.Status(dep); st.IsError() && st != ports.StatusInvalidHandle {
				return ports.StatusAborted
			}
		}
		return encodeJPEG(surf, bs, quality, frameType, ts)
	})
	return ports.StatusOK, sp
}

// nextFrameType applies the GOP structure, honouring a forced type.
// Callers hold s.mu.
func (s *Session) nextFrameType(forced ports.FrameType) ports.FrameType {
	gop := s.params.Encode.GOPLength
	var t ports.FrameType
	switch {
	case forced.Key():
		t = forced
	case s.encoded == 0 || (gop > 0 && s.sinceKey >= gop):
		t = ports.FrameTypeIDR
	default:
		t = ports.FrameTypeP
	}
	s.encoded++
	if t.Key() {
		s.sinceKey = 1
	} else {
		s.sinceKey++
	}
	return t
}

// qualityFor maps a quantizer (0-51) to a JPEG quality (1-100).
func qualityFor(qp int) int {
	if qp < 0 {
		qp = 0
	}
	if qp > 51 {
		qp = 51
	}
	q := 100 - qp*99/51
	if q < 1 {
		q = 1
	}
	return q
}

func encodeJPEG(surf *ports.Surface, bs *ports.Bitstream, quality int, frameType ports.FrameType, ts int64) ports.Status {
	w, h := surf.Info.Visible()
	img := surf.Data.SubImage(image.Rect(0, 0, w, h))

	buf := bytes.NewBuffer(bs.Data[:0])
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return ports.StatusUnknown
	}
	if buf.Len() > bs.Capacity() {
		// The encoder outgrew the caller's buffer and reallocated. The
		// buffer can only be grown before submission, so once the job runs
		// this status fails the sync point and the run.
		return ports.StatusNotEnoughBuffer
	}
	bs.Length = buf.Len()
	bs.FrameType = frameType
	bs.Timestamp = ts
	return ports.StatusOK
}
