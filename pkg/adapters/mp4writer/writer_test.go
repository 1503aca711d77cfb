package mp4writer

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"testing"

	"github.com/Eyevinn/mp4ff/mp4"

	"github.com/user/vidpipe/pkg/adapters/logger"
	"github.com/user/vidpipe/pkg/mocks"
	"github.com/user/vidpipe/pkg/ports"
)

func mjpegOutput() ports.OutputParams {
	return ports.OutputParams{
		Codec: ports.CodecMJPEG,
		Info:  ports.FrameInfo{Width: 64, Height: 48, FrameRateN: 30000, FrameRateD: 1001},
	}
}

func TestWriter_MJPEG(t *testing.T) {
	fs := mocks.NewFileSystem()
	w := New(fs, "out.mp4", logger.NewNoop())
	if err := w.SetOutputParams(mjpegOutput()); err != nil {
		t.Fatalf("SetOutputParams failed: %v", err)
	}

	bs := ports.NewBitstream(64)
	for i := int64(0); i < 4; i++ {
		mocks.FillBitstream(bs, i)
		if err := w.WriteNextFrame(bs); err != nil {
			t.Fatalf("WriteNextFrame failed: %v", err)
		}
	}
	// The caller reuses the buffer.
	mocks.FillBitstream(bs, 99)

	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}

	data, ok := fs.GetFile("out.mp4")
	if !ok {
		t.Fatal("file not written")
	}
	f, err := mp4.DecodeFile(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if f.Init == nil || f.Init.Moov == nil {
		t.Fatal("missing moov")
	}
	if ts := f.Init.Moov.Trak.Mdia.Mdhd.Timescale; ts != 30000 {
		t.Errorf("expected timescale 30000, got %d", ts)
	}

	var trex *mp4.TrexBox
	if f.Init.Moov.Mvex != nil && len(f.Init.Moov.Mvex.Trexs) > 0 {
		trex = f.Init.Moov.Mvex.Trexs[0]
	}
	var got []mp4.FullSample
	for _, seg := range f.Segments {
		for _, frag := range seg.Fragments {
			samples, err := frag.GetFullSamples(trex)
			if err != nil {
				t.Fatalf("GetFullSamples failed: %v", err)
			}
			got = append(got, samples...)
		}
	}

	if len(got) != 4 {
		t.Fatalf("expected 4 samples, got %d", len(got))
	}
	for i, s := range got {
		if want := fmt.Sprintf("frame %d", i); string(s.Data) != want {
			t.Errorf("sample %d: got %q, want %q", i, s.Data, want)
		}
		if s.Dur != 1001 {
			t.Errorf("sample %d: duration %d", i, s.Dur)
		}
		if s.DecodeTime != uint64(i)*1001 {
			t.Errorf("sample %d: decode time %d", i, s.DecodeTime)
		}
		if s.Flags != mp4.SyncSampleFlags {
			t.Errorf("sample %d: every JPEG sample is a sync sample", i)
		}
	}
}

func TestWriter_Errors(t *testing.T) {
	fs := mocks.NewFileSystem()

	w := New(fs, "out.mp4", logger.NewNoop())
	if err := w.WriteNextFrame(ports.NewBitstream(4)); !errors.Is(err, ErrNoOutputParams) {
		t.Errorf("expected ErrNoOutputParams, got %v", err)
	}

	hevc := mjpegOutput()
	hevc.Codec = ports.CodecHEVC
	if err := w.SetOutputParams(hevc); !errors.Is(err, ErrUnsupportedCodec) {
		t.Errorf("expected ErrUnsupportedCodec, got %v", err)
	}

	noRate := mjpegOutput()
	noRate.Info.FrameRateD = 0
	if err := w.SetOutputParams(noRate); err == nil {
		t.Error("expected frame rate error")
	}

	if err := w.SetOutputParams(mjpegOutput()); err != nil {
		t.Fatalf("SetOutputParams failed: %v", err)
	}
	if err := w.Close(); !errors.Is(err, ErrNoFrames) {
		t.Errorf("expected ErrNoFrames, got %v", err)
	}
	if _, ok := fs.GetFile("out.mp4"); ok {
		t.Error("no file expected without frames")
	}
}

func TestWriter_AVCWithoutParameterSets(t *testing.T) {
	fs := mocks.NewFileSystem()
	w := New(fs, "out.mp4", logger.NewNoop())
	out := mjpegOutput()
	out.Codec = ports.CodecAVC
	if err := w.SetOutputParams(out); err != nil {
		t.Fatalf("SetOutputParams failed: %v", err)
	}

	bs := ports.NewBitstream(16)
	bs.Length = copy(bs.Data, []byte{0, 0, 0, 1, 0x65, 0xAA})
	bs.FrameType = ports.FrameTypeIDR
	if err := w.WriteNextFrame(bs); err != nil {
		t.Fatalf("WriteNextFrame failed: %v", err)
	}
	if err := w.Close(); err == nil {
		t.Error("expected missing SPS error")
	}
}

// Parameter sets of a High profile level 3.0 stream.
const (
	testSPS = "6764001eacd940a02ff9610000030001000003003c8f162d96"
	testPPS = "68ebecb22c"
)

func annexB(t *testing.T, hexNalus ...string) []byte {
	t.Helper()
	var out []byte
	for _, h := range hexNalus {
		nalu, err := hex.DecodeString(h)
		if err != nil {
			t.Fatal(err)
		}
		out = append(out, 0, 0, 0, 1)
		out = append(out, nalu...)
	}
	return out
}

func TestAVCSample(t *testing.T) {
	data := annexB(t, "0910", testSPS, testPPS, "65aabbcc")
	want := []byte{0, 0, 0, 4, 0x65, 0xAA, 0xBB, 0xCC}
	if got := avcSample(data); !bytes.Equal(got, want) {
		t.Errorf("got %x, want %x", got, want)
	}

	if got := avcSample([]byte{0x65, 1}); !bytes.Equal(got, []byte{0x65, 1}) {
		t.Errorf("data without start codes should pass through, got %x", got)
	}

	spss, ppss, err := parameterSets([]sample{{data: annexB(t, "4101")}, {data: data, key: true}})
	if err != nil {
		t.Fatalf("parameterSets failed: %v", err)
	}
	if len(spss) != 1 || hex.EncodeToString(spss[0]) != testSPS || len(ppss) != 1 || hex.EncodeToString(ppss[0]) != testPPS {
		t.Errorf("unexpected parameter sets %x %x", spss, ppss)
	}
}

func TestWriter_AVC(t *testing.T) {
	fs := mocks.NewFileSystem()
	w := New(fs, "out.mp4", logger.NewNoop())
	out := mjpegOutput()
	out.Codec = ports.CodecAVC
	out.Info = ports.FrameInfo{Width: 1280, Height: 720, FrameRateN: 30, FrameRateD: 1}
	if err := w.SetOutputParams(out); err != nil {
		t.Fatalf("SetOutputParams failed: %v", err)
	}

	frames := [][]byte{
		annexB(t, testSPS, testPPS, "65888000"),
		annexB(t, "419a0102"),
		annexB(t, "419a0304"),
	}
	for i, f := range frames {
		bs := ports.NewBitstream(len(f))
		bs.Length = copy(bs.Data, f)
		bs.FrameType = ports.FrameTypeP
		if i == 0 {
			bs.FrameType = ports.FrameTypeIDR
		}
		if err := w.WriteNextFrame(bs); err != nil {
			t.Fatalf("WriteNextFrame failed: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	data, _ := fs.GetFile("out.mp4")
	f, err := mp4.DecodeFile(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	stsd := f.Init.Moov.Trak.Mdia.Minf.Stbl.Stsd
	if stsd.AvcX == nil || stsd.AvcX.AvcC == nil {
		t.Fatal("missing avc1 sample entry")
	}
	if got := hex.EncodeToString(stsd.AvcX.AvcC.SPSnalus[0]); got != testSPS {
		t.Errorf("unexpected SPS in avcC: %s", got)
	}

	var trex *mp4.TrexBox
	if f.Init.Moov.Mvex != nil && len(f.Init.Moov.Mvex.Trexs) > 0 {
		trex = f.Init.Moov.Mvex.Trexs[0]
	}
	var samples []mp4.FullSample
	for _, seg := range f.Segments {
		for _, frag := range seg.Fragments {
			s, err := frag.GetFullSamples(trex)
			if err != nil {
				t.Fatalf("GetFullSamples failed: %v", err)
			}
			samples = append(samples, s...)
		}
	}
	if len(samples) != 3 {
		t.Fatalf("expected 3 samples, got %d", len(samples))
	}
	want := []byte{0, 0, 0, 4, 0x65, 0x88, 0x80, 0x00}
	if !bytes.Equal(samples[0].Data, want) {
		t.Errorf("key sample: got %x, want %x", samples[0].Data, want)
	}
	if samples[0].Flags != mp4.SyncSampleFlags || samples[1].Flags != mp4.NonSyncSampleFlags {
		t.Errorf("unexpected sample flags %x %x", samples[0].Flags, samples[1].Flags)
	}
}
