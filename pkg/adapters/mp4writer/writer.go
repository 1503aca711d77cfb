// Package mp4writer muxes encoded frames into a fragmented MP4 file.
//
// Samples are buffered in memory and the file is written on Close as
// ftyp, moov and a single moof/mdat fragment.
package mp4writer

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/Eyevinn/mp4ff/mp4"

	"github.com/user/vidpipe/pkg/ports"
)

var (
	// ErrNoFrames is returned by Close when nothing was written.
	ErrNoFrames = errors.New("mp4writer: no frames")
	// ErrNoOutputParams is returned when frames arrive before SetOutputParams.
	ErrNoOutputParams = errors.New("mp4writer: output parameters not set")
	// ErrUnsupportedCodec is returned for codecs the muxer cannot carry.
	ErrUnsupportedCodec = errors.New("mp4writer: unsupported codec")
)

type sample struct {
	data []byte
	key  bool
}

// Writer implements ports.BitstreamWriter and ports.OutputAware.
type Writer struct {
	fs      ports.FileSystem
	path    string
	out     ports.OutputParams
	hasOut  bool
	samples []sample
	bytes   int64
	closed  bool
	logger  ports.Logger
}

// New returns a writer that creates path on Close.
func New(fs ports.FileSystem, path string, logger ports.Logger) *Writer {
	return &Writer{fs: fs, path: path, logger: logger.WithComponent("mp4writer")}
}

// SetOutputParams records the codec and frame geometry of the track.
func (w *Writer) SetOutputParams(out ports.OutputParams) error {
	switch out.Codec {
	case ports.CodecAVC, ports.CodecMJPEG:
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedCodec, out.Codec)
	}
	if out.Info.FrameRateN <= 0 || out.Info.FrameRateD <= 0 {
		return fmt.Errorf("mp4writer: invalid frame rate %d/%d", out.Info.FrameRateN, out.Info.FrameRateD)
	}
	w.out = out
	w.hasOut = true
	return nil
}

// WriteNextFrame copies the frame. The bitstream buffer is reused by the caller.
func (w *Writer) WriteNextFrame(bs *ports.Bitstream) error {
	if w.closed {
		return fmt.Errorf("write %s: writer closed", w.path)
	}
	if !w.hasOut {
		return ErrNoOutputParams
	}
	data := make([]byte, bs.Length)
	copy(data, bs.Bytes())
	key := bs.FrameType.Key() || w.out.Codec == ports.CodecMJPEG
	w.samples = append(w.samples, sample{data: data, key: key})
	w.bytes += int64(len(data))
	return nil
}

// Frames returns the number of buffered samples.
func (w *Writer) Frames() int {
	return len(w.samples)
}

// Bytes returns the number of payload bytes received.
func (w *Writer) Bytes() int64 {
	return w.bytes
}

// Close builds the file and writes it. It is safe to call more than once.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	data, err := w.build()
	if err != nil {
		return err
	}
	if err := w.fs.WriteFile(w.path, data); err != nil {
		return fmt.Errorf("write %s: %w", w.path, err)
	}
	w.logger.Debug("Muxed %d samples into %s (%d bytes)", len(w.samples), w.path, len(data))
	w.samples = nil
	return nil
}

func (w *Writer) build() ([]byte, error) {
	if len(w.samples) == 0 {
		return nil, ErrNoFrames
	}

	info := w.out.Info
	vw, vh := info.Visible()
	timescale := uint32(info.FrameRateN)
	dur := uint32(info.FrameRateD)
	trackID := uint32(1)

	init := mp4.CreateEmptyInit()
	init.AddEmptyTrack(timescale, "video", "und")
	trak := init.Moov.Trak

	entry, err := w.sampleEntry(uint16(vw), uint16(vh))
	if err != nil {
		return nil, err
	}
	trak.Mdia.Minf.Stbl.Stsd.AddChild(entry)
	trak.Tkhd.Width = mp4.Fixed32(vw << 16)
	trak.Tkhd.Height = mp4.Fixed32(vh << 16)

	frag, err := mp4.CreateFragment(1, trackID)
	if err != nil {
		return nil, fmt.Errorf("create fragment: %w", err)
	}

	for i, s := range w.samples {
		flags := mp4.NonSyncSampleFlags
		if s.key {
			flags = mp4.SyncSampleFlags
		}
		payload := s.data
		if w.out.Codec == ports.CodecAVC {
			payload = avcSample(s.data)
		}
		frag.AddFullSample(mp4.FullSample{
			Sample: mp4.Sample{
				Flags: flags,
				Size:  uint32(len(payload)),
				Dur:   dur,
			},
			DecodeTime: uint64(i) * uint64(dur),
			Data:       payload,
		})
	}

	var buf bytes.Buffer
	brands := []string{"isom", "iso2", "mp41"}
	if w.out.Codec == ports.CodecAVC {
		brands = append(brands, "avc1")
	}
	ftyp := mp4.NewFtyp("isom", 0x200, brands)
	if err := ftyp.Encode(&buf); err != nil {
		return nil, fmt.Errorf("encode ftyp: %w", err)
	}
	if err := init.Moov.Encode(&buf); err != nil {
		return nil, fmt.Errorf("encode moov: %w", err)
	}
	if err := frag.Encode(&buf); err != nil {
		return nil, fmt.Errorf("encode fragment: %w", err)
	}
	return buf.Bytes(), nil
}

func (w *Writer) sampleEntry(width, height uint16) (mp4.Box, error) {
	if w.out.Codec == ports.CodecMJPEG {
		return mp4.CreateVisualSampleEntryBox("jpeg", width, height, nil), nil
	}

	spss, ppss, err := parameterSets(w.samples)
	if err != nil {
		return nil, fmt.Errorf("extract SPS/PPS: %w", err)
	}
	avcC, err := mp4.CreateAvcC(spss, ppss, true)
	if err != nil {
		return nil, fmt.Errorf("create avcC: %w", err)
	}
	return mp4.CreateVisualSampleEntryBox("avc1", width, height, avcC), nil
}

var (
	_ ports.BitstreamWriter = (*Writer)(nil)
	_ ports.OutputAware     = (*Writer)(nil)
)
