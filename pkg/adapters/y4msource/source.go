// Package y4msource reads raw 4:2:0 frames from YUV4MPEG2 streams.
package y4msource

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/user/vidpipe/pkg/ports"
)

const (
	magic       = "YUV4MPEG2"
	frameMarker = "FRAME"
	maxLine     = 1024
)

var (
	// ErrInvalidHeader means the stream header could not be parsed.
	ErrInvalidHeader = errors.New("y4m: invalid header")

	// ErrUnsupportedChroma means the stream is not 4:2:0.
	ErrUnsupportedChroma = errors.New("y4m: unsupported chroma subsampling")

	// ErrInvalidFrame means a frame header or payload is malformed.
	ErrInvalidFrame = errors.New("y4m: invalid frame")
)

// Source reads frames from a YUV4MPEG2 stream.
type Source struct {
	r      *bufio.Reader
	closer io.Closer
	info   ports.FrameInfo
	frames int64
	logger ports.Logger
}

// Open opens path through fs and parses the stream header.
func Open(fs ports.FileSystem, path string, logger ports.Logger) (*Source, error) {
	rc, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	src, err := New(rc, logger)
	if err != nil {
		rc.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	src.closer = rc
	return src, nil
}

// New parses the stream header from r.
func New(r io.Reader, logger ports.Logger) (*Source, error) {
	br := bufio.NewReader(r)
	line, err := readLine(br)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidHeader, err)
	}
	info, err := parseHeader(line)
	if err != nil {
		return nil, err
	}
	l := logger.WithComponent("y4m")
	w, h := info.Visible()
	l.Debug("Stream %dx%d at %d:%d fps, %s", w, h, info.FrameRateN, info.FrameRateD, info.PicStruct)
	return &Source{r: br, info: info, logger: l}, nil
}

// parseHeader reads the stream parameters. Surfaces are padded to a multiple
// of 16 (32 rows for interlaced content) and the picture size is kept as the
// crop.
func parseHeader(line string) (ports.FrameInfo, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 || fields[0] != magic {
		return ports.FrameInfo{}, fmt.Errorf("%w: missing %s signature", ErrInvalidHeader, magic)
	}

	info := ports.FrameInfo{FrameRateN: 25, FrameRateD: 1}
	var w, h int
	for _, f := range fields[1:] {
		tag, val := f[0], f[1:]
		var err error
		switch tag {
		case 'W':
			w, err = strconv.Atoi(val)
		case 'H':
			h, err = strconv.Atoi(val)
		case 'F':
			info.FrameRateN, info.FrameRateD, err = parseRatio(val)
		case 'I':
			switch val {
			case "t":
				info.PicStruct = ports.PicStructFieldTFF
			case "b":
				info.PicStruct = ports.PicStructFieldBFF
			case "p", "?":
				info.PicStruct = ports.PicStructProgressive
			default:
				err = fmt.Errorf("interlace mode %q", val)
			}
		case 'C':
			if !strings.HasPrefix(val, "420") {
				return ports.FrameInfo{}, fmt.Errorf("%w: %s", ErrUnsupportedChroma, val)
			}
		}
		if err != nil {
			return ports.FrameInfo{}, fmt.Errorf("%w: %c: %w", ErrInvalidHeader, tag, err)
		}
	}
	if w <= 0 || h <= 0 {
		return ports.FrameInfo{}, fmt.Errorf("%w: size %dx%d", ErrInvalidHeader, w, h)
	}

	vAlign := 16
	if info.PicStruct.Interlaced() {
		vAlign = 32
	}
	info.Width = align(w, 16)
	info.Height = align(h, vAlign)
	info.CropW = w
	info.CropH = h
	return info, nil
}

func parseRatio(s string) (int, int, error) {
	num, den, ok := strings.Cut(s, ":")
	if !ok {
		return 0, 0, fmt.Errorf("ratio %q", s)
	}
	n, err := strconv.Atoi(num)
	if err != nil {
		return 0, 0, err
	}
	d, err := strconv.Atoi(den)
	if err != nil {
		return 0, 0, err
	}
	if n <= 0 || d <= 0 {
		return 0, 0, fmt.Errorf("ratio %q", s)
	}
	return n, d, nil
}

func align(v, a int) int {
	return (v + a - 1) / a * a
}

// FrameInfo returns the surface geometry for this stream.
func (s *Source) FrameInfo() ports.FrameInfo {
	return s.info
}

// Frames returns the number of frames read so far.
func (s *Source) Frames() int64 {
	return s.frames
}

// LoadNextFrame reads the next frame into the visible area of surf.
func (s *Source) LoadNextFrame(surf *ports.Surface) error {
	line, err := readLine(s.r)
	if errors.Is(err, io.EOF) && line == "" {
		return ports.ErrEndOfStream
	}
	if err != nil {
		return fmt.Errorf("%w %d: %w", ErrInvalidFrame, s.frames, err)
	}
	if !strings.HasPrefix(line, frameMarker) {
		return fmt.Errorf("%w %d: unexpected header %q", ErrInvalidFrame, s.frames, line)
	}

	w, h := s.info.Visible()
	cw, ch := (w+1)/2, (h+1)/2
	d := surf.Data
	if err := readPlane(s.r, d.Y, d.YStride, w, h); err != nil {
		return fmt.Errorf("%w %d: luma: %w", ErrInvalidFrame, s.frames, err)
	}
	if err := readPlane(s.r, d.Cb, d.CStride, cw, ch); err != nil {
		return fmt.Errorf("%w %d: cb: %w", ErrInvalidFrame, s.frames, err)
	}
	if err := readPlane(s.r, d.Cr, d.CStride, cw, ch); err != nil {
		return fmt.Errorf("%w %d: cr: %w", ErrInvalidFrame, s.frames, err)
	}

	surf.Timestamp = s.frames
	s.frames++
	return nil
}

func readPlane(r io.Reader, pix []uint8, stride, w, h int) error {
	for y := 0; y < h; y++ {
		if _, err := io.ReadFull(r, pix[y*stride:y*stride+w]); err != nil {
			return err
		}
	}
	return nil
}

// readLine reads up to and excluding the next newline.
func readLine(r *bufio.Reader) (string, error) {
	var sb strings.Builder
	for sb.Len() < maxLine {
		b, err := r.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) && sb.Len() > 0 {
				return sb.String(), io.ErrUnexpectedEOF
			}
			return sb.String(), err
		}
		if b == '\n' {
			return sb.String(), nil
		}
		sb.WriteByte(b)
	}
	return sb.String(), fmt.Errorf("line longer than %d bytes", maxLine)
}

// Close closes the underlying file, if any.
func (s *Source) Close() error {
	if s.closer == nil {
		return nil
	}
	s.logger.Debug("Read %d frames", s.frames)
	return s.closer.Close()
}

var _ ports.FrameSource = (*Source)(nil)
