package y4msource

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/user/vidpipe/pkg/adapters/logger"
	"github.com/user/vidpipe/pkg/mocks"
	"github.com/user/vidpipe/pkg/ports"
	"github.com/user/vidpipe/pkg/surface"
)

// stream builds a y4m stream whose frame i has luma i*10, cb 100+i and cr 200-i.
func stream(header string, w, h, frames int) []byte {
	var buf bytes.Buffer
	buf.WriteString(header + "\n")
	cw, ch := (w+1)/2, (h+1)/2
	for i := 0; i < frames; i++ {
		buf.WriteString("FRAME\n")
		buf.Write(bytes.Repeat([]byte{byte(i * 10)}, w*h))
		buf.Write(bytes.Repeat([]byte{byte(100 + i)}, cw*ch))
		buf.Write(bytes.Repeat([]byte{byte(200 - i)}, cw*ch))
	}
	return buf.Bytes()
}

func TestParseHeader(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		want    ports.FrameInfo
		wantErr error
	}{
		{
			name:   "progressive",
			header: "YUV4MPEG2 W20 H10 F30000:1001 Ip A1:1 C420jpeg",
			want:   ports.FrameInfo{Width: 32, Height: 16, CropW: 20, CropH: 10, FrameRateN: 30000, FrameRateD: 1001},
		},
		{
			name:   "interlaced",
			header: "YUV4MPEG2 W720 H576 F25:1 It",
			want: ports.FrameInfo{Width: 720, Height: 576, CropW: 720, CropH: 576,
				FrameRateN: 25, FrameRateD: 1, PicStruct: ports.PicStructFieldTFF},
		},
		{"bad magic", "YUV4MPEG W2 H2", ports.FrameInfo{}, ErrInvalidHeader},
		{"missing size", "YUV4MPEG2 F25:1", ports.FrameInfo{}, ErrInvalidHeader},
		{"bad rate", "YUV4MPEG2 W2 H2 F25", ports.FrameInfo{}, ErrInvalidHeader},
		{"444", "YUV4MPEG2 W2 H2 C444", ports.FrameInfo{}, ErrUnsupportedChroma},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseHeader(tt.header)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestSource_ReadFrames(t *testing.T) {
	fs := mocks.NewFileSystem()
	fs.WriteFile("in.y4m", stream("YUV4MPEG2 W6 H4 F25:1 Ip C420", 6, 4, 3))

	src, err := Open(fs, "in.y4m", logger.NewNoop())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer src.Close()

	info := src.FrameInfo()
	pool, err := surface.NewPool("in", 1, info)
	if err != nil {
		t.Fatalf("NewPool failed: %v", err)
	}
	s := pool.At(0)

	for i := 0; i < 3; i++ {
		if err := src.LoadNextFrame(s); err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
		if s.Timestamp != int64(i) {
			t.Errorf("frame %d: timestamp %d", i, s.Timestamp)
		}
		// Last visible luma sample of the last visible row.
		if v := s.Data.Y[3*s.Data.YStride+5]; v != byte(i*10) {
			t.Errorf("frame %d: luma %d", i, v)
		}
		// Padding stays untouched.
		if v := s.Data.Y[3*s.Data.YStride+6]; v != 0 {
			t.Errorf("frame %d: padding written with %d", i, v)
		}
		if s.Data.Cb[s.Data.CStride+2] != byte(100+i) || s.Data.Cr[0] != byte(200-i) {
			t.Errorf("frame %d: unexpected chroma", i)
		}
	}

	if err := src.LoadNextFrame(s); !errors.Is(err, ports.ErrEndOfStream) {
		t.Errorf("expected ErrEndOfStream, got %v", err)
	}
	if src.Frames() != 3 {
		t.Errorf("expected 3 frames read, got %d", src.Frames())
	}
}

func TestSource_TruncatedFrame(t *testing.T) {
	data := stream("YUV4MPEG2 W4 H4 F25:1", 4, 4, 2)
	src, err := New(bytes.NewReader(data[:len(data)-5]), logger.NewNoop())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	s := ports.NewSurface(0, src.FrameInfo())

	if err := src.LoadNextFrame(s); err != nil {
		t.Fatalf("first frame: %v", err)
	}
	err = src.LoadNextFrame(s)
	if !errors.Is(err, ErrInvalidFrame) || errors.Is(err, ports.ErrEndOfStream) {
		t.Errorf("expected ErrInvalidFrame, got %v", err)
	}
}

func TestSource_BadFrameMarker(t *testing.T) {
	header := "YUV4MPEG2 W2 H2 F25:1\n"
	src, err := New(strings.NewReader(header+"FRAME\nabcdef"+"JUNK\n"), logger.NewNoop())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	s := ports.NewSurface(0, src.FrameInfo())

	if err := src.LoadNextFrame(s); err != nil {
		t.Fatalf("first frame: %v", err)
	}
	if err := src.LoadNextFrame(s); !errors.Is(err, ErrInvalidFrame) {
		t.Errorf("expected ErrInvalidFrame, got %v", err)
	}
}
