// Package filewriter writes encoded frames back to back as an elementary
// stream: Annex B for AVC and HEVC, concatenated JPEG images for MJPEG.
package filewriter

import (
	"fmt"
	"io"

	"github.com/user/vidpipe/pkg/ports"
)

// Writer implements ports.BitstreamWriter on a file.
type Writer struct {
	w      io.WriteCloser
	path   string
	frames int
	bytes  int64
	closed bool
	logger ports.Logger
}

// New creates path through fs.
func New(fs ports.FileSystem, path string, logger ports.Logger) (*Writer, error) {
	w, err := fs.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	return &Writer{w: w, path: path, logger: logger.WithComponent("filewriter")}, nil
}

// WriteNextFrame appends the valid bytes of bs.
func (w *Writer) WriteNextFrame(bs *ports.Bitstream) error {
	if w.closed {
		return fmt.Errorf("write %s: writer closed", w.path)
	}
	n, err := w.w.Write(bs.Bytes())
	w.bytes += int64(n)
	if err != nil {
		return fmt.Errorf("write %s: %w", w.path, err)
	}
	w.frames++
	return nil
}

// Frames returns the number of frames written.
func (w *Writer) Frames() int {
	return w.frames
}

// Bytes returns the number of bytes written.
func (w *Writer) Bytes() int64 {
	return w.bytes
}

// Close flushes and closes the file. It is safe to call more than once.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	w.logger.Debug("Wrote %d frames, %d bytes to %s", w.frames, w.bytes, w.path)
	return w.w.Close()
}

var _ ports.BitstreamWriter = (*Writer)(nil)
