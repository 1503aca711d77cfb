// Package osfilesystem provides a filesystem implementation using the os package.
package osfilesystem

import (
	"bufio"
	"io"
	"os"
	"path/filepath"

	"github.com/user/vidpipe/pkg/ports"
)

// bufferSize is the buffer size for streamed reads and writes. Raw frames
// are large, so it is well above the bufio default.
const bufferSize = 1 << 20

// FileSystem implements ports.FileSystem using the os package.
type FileSystem struct{}

// New creates a new FileSystem.
func New() *FileSystem {
	return &FileSystem{}
}

// ReadFile reads the entire contents of a file.
func (fs *FileSystem) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// WriteFile writes data to a file, creating it if necessary.
func (fs *FileSystem) WriteFile(path string, data []byte) error {
	if err := ensureParent(path); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Open opens path for buffered reading. "-" reads standard input.
func (fs *FileSystem) Open(path string) (io.ReadCloser, error) {
	if path == "-" {
		return &bufferedReader{Reader: bufio.NewReaderSize(os.Stdin, bufferSize)}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &bufferedReader{Reader: bufio.NewReaderSize(f, bufferSize), closer: f}, nil
}

// Create opens path for buffered writing. "-" writes standard output.
func (fs *FileSystem) Create(path string) (io.WriteCloser, error) {
	if path == "-" {
		return &bufferedWriter{Writer: bufio.NewWriterSize(os.Stdout, bufferSize)}, nil
	}
	if err := ensureParent(path); err != nil {
		return nil, err
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &bufferedWriter{Writer: bufio.NewWriterSize(f, bufferSize), file: f}, nil
}

// MkdirAll creates a directory and all parent directories.
func (fs *FileSystem) MkdirAll(path string) error {
	return os.MkdirAll(path, 0755)
}

// Exists checks if a file or directory exists.
func (fs *FileSystem) Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// Remove deletes a file or empty directory.
func (fs *FileSystem) Remove(path string) error {
	return os.Remove(path)
}

func ensureParent(path string) error {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		return os.MkdirAll(dir, 0755)
	}
	return nil
}

type bufferedReader struct {
	*bufio.Reader
	closer io.Closer
}

func (r *bufferedReader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

type bufferedWriter struct {
	*bufio.Writer
	file *os.File
}

func (w *bufferedWriter) Close() error {
	err := w.Flush()
	if w.file != nil {
		if cerr := w.file.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// Ensure FileSystem implements ports.FileSystem
var _ ports.FileSystem = (*FileSystem)(nil)
