package summarizer

import (
	"fmt"

	"github.com/user/vidpipe/pkg/ports"
)

// Formatter renders a Summary as text.
type Formatter interface {
	Format(summary *Summary) string
}

// FormatFunc adapts a function to Formatter.
type FormatFunc func(summary *Summary) string

func (f FormatFunc) Format(summary *Summary) string {
	return f(summary)
}

// Writer writes formatted summaries through a FileSystem.
type Writer struct {
	formatter Formatter
	fs        ports.FileSystem
}

// NewWriter creates a new Writer with the given Formatter.
func NewWriter(formatter Formatter, fs ports.FileSystem) *Writer {
	return &Writer{
		formatter: formatter,
		fs:        fs,
	}
}

// Write formats the summary and writes it to the specified path.
// The file system creates missing parent directories.
func (w *Writer) Write(path string, summary *Summary) error {
	content := w.formatter.Format(summary)

	if err := w.fs.WriteFile(path, []byte(content)); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}

	return nil
}
