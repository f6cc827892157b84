package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/chatdc/chatdc/pkg/types"
)

// Writer emits measurements. Each Write prints the block to Out and then
// appends the same text to Dir/File; earlier blocks in the file are kept.
// Writes from concurrent processes are not coordinated.
type Writer struct {
	Out  io.Writer
	Dir  string
	File string
}

// New returns a Writer printing to out and appending to dir/file.
func New(out io.Writer, dir, file string) *Writer {
	return &Writer{Out: out, Dir: dir, File: file}
}

// Path is the evaluation file the Writer appends to.
func (w *Writer) Path() string {
	return filepath.Join(w.Dir, w.File)
}

// Write emits one measurement.
func (w *Writer) Write(m types.Measurement) error {
	if w.Dir == "" {
		return fmt.Errorf("report: output directory is empty")
	}
	text := m.Text()

	if w.Out != nil {
		if _, err := io.WriteString(w.Out, text); err != nil {
			return fmt.Errorf("report: print measurement: %w", err)
		}
	}

	f, err := os.OpenFile(w.Path(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("report: open %s: %w", w.Path(), err)
	}
	if _, err := io.WriteString(f, text); err != nil {
		_ = f.Close()
		return fmt.Errorf("report: append %s: %w", w.Path(), err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("report: close %s: %w", w.Path(), err)
	}
	return nil
}
