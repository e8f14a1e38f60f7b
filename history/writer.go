package history

import (
	"bytes"
	"fmt"
	"os"
)

// Writer collects the line being typed and appends it to the history file.
type Writer struct {
	path string
	buf  []byte
}

// NewWriter returns a writer appending to the file at path.
func NewWriter(path string) *Writer {
	return &Writer{path: path}
}

// AddStr appends b to the pending line.
func (w *Writer) AddStr(b []byte) {
	w.buf = append(w.buf, b...)
}

// PopBack removes the last byte of the pending line, if any.
func (w *Writer) PopBack() {
	if len(w.buf) > 0 {
		w.buf = w.buf[:len(w.buf)-1]
	}
}

// Pending returns a copy of the pending line.
func (w *Writer) Pending() []byte {
	return bytes.Clone(w.buf)
}

// Write appends the pending line plus a newline to the file and clears it.
// An empty pending line writes nothing. On failure the line is kept.
func (w *Writer) Write() error {
	if len(w.buf) == 0 {
		return nil
	}
	f, err := os.OpenFile(w.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	line := append(bytes.Clone(w.buf), '\n')
	if _, err := f.Write(line); err != nil {
		f.Close()
		return fmt.Errorf("append history: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close history: %w", err)
	}
	w.buf = nil
	return nil
}
