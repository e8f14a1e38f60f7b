package history

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// DefaultMaxLines is how many lines Trim keeps unless told otherwise.
const DefaultMaxLines = 100

// TrimLines returns the last limit lines in their original order.
func TrimLines(lines [][]byte, limit int) [][]byte {
	if limit < 0 {
		limit = 0
	}
	if len(lines) <= limit {
		return lines
	}
	return lines[len(lines)-limit:]
}

// Trim rewrites the file at path so that it keeps only its last limit lines.
// A missing, unreadable or empty file is left alone, as is a file already
// within the limit.
func Trim(path string, limit int) error {
	lines, err := ReadLines(path)
	if err != nil || len(lines) == 0 {
		return nil
	}
	kept := TrimLines(lines, limit)
	if len(kept) == len(lines) {
		return nil
	}

	var out bytes.Buffer
	for _, line := range kept {
		out.Write(line)
		out.WriteByte('\n')
	}
	return replaceFile(path, out.Bytes())
}

// replaceFile swaps the contents of path for data through a temporary file
// in the same directory.
func replaceFile(path string, data []byte) error {
	mode := fs.FileMode(0o600)
	if st, err := os.Stat(path); err == nil {
		mode = st.Mode().Perm()
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp history: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp history: %w", err)
	}
	if err := tmp.Chmod(mode); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod temp history: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp history: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace history: %w", err)
	}
	return nil
}
