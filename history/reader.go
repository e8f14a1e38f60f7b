// Package history keeps the list of lines submitted through the relay.
//
// A Reader browses the lines stored in the history file during a search
// session; a Writer collects the line being typed and appends it to the file
// when it is submitted. Both only hold the file open for a single read-all or
// append-one operation.
package history

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"os"
)

// DeleteByte is emitted once per displayed byte to erase a history line.
const DeleteByte = 0x7f

// Reader navigates the history file. It is idle until StartSearch and goes
// back to idle on EndSearch.
type Reader struct {
	path      string
	searching bool
	entries   [][]byte
	cursor    int // len(entries) is the past-the-end position
	displayed int // byte length of the entry shown last
}

// NewReader returns an idle reader over the file at path.
func NewReader(path string) *Reader {
	return &Reader{path: path}
}

// Searching reports whether a search session is active.
func (r *Reader) Searching() bool {
	return r.searching
}

// StartSearch loads the file and parks the cursor past the last entry. A
// file that cannot be read yields an empty session. No-op while searching.
func (r *Reader) StartSearch() {
	if r.searching {
		return
	}
	r.searching = true
	r.entries, _ = ReadLines(r.path)
	r.cursor = len(r.entries)
}

// Up moves to the previous entry, staying put on the first one.
func (r *Reader) Up() {
	if !r.searching || len(r.entries) == 0 {
		return
	}
	if r.cursor > 0 {
		r.cursor--
	}
	r.displayed = len(r.entries[r.cursor])
}

// Down moves to the next entry or to the past-the-end position.
func (r *Reader) Down() {
	if !r.searching {
		return
	}
	if r.cursor < len(r.entries) {
		r.cursor++
	}
	if r.cursor < len(r.entries) {
		r.displayed = len(r.entries[r.cursor])
	} else {
		r.displayed = 0
	}
}

// At returns a copy of the entry under the cursor, or nil when idle or past
// the end.
func (r *Reader) At() []byte {
	if !r.searching || r.cursor >= len(r.entries) {
		return nil
	}
	return bytes.Clone(r.entries[r.cursor])
}

// ClearHistoryLine returns one DeleteByte for each byte of the entry shown
// last, which erases it from the remote line.
func (r *Reader) ClearHistoryLine() []byte {
	if !r.searching {
		return nil
	}
	return bytes.Repeat([]byte{DeleteByte}, r.displayed)
}

// EndSearch drops the loaded entries. No-op while idle.
func (r *Reader) EndSearch() {
	if !r.searching {
		return
	}
	r.entries = nil
	r.cursor = 0
	r.displayed = 0
	r.searching = false
}

// ReadLines returns every line of the file at path without its newline.
func ReadLines(path string) ([][]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines [][]byte
	br := bufio.NewReader(f)
	for {
		line, err := br.ReadBytes('\n')
		if len(line) > 0 {
			lines = append(lines, bytes.TrimSuffix(line, []byte{'\n'}))
		}
		if errors.Is(err, io.EOF) {
			return lines, nil
		}
		if err != nil {
			return lines, err
		}
	}
}
