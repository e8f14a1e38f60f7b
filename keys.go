package stermcom

import (
	"golang.org/x/sys/unix"
)

// Key is the classification of one decoded keystroke.
type Key uint8

const (
	KeyCtrlX Key = iota
	KeyCtrlR
	KeyEnter
	KeyDelete
	KeyEscape
	KeyUp
	KeyDown
	KeyRight
	KeyLeft
	KeyOther
)

var keyNames = [...]string{
	KeyCtrlX:  "ctrl+x",
	KeyCtrlR:  "ctrl+r",
	KeyEnter:  "enter",
	KeyDelete: "delete",
	KeyEscape: "escape",
	KeyUp:     "up",
	KeyDown:   "down",
	KeyRight:  "right",
	KeyLeft:   "left",
	KeyOther:  "other",
}

func (k Key) String() string {
	if int(k) < len(keyNames) {
		return keyNames[k]
	}
	return "unknown"
}

// KeyPattern maps a byte sequence to the key it denotes.
type KeyPattern struct {
	Seq []byte
	Key Key
}

// DefaultKeyPatterns is the fixed table used by ReadKey. Order matters: when
// two patterns complete on the same byte the later one wins.
var DefaultKeyPatterns = []KeyPattern{
	{Seq: []byte{0x18}, Key: KeyCtrlX},
	{Seq: []byte{0x12}, Key: KeyCtrlR},
	{Seq: []byte{0x0d}, Key: KeyEnter},
	{Seq: []byte{0x7f}, Key: KeyDelete},
	{Seq: []byte{0x1b}, Key: KeyEscape},
	{Seq: []byte{0x1b, 0x5b, 0x41}, Key: KeyUp},
	{Seq: []byte{0x1b, 0x5b, 0x42}, Key: KeyDown},
	{Seq: []byte{0x1b, 0x5b, 0x43}, Key: KeyRight},
	{Seq: []byte{0x1b, 0x5b, 0x44}, Key: KeyLeft},
}

// maxKeyPatterns bounds the pattern tables DecodeKey accepts.
const maxKeyPatterns = 16

// KeyResult is one decoded keystroke and every byte consumed to decode it.
type KeyResult struct {
	Key Key
	Raw []byte
}

// ByteSource is what the decoder reads from. Ready must not block.
type ByteSource interface {
	Ready() bool
	ReadByte() (byte, error)
}

type matchState struct {
	index   int
	matched bool
}

// ReadKey decodes one keystroke from fd without blocking. When fd has no
// data it returns KeyOther with no raw bytes.
func ReadKey(fd int) KeyResult {
	return DecodeKey(fdSource(fd), DefaultKeyPatterns)
}

// DecodeKey consumes bytes from src while they are immediately available and
// more than one pattern is still a viable prefix.
// Only the first 16 patterns take part; the rest of the table is ignored.
func DecodeKey(src ByteSource, patterns []KeyPattern) KeyResult {
	if len(patterns) > maxKeyPatterns {
		patterns = patterns[:maxKeyPatterns]
	}
	var buf [maxKeyPatterns]matchState
	states := buf[:len(patterns)]
	for i := range states {
		states[i].matched = true
	}

	result := KeyResult{Key: KeyOther}
	for src.Ready() {
		c, err := src.ReadByte()
		if err != nil {
			break
		}
		result.Raw = append(result.Raw, c)

		remaining := 0
		for i := range states {
			st := &states[i]
			if !st.matched {
				continue
			}
			seq := patterns[i].Seq
			if st.index >= len(seq) || seq[st.index] != c {
				st.matched = false
				continue
			}
			st.index++
			if st.index == len(seq) {
				result.Key = patterns[i].Key
			}
			remaining++
		}
		if remaining <= 1 {
			break
		}
	}
	return result
}

// fdSource reads single bytes from a descriptor, polling with a zero
// timeout before each read.
type fdSource int

func (s fdSource) Ready() bool {
	pfd := []unix.PollFd{{Fd: int32(s), Events: unix.POLLIN}}
	n, err := unix.Poll(pfd, 0)
	if err != nil || n == 0 {
		return false
	}
	return pfd[0].Revents&unix.POLLIN != 0
}

func (s fdSource) ReadByte() (byte, error) {
	var b [1]byte
	n, err := unix.Read(int(s), b[:])
	if err != nil {
		return 0, err
	}
	if n != 1 {
		return 0, errShortRead
	}
	return b[0], nil
}
