package stermcom

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// sliceSource hands out bytes from memory; everything left is "available".
type sliceSource struct {
	data []byte
}

func (s *sliceSource) Ready() bool { return len(s.data) > 0 }

func (s *sliceSource) ReadByte() (byte, error) {
	if len(s.data) == 0 {
		return 0, errShortRead
	}
	c := s.data[0]
	s.data = s.data[1:]
	return c, nil
}

func TestDecodeKey_DefaultPatterns(t *testing.T) {
	for _, p := range DefaultKeyPatterns {
		t.Run(p.Key.String(), func(t *testing.T) {
			src := &sliceSource{data: append([]byte(nil), p.Seq...)}
			res := DecodeKey(src, DefaultKeyPatterns)
			require.Equal(t, p.Key, res.Key)
			require.Equal(t, p.Seq, res.Raw)
			require.Empty(t, src.data)
		})
	}
}

func TestDecodeKey_StopsAtDisambiguation(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		key      Key
		raw      string
		leftover string
	}{
		{"plain byte", "hi", KeyOther, "h", "i"},
		{"arrow then text", "\x1b[Ax", KeyUp, "\x1b[A", "x"},
		{"enter then text", "\rls", KeyEnter, "\r", "ls"},
		{"escape alone", "\x1b", KeyEscape, "\x1b", ""},
		{"unknown escape sequence", "\x1b[Zq", KeyEscape, "\x1b[Z", "q"},
		{"escape then letter", "\x1bxy", KeyEscape, "\x1bx", "y"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			src := &sliceSource{data: []byte(tc.input)}
			res := DecodeKey(src, DefaultKeyPatterns)
			require.Equal(t, tc.key, res.Key)
			require.Equal(t, tc.raw, string(res.Raw))
			require.Equal(t, tc.leftover, string(src.data))
		})
	}
}

func TestDecodeKey_Empty(t *testing.T) {
	res := DecodeKey(&sliceSource{}, DefaultKeyPatterns)
	require.Equal(t, KeyOther, res.Key)
	require.Empty(t, res.Raw)
}

func TestDecodeKey_SharedPrefix(t *testing.T) {
	patterns := []KeyPattern{
		{Seq: []byte("ab"), Key: KeyUp},
		{Seq: []byte("ac"), Key: KeyDown},
	}

	res := DecodeKey(&sliceSource{data: []byte("ac")}, patterns)
	require.Equal(t, KeyDown, res.Key)
	require.Equal(t, "ac", string(res.Raw))

	res = DecodeKey(&sliceSource{data: []byte("ab")}, patterns)
	require.Equal(t, KeyUp, res.Key)

	// only the common prefix arrived: nothing is classified yet
	res = DecodeKey(&sliceSource{data: []byte("a")}, patterns)
	require.Equal(t, KeyOther, res.Key)
	require.Equal(t, "a", string(res.Raw))
}

func TestDecodeKey_LastPatternWinsTie(t *testing.T) {
	patterns := []KeyPattern{
		{Seq: []byte("x"), Key: KeyLeft},
		{Seq: []byte("x"), Key: KeyRight},
	}
	res := DecodeKey(&sliceSource{data: []byte("x")}, patterns)
	require.Equal(t, KeyRight, res.Key)
}

func TestReadKey_NeverBlocks(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	t.Cleanup(func() { r.Close(); w.Close() })

	done := make(chan KeyResult, 1)
	go func() { done <- ReadKey(int(r.Fd())) }()

	select {
	case res := <-done:
		require.Equal(t, KeyOther, res.Key)
		require.Empty(t, res.Raw)
	case <-time.After(500 * time.Millisecond):
		t.Fatal("ReadKey blocked on an empty descriptor")
	}

	_, err = w.Write([]byte("\x1b[B"))
	require.NoError(t, err)
	res := ReadKey(int(r.Fd()))
	require.Equal(t, KeyDown, res.Key)
	require.Equal(t, []byte{0x1b, 0x5b, 0x42}, res.Raw)
}

func TestDecodeKey_IgnoresPatternsPastLimit(t *testing.T) {
	patterns := make([]KeyPattern, 0, maxKeyPatterns+1)
	for i := 0; i < maxKeyPatterns; i++ {
		patterns = append(patterns, KeyPattern{Seq: []byte("a"), Key: KeyEnter})
	}
	patterns = append(patterns, KeyPattern{Seq: []byte("z"), Key: KeyCtrlR})

	res := DecodeKey(&sliceSource{data: []byte("z")}, patterns)
	require.Equal(t, KeyOther, res.Key)
	require.Equal(t, []byte("z"), res.Raw)

	res = DecodeKey(&sliceSource{data: []byte("a")}, patterns)
	require.Equal(t, KeyEnter, res.Key)
}
