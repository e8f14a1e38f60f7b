package history

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func numbered(n int) string {
	var b strings.Builder
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&b, "line %d\n", i)
	}
	return b.String()
}

func TestTrimLines(t *testing.T) {
	lines := [][]byte{[]byte("a"), []byte("b"), []byte("c")}

	require.Equal(t, [][]byte{[]byte("b"), []byte("c")}, TrimLines(lines, 2))
	require.Equal(t, lines, TrimLines(lines, 3))
	require.Equal(t, lines, TrimLines(lines, 10))
	require.Empty(t, TrimLines(lines, 0))
}

func TestTrim_KeepsNewestLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history")
	require.NoError(t, os.WriteFile(path, []byte(numbered(5)), 0o600))
	require.NoError(t, os.Chmod(path, 0o640))

	require.NoError(t, Trim(path, 2))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "line 4\nline 5\n", string(data))

	st, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o640), st.Mode().Perm())

	// no temp files left behind
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestTrim_WithinLimitUnchanged(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history")
	content := numbered(3)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	require.NoError(t, Trim(path, 3))
	require.NoError(t, Trim(path, DefaultMaxLines))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, content, string(data))
}

func TestTrim_EmptyOrMissingFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Trim(filepath.Join(dir, "missing"), 1))

	empty := filepath.Join(dir, "empty")
	require.NoError(t, os.WriteFile(empty, nil, 0o600))
	require.NoError(t, Trim(empty, 1))

	data, err := os.ReadFile(empty)
	require.NoError(t, err)
	require.Empty(t, data)
}
