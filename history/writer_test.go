package history

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriter_AppendsLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history")
	require.NoError(t, os.WriteFile(path, []byte("old\n"), 0o600))

	w := NewWriter(path)
	w.AddStr([]byte("ls"))
	w.AddStr([]byte(" -l"))
	require.Equal(t, "ls -l", string(w.Pending()))
	require.NoError(t, w.Write())
	require.Empty(t, w.Pending())

	w.AddStr([]byte("pwdx"))
	w.PopBack()
	require.NoError(t, w.Write())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "old\nls -l\npwd\n", string(data))
}

func TestWriter_EmptyLineIsNoop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history")
	w := NewWriter(path)

	w.PopBack()
	require.NoError(t, w.Write())
	_, err := os.Stat(path)
	require.True(t, os.IsNotExist(err))
}

func TestWriter_FailureKeepsLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing-dir", "history")
	w := NewWriter(path)
	w.AddStr([]byte("ls"))

	require.Error(t, w.Write())
	require.Equal(t, "ls", string(w.Pending()))
}
