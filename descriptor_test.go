package stermcom

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func fdOpen(fd int) bool {
	_, err := unix.FcntlInt(uintptr(fd), unix.F_GETFD, 0)
	return err == nil
}

func TestDescriptor_OpenFailure(t *testing.T) {
	d := OpenDescriptor(filepath.Join(t.TempDir(), "missing"), unix.O_RDONLY)

	require.False(t, d.OK())
	require.Equal(t, -1, d.Fd())
	require.ErrorIs(t, d.Err(), unix.ENOENT)
	require.NotEmpty(t, d.ErrorMessage())
	require.NoError(t, d.Close())
}

func TestDescriptor_CloseOnLastRelease(t *testing.T) {
	d := OpenDescriptor("/dev/null", unix.O_RDONLY)
	require.True(t, d.OK())
	require.Empty(t, d.ErrorMessage())
	fd := d.Fd()

	other := d.Share()
	require.Equal(t, fd, other.Fd())

	require.NoError(t, d.Close())
	require.True(t, fdOpen(fd), "closed while another owner still holds it")

	// a second Close on the same owner must not release the other one
	require.NoError(t, d.Close())
	require.True(t, fdOpen(fd))

	require.NoError(t, other.Close())
	require.False(t, fdOpen(fd))
}
