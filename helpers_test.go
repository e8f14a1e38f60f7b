package stermcom

import (
	"bytes"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/creack/pty"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

// openPTY returns a master/slave pair closed at the end of the test.
func openPTY(t *testing.T) (*os.File, *os.File) {
	t.Helper()
	master, slave, err := pty.Open()
	require.NoError(t, err)
	t.Cleanup(func() { master.Close(); slave.Close() })
	return master, slave
}

func makeRaw(t *testing.T, f *os.File) {
	t.Helper()
	require.NoError(t, NewTerminal(int(f.Fd())).SetRawMode())
}

func isRaw(fd int) bool {
	termios, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	return err == nil && termios.Lflag&unix.ICANON == 0
}

// readN reads exactly n bytes from f or fails after timeout.
func readN(t *testing.T, f *os.File, n int, timeout time.Duration) []byte {
	t.Helper()
	got := make(chan []byte, 1)
	go func() {
		buf := make([]byte, 0, n)
		tmp := make([]byte, n)
		for len(buf) < n {
			m, err := f.Read(tmp[:n-len(buf)])
			if err != nil {
				break
			}
			buf = append(buf, tmp[:m]...)
		}
		got <- buf
	}()
	select {
	case b := <-got:
		require.Len(t, b, n)
		return b
	case <-time.After(timeout):
		t.Fatalf("timeout waiting for %d bytes", n)
		return nil
	}
}

// syncBuffer is a bytes.Buffer safe for the relay goroutine and the test.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type runResult struct {
	reason ExitReason
	err    error
}

func startRelay(r *Relay) <-chan runResult {
	done := make(chan runResult, 1)
	go func() {
		reason, err := r.Run()
		done <- runResult{reason, err}
	}()
	return done
}

func waitExit(t *testing.T, done <-chan runResult) runResult {
	t.Helper()
	select {
	case res := <-done:
		return res
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for the relay to stop")
		return runResult{}
	}
}
