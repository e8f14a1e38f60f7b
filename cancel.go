package stermcom

import (
	"fmt"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// IgnoredSignals are discarded for the lifetime of a session.
var IgnoredSignals = []os.Signal{syscall.SIGINT, syscall.SIGQUIT, syscall.SIGPIPE, syscall.SIGUSR1, syscall.SIGUSR2}

// TerminatingSignals end the session.
var TerminatingSignals = []os.Signal{syscall.SIGHUP, syscall.SIGTERM}

// CancelFlag is a set-once cancellation flag paired with a self-pipe, so a
// relay blocked in poll wakes up when the flag is set.
type CancelFlag struct {
	set       atomic.Bool
	closed    atomic.Bool
	pipeR     int // self-pipe read fd
	pipeW     int // self-pipe write fd
	sigs      chan os.Signal
	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
	log       logrus.FieldLogger
}

// NewCancelFlag creates an unset flag and its wake pipe.
func NewCancelFlag() (*CancelFlag, error) {
	pipeFds := make([]int, 2)
	if err := unix.Pipe2(pipeFds, unix.O_NONBLOCK|unix.O_CLOEXEC); err != nil {
		return nil, fmt.Errorf("pipe: %w", err)
	}
	return &CancelFlag{
		pipeR: pipeFds[0],
		pipeW: pipeFds[1],
		done:  make(chan struct{}),
		log:   noopLogger,
	}, nil
}

// SetLogger replaces the discard logger used for signal diagnostics.
func (c *CancelFlag) SetLogger(log logrus.FieldLogger) {
	if log != nil {
		c.log = log
	}
}

// Notify ignores the ignored signals and sets the flag when one of the
// terminating signals arrives.
// Empty lists are skipped; the os/signal functions would otherwise apply to
// every signal.
func (c *CancelFlag) Notify(ignored, terminating []os.Signal) {
	if len(ignored) > 0 {
		signal.Ignore(ignored...)
	}
	if len(terminating) == 0 {
		return
	}
	c.sigs = make(chan os.Signal, 1)
	signal.Notify(c.sigs, terminating...)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		select {
		case sig := <-c.sigs:
			c.log.WithField("signal", sig.String()).Debug("disconnect")
			c.Set()
		case <-c.done:
		}
	}()
}

// Set raises the flag and wakes any poll watching Fd. Only the first call
// has an effect; after Close the pipe is left alone.
func (c *CancelFlag) Set() {
	if c.set.Swap(true) || c.closed.Load() {
		return
	}
	unix.Write(c.pipeW, []byte{1})
}

// IsSet reports whether cancellation was requested.
func (c *CancelFlag) IsSet() bool {
	return c.set.Load()
}

// Fd is the read end of the wake pipe; it becomes readable once Set ran.
func (c *CancelFlag) Fd() int {
	return c.pipeR
}

// drain empties the wake pipe.
func (c *CancelFlag) drain() {
	var b [8]byte
	for {
		n, err := unix.Read(c.pipeR, b[:])
		if n <= 0 || err != nil {
			return
		}
	}
}

// Close stops signal delivery, waits for the signal goroutine and releases
// the pipe.
// Safe to call multiple times; subsequent calls are no-ops.
func (c *CancelFlag) Close() error {
	var err error
	c.closeOnce.Do(func() {
		if c.sigs != nil {
			signal.Stop(c.sigs)
		}
		close(c.done)
		c.wg.Wait()
		c.closed.Store(true)
		err = unix.Close(c.pipeR)
		unix.Close(c.pipeW)
	})
	return err
}
