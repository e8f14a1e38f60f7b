package stermcom

import (
	"errors"
	"fmt"
	"io"

	"github.com/luhtfiimanal/stermcom/history"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// ExitReason tells why Relay.Run returned.
type ExitReason int

const (
	ExitQuit ExitReason = iota
	ExitRemoteClosed
	ExitCancelled
	ExitKeyboardClosed
)

func (r ExitReason) String() string {
	switch r {
	case ExitQuit:
		return "quit"
	case ExitRemoteClosed:
		return "remote closed"
	case ExitCancelled:
		return "cancelled"
	case ExitKeyboardClosed:
		return "keyboard closed"
	default:
		return fmt.Sprintf("ExitReason(%d)", int(r))
	}
}

// RelayConfig wires a Relay to its descriptors.
type RelayConfig struct {
	Keyboard int
	Device   int
	Display  io.Writer

	// History integration is enabled when both halves are set.
	HistoryReader *history.Reader
	HistoryWriter *history.Writer

	// QuitKey ends the loop; the zero value is KeyCtrlX.
	QuitKey Key
	Cancel  *CancelFlag
	Logger  logrus.FieldLogger
}

// Relay moves bytes between the keyboard, the device and the display. It is
// driven by a single goroutine calling Run.
type Relay struct {
	keyboard int
	device   int
	display  io.Writer
	reader   *history.Reader
	writer   *history.Writer
	quit     Key
	cancel   *CancelFlag
	log      logrus.FieldLogger
	pending  pendingOutput
}

// NewRelay returns a relay with an empty pending output queue.
func NewRelay(cfg RelayConfig) *Relay {
	r := &Relay{
		keyboard: cfg.Keyboard,
		device:   cfg.Device,
		display:  cfg.Display,
		quit:     cfg.QuitKey,
		cancel:   cfg.Cancel,
		log:      loggerOrNoop(cfg.Logger),
	}
	if r.display == nil {
		r.display = io.Discard
	}
	if cfg.HistoryReader != nil && cfg.HistoryWriter != nil {
		r.reader = cfg.HistoryReader
		r.writer = cfg.HistoryWriter
	}
	return r
}

// Queue appends b to the bytes waiting for the device.
func (r *Relay) Queue(b []byte) {
	r.pending.push(b)
}

// Pending returns the number of bytes not yet sent to the device.
func (r *Relay) Pending() int {
	return r.pending.len()
}

// Run blocks until the quit key is read, the device hangs up, the keyboard
// goes away or the cancel flag is set. Each iteration moves at most one byte
// in each direction plus one decoded keystroke.
func (r *Relay) Run() (ExitReason, error) {
	for {
		if r.cancelled() {
			return ExitCancelled, nil
		}

		pfd := r.pollSet()
		_, err := unix.Poll(pfd, -1)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				r.log.Debug("signal was caught while waiting")
				continue
			}
			return ExitCancelled, fmt.Errorf("poll: %w", err)
		}
		if len(pfd) > 2 && pfd[2].Revents != 0 {
			r.cancel.drain()
			continue
		}

		if kb := pfd[0].Revents; kb != 0 {
			res := ReadKey(r.keyboard)
			if len(res.Raw) == 0 && kb&(unix.POLLHUP|unix.POLLERR|unix.POLLNVAL) != 0 {
				r.log.WithField("fd", r.keyboard).Info("keyboard closed")
				return ExitKeyboardClosed, nil
			}
			if len(res.Raw) > 0 {
				if res.Key == r.quit {
					r.log.WithField("key", res.Key).Debug("quit")
					return ExitQuit, nil
				}
				r.handleKey(res)
			}
		}

		dev := pfd[1].Revents
		if dev&unix.POLLOUT != 0 && !r.pending.empty() {
			r.transmit()
		}
		if dev&(unix.POLLIN|unix.POLLHUP|unix.POLLERR|unix.POLLNVAL) != 0 {
			if r.receive() {
				r.log.WithField("fd", r.device).Info("the terminal is closed")
				return ExitRemoteClosed, nil
			}
		}
	}
}

func (r *Relay) cancelled() bool {
	return r.cancel != nil && r.cancel.IsSet()
}

func (r *Relay) pollSet() []unix.PollFd {
	devEvents := int16(unix.POLLIN)
	if !r.pending.empty() {
		devEvents |= unix.POLLOUT
	}
	pfd := []unix.PollFd{
		{Fd: int32(r.keyboard), Events: unix.POLLIN},
		{Fd: int32(r.device), Events: devEvents},
	}
	if r.cancel != nil {
		pfd = append(pfd, unix.PollFd{Fd: int32(r.cancel.Fd()), Events: unix.POLLIN})
	}
	return pfd
}

func (r *Relay) handleKey(res KeyResult) {
	if r.reader == nil {
		r.pending.push(res.Raw)
		return
	}
	r.log.WithField("key", res.Key).Debug("key")

	switch res.Key {
	case KeyCtrlR:
		// reserved, nothing is relayed
	case KeyUp:
		r.reader.StartSearch()
		r.pending.push(r.reader.ClearHistoryLine())
		r.reader.Up()
		r.pending.push(r.reader.At())
	case KeyDown:
		r.pending.push(r.reader.ClearHistoryLine())
		r.reader.Down()
		r.pending.push(r.reader.At())
	case KeyRight, KeyLeft:
		r.pending.push(r.reader.ClearHistoryLine())
		r.reader.EndSearch()
	case KeyEnter:
		r.writer.AddStr(r.reader.At())
		r.reader.EndSearch()
		if err := r.writer.Write(); err != nil {
			r.log.WithError(err).Warn("history write failed")
		}
		r.pending.push(res.Raw)
	case KeyDelete:
		r.writer.AddStr(r.reader.At())
		r.reader.EndSearch()
		r.writer.PopBack()
		r.pending.push(res.Raw)
	case KeyEscape:
		r.pending.push(res.Raw)
	default:
		r.writer.AddStr(r.reader.At())
		r.reader.EndSearch()
		r.writer.AddStr(res.Raw)
		r.pending.push(res.Raw)
	}
}

// transmit sends the oldest pending byte; it stays queued if the write fails.
func (r *Relay) transmit() {
	b := [1]byte{r.pending.front()}
	n, err := unix.Write(r.device, b[:])
	if err != nil || n != 1 {
		return
	}
	r.pending.popFront()
}

// receive copies one byte from the device to the display and reports
// whether the device has hung up.
func (r *Relay) receive() bool {
	var b [1]byte
	n, err := unix.Read(r.device, b[:])
	switch {
	case err == nil && n == 0:
		return true
	case errors.Is(err, unix.EIO), errors.Is(err, unix.EBADF):
		return true
	case err != nil:
		return false
	}
	if _, err := r.display.Write(b[:n]); err != nil {
		r.log.WithError(err).Debug("display write failed")
	}
	return false
}
