package stermcom

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// ErrUnsupportedBaudRate is returned for rates outside the canonical table.
var ErrUnsupportedBaudRate = errors.New("unsupported baud rate")

// Direction selects the input or output speed of a line.
type Direction int

const (
	DirectionIn Direction = iota
	DirectionOut
)

var baudRates = map[uint32]uint32{
	0:      unix.B0,
	50:     unix.B50,
	75:     unix.B75,
	110:    unix.B110,
	134:    unix.B134,
	150:    unix.B150,
	200:    unix.B200,
	300:    unix.B300,
	600:    unix.B600,
	1200:   unix.B1200,
	1800:   unix.B1800,
	2400:   unix.B2400,
	4800:   unix.B4800,
	9600:   unix.B9600,
	19200:  unix.B19200,
	38400:  unix.B38400,
	57600:  unix.B57600,
	115200: unix.B115200,
	230400: unix.B230400,
}

// SupportedBaudRate reports whether rate is in the canonical rate table.
func SupportedBaudRate(rate uint32) bool {
	_, ok := baudRates[rate]
	return ok
}

// Terminal wraps the line discipline of one descriptor. The settings found
// at construction are kept and put back by Restore.
type Terminal struct {
	fd       int
	current  unix.Termios
	backup   unix.Termios
	backedUp bool
}

// NewTerminal snapshots the current attributes of fd. Descriptors that are
// not terminals are accepted; every later attribute change will fail on them.
func NewTerminal(fd int) *Terminal {
	t := &Terminal{fd: fd}
	if termios, err := unix.IoctlGetTermios(fd, unix.TCGETS); err == nil {
		t.backup = *termios
		t.current = *termios
		t.backedUp = true
	}
	return t
}

// SetRawMode disables canonical input, echo and signal characters and
// applies the result immediately.
func (t *Terminal) SetRawMode() error {
	t.current.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP | unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON
	t.current.Oflag &^= unix.OPOST
	t.current.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	t.current.Cflag &^= unix.CSIZE | unix.PARENB
	t.current.Cflag |= unix.CS8

	// VMIN=1, VTIME=0: a read returns as soon as one byte is there
	t.current.Cc[unix.VMIN] = 1
	t.current.Cc[unix.VTIME] = 0

	if err := t.apply(); err != nil {
		return fmt.Errorf("set raw mode: %w", err)
	}
	return nil
}

// SetBaudRate sets the input or output speed and applies it immediately.
// An input speed of 0 makes the input follow the output speed.
func (t *Terminal) SetBaudRate(rate uint32, dir Direction) error {
	speed, ok := baudRates[rate]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnsupportedBaudRate, rate)
	}
	switch dir {
	case DirectionOut:
		t.current.Cflag &^= unix.CBAUD
		t.current.Cflag |= speed
		t.current.Ospeed = rate
	case DirectionIn:
		t.current.Ispeed = rate
		if speed != unix.B0 {
			t.current.Cflag &^= unix.CBAUD
			t.current.Cflag |= speed
		}
	}
	if err := t.apply(); err != nil {
		return fmt.Errorf("set baud rate %d: %w", rate, err)
	}
	return nil
}

// Restore discards unread and unwritten bytes and puts the original
// attributes back. Both steps are attempted; the errors are returned joined
// for logging only.
func (t *Terminal) Restore() error {
	flushErr := unix.IoctlSetInt(t.fd, unix.TCFLSH, unix.TCIOFLUSH)
	if flushErr != nil {
		flushErr = fmt.Errorf("flush: %w", flushErr)
	}
	if !t.backedUp {
		return flushErr
	}
	var revertErr error
	if err := unix.IoctlSetTermios(t.fd, unix.TCSETS, &t.backup); err != nil {
		revertErr = fmt.Errorf("revert settings: %w", err)
	}
	return errors.Join(flushErr, revertErr)
}

func (t *Terminal) apply() error {
	return unix.IoctlSetTermios(t.fd, unix.TCSETS, &t.current)
}
