package stermcom

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/luhtfiimanal/stermcom/history"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// DefaultControllingTTY is where keystrokes come from once piped input on
// the keyboard descriptor has been consumed.
const DefaultControllingTTY = "/dev/tty"

// Config holds configuration parameters for a console session.
type Config struct {
	Device   string
	BaudRate uint32

	// HistoryPath enables history integration when non-empty.
	HistoryPath     string
	MaxHistoryLines int // default history.DefaultMaxLines

	// Keyboard is the descriptor keystrokes are read from (default stdin).
	Keyboard int
	// Display receives the bytes read from the device (default os.Stdout).
	Display io.Writer
	// ControllingTTY is opened onto Keyboard before the relay starts.
	// Empty keeps the keyboard descriptor as it is.
	ControllingTTY string

	QuitKey Key
	Logger  logrus.FieldLogger
}

// Result describes how a session ended.
type Result struct {
	Reason ExitReason
	// TrimErr is set when the history file could not be trimmed on exit.
	TrimErr error
}

// Console owns an opened, locked serial device node.
type Console struct {
	dev       *Descriptor
	cfg       Config
	log       logrus.FieldLogger
	closeOnce sync.Once
}

// Open opens the device node, checks that it is a terminal and places an
// exclusive advisory lock on it.
func Open(cfg Config) (*Console, error) {
	if !SupportedBaudRate(cfg.BaudRate) {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedBaudRate, cfg.BaudRate)
	}
	if cfg.MaxHistoryLines <= 0 {
		cfg.MaxHistoryLines = history.DefaultMaxLines
	}
	if cfg.Display == nil {
		cfg.Display = os.Stdout
	}
	log := loggerOrNoop(cfg.Logger)

	dev := OpenDescriptor(cfg.Device, unix.O_RDWR|unix.O_NOCTTY|unix.O_NONBLOCK)
	if !dev.OK() {
		return nil, fmt.Errorf("open failed: %w", dev.Err())
	}
	if !term.IsTerminal(dev.Fd()) {
		dev.Close()
		return nil, fmt.Errorf("%s: %w", cfg.Device, ErrNotTerminal)
	}
	if err := unix.Flock(dev.Fd(), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		dev.Close()
		return nil, fmt.Errorf("%s: %w (%v)", cfg.Device, ErrDeviceLocked, err)
	}
	log.WithFields(logrus.Fields{"path": cfg.Device, "fd": dev.Fd()}).Debug("device opened")

	return &Console{dev: dev, cfg: cfg, log: log}, nil
}

// Run relays between the keyboard and the device until the session ends.
// Configuration failures are returned before the relay starts. Terminal
// settings are restored on return.
func (c *Console) Run(cancel *CancelFlag) (Result, error) {
	dev := c.dev.Share()
	defer dev.Close()

	var reader *history.Reader
	var writer *history.Writer
	if c.cfg.HistoryPath != "" {
		reader = history.NewReader(c.cfg.HistoryPath)
		writer = history.NewWriter(c.cfg.HistoryPath)
	}

	seed, err := drainKeyboard(c.cfg.Keyboard)
	if err != nil {
		return Result{}, err
	}
	if c.cfg.ControllingTTY != "" {
		if err := repointKeyboard(c.cfg.ControllingTTY, c.cfg.Keyboard); err != nil {
			return Result{}, err
		}
	}

	kbTerm := NewTerminal(c.cfg.Keyboard)
	defer c.restore("keyboard", kbTerm)
	devTerm := NewTerminal(dev.Fd())
	defer c.restore("device", devTerm)

	if err := kbTerm.SetRawMode(); err != nil {
		return Result{}, fmt.Errorf("keyboard: %w", err)
	}
	if err := devTerm.SetRawMode(); err != nil {
		return Result{}, fmt.Errorf("device: %w", err)
	}
	if err := devTerm.SetBaudRate(c.cfg.BaudRate, DirectionOut); err != nil {
		return Result{}, fmt.Errorf("device: %w", err)
	}
	if err := devTerm.SetBaudRate(0, DirectionIn); err != nil {
		return Result{}, fmt.Errorf("device: %w", err)
	}

	relay := NewRelay(RelayConfig{
		Keyboard:      c.cfg.Keyboard,
		Device:        dev.Fd(),
		Display:       c.cfg.Display,
		HistoryReader: reader,
		HistoryWriter: writer,
		QuitKey:       c.cfg.QuitKey,
		Cancel:        cancel,
		Logger:        c.log,
	})
	relay.Queue(seed)

	reason, err := relay.Run()
	res := Result{Reason: reason}
	if reader != nil {
		if terr := history.Trim(c.cfg.HistoryPath, c.cfg.MaxHistoryLines); terr != nil {
			c.log.WithError(terr).WithField("path", c.cfg.HistoryPath).Warn("fail to resize the history file")
			res.TrimErr = terr
		}
	}
	return res, err
}

// Close releases the device node and its lock.
// Safe to call multiple times; subsequent calls are no-ops.
func (c *Console) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.dev.Close()
	})
	return err
}

func (c *Console) restore(name string, t *Terminal) {
	if err := t.Restore(); err != nil {
		c.log.WithError(err).WithField("terminal", name).Debug("restore failed")
	}
}

// drainKeyboard reads whatever is already buffered on fd without blocking.
// The file status flags of fd are put back afterwards.
func drainKeyboard(fd int) ([]byte, error) {
	flags, err := unix.FcntlInt(uintptr(fd), unix.F_GETFL, 0)
	if err != nil {
		return nil, fmt.Errorf("get keyboard flags: %w", err)
	}
	if _, err := unix.FcntlInt(uintptr(fd), unix.F_SETFL, flags|unix.O_NONBLOCK); err != nil {
		return nil, fmt.Errorf("set keyboard non-blocking: %w", err)
	}
	defer unix.FcntlInt(uintptr(fd), unix.F_SETFL, flags)

	var seed []byte
	buf := make([]byte, 4096)
	for {
		n, err := unix.Read(fd, buf)
		if n <= 0 || err != nil {
			return seed, nil
		}
		seed = append(seed, buf[:n]...)
	}
}

// repointKeyboard makes fd refer to the terminal at path.
func repointKeyboard(path string, fd int) error {
	tty := OpenDescriptor(path, unix.O_RDONLY)
	if !tty.OK() {
		return fmt.Errorf("open %s: %w", path, tty.Err())
	}
	defer tty.Close()
	if err := unix.Dup3(tty.Fd(), fd, 0); err != nil {
		return fmt.Errorf("dup %s: %w", path, err)
	}
	return nil
}
