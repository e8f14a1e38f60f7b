package stermcom

import "errors"

var (
	// ErrNotTerminal is returned by Open when the device node is not a tty.
	ErrNotTerminal = errors.New("not a terminal")
	// ErrDeviceLocked is returned by Open when another process holds the
	// exclusive advisory lock on the device node.
	ErrDeviceLocked = errors.New("device is locked by another process")

	errShortRead = errors.New("short read")
)
