package stermcom

import (
	"sync"
	"sync/atomic"

	"golang.org/x/sys/unix"
)

// Descriptor owns an OS file descriptor opened from a path.
//
// Owners are reference counted: Share hands out another owner of the same
// descriptor and the descriptor is closed when the last owner calls Close.
// A failed open is recorded in Err and the invalid value is never closed.
type Descriptor struct {
	ref       *fdRef
	err       error
	closeOnce sync.Once
}

type fdRef struct {
	fd   int
	refs atomic.Int32
}

// OpenDescriptor opens path with the given unix open flags.
func OpenDescriptor(path string, flags int) *Descriptor {
	fd, err := unix.Open(path, flags|unix.O_CLOEXEC, 0)
	if err != nil {
		fd = -1
	}
	ref := &fdRef{fd: fd}
	ref.refs.Store(1)
	return &Descriptor{ref: ref, err: err}
}

// OK reports whether the open succeeded.
func (d *Descriptor) OK() bool {
	return d.ref.fd != -1
}

// Err returns the open failure, or nil.
func (d *Descriptor) Err() error {
	return d.err
}

// ErrorMessage returns the errno text of a failed open.
func (d *Descriptor) ErrorMessage() string {
	if d.err == nil {
		return ""
	}
	return d.err.Error()
}

// Fd returns the raw descriptor value, -1 when the open failed.
func (d *Descriptor) Fd() int {
	return d.ref.fd
}

// Share returns a new owner of the same underlying descriptor.
func (d *Descriptor) Share() *Descriptor {
	d.ref.refs.Add(1)
	return &Descriptor{ref: d.ref, err: d.err}
}

// Close releases this owner. Only the release of the last owner closes the
// OS descriptor. Calling Close more than once on the same owner is a no-op.
func (d *Descriptor) Close() error {
	var err error
	d.closeOnce.Do(func() {
		if d.ref.refs.Add(-1) != 0 {
			return
		}
		if d.ref.fd != -1 {
			err = unix.Close(d.ref.fd)
		}
	})
	return err
}
