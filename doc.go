// Package stermcom is a dumb serial console: it relays bytes between the
// controlling terminal and a serial device node, with both ends in raw mode.
//
// Nothing coming from the device is interpreted. Keystrokes are classified
// only to find the quit key (Ctrl-X) and, when history is enabled, the
// arrow, Enter and Delete keys that browse and record previously submitted
// lines.
//
// Features:
//   - poll-based single goroutine relay, one byte per direction per iteration
//   - non-blocking keystroke decoder for multi-byte escape sequences
//   - optional line history spliced into the outgoing stream as delete bytes
//   - self-pipe cancellation driven by SIGHUP/SIGTERM
//   - exclusive advisory lock on the device node
//   - PTY-based tests
//
// This package is Linux only.
//
// Example usage:
//
//	c, err := stermcom.Open(stermcom.Config{
//	    Device:         "/dev/ttyUSB0",
//	    BaudRate:       115200,
//	    ControllingTTY: stermcom.DefaultControllingTTY,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer c.Close()
//
//	cancel, err := stermcom.NewCancelFlag()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer cancel.Close()
//	cancel.Notify(stermcom.IgnoredSignals, stermcom.TerminatingSignals)
//
//	res, err := c.Run(cancel)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if res.Reason == stermcom.ExitRemoteClosed {
//	    fmt.Println("The terminal is closed")
//	}
package stermcom
