package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"go.bug.st/serial"

	"github.com/luhtfiimanal/stermcom"
	"github.com/luhtfiimanal/stermcom/internal/config"
	"github.com/luhtfiimanal/stermcom/internal/logging"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

// listPorts is swapped in tests.
var listPorts = serial.GetPortsList

func main() {
	os.Exit(run(os.Args, os.Environ(), os.Stdout, os.Stderr))
}

func run(argv []string, environ []string, stdout, stderr io.Writer) int {
	program := "stermcom"
	if len(argv) > 0 {
		program = argv[0]
	}

	cfg, err := config.LoadArgs(argv[min(1, len(argv)):], environ)
	switch {
	case errors.Is(err, config.ErrHelp):
		fmt.Fprintln(stdout, config.Usage(program))
		return exitOK
	case errors.Is(err, config.ErrUsage):
		fmt.Fprintln(stderr, config.Usage(program))
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	case err != nil:
		fmt.Fprintf(stderr, "Configuration error: %v\n", err)
		return exitUsage
	}

	logger, closer, err := logging.Configure(cfg.Logging.FilePath, cfg.Logging.Level)
	if err != nil {
		fmt.Fprintf(stderr, "Configuration error: %v\n", err)
		return exitUsage
	}
	defer closer.Close()
	logger.WithFields(logrus.Fields{
		"argv":   cfg.Args,
		"device": cfg.Device,
		"baud":   cfg.BaudRate,
		"config": cfg.ConfigFile,
	}).Info("start")

	if cfg.ListPorts {
		return printPorts(stdout, stderr)
	}

	console, err := stermcom.Open(stermcom.Config{
		Device:          cfg.Device,
		BaudRate:        cfg.BaudRate,
		HistoryPath:     cfg.HistoryPath,
		MaxHistoryLines: cfg.MaxHistoryLines,
		Keyboard:        int(os.Stdin.Fd()),
		Display:         stdout,
		ControllingTTY:  stermcom.DefaultControllingTTY,
		Logger:          logger,
	})
	if err != nil {
		logger.WithError(err).Error("open device")
		reportOpenError(stderr, cfg.Device, err)
		return exitError
	}
	defer console.Close()

	cancel, err := stermcom.NewCancelFlag()
	if err != nil {
		logger.WithError(err).Error("signal setup")
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}
	defer cancel.Close()
	cancel.SetLogger(logger)
	cancel.Notify(stermcom.IgnoredSignals, stermcom.TerminatingSignals)

	res, err := console.Run(cancel)
	if err != nil {
		logger.WithError(err).Error("session")
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}
	logger.WithField("reason", res.Reason).Info("session ended")
	if res.Reason == stermcom.ExitRemoteClosed {
		fmt.Fprintln(stdout, "The terminal is closed")
	}
	if res.TrimErr != nil {
		fmt.Fprintln(stderr, "Fail to resize the history file")
	}
	return exitOK
}

func reportOpenError(w io.Writer, device string, err error) {
	switch {
	case errors.Is(err, stermcom.ErrNotTerminal):
		fmt.Fprintf(w, "%s is not a terminal\n", device)
	case errors.Is(err, stermcom.ErrDeviceLocked):
		fmt.Fprintf(w, "cannot place an exclusive lock on %s\n", device)
	default:
		fmt.Fprintf(w, "cannot open the file %s\n", device)
		fmt.Fprintf(w, "Message: %v\n", errors.Unwrap(err))
	}
}

func printPorts(stdout, stderr io.Writer) int {
	ports, err := listPorts()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}
	for _, p := range ports {
		fmt.Fprintln(stdout, p)
	}
	return exitOK
}
