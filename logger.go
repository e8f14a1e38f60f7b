package stermcom

import (
	"io"

	"github.com/sirupsen/logrus"
)

// noopLogger discards everything; used when no logger is configured.
var noopLogger = func() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}()

func loggerOrNoop(l logrus.FieldLogger) logrus.FieldLogger {
	if l == nil {
		return noopLogger
	}
	return l
}
