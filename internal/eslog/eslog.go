// Package eslog wraps github.com/sirupsen/logrus into the small logging
// seam escore's components depend on, so the core never imports logrus
// directly in more than this one place.
package eslog

import (
	"io"

	"github.com/sirupsen/logrus"
)

// Logger is the structured-logging seam every escore component accepts.
// It is satisfied by *logrus.Logger and *logrus.Entry.
type Logger = logrus.FieldLogger

// Noop returns a Logger that discards everything, used as the default
// when an embedding application does not wire one in.
func Noop() Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// New builds a text-formatted Logger writing to out at the given level.
func New(out io.Writer, level logrus.Level) Logger {
	l := logrus.New()
	l.SetOutput(out)
	l.SetLevel(level)
	return l
}
