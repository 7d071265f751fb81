package escore

import (
	"fmt"

	"github.com/thammadi/escore/internal/eslog"
)

type simpleError string

func (e simpleError) Error() string { return string(e) }

func errStringf(format string, args ...interface{}) error {
	return simpleError(fmt.Sprintf(format, args...))
}

// noopLogger returns a logger that discards all output, used as the
// default when a caller does not wire a logger via WithLogger.
func noopLogger() eslog.Logger {
	return eslog.Noop()
}
