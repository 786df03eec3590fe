package core

import (
	"fmt"

	"github.com/pkg/errors"
)

// ConfigurationError marks a malformed pipeline definition (empty axis,
// undeclared template placeholder, invalid config file). It is fatal for the
// run it belongs to and is surfaced before any job starts.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Reason
}

func configErrorf(format string, a ...interface{}) error {
	return &ConfigurationError{Reason: fmt.Sprintf(format, a...)}
}

// IsConfigurationError reports whether err is (or wraps) a ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}
