package dialect

import (
	"errors"
	"fmt"
)

// Sentinel errors matched by the typed errors below.
var (
	// ErrConfig indicates an adapter could not be resolved or configured.
	ErrConfig = errors.New("dialect: configuration error")
	// ErrUsage indicates a query was invoked incorrectly.
	ErrUsage = errors.New("dialect: usage error")
)

// ConfigError is returned for an unregistered adapter tag or an invalid
// adapter configuration.
type ConfigError struct {
	Tag     string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Tag != "" {
		return fmt.Sprintf("dialect: config error for %q: %s", e.Tag, e.Message)
	}
	return "dialect: config error: " + e.Message
}

// Is reports whether the target matches ErrConfig.
func (e *ConfigError) Is(target error) bool {
	return target == ErrConfig
}

// NewConfigError returns a new ConfigError.
func NewConfigError(tag, message string) *ConfigError {
	return &ConfigError{Tag: tag, Message: message}
}

// IsConfigError returns true if the error is a ConfigError.
func IsConfigError(err error) bool {
	if err == nil {
		return false
	}
	var e *ConfigError
	return errors.As(err, &e)
}

// UsageError is returned at call time: an unknown query path, mixed
// positional and keyed arguments, a missing keyed parameter, or a batch
// with no parameter sets.
type UsageError struct {
	Query   string // statement name or dotted path
	Message string
}

// Error implements the error interface.
func (e *UsageError) Error() string {
	if e.Query != "" {
		return fmt.Sprintf("dialect: usage error for %q: %s", e.Query, e.Message)
	}
	return "dialect: usage error: " + e.Message
}

// Is reports whether the target matches ErrUsage.
func (e *UsageError) Is(target error) bool {
	return target == ErrUsage
}

// NewUsageError returns a new UsageError with a formatted message.
func NewUsageError(query, format string, args ...any) *UsageError {
	return &UsageError{Query: query, Message: fmt.Sprintf(format, args...)}
}

// IsUsageError returns true if the error is a UsageError.
func IsUsageError(err error) bool {
	if err == nil {
		return false
	}
	var e *UsageError
	return errors.As(err, &e)
}
