package namedsql

import (
	"errors"
	"fmt"

	"github.com/syssam/namedsql/dialect"
	"github.com/syssam/namedsql/statement"
)

// ErrLoad is matched by every *LoadError.
var ErrLoad = errors.New("namedsql: load failed")

// Errors raised by the statement and dialect packages, re-exported so
// callers need a single import to classify failures.
var (
	ErrParse  = statement.ErrParse
	ErrConfig = dialect.ErrConfig
	ErrUsage  = dialect.ErrUsage
)

type (
	// ParseError reports a malformed statement block.
	ParseError = statement.ParseError
	// ConfigError reports an unregistered or misconfigured adapter.
	ConfigError = dialect.ConfigError
	// UsageError reports a query invoked incorrectly.
	UsageError = dialect.UsageError
)

// LoadError is returned when a path cannot be read: it does not exist, is
// neither a regular file nor a directory, or reading it failed.
type LoadError struct {
	Path string
	Err  error
}

// Error returns the error string.
func (e *LoadError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("namedsql: load: %v", e.Err)
	}
	return fmt.Sprintf("namedsql: load %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *LoadError) Unwrap() error {
	return e.Err
}

// Is reports whether the target error matches ErrLoad.
func (e *LoadError) Is(err error) bool {
	return err == ErrLoad
}

// NewLoadError returns a new LoadError for path.
func NewLoadError(path string, err error) *LoadError {
	return &LoadError{Path: path, Err: err}
}

// IsLoadError returns true if the error is a LoadError.
func IsLoadError(err error) bool {
	if err == nil {
		return false
	}
	var e *LoadError
	return errors.As(err, &e)
}

// IsParseError returns true if the error is a ParseError.
func IsParseError(err error) bool { return statement.IsParseError(err) }

// IsConfigError returns true if the error is a ConfigError.
func IsConfigError(err error) bool { return dialect.IsConfigError(err) }

// IsUsageError returns true if the error is a UsageError.
func IsUsageError(err error) bool { return dialect.IsUsageError(err) }

// RollbackError is returned by WithTx when rolling back after a failure
// also failed. Err is the failure that caused the rollback.
type RollbackError struct {
	Err      error
	Rollback error
}

// Error returns the error string.
func (e *RollbackError) Error() string {
	return fmt.Sprintf("namedsql: %v: rollback failed: %v", e.Err, e.Rollback)
}

// Unwrap returns both underlying errors.
func (e *RollbackError) Unwrap() []error {
	return []error{e.Err, e.Rollback}
}
