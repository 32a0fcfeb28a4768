package statement

import (
	"errors"
	"fmt"
	"strings"
)

// ErrParse is the sentinel matched by every ParseError.
var ErrParse = errors.New("statement: parse error")

// ErrorKind tells which rule a statement block broke.
type ErrorKind uint8

const (
	// MissingName is reported for a block that does not start with a
	// "-- name:" directive.
	MissingName ErrorKind = iota + 1
	// InvalidIdentifier is reported when the declared name is not a valid
	// identifier once its marker is stripped and hyphens are folded.
	InvalidIdentifier
	// EmptyBody is reported for a statement with no SQL after its
	// documentation lines.
	EmptyBody
)

// String returns the kind name used in error messages.
func (k ErrorKind) String() string {
	switch k {
	case MissingName:
		return "missing name"
	case InvalidIdentifier:
		return "invalid identifier"
	case EmptyBody:
		return "empty body"
	default:
		return fmt.Sprintf("ErrorKind(%d)", uint8(k))
	}
}

// ParseError is returned when a block of annotated SQL cannot be turned
// into a Descriptor. It aborts the whole load of the source it came from.
type ParseError struct {
	Kind    ErrorKind
	Source  string // file path or "" for inline text
	Line    int    // 1-based line of the offending directive, 0 if unknown
	Name    string // declared name as written, if any
	Message string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	var b strings.Builder
	b.WriteString("statement: ")
	b.WriteString(e.Kind.String())
	if e.Source != "" {
		b.WriteString(" in ")
		b.WriteString(e.Source)
		if e.Line > 0 {
			fmt.Fprintf(&b, ":%d", e.Line)
		}
	} else if e.Line > 0 {
		fmt.Fprintf(&b, " at line %d", e.Line)
	}
	if e.Name != "" {
		fmt.Fprintf(&b, " (%q)", e.Name)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	return b.String()
}

// Is reports whether the target matches ErrParse.
func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}

// IsParseError returns true if the error is a ParseError.
func IsParseError(err error) bool {
	if err == nil {
		return false
	}
	var e *ParseError
	return errors.As(err, &e)
}

// IsKind returns true if err is a ParseError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var e *ParseError
	return errors.As(err, &e) && e.Kind == kind
}
