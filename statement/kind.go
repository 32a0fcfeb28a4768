package statement

import (
	"fmt"
	"regexp"
	"strings"
)

// Kind is the effect a statement has on the database. It is selected by the
// marker at the end of the declared name.
type Kind uint8

const (
	// Select returns rows. It is the kind of every name without a marker.
	Select Kind = iota
	// InsertUpdateDelete runs a statement for its side effect ("!").
	InsertUpdateDelete
	// InsertReturning runs an insert and returns the generated key ("<!").
	InsertReturning
	// InsertUpdateDeleteMany runs a statement once per parameter set ("*!").
	InsertUpdateDeleteMany
	// Script runs a fixed multi-statement body without parameters ("#").
	Script
)

var kindNames = [...]string{
	Select:                 "SELECT",
	InsertUpdateDelete:     "INSERT_UPDATE_DELETE",
	InsertReturning:        "INSERT_RETURNING",
	InsertUpdateDeleteMany: "INSERT_UPDATE_DELETE_MANY",
	Script:                 "SCRIPT",
}

// String returns the upper-case kind name.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Marker returns the name suffix that selects the kind.
func (k Kind) Marker() string {
	for _, s := range suffixes {
		if s.kind == k {
			return s.marker
		}
	}
	return ""
}

// IsValid reports whether k is one of the declared kinds.
func (k Kind) IsValid() bool { return int(k) < len(kindNames) }

// suffixes is checked in order, two-character markers first so that "<!"
// and "*!" are not taken for "!".
var suffixes = [...]struct {
	marker string
	kind   Kind
}{
	{"<!", InsertReturning},
	{"*!", InsertUpdateDeleteMany},
	{"!", InsertUpdateDelete},
	{"#", Script},
}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// IsIdentifier reports whether s can name a statement.
func IsIdentifier(s string) bool { return identRe.MatchString(s) }

// Classify maps a declared name, marker included, to its kind and the
// normalized statement name. Hyphens are folded to underscores before the
// marker is detected.
func Classify(token string) (Kind, string, error) {
	name := strings.ReplaceAll(strings.TrimSpace(token), "-", "_")
	kind := Select
	for _, s := range suffixes {
		if strings.HasSuffix(name, s.marker) {
			kind, name = s.kind, strings.TrimSuffix(name, s.marker)
			break
		}
	}
	if !IsIdentifier(name) {
		return 0, "", &ParseError{
			Kind:    InvalidIdentifier,
			Name:    token,
			Message: "name must be letters, digits and underscores, not starting with a digit",
		}
	}
	return kind, name, nil
}

// declared strips the marker of kind from the token as written.
func declared(token string, kind Kind) string {
	return strings.TrimSuffix(strings.TrimSpace(token), kind.Marker())
}
