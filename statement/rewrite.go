package statement

import (
	"strconv"
	"strings"
)

// Binding tells how a rewritten statement expects its arguments.
type Binding uint8

const (
	// Positional markers consume one argument per occurrence, in textual order.
	Positional Binding = iota
	// Named markers embed the parameter name; repeated names share a value.
	Named
)

// String returns the binding name.
func (b Binding) String() string {
	if b == Named {
		return "named"
	}
	return "positional"
}

// Markers renders the dialect-specific text that replaces a :name
// placeholder. Ordinal is the 1-based position of the occurrence.
type Markers interface {
	Placeholder(name string, ordinal int) string
	Binding() Binding
}

// PositionalMarkers renders a marker from the occurrence ordinal only.
type PositionalMarkers func(ordinal int) string

// Placeholder implements Markers.
func (f PositionalMarkers) Placeholder(_ string, ordinal int) string { return f(ordinal) }

// Binding implements Markers.
func (PositionalMarkers) Binding() Binding { return Positional }

// NamedMarkers renders a marker embedding the parameter name.
type NamedMarkers func(name string) string

// Placeholder implements Markers.
func (f NamedMarkers) Placeholder(name string, _ int) string { return f(name) }

// Binding implements Markers.
func (NamedMarkers) Binding() Binding { return Named }

// Built-in marker conventions.
var (
	// Question renders "?" (MySQL, SQLite).
	Question = PositionalMarkers(func(int) string { return "?" })
	// Dollar renders "$1", "$2", ... (PostgreSQL).
	Dollar = PositionalMarkers(func(n int) string { return "$" + strconv.Itoa(n) })
	// Pyformat renders "%(name)s".
	Pyformat = NamedMarkers(func(name string) string { return "%(" + name + ")s" })
	// AtSign renders "@name" (SQL Server, SQLite named parameters).
	AtSign = NamedMarkers(func(name string) string { return "@" + name })
	// Colon renders ":name" (Oracle, SQLite named parameters).
	Colon = NamedMarkers(func(name string) string { return ":" + name })
)

// Rewrite replaces every :name placeholder outside quoted literals with the
// marker m renders and returns the rewritten text together with the names in
// the order they occur. A nil m leaves the text unchanged. Literals follow
// StandardQuoting; see RewriteQuoted.
//
// A colon starts a placeholder only when it is preceded by a byte that is not
// a colon, and the name that follows is not itself followed by a colon, so
// casts such as "x::int" and "a := b" pass through.
func Rewrite(sql string, m Markers) (string, []string) {
	return RewriteQuoted(sql, m, StandardQuoting)
}

// RewriteQuoted is Rewrite with literals delimited according to q.
func RewriteQuoted(sql string, m Markers, q Quoting) (string, []string) {
	var (
		b      strings.Builder
		params []string
		lit    = literal{quoting: q}
	)
	b.Grow(len(sql))
	for i := 0; i < len(sql); {
		c := sql[i]
		if !lit.next(c) && c == ':' && i > 0 && sql[i-1] != ':' {
			end := i + 1
			for end < len(sql) && isParamByte(sql[end]) {
				end++
			}
			if end > i+1 && (end == len(sql) || sql[end] != ':') {
				name := sql[i+1 : end]
				params = append(params, name)
				if m != nil {
					b.WriteString(m.Placeholder(name, len(params)))
				} else {
					b.WriteString(sql[i:end])
				}
				i = end
				continue
			}
		}
		b.WriteByte(c)
		i++
	}
	return b.String(), params
}

func isParamByte(c byte) bool {
	return isWordByte(c) || c == '-'
}

func isWordByte(c byte) bool {
	return c == '_' || ('0' <= c && c <= '9') || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

// ReturningMode selects when a RETURNING clause is appended to an
// InsertReturning statement.
type ReturningMode uint8

const (
	// ReturningNever leaves the statement alone. Used by dialects whose
	// driver reports the last inserted id natively.
	ReturningNever ReturningMode = iota
	// ReturningIfAbsent appends the clause unless the statement already has one.
	ReturningIfAbsent
	// ReturningAlways appends the clause unconditionally.
	ReturningAlways
)

// DefaultReturningColumn is the key column used when Returning.Column is empty.
const DefaultReturningColumn = "id"

// Returning is a dialect's policy for InsertReturning statements.
type Returning struct {
	Mode   ReturningMode
	Column string
}

// Apply appends " RETURNING <column>" to sql according to the policy.
// A trailing semicolon is dropped first.
func (r Returning) Apply(sql string) string {
	if r.Mode == ReturningNever || (r.Mode == ReturningIfAbsent && HasReturning(sql)) {
		return sql
	}
	col := r.Column
	if col == "" {
		col = DefaultReturningColumn
	}
	sql = strings.TrimSpace(sql)
	for strings.HasSuffix(sql, ";") {
		sql = strings.TrimSpace(strings.TrimSuffix(sql, ";"))
	}
	return sql + " RETURNING " + col
}

// HasReturning reports whether the RETURNING keyword occurs in sql outside
// quoted literals, ignoring case.
func HasReturning(sql string) bool {
	var lit literal
	for i := 0; i < len(sql); i++ {
		c := sql[i]
		if lit.next(c) || !isWordByte(c) || (i > 0 && isWordByte(sql[i-1])) {
			continue
		}
		j := i
		for j < len(sql) && isWordByte(sql[j]) {
			j++
		}
		if strings.EqualFold(sql[i:j], "returning") {
			return true
		}
		i = j - 1
	}
	return false
}
