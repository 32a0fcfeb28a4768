package dialect

import (
	"context"
	"database/sql"

	"github.com/syssam/namedsql/statement"
)

// Dialect names of the built-in adapters.
const (
	Postgres = "postgres"
	MySQL    = "mysql"
	SQLite   = "sqlite"
	SQLite3  = "sqlite3"
)

// Conn is the connection an Adapter executes against.
// It is implemented by *sql.DB, *sql.Tx and *sql.Conn.
type Conn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

var (
	_ Conn = (*sql.DB)(nil)
	_ Conn = (*sql.Tx)(nil)
	_ Conn = (*sql.Conn)(nil)
)

// Params is a keyed argument bundle. Passing a single Params value to a
// query binds its placeholders by name.
type Params map[string]any

// Args is the parameter set handed to an Adapter. Exactly one of Values and
// Named is used: Named when the caller passed a keyed bundle to a statement
// with named markers, Values otherwise.
type Args struct {
	Values []any
	Named  map[string]any
}

// IsNamed reports whether a holds a keyed bundle.
func (a Args) IsNamed() bool { return a.Named != nil }

// Adapter executes resolved statements for one database dialect.
//
// Markers and Returning are consulted at load time to rewrite statement text.
// The remaining methods are called by the query dispatcher, one per statement
// kind. Implementations must be safe for concurrent use; the connection
// discipline (one in-flight statement per *sql.Conn) is the caller's.
type Adapter interface {
	// Markers renders placeholders for this dialect.
	Markers() statement.Markers
	// Returning is the policy applied to InsertReturning statements.
	Returning() statement.Returning

	Select(ctx context.Context, conn Conn, name, query string, args Args) (*ResultSet, error)
	SelectCursor(ctx context.Context, conn Conn, name, query string, args Args) (Cursor, error)
	Execute(ctx context.Context, conn Conn, name, query string, args Args) error
	ExecuteMany(ctx context.Context, conn Conn, name, query string, batches []Args) error
	InsertReturning(ctx context.Context, conn Conn, name, query string, args Args) (any, error)
	ExecuteScript(ctx context.Context, conn Conn, query string) error
}

// Quoter is implemented by adapters whose dialect delimits string literals
// other than by statement.StandardQuoting.
type Quoter interface {
	Quoting() statement.Quoting
}

// QuotingOf returns the literal quoting of a, StandardQuoting unless a
// implements Quoter.
func QuotingOf(a Adapter) statement.Quoting {
	if q, ok := a.(Quoter); ok {
		return q.Quoting()
	}
	return statement.StandardQuoting
}

// Cursor is the interface that wraps the standard sql.Rows methods used for
// iterating over a live result.
type Cursor interface {
	Close() error
	ColumnTypes() ([]*sql.ColumnType, error)
	Columns() ([]string, error)
	Err() error
	Next() bool
	NextResultSet() bool
	Scan(dest ...any) error
}

var _ Cursor = (*sql.Rows)(nil)

// ResultSet holds every row returned by a Select statement.
type ResultSet struct {
	Columns []string
	Rows    [][]any
}

// Len returns the number of rows.
func (r *ResultSet) Len() int { return len(r.Rows) }

// Maps returns the rows keyed by column name.
func (r *ResultSet) Maps() []map[string]any {
	out := make([]map[string]any, len(r.Rows))
	for i, row := range r.Rows {
		m := make(map[string]any, len(r.Columns))
		for j, c := range r.Columns {
			if j < len(row) {
				m[c] = row[j]
			}
		}
		out[i] = m
	}
	return out
}

// Collect reads the remaining rows of c into a ResultSet.
// It does not close c.
func Collect(c Cursor) (*ResultSet, error) {
	cols, err := c.Columns()
	if err != nil {
		return nil, err
	}
	rs := &ResultSet{Columns: cols}
	for c.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := c.Scan(ptrs...); err != nil {
			return nil, err
		}
		rs.Rows = append(rs.Rows, vals)
	}
	if err := c.Err(); err != nil {
		return nil, err
	}
	return rs, nil
}
