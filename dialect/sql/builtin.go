package sql

import (
	"github.com/syssam/namedsql/dialect"
	"github.com/syssam/namedsql/statement"
)

// Built-in adapters. They only shape SQL text and results; the matching
// database/sql driver is registered by importing it, for example
// github.com/lib/pq for postgres or modernc.org/sqlite for sqlite.
var (
	// PostgresAdapter renders $N markers and appends RETURNING id to
	// insert-returning statements that do not name their own columns.
	PostgresAdapter = NewAdapter(dialect.Postgres,
		WithMarkers(statement.Dollar),
		WithReturning(statement.ReturningIfAbsent),
		WithLastInsertID(false),
	)
	// MySQLAdapter renders ? markers, reads LAST_INSERT_ID() and honours
	// backslash escapes in string literals.
	MySQLAdapter = NewAdapter(dialect.MySQL, WithQuoting(statement.BackslashQuoting))
	// SQLiteAdapter renders ? markers and reads the last row id.
	SQLiteAdapter = NewAdapter(dialect.SQLite)
)

func init() {
	dialect.Register(dialect.Postgres, PostgresAdapter)
	dialect.Register(dialect.MySQL, MySQLAdapter)
	dialect.Register(dialect.SQLite, SQLiteAdapter)
	dialect.Register(dialect.SQLite3, NewAdapter(dialect.SQLite3))
}
