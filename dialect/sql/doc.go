// Package sql implements dialect.Adapter on top of database/sql and
// registers the built-in dialects.
//
// Importing the package registers these adapters with the dialect registry:
//
//	postgres  $1 markers, appends RETURNING id, reads the returned row
//	mysql     ? markers, reads LAST_INSERT_ID()
//	sqlite    ? markers, reads the last row id
//	sqlite3   as sqlite, for github.com/mattn/go-sqlite3
//
// The adapters do not import database drivers; open the *sql.DB with the
// driver of your choice and pass it (or a *sql.Tx or *sql.Conn) to the
// query at call time.
//
// # Custom Dialects
//
// NewAdapter builds an adapter for another dialect:
//
//	dialect.Register("sqlserver", sql.NewAdapter("sqlserver",
//	    sql.WithMarkers(statement.AtSign),
//	    sql.WithReturning(statement.ReturningNever),
//	    sql.WithLastInsertID(false),
//	))
//
// Keyed arguments given to a named-marker adapter are passed as
// sql.NamedArg values.
//
// # Session Variables
//
// WithVar attaches session variables to a context. The adapter sets them
// before every statement and, on a pooled *sql.DB, resets them before the
// connection is returned:
//
//	ctx = sql.WithVar(ctx, "app.tenant_id", "42")
//
// # Statistics and Debugging
//
// NewStatsAdapter and NewDebugAdapter wrap any dialect.Adapter:
//
//	a := sql.NewStatsAdapter(sql.PostgresAdapter,
//	    sql.WithSlowThreshold(200*time.Millisecond),
//	    sql.WithSlowQueryLog(),
//	)
//	dialect.Register(dialect.Postgres, sql.NewDebugAdapter(a))
//
// # Constraint Errors
//
// IsUniqueConstraintError, IsForeignKeyConstraintError and
// IsCheckConstraintError classify driver errors from lib/pq,
// go-sql-driver/mysql and the SQLite drivers.
package sql
