// Package dialect provides the database adapter abstraction for namedsql.
//
// An Adapter supplies a dialect's placeholder convention and returning
// policy, which the statement parser uses to rewrite SQL text at load time,
// and executes resolved statements at call time, one method per statement
// kind:
//
//	type Adapter interface {
//	    Markers() statement.Markers
//	    Returning() statement.Returning
//	    Select(ctx, conn, name, query, args) (*ResultSet, error)
//	    SelectCursor(ctx, conn, name, query, args) (Cursor, error)
//	    Execute(ctx, conn, name, query, args) error
//	    ExecuteMany(ctx, conn, name, query, batches) error
//	    InsertReturning(ctx, conn, name, query, args) (any, error)
//	    ExecuteScript(ctx, conn, query) error
//	}
//
// # Supported Dialects
//
// The dialect/sql package registers adapters for these tags at init:
//
//	dialect.Postgres = "postgres"  // $1 markers, appends RETURNING id
//	dialect.MySQL    = "mysql"     // ? markers, native last insert id
//	dialect.SQLite   = "sqlite"    // ? markers, native last insert id
//	dialect.SQLite3  = "sqlite3"   // same as sqlite, for mattn/go-sqlite3
//
// # Registry
//
// Adapters are kept in a process-wide registry keyed by tag. Register adds
// or replaces an adapter; it must be called before any load refers to the
// tag. Lookup of an unknown tag returns a *ConfigError.
//
//	dialect.Register("sqlserver", sql.NewAdapter("sqlserver",
//	    sql.WithMarkers(statement.AtSign),
//	))
package dialect
