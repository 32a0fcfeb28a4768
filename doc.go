// Package namedsql loads hand-written SQL annotated with name directives and
// exposes every statement as a callable bound to a database adapter.
//
// A source file holds any number of statements, each introduced by a
// directive naming it. A marker at the end of the name selects what the
// statement does:
//
//	-- name: get-user-by-id
//	-- Returns one user.
//	SELECT * FROM users WHERE id = :id
//
//	-- name: add-user<!
//	INSERT INTO users(name) VALUES (:name)
//
//	-- name: touch-users!
//	UPDATE users SET seen = now() WHERE id = :id
//
//	-- name: add-tags*!
//	INSERT INTO tags(name) VALUES (:name)
//
//	-- name: create-schema#
//	CREATE TABLE users (id serial primary key, name text);
//
// No marker is a select, "!" a write, "<!" an insert returning its key, "*!"
// a write run once per parameter set and "#" a script. Hyphens in names
// become underscores.
//
// # Loading
//
// Statements are rewritten for a dialect when they are loaded. The dialect
// is named by the tag its adapter is registered under:
//
//	import _ "github.com/syssam/namedsql/dialect/sql"
//
//	queries, err := namedsql.FromPath(ctx, "postgres", "sql/")
//
// Loading a directory makes every subdirectory a namespace, so the file
// sql/users/get.sql contributes "users.get_user_by_id".
//
// # Calling
//
//	rs, err := queries.Call(ctx, db, "users.get_user_by_id", 42)
//	rs, err := queries.Call(ctx, db, "users.get_user_by_id", dialect.Params{"id": 42})
//
//	q, _ := queries.Lookup("users.get_user_by_id")
//	err = q.Cursor(ctx, db, func(c dialect.Cursor) error {
//	    for c.Next() {
//	        ...
//	    }
//	    return c.Err()
//	})
//
// Every select is also registered as "<name>_cursor", whose Call returns an
// open dialect.Cursor the caller must close.
package namedsql
