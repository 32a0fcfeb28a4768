package sql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/syssam/namedsql/dialect"
	"github.com/syssam/namedsql/statement"
)

// Adapter is a dialect.Adapter backed by database/sql.
type Adapter struct {
	tag          string
	markers      statement.Markers
	returning    statement.Returning
	quoting      statement.Quoting
	lastInsertID bool
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithMarkers sets the placeholder convention. Default is statement.Question.
func WithMarkers(m statement.Markers) Option {
	return func(a *Adapter) {
		a.markers = m
	}
}

// WithReturning sets the returning policy for InsertReturning statements.
func WithReturning(mode statement.ReturningMode) Option {
	return func(a *Adapter) {
		a.returning.Mode = mode
	}
}

// WithReturningColumn sets the column named by an appended RETURNING clause.
func WithReturningColumn(column string) Option {
	return func(a *Adapter) {
		a.returning.Column = column
	}
}

// WithQuoting sets how string literals are delimited when statements are
// scanned for comments and placeholders. Default is statement.StandardQuoting.
func WithQuoting(q statement.Quoting) Option {
	return func(a *Adapter) {
		a.quoting = q
	}
}

// WithLastInsertID reports whether the driver exposes a native last insert
// id through sql.Result. It is consulted only for statements that do not
// carry a RETURNING clause.
func WithLastInsertID(enabled bool) Option {
	return func(a *Adapter) {
		a.lastInsertID = enabled
	}
}

// NewAdapter returns an Adapter for the dialect tag. Without options it
// renders "?" markers, never appends a RETURNING clause and reads the
// native last insert id.
func NewAdapter(tag string, opts ...Option) *Adapter {
	a := &Adapter{
		tag:          tag,
		markers:      statement.Question,
		lastInsertID: true,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Tag returns the dialect tag the adapter was created for.
func (a *Adapter) Tag() string { return a.tag }

// Markers implements dialect.Adapter.
func (a *Adapter) Markers() statement.Markers { return a.markers }

// Returning implements dialect.Adapter.
func (a *Adapter) Returning() statement.Returning { return a.returning }

// Quoting implements dialect.Quoter.
func (a *Adapter) Quoting() statement.Quoting { return a.quoting }

// Select implements dialect.Adapter. It reads the whole result.
func (a *Adapter) Select(ctx context.Context, conn dialect.Conn, name, query string, args dialect.Args) (rs *dialect.ResultSet, rerr error) {
	rows, err := a.SelectCursor(ctx, conn, name, query, args)
	if err != nil {
		return nil, err
	}
	defer func() { rerr = errors.Join(rerr, rows.Close()) }()
	rs, err = dialect.Collect(rows)
	if err != nil {
		return nil, fmt.Errorf("dialect/sql: select %s: %w", name, err)
	}
	return rs, nil
}

// SelectCursor implements dialect.Adapter. The caller must close the cursor.
func (a *Adapter) SelectCursor(ctx context.Context, conn dialect.Conn, name, query string, args dialect.Args) (dialect.Cursor, error) {
	ex, cf, err := a.maySetVars(ctx, conn)
	if err != nil {
		return nil, fmt.Errorf("dialect/sql: select %s: set session vars: %w", name, err)
	}
	rows, err := ex.QueryContext(ctx, query, bind(args)...)
	if err != nil {
		if cf != nil {
			err = errors.Join(err, cf())
		}
		return nil, fmt.Errorf("dialect/sql: select %s: %w", name, err)
	}
	if cf != nil {
		return rowsWithCloser{rows, cf}, nil
	}
	return rows, nil
}

// Execute implements dialect.Adapter.
func (a *Adapter) Execute(ctx context.Context, conn dialect.Conn, name, query string, args dialect.Args) (rerr error) {
	ex, cf, err := a.maySetVars(ctx, conn)
	if err != nil {
		return fmt.Errorf("dialect/sql: exec %s: set session vars: %w", name, err)
	}
	if cf != nil {
		defer func() { rerr = errors.Join(rerr, cf()) }()
	}
	if _, err := ex.ExecContext(ctx, query, bind(args)...); err != nil {
		return fmt.Errorf("dialect/sql: exec %s: %w", name, err)
	}
	return nil
}

// ExecuteMany implements dialect.Adapter. The statement is prepared once
// and executed for every batch in order; the first failure stops the run.
func (a *Adapter) ExecuteMany(ctx context.Context, conn dialect.Conn, name, query string, batches []dialect.Args) (rerr error) {
	if len(batches) == 0 {
		return dialect.NewUsageError(name, "no parameter sets")
	}
	ex, cf, err := a.maySetVars(ctx, conn)
	if err != nil {
		return fmt.Errorf("dialect/sql: exec many %s: set session vars: %w", name, err)
	}
	if cf != nil {
		defer func() { rerr = errors.Join(rerr, cf()) }()
	}
	stmt, err := ex.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("dialect/sql: exec many %s: prepare: %w", name, err)
	}
	defer func() { rerr = errors.Join(rerr, stmt.Close()) }()
	for i, b := range batches {
		if _, err := stmt.ExecContext(ctx, bind(b)...); err != nil {
			return fmt.Errorf("dialect/sql: exec many %s: batch %d: %w", name, i, err)
		}
	}
	return nil
}

// InsertReturning implements dialect.Adapter.
//
// A statement carrying a RETURNING clause is run as a query and the first
// row is returned: nil when there is no row, the value itself for a single
// column, and a []any for several. Otherwise the statement is executed and
// the native last insert id is returned, or nil when the adapter has none.
func (a *Adapter) InsertReturning(ctx context.Context, conn dialect.Conn, name, query string, args dialect.Args) (v any, rerr error) {
	if a.returning.Mode == statement.ReturningNever && !statement.HasReturning(query) {
		return a.lastID(ctx, conn, name, query, args)
	}
	rows, err := a.SelectCursor(ctx, conn, name, query, args)
	if err != nil {
		return nil, err
	}
	defer func() { rerr = errors.Join(rerr, rows.Close()) }()
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("dialect/sql: insert returning %s: %w", name, err)
	}
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("dialect/sql: insert returning %s: %w", name, err)
		}
		return nil, nil
	}
	vals := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, fmt.Errorf("dialect/sql: insert returning %s: %w", name, err)
	}
	switch len(vals) {
	case 0:
		return nil, nil
	case 1:
		return vals[0], nil
	default:
		return vals, nil
	}
}

func (a *Adapter) lastID(ctx context.Context, conn dialect.Conn, name, query string, args dialect.Args) (v any, rerr error) {
	ex, cf, err := a.maySetVars(ctx, conn)
	if err != nil {
		return nil, fmt.Errorf("dialect/sql: insert returning %s: set session vars: %w", name, err)
	}
	if cf != nil {
		defer func() { rerr = errors.Join(rerr, cf()) }()
	}
	res, err := ex.ExecContext(ctx, query, bind(args)...)
	if err != nil {
		return nil, fmt.Errorf("dialect/sql: insert returning %s: %w", name, err)
	}
	if !a.lastInsertID {
		return nil, nil
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("dialect/sql: insert returning %s: last insert id: %w", name, err)
	}
	return id, nil
}

// ExecuteScript implements dialect.Adapter. The text is sent as is with no
// arguments; whether several statements may be sent at once is up to the
// driver (MySQL needs multiStatements=true in the DSN).
func (a *Adapter) ExecuteScript(ctx context.Context, conn dialect.Conn, query string) (rerr error) {
	ex, cf, err := a.maySetVars(ctx, conn)
	if err != nil {
		return fmt.Errorf("dialect/sql: script: set session vars: %w", err)
	}
	if cf != nil {
		defer func() { rerr = errors.Join(rerr, cf()) }()
	}
	if _, err := ex.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("dialect/sql: script: %w", err)
	}
	return nil
}

// bind converts args into the values handed to database/sql. Keyed
// bundles become sql.NamedArg values sorted by name.
func bind(args dialect.Args) []any {
	if !args.IsNamed() {
		return args.Values
	}
	argv := make([]any, 0, len(args.Named))
	for _, k := range slices.Sorted(maps.Keys(args.Named)) {
		argv = append(argv, sql.Named(k, args.Named[k]))
	}
	return argv
}

var _ dialect.Adapter = (*Adapter)(nil)

// rowsWithCloser wraps a Cursor with a custom Close hook.
type rowsWithCloser struct {
	dialect.Cursor
	closer func() error
}

// Close closes the underlying Cursor and calls the custom closer.
func (r rowsWithCloser) Close() error {
	err := r.Cursor.Close()
	return errors.Join(err, r.closer())
}

type (
	// Result is an alias to sql.Result.
	Result = sql.Result
	// TxOptions holds the transaction options to be used in DB.BeginTx.
	TxOptions = sql.TxOptions
)
