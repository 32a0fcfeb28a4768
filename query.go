package namedsql

import (
	"context"
	"errors"

	"github.com/syssam/namedsql/dialect"
	"github.com/syssam/namedsql/statement"
)

// CursorSuffix is appended to a select statement's name to form the name of
// its cursor variant.
const CursorSuffix = "_cursor"

// Query is a parsed statement bound to an adapter. It is called with a
// connection and arguments and dispatches on the statement kind.
//
// Arguments are positional, or a single dialect.Params (or map[string]any)
// keyed by placeholder name. A keyed bundle given to a statement with
// positional markers is expanded in placeholder order.
type Query struct {
	name    string
	desc    *statement.Descriptor
	adapter dialect.Adapter
	cursor  bool
	variant *Query
}

// NewQuery binds desc to the adapter a. A select also gets a cursor
// variant, named with CursorSuffix, whose Call returns an open cursor.
func NewQuery(desc *statement.Descriptor, a dialect.Adapter) *Query {
	q := &Query{name: desc.Name, desc: desc, adapter: a}
	if desc.Kind == statement.Select {
		q.variant = &Query{name: desc.Name + CursorSuffix, desc: desc, adapter: a, cursor: true}
	}
	return q
}

// Name returns the name the query is registered under.
func (q *Query) Name() string { return q.name }

// SQL returns the rewritten statement text.
func (q *Query) SQL() string { return q.desc.SQL }

// Doc returns the statement documentation.
func (q *Query) Doc() string { return q.desc.Doc }

// Kind returns the statement kind.
func (q *Query) Kind() statement.Kind { return q.desc.Kind }

// Descriptor returns the parsed statement.
func (q *Query) Descriptor() *statement.Descriptor { return q.desc }

// IsCursor reports whether the query is the cursor variant of a select.
func (q *Query) IsCursor() bool { return q.cursor }

// CursorVariant returns the cursor variant of a select, or nil.
func (q *Query) CursorVariant() *Query { return q.variant }

// Adapter returns the adapter the query runs on.
func (q *Query) Adapter() dialect.Adapter { return q.adapter }

// Call runs the query. The result depends on the kind:
//
//	Select                  *dialect.ResultSet
//	Select (cursor)         dialect.Cursor, which the caller must close
//	InsertUpdateDelete      nil
//	InsertUpdateDeleteMany  nil; each argument is one parameter set
//	InsertReturning         the returned value, a []any row, or nil
//	Script                  nil; arguments are rejected
func (q *Query) Call(ctx context.Context, conn dialect.Conn, args ...any) (any, error) {
	switch {
	case q.cursor:
		c, err := q.open(ctx, conn, args)
		if err != nil {
			return nil, err
		}
		return c, nil
	case q.desc.Kind == statement.Select:
		rs, err := q.Rows(ctx, conn, args...)
		if err != nil {
			return nil, err
		}
		return rs, nil
	case q.desc.Kind == statement.InsertReturning:
		return q.Returning(ctx, conn, args...)
	default:
		return nil, q.Exec(ctx, conn, args...)
	}
}

// Rows runs a select and reads the whole result.
func (q *Query) Rows(ctx context.Context, conn dialect.Conn, args ...any) (*dialect.ResultSet, error) {
	if q.desc.Kind != statement.Select {
		return nil, q.misuse("Rows")
	}
	a, err := q.bind(args)
	if err != nil {
		return nil, err
	}
	return q.adapter.Select(ctx, conn, q.desc.Name, q.desc.SQL, a)
}

// Exec runs a statement that returns nothing: a plain write, a batch or a
// script.
func (q *Query) Exec(ctx context.Context, conn dialect.Conn, args ...any) error {
	switch q.desc.Kind {
	case statement.InsertUpdateDelete:
		a, err := q.bind(args)
		if err != nil {
			return err
		}
		return q.adapter.Execute(ctx, conn, q.desc.Name, q.desc.SQL, a)
	case statement.InsertUpdateDeleteMany:
		batches, err := q.batches(args)
		if err != nil {
			return err
		}
		return q.adapter.ExecuteMany(ctx, conn, q.desc.Name, q.desc.SQL, batches)
	case statement.Script:
		if len(args) > 0 {
			return dialect.NewUsageError(q.name, "scripts take no arguments, got %d", len(args))
		}
		return q.adapter.ExecuteScript(ctx, conn, q.desc.SQL)
	default:
		return q.misuse("Exec")
	}
}

// Returning runs an insert-returning statement.
func (q *Query) Returning(ctx context.Context, conn dialect.Conn, args ...any) (any, error) {
	if q.desc.Kind != statement.InsertReturning {
		return nil, q.misuse("Returning")
	}
	a, err := q.bind(args)
	if err != nil {
		return nil, err
	}
	return q.adapter.InsertReturning(ctx, conn, q.desc.Name, q.desc.SQL, a)
}

// Cursor runs a select and calls fn with the open cursor. The cursor is
// closed when fn returns or panics.
func (q *Query) Cursor(ctx context.Context, conn dialect.Conn, fn func(dialect.Cursor) error, args ...any) (rerr error) {
	c, err := q.open(ctx, conn, args)
	if err != nil {
		return err
	}
	defer func() { rerr = errors.Join(rerr, c.Close()) }()
	return fn(c)
}

func (q *Query) open(ctx context.Context, conn dialect.Conn, args []any) (dialect.Cursor, error) {
	if q.desc.Kind != statement.Select {
		return nil, q.misuse("Cursor")
	}
	a, err := q.bind(args)
	if err != nil {
		return nil, err
	}
	return q.adapter.SelectCursor(ctx, conn, q.desc.Name, q.desc.SQL, a)
}

func (q *Query) misuse(method string) error {
	return dialect.NewUsageError(q.name, "%s called on a %s statement", method, q.desc.Kind)
}

// bind resolves call arguments into a parameter set.
func (q *Query) bind(args []any) (dialect.Args, error) {
	var keyed map[string]any
	for _, arg := range args {
		if m, ok := asParams(arg); ok {
			if len(args) > 1 {
				return dialect.Args{}, dialect.NewUsageError(q.name, "keyed and positional arguments cannot be mixed")
			}
			keyed = m
		}
	}
	if keyed == nil {
		return dialect.Args{Values: args}, nil
	}
	if q.desc.Binding == statement.Named {
		return dialect.Args{Named: keyed}, nil
	}
	values := make([]any, len(q.desc.Params))
	for i, name := range q.desc.Params {
		v, ok := keyed[name]
		if !ok {
			return dialect.Args{}, dialect.NewUsageError(q.name, "missing parameter %q", name)
		}
		values[i] = v
	}
	return dialect.Args{Values: values}, nil
}

// batches resolves the arguments of a batch statement, one parameter set
// per argument.
func (q *Query) batches(args []any) ([]dialect.Args, error) {
	if len(args) == 0 {
		return nil, dialect.NewUsageError(q.name, "no parameter sets")
	}
	batches := make([]dialect.Args, len(args))
	for i, arg := range args {
		var set []any
		switch v := arg.(type) {
		case []any:
			set = v
		default:
			if _, ok := asParams(arg); !ok {
				return nil, dialect.NewUsageError(q.name, "parameter set %d: unsupported type %T", i, arg)
			}
			set = []any{arg}
		}
		b, err := q.bind(set)
		if err != nil {
			return nil, err
		}
		batches[i] = b
	}
	return batches, nil
}

func asParams(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case dialect.Params:
		return m, m != nil
	case map[string]any:
		return m, m != nil
	default:
		return nil, false
	}
}
