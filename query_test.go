package namedsql

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/namedsql/dialect"
	"github.com/syssam/namedsql/statement"
)

// call is one adapter invocation seen by recorder.
type call struct {
	op      string
	name    string
	query   string
	args    dialect.Args
	batches []dialect.Args
}

// recorder is a dialect.Adapter that records calls instead of running them.
type recorder struct {
	markers statement.Markers
	calls   []call
	cursor  *fakeCursor
}

func (r *recorder) Markers() statement.Markers     { return r.markers }
func (r *recorder) Returning() statement.Returning { return statement.Returning{} }

func (r *recorder) Select(_ context.Context, _ dialect.Conn, name, query string, args dialect.Args) (*dialect.ResultSet, error) {
	r.calls = append(r.calls, call{op: "select", name: name, query: query, args: args})
	return &dialect.ResultSet{Columns: []string{"n"}, Rows: [][]any{{1}}}, nil
}

func (r *recorder) SelectCursor(_ context.Context, _ dialect.Conn, name, query string, args dialect.Args) (dialect.Cursor, error) {
	r.calls = append(r.calls, call{op: "cursor", name: name, query: query, args: args})
	r.cursor = &fakeCursor{}
	return r.cursor, nil
}

func (r *recorder) Execute(_ context.Context, _ dialect.Conn, name, query string, args dialect.Args) error {
	r.calls = append(r.calls, call{op: "exec", name: name, query: query, args: args})
	return nil
}

func (r *recorder) ExecuteMany(_ context.Context, _ dialect.Conn, name, query string, batches []dialect.Args) error {
	r.calls = append(r.calls, call{op: "exec many", name: name, query: query, batches: batches})
	return nil
}

func (r *recorder) InsertReturning(_ context.Context, _ dialect.Conn, name, query string, args dialect.Args) (any, error) {
	r.calls = append(r.calls, call{op: "insert returning", name: name, query: query, args: args})
	return int64(7), nil
}

func (r *recorder) ExecuteScript(_ context.Context, _ dialect.Conn, query string) error {
	r.calls = append(r.calls, call{op: "script", query: query})
	return nil
}

type fakeCursor struct {
	dialect.Cursor
	closed bool
}

func (c *fakeCursor) Close() error {
	c.closed = true
	return nil
}

func load(t *testing.T, a dialect.Adapter, text string) *Queries {
	t.Helper()
	descs, err := statement.ParseAll(text, statement.Options{Markers: a.Markers(), Returning: a.Returning()})
	require.NoError(t, err)
	qs := NewQueries()
	qs.addDescriptors(descs, a)
	return qs
}

const corpus = `-- name: get
SELECT * FROM t WHERE a = :a AND b = :b OR c = :a
-- name: put!
UPDATE t SET a = :a
-- name: add<!
INSERT INTO t(a) VALUES (:a)
-- name: add-many*!
INSERT INTO t(a, b) VALUES (:a, :b)
-- name: setup#
CREATE TABLE t (a, b, c)
`

func TestQueryDispatch(t *testing.T) {
	t.Parallel()

	r := &recorder{markers: statement.Question}
	qs := load(t, r, corpus)
	ctx := context.Background()

	v, err := qs.Call(ctx, nil, "get", 1, 2, 1)
	require.NoError(t, err)
	assert.IsType(t, &dialect.ResultSet{}, v)

	v, err = qs.Call(ctx, nil, "put", 5)
	require.NoError(t, err)
	assert.Nil(t, v)

	v, err = qs.Call(ctx, nil, "add", 5)
	require.NoError(t, err)
	assert.Equal(t, int64(7), v)

	_, err = qs.Call(ctx, nil, "add_many", []any{1, 2}, dialect.Params{"a": 3, "b": 4})
	require.NoError(t, err)

	_, err = qs.Call(ctx, nil, "setup")
	require.NoError(t, err)

	require.Len(t, r.calls, 5)
	assert.Equal(t, call{op: "select", name: "get", query: "SELECT * FROM t WHERE a = ? AND b = ? OR c = ?", args: dialect.Args{Values: []any{1, 2, 1}}}, r.calls[0])
	assert.Equal(t, "exec", r.calls[1].op)
	assert.Equal(t, "insert returning", r.calls[2].op)
	assert.Equal(t, []dialect.Args{{Values: []any{1, 2}}, {Values: []any{3, 4}}}, r.calls[3].batches)
	assert.Equal(t, call{op: "script", query: "CREATE TABLE t (a, b, c)"}, r.calls[4])
}

func TestQueryKeyedArgs(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("positional markers expand in placeholder order", func(t *testing.T) {
		t.Parallel()
		r := &recorder{markers: statement.Dollar}
		qs := load(t, r, corpus)
		_, err := qs.Call(ctx, nil, "get", dialect.Params{"a": 1, "b": 2})
		require.NoError(t, err)
		assert.Equal(t, dialect.Args{Values: []any{1, 2, 1}}, r.calls[0].args)

		_, err = qs.Call(ctx, nil, "get", map[string]any{"a": 1})
		require.Error(t, err)
		assert.True(t, dialect.IsUsageError(err))
		assert.Contains(t, err.Error(), `missing parameter "b"`)
	})

	t.Run("named markers hand the bundle over", func(t *testing.T) {
		t.Parallel()
		r := &recorder{markers: statement.Pyformat}
		qs := load(t, r, corpus)
		_, err := qs.Call(ctx, nil, "get", dialect.Params{"a": 1, "b": 2})
		require.NoError(t, err)
		assert.Equal(t, "SELECT * FROM t WHERE a = %(a)s AND b = %(b)s OR c = %(a)s", r.calls[0].query)
		assert.Equal(t, dialect.Args{Named: map[string]any{"a": 1, "b": 2}}, r.calls[0].args)
	})

	t.Run("mixed arguments", func(t *testing.T) {
		t.Parallel()
		r := &recorder{markers: statement.Question}
		qs := load(t, r, corpus)
		_, err := qs.Call(ctx, nil, "get", 1, dialect.Params{"b": 2})
		require.Error(t, err)
		assert.True(t, dialect.IsUsageError(err))
		assert.Empty(t, r.calls)
	})
}

func TestQueryUsageErrors(t *testing.T) {
	t.Parallel()

	r := &recorder{markers: statement.Question}
	qs := load(t, r, corpus)
	ctx := context.Background()

	tests := []struct {
		name string
		run  func() error
	}{
		{"unknown query", func() error { _, err := qs.Call(ctx, nil, "missing"); return err }},
		{"unknown namespace", func() error { _, err := qs.Call(ctx, nil, "users.get"); return err }},
		{"script arguments", func() error { _, err := qs.Call(ctx, nil, "setup", 1); return err }},
		{"empty batch", func() error { _, err := qs.Call(ctx, nil, "add_many"); return err }},
		{"bad batch", func() error { _, err := qs.Call(ctx, nil, "add_many", 1); return err }},
		{"rows on write", func() error {
			q, _ := qs.Lookup("put")
			_, err := q.Rows(ctx, nil)
			return err
		}},
		{"exec on select", func() error {
			q, _ := qs.Lookup("get")
			return q.Exec(ctx, nil)
		}},
		{"returning on write", func() error {
			q, _ := qs.Lookup("put")
			_, err := q.Returning(ctx, nil)
			return err
		}},
		{"cursor on write", func() error {
			q, _ := qs.Lookup("put")
			return q.Cursor(ctx, nil, func(dialect.Cursor) error { return nil })
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run()
			require.Error(t, err)
			assert.True(t, dialect.IsUsageError(err), "got %v", err)
		})
	}
	assert.Empty(t, r.calls)
}

func TestQueryCursor(t *testing.T) {
	t.Parallel()

	r := &recorder{markers: statement.Question}
	qs := load(t, r, corpus)
	ctx := context.Background()

	assert.Equal(t, []string{"add", "add_many", "get", "put", "setup"}, qs.Available())

	cq, err := qs.Lookup("get_cursor")
	require.NoError(t, err)
	assert.True(t, cq.IsCursor())
	assert.Equal(t, "get_cursor", cq.Name())
	v, err := cq.Call(ctx, nil, 1, 2, 1)
	require.NoError(t, err)
	assert.Same(t, r.cursor, v)
	assert.False(t, r.cursor.closed, "the caller owns a cursor returned by Call")

	_, err = qs.Lookup("put_cursor")
	require.Error(t, err)

	q, err := qs.Lookup("get")
	require.NoError(t, err)
	assert.Same(t, cq, q.CursorVariant())

	boom := errors.New("boom")
	err = q.Cursor(ctx, nil, func(dialect.Cursor) error { return boom }, 1, 2, 1)
	require.ErrorIs(t, err, boom)
	assert.True(t, r.cursor.closed)

	assert.Panics(t, func() {
		_ = q.Cursor(ctx, nil, func(dialect.Cursor) error { panic("scan") }, 1, 2, 1)
	})
	assert.True(t, r.cursor.closed, "the cursor is closed on panic")
}

func TestQueryMetadata(t *testing.T) {
	t.Parallel()

	r := &recorder{markers: statement.Question}
	qs := load(t, r, "-- name: list-users\n-- All users.\nSELECT * FROM users\n")
	q, err := qs.Lookup("list_users")
	require.NoError(t, err)
	assert.Equal(t, "list_users", q.Name())
	assert.Equal(t, "SELECT * FROM users", q.SQL())
	assert.Equal(t, "All users.", q.Doc())
	assert.Equal(t, statement.Select, q.Kind())
	assert.Equal(t, "list-users", q.Descriptor().Declared)
	assert.False(t, q.IsCursor())
	assert.Same(t, r, q.Adapter())
}
