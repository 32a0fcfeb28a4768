package namedsql_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/namedsql"
	"github.com/syssam/namedsql/dialect"
	dsql "github.com/syssam/namedsql/dialect/sql"
	"github.com/syssam/namedsql/statement"
)

func memFs(t *testing.T, files map[string]string) afero.Fs {
	t.Helper()
	fsys := afero.NewMemMapFs()
	for path, text := range files {
		require.NoError(t, afero.WriteFile(fsys, path, []byte(text), 0o644))
	}
	return fsys
}

var pyformat = dsql.NewAdapter("pyformat", dsql.WithMarkers(statement.Pyformat))

func TestFromString(t *testing.T) {
	t.Parallel()

	t.Run("named", func(t *testing.T) {
		t.Parallel()
		qs, err := namedsql.FromString("pyformat", "-- name: get-by-id\nSELECT * FROM t WHERE id = :id\n", namedsql.WithAdapter(pyformat))
		require.NoError(t, err)
		q, err := qs.Lookup("get_by_id")
		require.NoError(t, err)
		assert.Equal(t, "SELECT * FROM t WHERE id = %(id)s", q.SQL())
		assert.Equal(t, statement.Select, q.Kind())
		c, err := qs.Lookup("get_by_id_cursor")
		require.NoError(t, err)
		assert.True(t, c.IsCursor())
		assert.Equal(t, []string{"get_by_id"}, qs.Available())
	})

	t.Run("positional", func(t *testing.T) {
		t.Parallel()
		qs, err := namedsql.FromString(dialect.SQLite, "-- name: add!\nINSERT INTO t(a) VALUES (:a)\n")
		require.NoError(t, err)
		q, err := qs.Lookup("add")
		require.NoError(t, err)
		assert.Equal(t, "INSERT INTO t(a) VALUES (?)", q.SQL())
		assert.Equal(t, statement.InsertUpdateDelete, q.Kind())
	})

	t.Run("returning", func(t *testing.T) {
		t.Parallel()
		qs, err := namedsql.FromString(dialect.Postgres, "-- name: add<!\nINSERT INTO t(a) VALUES (:a)\n")
		require.NoError(t, err)
		q, err := qs.Lookup("add")
		require.NoError(t, err)
		assert.Equal(t, "INSERT INTO t(a) VALUES ($1) RETURNING id", q.SQL())
		assert.Equal(t, statement.InsertReturning, q.Kind())
	})

	t.Run("missing name", func(t *testing.T) {
		t.Parallel()
		qs, err := namedsql.FromString(dialect.SQLite, "SELECT 1;\n")
		require.Error(t, err)
		assert.Nil(t, qs)
		assert.True(t, namedsql.IsParseError(err))
		assert.True(t, statement.IsKind(err, statement.MissingName))
	})

	t.Run("unknown dialect", func(t *testing.T) {
		t.Parallel()
		_, err := namedsql.FromString("oracle", "-- name: q\nSELECT 1 FROM dual\n")
		require.Error(t, err)
		assert.True(t, namedsql.IsConfigError(err))
	})
}

func TestLoadIdempotent(t *testing.T) {
	t.Parallel()

	src := "-- name: a\nSELECT :x;\n-- name: b!\nDELETE FROM t WHERE id = :id;\n"
	first, err := namedsql.FromString(dialect.Postgres, src)
	require.NoError(t, err)
	second, err := namedsql.FromString(dialect.Postgres, src)
	require.NoError(t, err)
	assert.Equal(t, first.Available(), second.Available())
	for _, name := range first.Available() {
		q1, err := first.Lookup(name)
		require.NoError(t, err)
		q2, err := second.Lookup(name)
		require.NoError(t, err)
		assert.Equal(t, q1.SQL(), q2.SQL())
	}
}

func TestLoadPathDirectory(t *testing.T) {
	t.Parallel()

	fsys := memFs(t, map[string]string{
		"sql/alpha/foo.sql":         "-- name: foo\nSELECT 1;\n",
		"sql/beta/foo.sql":          "-- name: foo\nSELECT 2;\n",
		"sql/beta/README.md":        "not sql",
		"sql/.hidden/secret.sql":    "-- name: secret\nSELECT 3;\n",
		"sql/beta/.draft.sql":       "-- name: draft\nSELECT 4;\n",
		"sql/user-admin/nested.sql": "-- name: grant!\nUPDATE roles SET admin = true WHERE id = :id;\n",
		"sql/user-admin/deep/x.SQL": "-- name: x\nSELECT 5;\n",
		"sql/top.sql":               "-- Header.\n\n-- name: top\nSELECT 0;\n",
		"sql/comments.sql":          "-- nothing here yet\n",
	})
	require.NoError(t, fsys.MkdirAll("sql/empty", 0o755))

	qs, err := namedsql.FromPath(context.Background(), dialect.SQLite, "sql", namedsql.WithFs(fsys))
	require.NoError(t, err)
	assert.Equal(t, []string{
		"alpha.foo",
		"beta.foo",
		"top",
		"user_admin.deep.x",
		"user_admin.grant",
	}, qs.Available())
	assert.Equal(t, []string{"alpha", "beta", "user_admin"}, qs.Namespaces())
	assert.Equal(t, 5, qs.Len())

	q, err := qs.Lookup("beta.foo")
	require.NoError(t, err)
	assert.Equal(t, "SELECT 2;", q.SQL())
	assert.Equal(t, "sql/beta/foo.sql", q.Descriptor().Source)

	_, ok := qs.Namespace("empty")
	assert.False(t, ok)
}

func TestScenarioE(t *testing.T) {
	t.Parallel()

	fsys := memFs(t, map[string]string{
		"root/alpha/foo.sql": "-- name: foo\nSELECT 1;\n",
		"root/beta/foo.sql":  "-- name: foo\nSELECT 2;\n",
	})
	qs, err := namedsql.FromPath(context.Background(), dialect.SQLite, "root", namedsql.WithFs(fsys))
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha.foo", "beta.foo"}, qs.Available())
}

func TestLoadPathFile(t *testing.T) {
	t.Parallel()

	fsys := memFs(t, map[string]string{
		"users.sql": "-- name: get\nSELECT * FROM users WHERE id = :id;\n-- name: get!\nDELETE FROM users WHERE id = :id;\n",
	})
	qs, err := namedsql.FromPath(context.Background(), dialect.Postgres, "users.sql", namedsql.WithFs(fsys))
	require.NoError(t, err)
	// The later definition wins.
	q, err := qs.Lookup("get")
	require.NoError(t, err)
	assert.Equal(t, statement.InsertUpdateDelete, q.Kind())
	assert.Equal(t, "DELETE FROM users WHERE id = $1;", q.SQL())
}

func TestLoadPathErrors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("missing path", func(t *testing.T) {
		t.Parallel()
		_, err := namedsql.FromPath(ctx, dialect.SQLite, "nope", namedsql.WithFs(afero.NewMemMapFs()))
		require.Error(t, err)
		assert.True(t, namedsql.IsLoadError(err))
	})

	t.Run("one bad file aborts the directory", func(t *testing.T) {
		t.Parallel()
		fsys := memFs(t, map[string]string{
			"sql/a.sql": "-- name: a\nSELECT 1;\n",
			"sql/b.sql": "-- name: b\n",
			"sql/c.sql": "-- name: c\nSELECT 3;\n",
		})
		qs, err := namedsql.FromPath(ctx, dialect.SQLite, "sql", namedsql.WithFs(fsys), namedsql.WithConcurrency(1))
		require.Error(t, err)
		assert.Nil(t, qs)
		assert.True(t, statement.IsKind(err, statement.EmptyBody))
		var pe *namedsql.ParseError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, "sql/b.sql", pe.Source)
	})

	t.Run("canceled", func(t *testing.T) {
		t.Parallel()
		fsys := memFs(t, map[string]string{"sql/a.sql": "-- name: a\nSELECT 1;\n"})
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := namedsql.FromPath(cctx, dialect.SQLite, "sql", namedsql.WithFs(fsys))
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestWithExtensions(t *testing.T) {
	t.Parallel()

	fsys := memFs(t, map[string]string{
		"q/a.sql":  "-- name: a\nSELECT 1;\n",
		"q/b.psql": "-- name: b\nSELECT 2;\n",
	})
	qs, err := namedsql.FromPath(context.Background(), dialect.Postgres, "q",
		namedsql.WithFs(fsys), namedsql.WithExtensions("psql"))
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, qs.Available())
}

func TestWithCache(t *testing.T) {
	t.Parallel()

	fsys := memFs(t, map[string]string{
		"q/a.sql": "-- name: a\nSELECT :x;\n",
		"q/b.sql": "-- name: b!\nDELETE FROM t;\n",
	})
	cache := namedsql.NewMemoryCache()
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	l, err := namedsql.NewLoader(dialect.Postgres, namedsql.WithFs(fsys), namedsql.WithCache(cache), namedsql.WithLogger(logger))
	require.NoError(t, err)
	first, err := l.LoadPath(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, 2, cache.Len())
	assert.NotContains(t, logs.String(), "from cache")

	second, err := l.LoadPath(context.Background(), "q")
	require.NoError(t, err)
	assert.Contains(t, logs.String(), "loaded file from cache")
	assert.Equal(t, first.Available(), second.Available())
	q, err := second.Lookup("a")
	require.NoError(t, err)
	assert.Equal(t, "SELECT $1;", q.SQL())
	assert.Equal(t, []string{"x"}, q.Descriptor().Params)

	// A changed file misses the cache.
	require.NoError(t, afero.WriteFile(fsys, "q/a.sql", []byte("-- name: a\nSELECT :y;\n"), 0o644))
	third, err := l.LoadPath(context.Background(), "q")
	require.NoError(t, err)
	q, err = third.Lookup("a")
	require.NoError(t, err)
	assert.Equal(t, []string{"y"}, q.Descriptor().Params)
	assert.Equal(t, 3, cache.Len())
}

func TestWithCacheAdapterOverride(t *testing.T) {
	t.Parallel()

	fsys := memFs(t, map[string]string{"q.sql": "-- name: a\nSELECT :x;\n"})
	cache := namedsql.NewMemoryCache()

	qs, err := namedsql.FromPath(context.Background(), dialect.Postgres, "q.sql",
		namedsql.WithFs(fsys), namedsql.WithCache(cache))
	require.NoError(t, err)
	q, err := qs.Lookup("a")
	require.NoError(t, err)
	assert.Equal(t, "SELECT $1;", q.SQL())

	// Same tag, different adapter: the cached postgres parse is not reused.
	qs, err = namedsql.FromPath(context.Background(), dialect.Postgres, "q.sql",
		namedsql.WithFs(fsys), namedsql.WithCache(cache), namedsql.WithAdapter(pyformat))
	require.NoError(t, err)
	q, err = qs.Lookup("a")
	require.NoError(t, err)
	assert.Equal(t, "SELECT %(x)s;", q.SQL())
	assert.Equal(t, 2, cache.Len())
}

func TestLoadQuoting(t *testing.T) {
	t.Parallel()

	text := "-- name: q\nSELECT 'it\\'s -- not a comment', :z\n"

	qs, err := namedsql.FromString(dialect.MySQL, text)
	require.NoError(t, err)
	q, err := qs.Lookup("q")
	require.NoError(t, err)
	assert.Equal(t, `SELECT 'it\'s -- not a comment', ?`, q.SQL())
	assert.Equal(t, []string{"z"}, q.Descriptor().Params)

	stats := dsql.NewStatsAdapter(dsql.MySQLAdapter)
	qs, err = namedsql.FromString(dialect.MySQL, text, namedsql.WithAdapter(stats))
	require.NoError(t, err)
	q, err = qs.Lookup("q")
	require.NoError(t, err)
	assert.Equal(t, []string{"z"}, q.Descriptor().Params)
}

func TestNamespaceName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "user_admin", namedsql.NamespaceName("user-admin"))
	assert.Equal(t, "v1_2", namedsql.NamespaceName("v1.2"))
	assert.Equal(t, "plain", namedsql.NamespaceName("plain"))
}
