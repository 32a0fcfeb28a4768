package namedsql_test

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/syssam/namedsql"
	"github.com/syssam/namedsql/dialect"
	"github.com/syssam/namedsql/statement"
)

func TestLoadError(t *testing.T) {
	t.Run("Error", func(t *testing.T) {
		err := namedsql.NewLoadError("sql/users.sql", fs.ErrNotExist)
		assert.Equal(t, "namedsql: load sql/users.sql: file does not exist", err.Error())
		assert.Equal(t, "namedsql: load: bad", namedsql.NewLoadError("", errors.New("bad")).Error())
	})

	t.Run("Is", func(t *testing.T) {
		err := namedsql.NewLoadError("x", fs.ErrNotExist)
		assert.True(t, errors.Is(err, namedsql.ErrLoad))
		assert.True(t, errors.Is(err, fs.ErrNotExist))
	})

	t.Run("IsLoadError", func(t *testing.T) {
		err := namedsql.NewLoadError("x", fs.ErrPermission)
		assert.True(t, namedsql.IsLoadError(err))

		// Wrapped error
		assert.True(t, namedsql.IsLoadError(fmt.Errorf("wrapper: %w", err)))

		// Non-matching error
		assert.False(t, namedsql.IsLoadError(errors.New("other error")))
		assert.False(t, namedsql.IsLoadError(nil))
	})
}

func TestReexportedErrors(t *testing.T) {
	parseErr := &statement.ParseError{Kind: statement.EmptyBody, Name: "q"}
	assert.True(t, namedsql.IsParseError(parseErr))
	assert.True(t, errors.Is(parseErr, namedsql.ErrParse))

	configErr := dialect.NewConfigError("oracle", "unregistered adapter")
	assert.True(t, namedsql.IsConfigError(configErr))
	assert.True(t, errors.Is(configErr, namedsql.ErrConfig))

	usageErr := dialect.NewUsageError("q", "bad")
	assert.True(t, namedsql.IsUsageError(usageErr))
	assert.True(t, errors.Is(usageErr, namedsql.ErrUsage))

	assert.False(t, namedsql.IsParseError(usageErr))
	assert.False(t, namedsql.IsUsageError(configErr))
}

func TestRollbackError(t *testing.T) {
	cause := errors.New("insert failed")
	rb := errors.New("connection lost")
	err := &namedsql.RollbackError{Err: cause, Rollback: rb}
	assert.Equal(t, "namedsql: insert failed: rollback failed: connection lost", err.Error())
	assert.True(t, errors.Is(err, cause))
	assert.True(t, errors.Is(err, rb))
}
