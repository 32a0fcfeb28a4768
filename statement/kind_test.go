package statement

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		token string
		kind  Kind
		name  string
	}{
		{"get-by-id", Select, "get_by_id"},
		{"get_all", Select, "get_all"},
		{"add!", InsertUpdateDelete, "add"},
		{"add-user<!", InsertReturning, "add_user"},
		{"bulk-add*!", InsertUpdateDeleteMany, "bulk_add"},
		{"create-schema#", Script, "create_schema"},
		{"_private", Select, "_private"},
		{"v2_users!", InsertUpdateDelete, "v2_users"},
	}
	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			t.Parallel()
			kind, name, err := Classify(tt.token)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, kind)
			assert.Equal(t, tt.name, name)

			// Classification does not depend on anything but the token.
			kind2, name2, err := Classify(tt.token)
			require.NoError(t, err)
			assert.Equal(t, kind, kind2)
			assert.Equal(t, name, name2)
		})
	}
}

func TestClassifyInvalid(t *testing.T) {
	t.Parallel()

	for _, token := range []string{"", "1abc", "foo bar", "foo.bar", "<!", "a!!", "$users", "na%me"} {
		t.Run(token, func(t *testing.T) {
			t.Parallel()
			_, _, err := Classify(token)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrParse))
			assert.True(t, IsKind(err, InvalidIdentifier))
		})
	}
}

func TestKindString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "SELECT", Select.String())
	assert.Equal(t, "INSERT_UPDATE_DELETE", InsertUpdateDelete.String())
	assert.Equal(t, "INSERT_RETURNING", InsertReturning.String())
	assert.Equal(t, "INSERT_UPDATE_DELETE_MANY", InsertUpdateDeleteMany.String())
	assert.Equal(t, "SCRIPT", Script.String())
	assert.Equal(t, "Kind(42)", Kind(42).String())
	assert.False(t, Kind(42).IsValid())
}

func TestKindMarker(t *testing.T) {
	t.Parallel()

	for _, k := range []Kind{Select, InsertUpdateDelete, InsertReturning, InsertUpdateDeleteMany, Script} {
		kind, name, err := Classify("q" + k.Marker())
		require.NoError(t, err)
		assert.Equal(t, k, kind)
		assert.Equal(t, "q", name)
	}
}

func TestParseErrorMessage(t *testing.T) {
	t.Parallel()

	err := &ParseError{Kind: EmptyBody, Source: "users.sql", Line: 3, Name: "get-user", Message: "statement has no SQL body"}
	assert.Equal(t, `statement: empty body in users.sql:3 ("get-user"): statement has no SQL body`, err.Error())

	err = &ParseError{Kind: MissingName, Line: 2}
	assert.Equal(t, "statement: missing name at line 2", err.Error())
	assert.True(t, IsParseError(err))
	assert.False(t, IsParseError(nil))
	assert.False(t, IsParseError(errors.New("other")))
}
