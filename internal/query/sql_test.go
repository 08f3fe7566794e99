package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToSQLEmptyIsSentinel(t *testing.T) {
	sql, err := ToSQL(nil)
	require.NoError(t, err)
	assert.Equal(t, "1=1", sql)
}

func TestToSQLBareWordILIKE(t *testing.T) {
	sql, err := ToSQL(Parse("alice"))
	require.NoError(t, err)
	assert.Equal(t, "name ILIKE '%alice%'", sql)
}

func TestToSQLRejectsInvalidColumn(t *testing.T) {
	_, err := ToSQL(Parse("bad-col:1"))
	require.Error(t, err)
	assert.Equal(t, ErrInvalidColumn, err.Error())
}

func TestToSQLEscapesQuotes(t *testing.T) {
	sql, err := ToSQL(Parse(`name:o'brien`))
	require.NoError(t, err)
	assert.Equal(t, "name = 'o''brien'", sql)
}

func TestToSQLMembersSpecialCase(t *testing.T) {
	sql, err := ToSQL(Parse("members:alice"))
	require.NoError(t, err)
	assert.Equal(t, "'alice' = ANY(members)", sql)
}

func TestToSQLAndOr(t *testing.T) {
	sql, err := ToSQL(Parse("a:1 OR b:2"))
	require.NoError(t, err)
	assert.Equal(t, "(a = '1' OR b = '2')", sql)
}

func TestToSQLUnsetIsNull(t *testing.T) {
	sql, err := ToSQL(Parse("status:unset"))
	require.NoError(t, err)
	assert.Equal(t, "status IS NULL", sql)
}
