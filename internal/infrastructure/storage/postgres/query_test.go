package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertStruct(t *testing.T) {
	row := mockRow{Name: "x"}

	sql, args, err := InsertStruct("mock_rows", &row).ToSql()
	require.NoError(t, err)

	assert.Equal(t, "INSERT INTO mock_rows (id,tenant_id,created_at,year,month,name) VALUES ($1,$2,$3,$4,$5,$6)", sql)
	assert.Len(t, args, 6)
	assert.Equal(t, "x", args[5])
}
