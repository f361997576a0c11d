package contract_repo

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arriendos/internal/core/id"
	"arriendos/internal/core/types"
	"arriendos/internal/domain/contract"
)

func TestLockMandateQuery(t *testing.T) {
	mandateID := id.New()

	sql, args, err := lockMandateQuery(mandateID).ToSql()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(sql, "SELECT id, tenant_id, created_at, property_id, status"), sql)
	assert.True(t, strings.HasSuffix(sql, "FROM mandates WHERE id = $1 FOR UPDATE"), sql)
	assert.Equal(t, []any{mandateID}, args)
}

func TestMandateColumns_IncludeTermsAndCommission(t *testing.T) {
	assert.Contains(t, mandateCols, "use_type")
	assert.Contains(t, mandateCols, "increment_value")
	assert.Contains(t, mandateCols, "commission_percent")
	assert.NotContains(t, leaseCols, "commission_percent")
	assert.Contains(t, leaseCols, "mandate_id")
}

func TestUpsertCPIQuery(t *testing.T) {
	sql, args, err := upsertCPIQuery(contract.AnnualCPI{Year: 2024, Value: types.MustMoney("5.62")}).ToSql()
	require.NoError(t, err)

	assert.Equal(t, "INSERT INTO annual_cpi (year,value) VALUES ($1,$2) ON CONFLICT (year) DO UPDATE SET value = EXCLUDED.value", sql)
	assert.Equal(t, 2024, args[0])
}
