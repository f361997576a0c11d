package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"arriendos/internal/core/entity"
	"arriendos/internal/core/id"
	"arriendos/internal/core/types"
	"arriendos/internal/domain/ledger"
	"arriendos/internal/domain/settlement"
)

func sampleStatement() *settlement.Statement {
	tenant := id.New()
	paid := types.NewDate(2024, time.April, 10)
	s := &settlement.Settlement{
		BaseEntity:        entity.NewBaseEntity(tenant),
		Period:            types.MustPeriod(2024, 3),
		MandateID:         id.New(),
		RentCollected:     types.MustMoney("1800000"),
		TotalRecurring:    types.MustMoney("150000"),
		TotalOneOff:       types.MustMoney("50000"),
		Commission:        types.MustMoney("180000"),
		VAT:               types.MustMoney("34200"),
		NetPayable:        types.MustMoney("1385800"),
		CommissionPercent: types.MustMoney("10"),
		VATPercent:        types.MustMoney("19"),
		ChargesVAT:        true,
		Paid:              true,
		PaymentDate:       &paid,
	}
	return &settlement.Statement{
		Settlement: s,
		Records: []*ledger.MonthlyRecord{
			{BaseEntity: entity.NewBaseEntity(tenant), DischargeID: id.New(), Value: types.MustMoney("150000")},
		},
		Installments: []*ledger.Installment{
			{BaseEntity: entity.NewBaseEntity(tenant), DischargeID: id.New(), Number: 2, Value: types.MustMoney("50000")},
		},
	}
}

func TestStatementXLSX(t *testing.T) {
	stmt := sampleStatement()

	raw, err := StatementXLSX(stmt)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(raw))
	require.NoError(t, err)
	defer f.Close()

	period, err := f.GetCellValue(summarySheet, "B4")
	require.NoError(t, err)
	assert.Equal(t, "2024-03", period)

	status, _ := f.GetCellValue(summarySheet, "B5")
	assert.Equal(t, "Pagada 2024-04-10", status)

	net, _ := f.GetCellValue(summarySheet, "B12")
	assert.Equal(t, "1385800", net)

	kind, _ := f.GetCellValue(obligationsSheet, "A3")
	assert.Equal(t, "Cuota 2", kind)
}

func TestStatementPDF(t *testing.T) {
	raw, err := StatementPDF(sampleStatement())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(raw, []byte("%PDF-")))
}

func TestSummaryLines_FormatsRates(t *testing.T) {
	lines := summaryLines(sampleStatement().Settlement)
	require.Len(t, lines, 6)
	assert.Equal(t, "Comision (10.00%)", lines[3].label)
	assert.Equal(t, "IVA (19.00%)", lines[4].label)
}
