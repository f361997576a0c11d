package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arriendos/internal/core/id"
	"arriendos/internal/core/types"
)

func TestRenderers(t *testing.T) {
	assert.Contains(t, renderers, "xlsx")
	assert.Contains(t, renderers, "pdf")
	assert.NotContains(t, renderers, "csv")
}

func TestLinger_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	linger(ctx, time.Minute)
	assert.Less(t, time.Since(start), time.Second)
}

func TestSettlementID(t *testing.T) {
	_, err := settlementID(options{settlement: "nope"})
	assert.Error(t, err)
}

func TestOneOffFromOptions(t *testing.T) {
	mandate := id.New()
	today := types.NewDate(2024, time.June, 14)

	o, err := oneOffFromOptions(options{
		mandate:      mandate.String(),
		concept:      "Vidrio",
		value:        "90000",
		installments: 3,
	}, today)
	require.NoError(t, err)
	assert.Equal(t, mandate, o.MandateID)
	assert.Equal(t, 3, o.InstallmentCount)
	assert.Equal(t, today, o.ReportDate)
	assert.Equal(t, types.MustPeriod(2024, 6), o.FirstPeriod())

	o, err = oneOffFromOptions(options{
		mandate:      mandate.String(),
		concept:      "Vidrio",
		value:        "90000",
		installments: 3,
		period:       "2024-08",
		reportedOn:   "2024-06-01",
	}, today)
	require.NoError(t, err)
	assert.Equal(t, types.MustPeriod(2024, 8), o.FirstPeriod())
	assert.Equal(t, types.NewDate(2024, time.June, 1), o.ReportDate)

	_, err = oneOffFromOptions(options{mandate: mandate.String(), value: "abc"}, today)
	assert.Error(t, err)
}

func TestRecurringFromOptions(t *testing.T) {
	d, first, err := recurringFromOptions(options{
		mandate: id.New().String(),
		concept: "Administración",
		value:   "150000",
		start:   "2024-01-01",
		end:     "2024-12-31",
	})
	require.NoError(t, err)
	assert.Equal(t, types.NewDate(2024, time.December, 31), d.EndDate)
	assert.Equal(t, "150000", first.Value.String())
	assert.Equal(t, d.StartDate, first.EffectiveFrom)

	_, _, err = recurringFromOptions(options{mandate: id.New().String(), value: "1", start: "2024-13-01", end: "2024-12-31"})
	assert.Error(t, err)
}
