package ledger

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arriendos/internal/core/apperror"
	"arriendos/internal/core/id"
	"arriendos/internal/core/types"
)

func moneyStrings(parts []types.Money) []string {
	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = p.String()
	}
	return out
}

func TestSplitEqual_RemainderGoesToFirst(t *testing.T) {
	parts, err := SplitEqual(types.MustMoney("100000"), 3, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"33334", "33333", "33333"}, moneyStrings(parts))

	parts, err = SplitEqual(types.MustMoney("100000"), 3, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"33333.34", "33333.33", "33333.33"}, moneyStrings(parts))
}

func TestSplitEqual_SumIsExact(t *testing.T) {
	totals := []string{"0.01", "0.50", "1", "2", "99", "100000", "250000.50", "1234567.89", "3000000"}
	for _, total := range totals {
		for n := 1; n <= 50; n++ {
			for _, scale := range []int32{0, 2} {
				value := types.MustMoney(total)
				parts, err := SplitEqual(value, n, scale)
				require.NoError(t, err, "total %s n %d scale %d", total, n, scale)
				require.Len(t, parts, n)
				assert.True(t, value.Equal(types.Sum(parts...)), "total %s n %d scale %d", total, n, scale)
				for i := 1; i < n; i++ {
					assert.True(t, parts[i].Equal(parts[1]), "non-first parts must be equal")
					assert.True(t, parts[0].GreaterThanOrEqual(parts[i]))
				}
			}
		}
	}
}

func TestSplitEqual_SmallTotals(t *testing.T) {
	tests := []struct {
		total string
		n     int
		want  []string
	}{
		{"0.50", 1, []string{"0.5"}},
		{"2", 3, []string{"0.68", "0.66", "0.66"}},
		{"0.50", 3, []string{"0.18", "0.16", "0.16"}},
		{"0.02", 3, []string{"0.02", "0", "0"}},
	}
	for _, tc := range tests {
		t.Run(fmt.Sprintf("%s/%d", tc.total, tc.n), func(t *testing.T) {
			parts, err := SplitEqual(types.MustMoney(tc.total), tc.n, 0)
			require.NoError(t, err)
			assert.Equal(t, tc.want, moneyStrings(parts))
		})
	}
}

func TestSplitEqual_Rejects(t *testing.T) {
	_, err := SplitEqual(types.MustMoney("0"), 1, 0)
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	_, err = SplitEqual(types.MustMoney("100"), 0, 0)
	assert.Error(t, err)

	_, err = SplitEqual(types.MustMoney("100"), 2, 3)
	assert.Error(t, err)
}

func TestValidateSplit(t *testing.T) {
	total := types.MustMoney("1000")
	ok := []types.Money{types.MustMoney("600"), types.MustMoney("400")}
	assert.NoError(t, ValidateSplit(total, 2, ok))

	assert.Error(t, ValidateSplit(total, 3, ok))
	assert.Error(t, ValidateSplit(total, 2, []types.Money{types.MustMoney("1000"), types.MustMoney("0")}))
	assert.Error(t, ValidateSplit(total, 2, []types.Money{types.MustMoney("600"), types.MustMoney("300")}))
}

func TestInstallmentsFor_ConsecutiveMonths(t *testing.T) {
	o := &OneOffDischarge{
		MandateID:        id.New(),
		Concept:          "Plumbing repair",
		ValueTotal:       types.MustMoney("100000"),
		InstallmentCount: 3,
		ReportDate:       types.NewDate(2024, time.November, 20),
	}
	o.ID = id.New()

	items, err := InstallmentsFor(o, 0)
	require.NoError(t, err)
	require.Len(t, items, 3)

	assert.Equal(t, types.MustPeriod(2024, 11), items[0].Period)
	assert.Equal(t, types.MustPeriod(2024, 12), items[1].Period)
	assert.Equal(t, types.MustPeriod(2025, 1), items[2].Period)
	for i, inst := range items {
		assert.Equal(t, i+1, inst.Number)
		assert.Equal(t, StatusPending, inst.Status)
		assert.Equal(t, o.ID, inst.DischargeID)
		assert.Equal(t, o.MandateID, inst.MandateID)
	}
}

func TestInstallmentsFor_CustomSplitAndFirstPeriod(t *testing.T) {
	o := &OneOffDischarge{
		MandateID:        id.New(),
		Concept:          "Paint",
		ValueTotal:       types.MustMoney("90000"),
		InstallmentCount: 2,
		ReportDate:       types.NewDate(2024, time.March, 2),
		FirstYear:        2024,
		FirstMonth:       time.May,
		Split:            []types.Money{types.MustMoney("60000"), types.MustMoney("30000")},
	}
	items, err := InstallmentsFor(o, 0)
	require.NoError(t, err)
	assert.Equal(t, types.MustPeriod(2024, 5), items[0].Period)
	assert.Equal(t, "60000", items[0].Value.String())
	assert.Equal(t, "30000", items[1].Value.String())
}

func TestRecurringDischarge_ValueFor(t *testing.T) {
	d := &RecurringDischarge{
		MandateID: id.New(),
		Concept:   "Administración",
		StartDate: types.NewDate(2024, time.January, 1),
		EndDate:   types.NewDate(2024, time.December, 31),
		History: []ValueEntry{
			{Value: types.MustMoney("50000"), EffectiveFrom: types.NewDate(2024, time.January, 1)},
			{Value: types.MustMoney("55000"), EffectiveFrom: types.NewDate(2024, time.March, 1)},
		},
	}
	d.SortHistory()

	tests := []struct {
		period types.Period
		want   string
	}{
		{types.MustPeriod(2024, 1), "50000"},
		{types.MustPeriod(2024, 2), "50000"},
		{types.MustPeriod(2024, 3), "55000"},
		{types.MustPeriod(2024, 12), "55000"},
	}
	for _, tc := range tests {
		got, err := d.ValueFor(tc.period)
		require.NoError(t, err, tc.period.String())
		assert.Equal(t, tc.want, got.String(), tc.period.String())
	}
}

func TestRecurringDischarge_ValueFor_NoEntry(t *testing.T) {
	d := &RecurringDischarge{
		StartDate: types.NewDate(2024, time.January, 1),
		EndDate:   types.NewDate(2024, time.June, 30),
		History: []ValueEntry{
			{Value: types.MustMoney("50000"), EffectiveFrom: types.NewDate(2024, time.March, 1)},
		},
	}

	_, err := d.ValueFor(types.MustPeriod(2024, 2))
	assert.True(t, apperror.HasCode(err, apperror.CodeNoApplicableValue))

	got, err := d.ValueFor(types.MustPeriod(2023, 12))
	require.NoError(t, err)
	assert.True(t, got.IsZero())
}
