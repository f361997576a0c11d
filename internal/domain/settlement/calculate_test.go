package settlement

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arriendos/internal/core/apperror"
	"arriendos/internal/core/types"
)

func TestCalculate(t *testing.T) {
	tests := []struct {
		name       string
		rent       string
		recurring  string
		oneOff     string
		commPct    string
		chargesVAT bool
		vatPct     string

		wantCommission string
		wantVAT        string
		wantNet        string
	}{
		{
			name: "reference month", rent: "1800000", recurring: "150000", oneOff: "50000", commPct: "10",
			chargesVAT: true, vatPct: "19",
			wantCommission: "180000", wantVAT: "34200", wantNet: "1385800",
		},
		{
			name: "vat disabled", rent: "1800000", recurring: "150000", oneOff: "50000", commPct: "10",
			chargesVAT: false, vatPct: "19",
			wantCommission: "180000", wantVAT: "0", wantNet: "1420000",
		},
		{
			name: "no obligations", rent: "1000000", recurring: "0", oneOff: "0", commPct: "8",
			chargesVAT: true, vatPct: "19",
			wantCommission: "80000", wantVAT: "15200", wantNet: "904800",
		},
		{
			name: "negative net", rent: "500000", recurring: "450000", oneOff: "100000", commPct: "10",
			chargesVAT: true, vatPct: "19",
			wantCommission: "50000", wantVAT: "9500", wantNet: "-109500",
		},
		{
			name: "rounding at division", rent: "1234567.89", recurring: "0", oneOff: "0", commPct: "8.5",
			chargesVAT: true, vatPct: "19",
			wantCommission: "104938.27", wantVAT: "19938.27", wantNet: "1109691.35",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			b, err := Calculate(Input{
				RentCollected:     types.MustMoney(tc.rent),
				TotalRecurring:    types.MustMoney(tc.recurring),
				TotalOneOff:       types.MustMoney(tc.oneOff),
				CommissionPercent: types.MustMoney(tc.commPct),
				ChargesVAT:        tc.chargesVAT,
				VATPercent:        types.MustMoney(tc.vatPct),
			})
			require.NoError(t, err)
			assert.True(t, types.MustMoney(tc.wantCommission).Equal(b.Commission), "commission %s", b.Commission)
			assert.True(t, types.MustMoney(tc.wantVAT).Equal(b.VAT), "vat %s", b.VAT)
			assert.True(t, types.MustMoney(tc.wantNet).Equal(b.NetPayable), "net %s", b.NetPayable)

			identity := NetPayable(b.RentCollected, b.TotalRecurring, b.TotalOneOff, b.Commission, b.VAT)
			assert.True(t, identity.Equal(b.NetPayable))
		})
	}
}

func TestCalculate_RejectsInvalidInput(t *testing.T) {
	_, err := Calculate(Input{RentCollected: types.MustMoney("-1"), CommissionPercent: types.MustMoney("10")})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	_, err = Calculate(Input{RentCollected: types.MustMoney("1"), CommissionPercent: types.MustMoney("101")})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	_, err = Calculate(Input{
		RentCollected:     types.MustMoney("1"),
		CommissionPercent: types.MustMoney("10"),
		ChargesVAT:        true,
		VATPercent:        types.MustMoney("-5"),
	})
	assert.Error(t, err)
}

func TestCalculate_RejectsSubCentInput(t *testing.T) {
	tests := []struct {
		name string
		in   Input
	}{
		{"rent", Input{RentCollected: types.MustMoney("100.005"), CommissionPercent: types.MustMoney("10")}},
		{"commission", Input{RentCollected: types.MustMoney("100"), CommissionPercent: types.MustMoney("10.125")}},
		{"vat", Input{
			RentCollected:     types.MustMoney("100"),
			CommissionPercent: types.MustMoney("10"),
			ChargesVAT:        true,
			VATPercent:        types.MustMoney("19.001"),
		}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Calculate(tc.in)
			assert.True(t, apperror.HasCode(err, apperror.CodeValidation), "got %v", err)
		})
	}
}
