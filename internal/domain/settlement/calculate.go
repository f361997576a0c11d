package settlement

import (
	"arriendos/internal/core/apperror"
	"arriendos/internal/core/types"
)

// Input carries everything the payout formula depends on.
type Input struct {
	RentCollected     types.Money
	TotalRecurring    types.Money
	TotalOneOff       types.Money
	CommissionPercent types.Percent
	ChargesVAT        bool
	VATPercent        types.Percent
}

// Breakdown is the result of the payout formula.
type Breakdown struct {
	RentCollected  types.Money `json:"rentCollected"`
	TotalRecurring types.Money `json:"totalRecurring"`
	TotalOneOff    types.Money `json:"totalOneOff"`
	Commission     types.Money `json:"commission"`
	VAT            types.Money `json:"vat"`
	NetPayable     types.Money `json:"netPayable"`
}

// Calculate applies the payout formula. Commission and VAT round half-up to cents; the
// net payable is the exact difference of the rounded parts and may be negative.
func Calculate(in Input) (Breakdown, error) {
	if in.RentCollected.IsNegative() {
		return Breakdown{}, apperror.NewValidation("rent collected cannot be negative").
			WithDetail("rent_collected", in.RentCollected.String())
	}
	if !types.HasMoneyScale(in.RentCollected) {
		return Breakdown{}, apperror.NewValidation("rent collected has more than two decimals").
			WithDetail("rent_collected", in.RentCollected.String())
	}
	if !types.ValidPercent(in.CommissionPercent) || !types.HasMoneyScale(in.CommissionPercent) {
		return Breakdown{}, apperror.NewValidation("commission percent must be between 0 and 100 with two decimals")
	}
	if in.ChargesVAT && (!types.ValidPercent(in.VATPercent) || !types.HasMoneyScale(in.VATPercent)) {
		return Breakdown{}, apperror.NewValidation("VAT percent must be between 0 and 100 with two decimals")
	}

	commission := types.PercentOf(in.RentCollected, in.CommissionPercent)
	vat := types.Zero()
	if in.ChargesVAT {
		vat = types.PercentOf(commission, in.VATPercent)
	}

	return Breakdown{
		RentCollected:  in.RentCollected,
		TotalRecurring: in.TotalRecurring,
		TotalOneOff:    in.TotalOneOff,
		Commission:     commission,
		VAT:            vat,
		NetPayable:     NetPayable(in.RentCollected, in.TotalRecurring, in.TotalOneOff, commission, vat),
	}, nil
}

// NetPayable is rent minus every deduction, without rounding.
func NetPayable(rent, recurring, oneOff, commission, vat types.Money) types.Money {
	return rent.Sub(recurring).Sub(oneOff).Sub(commission).Sub(vat)
}
