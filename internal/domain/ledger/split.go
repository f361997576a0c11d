package ledger

import (
	"github.com/shopspring/decimal"

	"arriendos/internal/core/apperror"
	"arriendos/internal/core/entity"
	"arriendos/internal/core/types"
)

// DefaultSplitScale splits one-off discounts in whole currency units.
const DefaultSplitScale int32 = 0

// SplitEqual divides total into n pieces truncated to scale fractional digits. The
// remainder is added to the first piece, so the pieces always sum to total. When the
// quotient truncates to zero at scale the split is retried in cents, and if even a
// cent is too large the first piece carries the whole total.
func SplitEqual(total types.Money, n int, scale int32) ([]types.Money, error) {
	if n < 1 {
		return nil, apperror.NewValidation("installment count must be at least 1")
	}
	if !total.IsPositive() {
		return nil, apperror.NewValidation("total value must be positive")
	}
	if scale < 0 || scale > types.MoneyScale {
		return nil, apperror.NewValidation("split scale must be between 0 and 2").WithDetail("scale", scale)
	}

	count := decimal.NewFromInt(int64(n))
	base := total.Div(count).Truncate(scale)
	if base.IsZero() {
		base = total.Div(count).Truncate(types.MoneyScale)
	}

	parts := make([]types.Money, n)
	for i := range parts {
		parts[i] = base
	}
	parts[0] = total.Sub(base.Mul(count.Sub(decimal.NewFromInt(1))))
	return parts, nil
}

// ValidateSplit checks a caller-provided split: n positive values summing to total.
func ValidateSplit(total types.Money, n int, split []types.Money) error {
	if len(split) != n {
		return apperror.NewValidation("split must have one value per installment").
			WithDetail("expected", n).
			WithDetail("actual", len(split))
	}
	for i, v := range split {
		if !v.IsPositive() {
			return apperror.NewValidation("split values must be positive").WithDetail("index", i)
		}
	}
	if sum := types.Sum(split...); !sum.Equal(total) {
		return apperror.NewValidation("split does not add up to the total").
			WithDetail("value_total", total.String()).
			WithDetail("sum", sum.String())
	}
	return nil
}

// InstallmentsFor builds the PENDING installments of a one-off discount, one per
// consecutive month starting at its first period.
func InstallmentsFor(o *OneOffDischarge, scale int32) ([]*Installment, error) {
	var parts []types.Money
	if len(o.Split) > 0 {
		if err := ValidateSplit(o.ValueTotal, o.InstallmentCount, o.Split); err != nil {
			return nil, err
		}
		parts = o.Split
	} else {
		var err error
		if parts, err = SplitEqual(o.ValueTotal, o.InstallmentCount, scale); err != nil {
			return nil, err
		}
	}

	first := o.FirstPeriod()
	out := make([]*Installment, len(parts))
	for i, v := range parts {
		out[i] = &Installment{
			BaseEntity:  entity.NewBaseEntity(o.TenantID),
			DischargeID: o.ID,
			MandateID:   o.MandateID,
			Number:      i + 1,
			Period:      first.AddMonths(i),
			Value:       v,
			Status:      StatusPending,
		}
	}
	return out, nil
}
