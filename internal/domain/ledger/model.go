// Package ledger keeps the owner-side obligations a settlement consumes: recurring
// discounts with a value history, their monthly records, and one-off discounts split
// into installments.
package ledger

import (
	"context"
	"sort"
	"time"

	"arriendos/internal/core/apperror"
	"arriendos/internal/core/entity"
	"arriendos/internal/core/id"
	"arriendos/internal/core/types"
)

// Status of a monthly record or installment.
type Status string

const (
	StatusPending Status = "PENDING"
	StatusApplied Status = "APPLIED"
)

// RecurringDischarge is an owner discount charged every month of its validity window.
type RecurringDischarge struct {
	entity.BaseEntity

	MandateID id.ID     `db:"mandate_id" json:"mandateId"`
	Concept   string    `db:"concept" json:"concept"`
	StartDate time.Time `db:"start_date" json:"startDate"`
	EndDate   time.Time `db:"end_date" json:"endDate"`

	// History is loaded separately, newest first.
	History []ValueEntry `db:"-" json:"history"`
}

// Validate implements entity.Validatable.
func (d *RecurringDischarge) Validate(ctx context.Context) error {
	if id.IsNil(d.MandateID) {
		return apperror.NewValidation("mandate is required")
	}
	if d.Concept == "" {
		return apperror.NewValidation("concept is required")
	}
	if d.EndDate.Before(d.StartDate) {
		return apperror.NewValidation("validity window ends before it starts")
	}
	return nil
}

// ActiveIn reports whether the validity window shares a day with the period.
func (d *RecurringDischarge) ActiveIn(p types.Period) bool {
	return p.Overlaps(d.StartDate, d.EndDate)
}

// ValueFor returns the value in effect for the period: the history entry with the
// latest effective date on or before the first day of the month.
func (d *RecurringDischarge) ValueFor(p types.Period) (types.Money, error) {
	first := p.FirstDay()
	var best *ValueEntry
	for i := range d.History {
		e := &d.History[i]
		if types.Date(e.EffectiveFrom).After(first) {
			continue
		}
		if best == nil || e.EffectiveFrom.After(best.EffectiveFrom) {
			best = e
		}
	}
	if best != nil {
		return best.Value, nil
	}
	if d.ActiveIn(p) {
		return types.Zero(), apperror.NewNoApplicableValue(d.ID, p.String())
	}
	return types.Zero(), nil
}

// SortHistory orders entries newest first.
func (d *RecurringDischarge) SortHistory() {
	sort.SliceStable(d.History, func(i, j int) bool {
		return d.History[i].EffectiveFrom.After(d.History[j].EffectiveFrom)
	})
}

// ValueEntry is one step of a recurring discount's value history.
type ValueEntry struct {
	ID            id.ID       `db:"id" json:"id"`
	DischargeID   id.ID       `db:"discharge_id" json:"dischargeId"`
	Value         types.Money `db:"value" json:"value"`
	EffectiveFrom time.Time   `db:"effective_from" json:"effectiveFrom"`
	CreatedAt     time.Time   `db:"created_at" json:"createdAt"`
}

func (e ValueEntry) validate() error {
	if e.Value.IsNegative() {
		return apperror.NewValidation("discount value cannot be negative")
	}
	if !types.HasMoneyScale(e.Value) {
		return apperror.NewValidation("discount value has more than two decimals").
			WithDetail("value", e.Value.String())
	}
	if e.EffectiveFrom.IsZero() {
		return apperror.NewValidation("effective date is required")
	}
	return nil
}

// MonthlyRecord freezes the value of a recurring discount for one month.
type MonthlyRecord struct {
	entity.BaseEntity
	types.Period

	DischargeID id.ID       `db:"discharge_id" json:"dischargeId"`
	MandateID   id.ID       `db:"mandate_id" json:"mandateId"`
	Value       types.Money `db:"value" json:"value"`
	Status      Status      `db:"status" json:"status"`
}

// OneOffDischarge is a non-programmed discount reported once and charged in installments.
type OneOffDischarge struct {
	entity.BaseEntity

	MandateID        id.ID       `db:"mandate_id" json:"mandateId"`
	Concept          string      `db:"concept" json:"concept"`
	ValueTotal       types.Money `db:"value_total" json:"valueTotal"`
	InstallmentCount int         `db:"installment_count" json:"installmentCount"`
	ReportDate       time.Time   `db:"report_date" json:"reportDate"`
	FirstYear        int         `db:"first_year" json:"firstYear"`
	FirstMonth       time.Month  `db:"first_month" json:"firstMonth"`

	// Split optionally overrides the equal division. Not persisted.
	Split []types.Money `db:"-" json:"split,omitempty"`
}

// FirstPeriod is the month the first installment is charged in. It defaults to the
// report date's month.
func (o *OneOffDischarge) FirstPeriod() types.Period {
	if o.FirstYear == 0 {
		return types.PeriodOf(o.ReportDate)
	}
	return types.Period{Year: o.FirstYear, Month: o.FirstMonth}
}

// Validate implements entity.Validatable.
func (o *OneOffDischarge) Validate(ctx context.Context) error {
	if id.IsNil(o.MandateID) {
		return apperror.NewValidation("mandate is required")
	}
	if o.Concept == "" {
		return apperror.NewValidation("concept is required")
	}
	if !o.ValueTotal.IsPositive() {
		return apperror.NewValidation("total value must be positive")
	}
	if !types.HasMoneyScale(o.ValueTotal) {
		return apperror.NewValidation("total value has more than two decimals")
	}
	if o.InstallmentCount < 1 {
		return apperror.NewValidation("installment count must be at least 1").
			WithDetail("installment_count", o.InstallmentCount)
	}
	if o.ReportDate.IsZero() {
		return apperror.NewValidation("report date is required")
	}
	if err := o.FirstPeriod().Validate(); err != nil {
		return apperror.NewValidation(err.Error())
	}
	return nil
}

// Installment is one monthly piece of a one-off discount.
type Installment struct {
	entity.BaseEntity
	types.Period

	DischargeID id.ID       `db:"discharge_id" json:"dischargeId"`
	MandateID   id.ID       `db:"mandate_id" json:"mandateId"`
	Number      int         `db:"number" json:"number"`
	Value       types.Money `db:"value" json:"value"`
	Status      Status      `db:"status" json:"status"`
}

// Pending is what a settlement consumes for one mandate and period.
type Pending struct {
	Records      []*MonthlyRecord
	Installments []*Installment
}

// TotalRecurring sums the monthly records.
func (p Pending) TotalRecurring() types.Money {
	total := types.Zero()
	for _, r := range p.Records {
		total = total.Add(r.Value)
	}
	return total
}

// TotalOneOff sums the installments.
func (p Pending) TotalOneOff() types.Money {
	total := types.Zero()
	for _, i := range p.Installments {
		total = total.Add(i.Value)
	}
	return total
}

// RecordIDs returns the monthly record ids.
func (p Pending) RecordIDs() []id.ID {
	ids := make([]id.ID, len(p.Records))
	for i, r := range p.Records {
		ids[i] = r.ID
	}
	return ids
}

// InstallmentIDs returns the installment ids.
func (p Pending) InstallmentIDs() []id.ID {
	ids := make([]id.ID, len(p.Installments))
	for i, inst := range p.Installments {
		ids[i] = inst.ID
	}
	return ids
}
