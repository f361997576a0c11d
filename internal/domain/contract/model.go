// Package contract models management mandates, leases, their vigencies and the annual
// CPI table used to index rent on renewal.
package contract

import (
	"context"
	"time"

	"arriendos/internal/core/apperror"
	"arriendos/internal/core/entity"
	"arriendos/internal/core/id"
	"arriendos/internal/core/types"
)

// Status is the contract lifecycle state.
type Status string

const (
	StatusDraft      Status = "BORRADOR"
	StatusFinalized  Status = "FINALIZADO"
	StatusActive     Status = "VIGENTE"
	StatusTerminated Status = "TERMINADO"
	StatusCancelled  Status = "CANCELADO"
)

// transitions lists the allowed target states per source state.
var transitions = map[Status][]Status{
	StatusDraft:     {StatusFinalized, StatusCancelled},
	StatusFinalized: {StatusActive, StatusCancelled},
	StatusActive:    {StatusTerminated},
}

// CanTransition reports whether a contract may move from s to target.
func (s Status) CanTransition(target Status) bool {
	for _, t := range transitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// IsClosed reports whether no further transitions exist.
func (s Status) IsClosed() bool {
	return s == StatusTerminated || s == StatusCancelled
}

type Periodicity string

const (
	PeriodicityMonthly    Periodicity = "MENSUAL"
	PeriodicityQuarterly  Periodicity = "TRIMESTRAL"
	PeriodicitySemiannual Periodicity = "SEMESTRAL"
	PeriodicityAnnual     Periodicity = "ANUAL"
)

type Use string

const (
	UseResidential Use = "VIVIENDA"
	UseCommercial  Use = "COMERCIAL"
)

// IncrementType selects how rent is indexed on renewal.
type IncrementType string

const (
	IncrementCPI           IncrementType = "IPC"
	IncrementFixedPercent  IncrementType = "PORCENTAJE_FIJO"
	IncrementCPIPlusPoints IncrementType = "IPC_MAS_PUNTOS"
)

// Terms are the conditions shared by mandates and leases.
type Terms struct {
	PropertyID     id.ID         `db:"property_id" json:"propertyId"`
	Status         Status        `db:"status" json:"status"`
	Periodicity    Periodicity   `db:"periodicity" json:"periodicity"`
	Use            Use           `db:"use_type" json:"use"`
	AutoRenewal    bool          `db:"auto_renewal" json:"autoRenewal"`
	NoticeMonths   int           `db:"notice_months" json:"noticeMonths"`
	IncrementType  IncrementType `db:"increment_type" json:"incrementType"`
	IncrementValue types.Percent `db:"increment_value" json:"incrementValue"`
	Notes          string        `db:"notes" json:"notes,omitempty"`
}

// DefaultTerms returns a draft, monthly, residential, CPI-indexed set of terms.
func DefaultTerms(propertyID id.ID) Terms {
	return Terms{
		PropertyID:    propertyID,
		Status:        StatusDraft,
		Periodicity:   PeriodicityMonthly,
		Use:           UseResidential,
		AutoRenewal:   true,
		NoticeMonths:  3,
		IncrementType: IncrementCPI,
	}
}

func (t Terms) validate() error {
	if id.IsNil(t.PropertyID) {
		return apperror.NewValidation("property is required")
	}
	switch t.Periodicity {
	case PeriodicityMonthly, PeriodicityQuarterly, PeriodicitySemiannual, PeriodicityAnnual:
	default:
		return apperror.NewValidation("unknown periodicity").WithDetail("periodicity", t.Periodicity)
	}
	switch t.Use {
	case UseResidential, UseCommercial:
	default:
		return apperror.NewValidation("unknown use").WithDetail("use", t.Use)
	}
	switch t.IncrementType {
	case IncrementCPI:
	case IncrementFixedPercent, IncrementCPIPlusPoints:
		if !types.ValidPercent(t.IncrementValue) || !types.HasMoneyScale(t.IncrementValue) {
			return apperror.NewValidation("increment value must be between 0 and 100 with two decimals")
		}
	default:
		return apperror.NewValidation("unknown increment type").WithDetail("increment_type", t.IncrementType)
	}
	if t.NoticeMonths < 0 {
		return apperror.NewValidation("notice months cannot be negative")
	}
	return nil
}

// Mandate is the management agreement between the agency and a property owner.
// Settlements are computed per mandate.
type Mandate struct {
	entity.BaseEntity
	Terms

	OwnerID           id.ID         `db:"owner_id" json:"ownerId"`
	CommissionPercent types.Percent `db:"commission_percent" json:"commissionPercent"`
	// CutoffDay is informational: it does not gate which obligations a settlement consumes.
	CutoffDay                int  `db:"cutoff_day" json:"cutoffDay"`
	AssumesTaxes             bool `db:"assumes_taxes" json:"assumesTaxes"`
	AgencyPaysAdministration bool `db:"agency_pays_administration" json:"agencyPaysAdministration"`
}

// DefaultCutoffDay is used when a mandate is created without one.
const DefaultCutoffDay = 5

// Validate implements entity.Validatable.
func (m *Mandate) Validate(ctx context.Context) error {
	if err := m.Terms.validate(); err != nil {
		return err
	}
	if id.IsNil(m.OwnerID) {
		return apperror.NewValidation("owner is required")
	}
	if !types.ValidPercent(m.CommissionPercent) {
		return apperror.NewValidation("commission percent must be between 0 and 100").
			WithDetail("commission_percent", m.CommissionPercent.String())
	}
	if !types.HasMoneyScale(m.CommissionPercent) {
		return apperror.NewValidation("commission percent has more than two decimals").
			WithDetail("commission_percent", m.CommissionPercent.String())
	}
	if m.CutoffDay < 1 || m.CutoffDay > 28 {
		return apperror.NewValidation("cutoff day must be between 1 and 28").WithDetail("cutoff_day", m.CutoffDay)
	}
	return nil
}

// Lease is the rental agreement with a lessee, administered under a mandate.
type Lease struct {
	entity.BaseEntity
	Terms

	MandateID   id.ID `db:"mandate_id" json:"mandateId"`
	LesseeID    id.ID `db:"lessee_id" json:"lesseeId"`
	PaymentDays int   `db:"payment_days" json:"paymentDays"`
	Prorated    bool  `db:"prorated" json:"prorated"`
}

// Validate implements entity.Validatable.
func (l *Lease) Validate(ctx context.Context) error {
	if err := l.Terms.validate(); err != nil {
		return err
	}
	if id.IsNil(l.MandateID) {
		return apperror.NewValidation("mandate is required")
	}
	if id.IsNil(l.LesseeID) {
		return apperror.NewValidation("lessee is required")
	}
	if l.PaymentDays < 0 {
		return apperror.NewValidation("payment days cannot be negative")
	}
	return nil
}

type VigencyKind string

const (
	VigencyInitial VigencyKind = "INICIAL"
	VigencyRenewal VigencyKind = "RENOVACION"
)

// Vigency is one term of a lease with the rent agreed for it.
type Vigency struct {
	entity.BaseEntity

	LeaseID   id.ID       `db:"lease_id" json:"leaseId"`
	Kind      VigencyKind `db:"kind" json:"kind"`
	StartDate time.Time   `db:"start_date" json:"startDate"`
	EndDate   time.Time   `db:"end_date" json:"endDate"`
	Rent      types.Money `db:"rent" json:"rent"`
}

// Validate implements entity.Validatable.
func (v *Vigency) Validate(ctx context.Context) error {
	if v.Kind != VigencyInitial && v.Kind != VigencyRenewal {
		return apperror.NewValidation("unknown vigency kind").WithDetail("kind", v.Kind)
	}
	if v.EndDate.Before(v.StartDate) {
		return apperror.NewValidation("vigency ends before it starts")
	}
	if !v.Rent.IsPositive() {
		return apperror.NewValidation("rent must be positive")
	}
	if !types.HasMoneyScale(v.Rent) {
		return apperror.NewValidation("rent has more than two decimals").WithDetail("rent", v.Rent.String())
	}
	return nil
}

// Covers reports whether day falls inside the vigency (inclusive).
func (v *Vigency) Covers(day time.Time) bool {
	d := types.Date(day)
	return !d.Before(types.Date(v.StartDate)) && !d.After(types.Date(v.EndDate))
}

func (v *Vigency) overlaps(o *Vigency) bool {
	return !types.Date(v.StartDate).After(types.Date(o.EndDate)) && !types.Date(o.StartDate).After(types.Date(v.EndDate))
}

// AnnualCPI is the consumer price index variation published for a year.
type AnnualCPI struct {
	Year  int           `db:"year" json:"year"`
	Value types.Percent `db:"value" json:"value"`
}
