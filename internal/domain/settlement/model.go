// Package settlement computes and stores the monthly owner payout of a mandate.
package settlement

import (
	"time"

	"arriendos/internal/core/entity"
	"arriendos/internal/core/id"
	"arriendos/internal/core/types"
)

// Settlement is the immutable payout snapshot of a mandate for one month. Only Paid
// and PaymentDate change after creation.
type Settlement struct {
	entity.BaseEntity
	types.Period

	MandateID id.ID `db:"mandate_id" json:"mandateId"`

	RentCollected  types.Money `db:"rent_collected" json:"rentCollected"`
	TotalRecurring types.Money `db:"total_recurring" json:"totalRecurring"`
	TotalOneOff    types.Money `db:"total_one_off" json:"totalOneOff"`
	Commission     types.Money `db:"commission" json:"commission"`
	VAT            types.Money `db:"vat" json:"vat"`
	NetPayable     types.Money `db:"net_payable" json:"netPayable"`

	// Rates in force when the settlement was computed.
	CommissionPercent types.Percent `db:"commission_percent" json:"commissionPercent"`
	VATPercent        types.Percent `db:"vat_percent" json:"vatPercent"`
	ChargesVAT        bool          `db:"charges_vat" json:"chargesVat"`

	Paid        bool       `db:"paid" json:"paid"`
	PaymentDate *time.Time `db:"payment_date" json:"paymentDate,omitempty"`

	// Consumed rows, stored in the junction tables.
	RecordIDs      []id.ID `db:"-" json:"recordIds"`
	InstallmentIDs []id.ID `db:"-" json:"installmentIds"`
}

// Breakdown returns the stored amounts as a calculation result.
func (s *Settlement) Breakdown() Breakdown {
	return Breakdown{
		RentCollected:  s.RentCollected,
		TotalRecurring: s.TotalRecurring,
		TotalOneOff:    s.TotalOneOff,
		Commission:     s.Commission,
		VAT:            s.VAT,
		NetPayable:     s.NetPayable,
	}
}

// Config holds the per-tenant settlement parameters.
type Config struct {
	TenantID           id.ID         `db:"tenant_id" json:"tenantId" yaml:"-"`
	ChargesVAT         bool          `db:"charges_vat" json:"chargesVat" yaml:"charges_vat"`
	VATPercent         types.Percent `db:"vat_percent" json:"vatPercent" yaml:"vat_percent"`
	DefaultPaymentDays int           `db:"default_payment_days" json:"defaultPaymentDays" yaml:"default_payment_days"`
	RequiresEInvoice   bool          `db:"requires_e_invoice" json:"requiresEInvoice" yaml:"requires_e_invoice"`
}

// DefaultConfig is used for tenants without a stored configuration.
func DefaultConfig(tenantID id.ID) Config {
	return Config{
		TenantID:           tenantID,
		ChargesVAT:         true,
		VATPercent:         types.MustMoney("19.00"),
		DefaultPaymentDays: 5,
	}
}
