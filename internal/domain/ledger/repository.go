package ledger

import (
	"context"

	"arriendos/internal/core/id"
	"arriendos/internal/core/types"
	"arriendos/internal/domain/contract"
)

// Repository persists discounts and their monthly obligations.
// Lookups of single rows return apperror NOT_FOUND when missing.
type Repository interface {
	CreateRecurring(ctx context.Context, d *RecurringDischarge) error
	// GetRecurring loads the discharge with its full value history.
	GetRecurring(ctx context.Context, dischargeID id.ID) (*RecurringDischarge, error)
	AddValueEntry(ctx context.Context, e *ValueEntry) error
	// ListActiveRecurring returns the mandate's discharges whose window overlaps the
	// period, history included.
	ListActiveRecurring(ctx context.Context, mandateID id.ID, period types.Period) ([]*RecurringDischarge, error)

	GetMonthlyRecord(ctx context.Context, dischargeID id.ID, period types.Period) (*MonthlyRecord, error)
	CreateMonthlyRecord(ctx context.Context, r *MonthlyRecord) error
	// UpdateMonthlyRecordValue changes the value of a PENDING record and reports how
	// many rows changed; an APPLIED record is left untouched.
	UpdateMonthlyRecordValue(ctx context.Context, recordID id.ID, value types.Money) (int64, error)
	ListPendingRecords(ctx context.Context, mandateID id.ID, period types.Period) ([]*MonthlyRecord, error)
	GetRecordsByIDs(ctx context.Context, ids []id.ID) ([]*MonthlyRecord, error)
	// MarkRecordsApplied flips PENDING records to APPLIED and returns how many changed.
	MarkRecordsApplied(ctx context.Context, ids []id.ID) (int64, error)

	CreateOneOff(ctx context.Context, o *OneOffDischarge) error
	GetOneOff(ctx context.Context, dischargeID id.ID) (*OneOffDischarge, error)
	CreateInstallments(ctx context.Context, items []*Installment) error
	ListInstallments(ctx context.Context, dischargeID id.ID) ([]*Installment, error)
	ListPendingInstallments(ctx context.Context, mandateID id.ID, period types.Period) ([]*Installment, error)
	GetInstallmentsByIDs(ctx context.Context, ids []id.ID) ([]*Installment, error)
	// MarkInstallmentsApplied flips PENDING installments to APPLIED and returns how many changed.
	MarkInstallmentsApplied(ctx context.Context, ids []id.ID) (int64, error)
}

// MandateReader resolves the mandate a discount is attached to.
type MandateReader interface {
	GetMandate(ctx context.Context, mandateID id.ID) (*contract.Mandate, error)
}
