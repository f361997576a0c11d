package settlement

import (
	"context"
	"time"

	"arriendos/internal/core/id"
	"arriendos/internal/core/types"
	"arriendos/internal/domain/audit"
	"arriendos/internal/domain/contract"
	"arriendos/internal/domain/ledger"
)

// Repository persists settlements and their links to consumed obligations.
type Repository interface {
	// Create inserts the settlement and its junction rows. A unique violation on
	// (mandate, year, month) is reported as DUPLICATE_SETTLEMENT.
	Create(ctx context.Context, s *Settlement) error
	// Get loads the settlement with its linked ids.
	Get(ctx context.Context, settlementID id.ID) (*Settlement, error)
	ExistsForPeriod(ctx context.Context, mandateID id.ID, period types.Period) (bool, error)
	ListByPeriod(ctx context.Context, tenantID id.ID, period types.Period) ([]*Settlement, error)
	// MarkPaid sets the paid flag if unset and returns how many rows changed.
	MarkPaid(ctx context.Context, settlementID id.ID, paymentDate time.Time) (int64, error)
}

// ConfigRepository stores per-tenant settlement configuration.
type ConfigRepository interface {
	// GetConfig returns NOT_FOUND when the tenant has no configuration.
	GetConfig(ctx context.Context, tenantID id.ID) (*Config, error)
	SaveConfig(ctx context.Context, cfg Config) error
}

// MandateLocker reads a mandate under a row lock held until the transaction ends.
type MandateLocker interface {
	LockMandate(ctx context.Context, mandateID id.ID) (*contract.Mandate, error)
}

// Obligations is the part of the ledger a settlement consumes.
type Obligations interface {
	CollectPending(ctx context.Context, tenantID, mandateID id.ID, period types.Period) (ledger.Pending, error)
	Apply(ctx context.Context, p ledger.Pending) error
	Linked(ctx context.Context, recordIDs, installmentIDs []id.ID) (ledger.Pending, error)
}

// Auditor records settlement snapshots.
type Auditor interface {
	LogChange(ctx context.Context, tenantID id.ID, entityType string, entityID id.ID, action audit.Action, snapshot any) error
}

// Recorder observes computations for metrics.
type Recorder interface {
	ObserveCompute(outcome string, elapsed time.Duration)
	ObservePaid()
}
