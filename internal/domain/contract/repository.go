package contract

import (
	"context"

	"arriendos/internal/core/id"
)

// Repository persists contracts. Lookups return apperror NOT_FOUND for missing rows.
type Repository interface {
	CreateMandate(ctx context.Context, m *Mandate) error
	GetMandate(ctx context.Context, mandateID id.ID) (*Mandate, error)
	// LockMandate reads the mandate and holds a row lock until the surrounding
	// transaction ends.
	LockMandate(ctx context.Context, mandateID id.ID) (*Mandate, error)
	UpdateMandateStatus(ctx context.Context, mandateID id.ID, status Status) error

	CreateLease(ctx context.Context, l *Lease) error
	GetLease(ctx context.Context, leaseID id.ID) (*Lease, error)
	ListLeasesByMandate(ctx context.Context, mandateID id.ID) ([]*Lease, error)
	UpdateLeaseStatus(ctx context.Context, leaseID id.ID, status Status) error

	CreateVigency(ctx context.Context, v *Vigency) error
	// ListVigencies returns the lease's vigencies ordered by start date.
	ListVigencies(ctx context.Context, leaseID id.ID) ([]*Vigency, error)

	UpsertCPI(ctx context.Context, cpi AnnualCPI) error
	GetCPI(ctx context.Context, year int) (*AnnualCPI, error)
}
