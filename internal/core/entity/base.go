// Package entity holds the fields and behaviour shared by every tenant-owned record.
package entity

import (
	"context"
	"time"

	"arriendos/internal/core/apperror"
	"arriendos/internal/core/id"
)

// Validatable is implemented by entities that support self-validation.
// Validation checks internal invariants (without database access).
type Validatable interface {
	// Validate checks entity invariants.
	// Returns nil if valid, AppError with details otherwise.
	Validate(ctx context.Context) error
}

// TenantOwned is implemented by every record that carries a tenant.
type TenantOwned interface {
	GetTenantID() id.ID
}

// BaseEntity contains common fields for all persisted records.
type BaseEntity struct {
	// ID is the primary key (UUIDv7)
	ID id.ID `db:"id" json:"id"`

	// TenantID is the owning real-estate agency
	TenantID id.ID `db:"tenant_id" json:"tenantId"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// NewBaseEntity creates a new BaseEntity with generated ID for the tenant.
func NewBaseEntity(tenantID id.ID) BaseEntity {
	return BaseEntity{
		ID:        id.New(),
		TenantID:  tenantID,
		CreatedAt: time.Now().UTC(),
	}
}

// GetTenantID implements TenantOwned.
func (b BaseEntity) GetTenantID() id.ID {
	return b.TenantID
}

// EnsureTenant fails with INCONSISTENT_TENANT when rec does not belong to tenantID.
func EnsureTenant(entityName string, tenantID id.ID, rec TenantOwned) error {
	if rec.GetTenantID() != tenantID {
		return apperror.NewInconsistentTenant(entityName, tenantID.String(), rec.GetTenantID().String())
	}
	return nil
}
