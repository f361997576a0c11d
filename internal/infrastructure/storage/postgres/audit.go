package postgres

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"arriendos/internal/core/id"
	"arriendos/internal/domain/audit"
)

// AuditStore persists audit entries in sys_audit.
type AuditStore struct {
	txManager *TxManager
}

var _ audit.Store = (*AuditStore)(nil)

// NewAuditStore creates an audit store.
func NewAuditStore(txManager *TxManager) *AuditStore {
	return &AuditStore{txManager: txManager}
}

// Insert writes the entry in the ambient transaction, so it commits or rolls back
// with the change it describes.
func (s *AuditStore) Insert(ctx context.Context, e audit.Entry) error {
	var changes any
	if len(e.Changes) > 0 {
		changes = string(e.Changes)
	}
	sql, args, err := Builder.Insert("sys_audit").
		Columns("id", "tenant_id", "entity_type", "entity_id", "action",
			"changes", "changes_compressed", "compression_algo", "created_at").
		Values(e.ID, e.TenantID, e.EntityType, e.EntityID, string(e.Action),
			changes, e.ChangesCompressed, string(e.CompressionAlgo), e.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build audit insert: %w", err)
	}
	if _, err := s.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// History returns an entity's entries oldest first.
func (s *AuditStore) History(ctx context.Context, tenantID id.ID, entityType string, entityID id.ID) ([]audit.Entry, error) {
	sql, args, err := historyQuery(tenantID, entityType, entityID).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build audit history: %w", err)
	}
	var entries []audit.Entry
	if err := pgxscan.Select(ctx, s.txManager.GetQuerier(ctx), &entries, sql, args...); err != nil {
		return nil, fmt.Errorf("select audit history: %w", err)
	}
	return entries, nil
}

func historyQuery(tenantID id.ID, entityType string, entityID id.ID) squirrel.SelectBuilder {
	return Builder.Select("id", "tenant_id", "entity_type", "entity_id", "action",
		"changes", "changes_compressed", "compression_algo", "created_at").
		From("sys_audit").
		Where(squirrel.Eq{"tenant_id": tenantID, "entity_type": entityType, "entity_id": entityID}).
		OrderBy("created_at", "id")
}
