package memory

import (
	"context"

	"arriendos/internal/core/id"
	"arriendos/internal/domain/audit"
)

// AuditStore implements audit.Store.
type AuditStore struct {
	store *Store
}

// NewAuditStore creates an audit store over the store.
func NewAuditStore(store *Store) *AuditStore {
	return &AuditStore{store: store}
}

var _ audit.Store = (*AuditStore)(nil)

func (a *AuditStore) Insert(ctx context.Context, e audit.Entry) error {
	return a.store.write(func(st *state) error {
		st.audit = append(st.audit, e)
		return nil
	})
}

func (a *AuditStore) History(ctx context.Context, tenantID id.ID, entityType string, entityID id.ID) ([]audit.Entry, error) {
	var out []audit.Entry
	a.store.read(func(st *state) {
		for _, e := range st.audit {
			if e.TenantID == tenantID && e.EntityType == entityType && e.EntityID == entityID {
				out = append(out, e)
			}
		}
	})
	return out, nil
}
