package memory

import (
	"context"
	"sort"

	"arriendos/internal/core/apperror"
	"arriendos/internal/core/id"
	"arriendos/internal/domain/inspection"
)

// InspectionRepo implements inspection.Repository.
type InspectionRepo struct {
	store *Store
}

// NewInspectionRepo creates an inspection repository over the store.
func NewInspectionRepo(store *Store) *InspectionRepo {
	return &InspectionRepo{store: store}
}

var _ inspection.Repository = (*InspectionRepo)(nil)

func (r *InspectionRepo) CreateTemplate(ctx context.Context, t *inspection.Template) error {
	return r.store.write(func(st *state) error {
		for _, existing := range st.templates {
			if existing.TenantID == t.TenantID && existing.EnvironmentType == t.EnvironmentType && existing.Name == t.Name {
				return apperror.NewDuplicate("item template", "name", t.Name)
			}
		}
		st.templates[t.ID] = *t
		return nil
	})
}

func (r *InspectionRepo) ListTemplates(ctx context.Context, tenantID id.ID, envType inspection.EnvironmentType) ([]*inspection.Template, error) {
	var out []*inspection.Template
	r.store.read(func(st *state) {
		for _, t := range st.templates {
			if t.TenantID == tenantID && t.EnvironmentType == envType {
				t := t
				out = append(out, &t)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *InspectionRepo) CreateEnvironment(ctx context.Context, e *inspection.Environment) error {
	return r.store.write(func(st *state) error {
		st.environments[e.ID] = *e
		return nil
	})
}

func (r *InspectionRepo) GetEnvironment(ctx context.Context, environmentID id.ID) (*inspection.Environment, error) {
	var (
		e  inspection.Environment
		ok bool
	)
	r.store.read(func(st *state) { e, ok = st.environments[environmentID] })
	if !ok {
		return nil, apperror.NewNotFound("environment", environmentID)
	}
	return &e, nil
}

func (r *InspectionRepo) CreateItems(ctx context.Context, items []*inspection.Item) error {
	return r.store.write(func(st *state) error {
		for _, item := range items {
			st.items[item.ID] = *item
		}
		return nil
	})
}

func (r *InspectionRepo) GetItem(ctx context.Context, itemID id.ID) (*inspection.Item, error) {
	var (
		item inspection.Item
		ok   bool
	)
	r.store.read(func(st *state) { item, ok = st.items[itemID] })
	if !ok {
		return nil, apperror.NewNotFound("item", itemID)
	}
	return &item, nil
}

func (r *InspectionRepo) UpdateItem(ctx context.Context, item *inspection.Item) error {
	return r.store.write(func(st *state) error {
		if _, ok := st.items[item.ID]; !ok {
			return apperror.NewNotFound("item", item.ID)
		}
		st.items[item.ID] = *item
		return nil
	})
}

func (r *InspectionRepo) ListItems(ctx context.Context, environmentID id.ID) ([]*inspection.Item, error) {
	var out []*inspection.Item
	r.store.read(func(st *state) {
		for _, item := range st.items {
			if item.EnvironmentID == environmentID {
				item := item
				out = append(out, &item)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
