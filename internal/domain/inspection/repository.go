package inspection

import (
	"context"

	"arriendos/internal/core/id"
)

// Repository persists templates, environments and items.
type Repository interface {
	// CreateTemplate returns DUPLICATE_ENTRY when (tenant, type, name) exists.
	CreateTemplate(ctx context.Context, t *Template) error
	ListTemplates(ctx context.Context, tenantID id.ID, envType EnvironmentType) ([]*Template, error)

	CreateEnvironment(ctx context.Context, e *Environment) error
	GetEnvironment(ctx context.Context, environmentID id.ID) (*Environment, error)

	// CreateItems bulk inserts items.
	CreateItems(ctx context.Context, items []*Item) error
	GetItem(ctx context.Context, itemID id.ID) (*Item, error)
	UpdateItem(ctx context.Context, item *Item) error
	ListItems(ctx context.Context, environmentID id.ID) ([]*Item, error)
}
