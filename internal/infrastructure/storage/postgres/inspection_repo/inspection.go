// Package inspection_repo provides the PostgreSQL implementation of inspection.Repository.
package inspection_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"

	"arriendos/internal/core/apperror"
	"arriendos/internal/core/id"
	"arriendos/internal/domain/inspection"
	"arriendos/internal/infrastructure/storage/postgres"
)

const (
	tableTemplates    = "inventory_templates"
	tableEnvironments = "inspection_environments"
	tableItems        = "inspection_items"

	constraintTemplateName = "uq_templates_name"
)

var (
	templateCols    = postgres.Columns[inspection.Template]()
	environmentCols = postgres.Columns[inspection.Environment]()
	itemCols        = postgres.Columns[inspection.Item]()
)

// Repo implements inspection.Repository.
type Repo struct {
	txManager *postgres.TxManager
	batch     *postgres.BatchInserter
}

var _ inspection.Repository = (*Repo)(nil)

// New creates an inspection repository.
func New(txManager *postgres.TxManager) *Repo {
	return &Repo{txManager: txManager, batch: postgres.NewBatchInserter(txManager)}
}

func (r *Repo) db(ctx context.Context) postgres.Querier {
	return r.txManager.GetQuerier(ctx)
}

func (r *Repo) CreateTemplate(ctx context.Context, t *inspection.Template) error {
	_, err := postgres.Exec(ctx, r.db(ctx), postgres.InsertStruct(tableTemplates, t))
	if err != nil {
		if postgres.UniqueViolationOn(err, constraintTemplateName) {
			return apperror.NewDuplicate("item template", "name", t.Name)
		}
		return apperror.NewDatabase(fmt.Errorf("insert template: %w", err))
	}
	return nil
}

func (r *Repo) ListTemplates(ctx context.Context, tenantID id.ID, envType inspection.EnvironmentType) ([]*inspection.Template, error) {
	return postgres.SelectAll[inspection.Template](ctx, r.db(ctx), templatesQuery(tenantID, envType))
}

func templatesQuery(tenantID id.ID, envType inspection.EnvironmentType) squirrel.SelectBuilder {
	return postgres.Builder.Select(templateCols...).
		From(tableTemplates).
		Where(squirrel.Eq{"tenant_id": tenantID, "environment_type": string(envType)}).
		OrderBy("name")
}

func (r *Repo) CreateEnvironment(ctx context.Context, e *inspection.Environment) error {
	if _, err := postgres.Exec(ctx, r.db(ctx), postgres.InsertStruct(tableEnvironments, e)); err != nil {
		return apperror.NewDatabase(fmt.Errorf("insert environment: %w", err))
	}
	return nil
}

func (r *Repo) GetEnvironment(ctx context.Context, environmentID id.ID) (*inspection.Environment, error) {
	q := postgres.Builder.Select(environmentCols...).From(tableEnvironments).Where(squirrel.Eq{"id": environmentID})
	return postgres.GetOne[inspection.Environment](ctx, r.db(ctx), q, "environment", environmentID)
}

// CreateItems copies items in bulk. It must run inside a transaction.
func (r *Repo) CreateItems(ctx context.Context, items []*inspection.Item) error {
	if _, err := postgres.CopyStructs(ctx, r.batch, tableItems, items); err != nil {
		return apperror.NewDatabase(fmt.Errorf("copy items: %w", err))
	}
	return nil
}

func (r *Repo) GetItem(ctx context.Context, itemID id.ID) (*inspection.Item, error) {
	q := postgres.Builder.Select(itemCols...).From(tableItems).Where(squirrel.Eq{"id": itemID})
	return postgres.GetOne[inspection.Item](ctx, r.db(ctx), q, "item", itemID)
}

func (r *Repo) UpdateItem(ctx context.Context, item *inspection.Item) error {
	return postgres.ExecOne(ctx, r.db(ctx), updateItemQuery(item), "item", item.ID)
}

func updateItemQuery(item *inspection.Item) squirrel.UpdateBuilder {
	return postgres.Builder.Update(tableItems).
		Set("name", item.Name).
		Set("condition", string(item.Condition)).
		Set("quantity", item.Quantity).
		Set("material", item.Material).
		Set("notes", item.Notes).
		Where(squirrel.Eq{"id": item.ID})
}

func (r *Repo) ListItems(ctx context.Context, environmentID id.ID) ([]*inspection.Item, error) {
	q := postgres.Builder.Select(itemCols...).
		From(tableItems).
		Where(squirrel.Eq{"environment_id": environmentID}).
		OrderBy("name", "id")
	return postgres.SelectAll[inspection.Item](ctx, r.db(ctx), q)
}
