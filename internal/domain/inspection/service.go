package inspection

import (
	"context"
	"fmt"
	"io"
	"strings"

	"arriendos/internal/core/apperror"
	"arriendos/internal/core/entity"
	"arriendos/internal/core/id"
	"arriendos/internal/core/tx"
	"arriendos/internal/domain"
	"arriendos/pkg/logger"
)

// Service maintains the item catalog and the inspected environments.
type Service struct {
	repo      Repository
	txManager tx.Manager
}

// NewService creates an inspection service.
func NewService(repo Repository, txManager tx.Manager) *Service {
	return &Service{repo: repo, txManager: txManager}
}

// DefineTemplate adds an item to the tenant's catalog.
func (s *Service) DefineTemplate(ctx context.Context, tenantID id.ID, envType EnvironmentType, name string) (*Template, error) {
	t := &Template{
		BaseEntity:      entity.NewBaseEntity(tenantID),
		EnvironmentType: envType,
		Name:            strings.TrimSpace(name),
	}
	if err := t.Validate(ctx); err != nil {
		return nil, domain.NormalizeValidationErr(err)
	}
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.CreateTemplate(ctx, t)
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Templates lists the tenant's catalog entries for an environment type.
func (s *Service) Templates(ctx context.Context, tenantID id.ID, envType EnvironmentType) ([]*Template, error) {
	return s.repo.ListTemplates(ctx, tenantID, envType)
}

// LoadCatalog defines every template of a YAML catalog, skipping entries the tenant
// already has. It returns how many were created.
func (s *Service) LoadCatalog(ctx context.Context, tenantID id.ID, r io.Reader) (int, error) {
	catalog, err := ParseCatalog(r)
	if err != nil {
		return 0, apperror.NewValidation(err.Error())
	}
	created := 0
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		known := make(map[EnvironmentType]map[string]bool)
		for _, entry := range catalog.Entries() {
			names, ok := known[entry.EnvironmentType]
			if !ok {
				existing, err := s.repo.ListTemplates(ctx, tenantID, entry.EnvironmentType)
				if err != nil {
					return fmt.Errorf("list templates: %w", err)
				}
				names = make(map[string]bool, len(existing))
				for _, t := range existing {
					names[t.Name] = true
				}
				known[entry.EnvironmentType] = names
			}
			name := strings.TrimSpace(entry.Name)
			if names[name] {
				continue
			}
			if _, err := s.DefineTemplate(ctx, tenantID, entry.EnvironmentType, name); err != nil {
				return err
			}
			names[name] = true
			created++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	logger.Info(ctx, "item catalog loaded", "tenant_id", tenantID, "created", created)
	return created, nil
}

// InstantiateItems copies the tenant's templates for the environment's type into new
// items rated good. It runs once, when the environment is created.
func (s *Service) InstantiateItems(ctx context.Context, tenantID id.ID, env *Environment) ([]*Item, error) {
	if err := entity.EnsureTenant("environment", tenantID, env); err != nil {
		return nil, err
	}
	templates, err := s.repo.ListTemplates(ctx, tenantID, env.Type)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	items := make([]*Item, len(templates))
	for i, t := range templates {
		items[i] = &Item{
			BaseEntity:    entity.NewBaseEntity(tenantID),
			EnvironmentID: env.ID,
			Name:          t.Name,
			Condition:     ConditionGood,
		}
	}
	if len(items) == 0 {
		return items, nil
	}
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.CreateItems(ctx, items)
	})
	if err != nil {
		return nil, fmt.Errorf("create items: %w", err)
	}
	return items, nil
}

// CreateEnvironment stores the environment and its instantiated items atomically.
func (s *Service) CreateEnvironment(ctx context.Context, tenantID id.ID, env *Environment) ([]*Item, error) {
	if id.IsNil(env.ID) {
		env.BaseEntity = entity.NewBaseEntity(tenantID)
	}
	if err := env.Validate(ctx); err != nil {
		return nil, domain.NormalizeValidationErr(err)
	}
	var items []*Item
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.CreateEnvironment(ctx, env); err != nil {
			return fmt.Errorf("create environment: %w", err)
		}
		var err error
		items, err = s.InstantiateItems(ctx, tenantID, env)
		return err
	})
	if err != nil {
		return nil, err
	}
	logger.Debug(ctx, "environment created",
		"tenant_id", tenantID,
		"environment_id", env.ID,
		"type", env.Type,
		"items", len(items),
	)
	return items, nil
}

func (s *Service) getEnvironment(ctx context.Context, tenantID, environmentID id.ID) (*Environment, error) {
	env, err := s.repo.GetEnvironment(ctx, environmentID)
	if err != nil {
		return nil, domain.NormalizeGetErr(err, "environment", environmentID)
	}
	if env.TenantID != tenantID {
		return nil, apperror.NewNotFound("environment", environmentID)
	}
	return env, nil
}

// AddCustomItem adds an item that has no catalog template.
func (s *Service) AddCustomItem(ctx context.Context, tenantID, environmentID id.ID, item *Item) error {
	item.BaseEntity = entity.NewBaseEntity(tenantID)
	item.EnvironmentID = environmentID
	item.Custom = true
	if item.Condition == "" {
		item.Condition = ConditionGood
	}
	if err := item.Validate(ctx); err != nil {
		return domain.NormalizeValidationErr(err)
	}
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.getEnvironment(ctx, tenantID, environmentID); err != nil {
			return err
		}
		return s.repo.CreateItems(ctx, []*Item{item})
	})
}

// UpdateItem edits an item in place.
func (s *Service) UpdateItem(ctx context.Context, tenantID, itemID id.ID, upd ItemUpdate) (*Item, error) {
	var item *Item
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		item, err = s.repo.GetItem(ctx, itemID)
		if err != nil {
			return domain.NormalizeGetErr(err, "item", itemID)
		}
		if item.TenantID != tenantID {
			return apperror.NewNotFound("item", itemID)
		}
		upd.apply(item)
		if err := item.Validate(ctx); err != nil {
			return domain.NormalizeValidationErr(err)
		}
		return s.repo.UpdateItem(ctx, item)
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// ListItems returns the environment's items.
func (s *Service) ListItems(ctx context.Context, tenantID, environmentID id.ID) ([]*Item, error) {
	if _, err := s.getEnvironment(ctx, tenantID, environmentID); err != nil {
		return nil, err
	}
	return s.repo.ListItems(ctx, environmentID)
}
