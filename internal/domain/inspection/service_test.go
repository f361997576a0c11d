package inspection_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arriendos/internal/core/apperror"
	"arriendos/internal/core/id"
	"arriendos/internal/domain/inspection"
	"arriendos/internal/infrastructure/storage/memory"
)

func newService() (*inspection.Service, *memory.InspectionRepo) {
	store := memory.NewStore()
	repo := memory.NewInspectionRepo(store)
	return inspection.NewService(repo, memory.NewTxManager(store)), repo
}

func defineKitchen(t *testing.T, svc *inspection.Service, tenant id.ID) {
	t.Helper()
	for _, name := range []string{"Estufa", "Mesón", "Lavaplatos"} {
		_, err := svc.DefineTemplate(context.Background(), tenant, inspection.EnvKitchen, name)
		require.NoError(t, err)
	}
}

func TestCreateEnvironment_InstantiatesTemplatesOnce(t *testing.T) {
	svc, repo := newService()
	ctx := context.Background()
	tenant := id.New()
	defineKitchen(t, svc, tenant)
	// Another tenant's catalog must not leak in.
	_, err := svc.DefineTemplate(ctx, id.New(), inspection.EnvKitchen, "Horno")
	require.NoError(t, err)

	env := &inspection.Environment{InspectionID: id.New(), Type: inspection.EnvKitchen}
	items, err := svc.CreateEnvironment(ctx, tenant, env)
	require.NoError(t, err)
	require.Len(t, items, 3)
	for _, item := range items {
		assert.Equal(t, inspection.ConditionGood, item.Condition)
		assert.False(t, item.Custom)
		assert.Equal(t, env.ID, item.EnvironmentID)
	}

	listed, err := svc.ListItems(ctx, tenant, env.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Estufa", "Lavaplatos", "Mesón"}, names(listed))

	// Adding a template later does not touch existing environments.
	_, err = svc.DefineTemplate(ctx, tenant, inspection.EnvKitchen, "Campana")
	require.NoError(t, err)
	listed, err = repo.ListItems(ctx, env.ID)
	require.NoError(t, err)
	assert.Len(t, listed, 3)
}

func TestCreateEnvironment_EmptyCatalog(t *testing.T) {
	svc, _ := newService()
	items, err := svc.CreateEnvironment(context.Background(), id.New(), &inspection.Environment{
		InspectionID: id.New(),
		Type:         inspection.EnvBalcony,
	})
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestCreateEnvironment_Validation(t *testing.T) {
	svc, _ := newService()
	_, err := svc.CreateEnvironment(context.Background(), id.New(), &inspection.Environment{
		InspectionID: id.New(),
		Type:         "GARAJE",
	})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

func TestUpdateItem_IndependentOfCatalog(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()
	tenant := id.New()
	defineKitchen(t, svc, tenant)

	env := &inspection.Environment{InspectionID: id.New(), Type: inspection.EnvKitchen}
	items, err := svc.CreateEnvironment(ctx, tenant, env)
	require.NoError(t, err)

	poor := inspection.ConditionPoor
	notes := "Quemador averiado"
	qty := 4
	updated, err := svc.UpdateItem(ctx, tenant, items[0].ID, inspection.ItemUpdate{Condition: &poor, Notes: &notes, Quantity: &qty})
	require.NoError(t, err)
	assert.Equal(t, inspection.ConditionPoor, updated.Condition)
	assert.Equal(t, 4, *updated.Quantity)

	templates, err := svc.Templates(ctx, tenant, inspection.EnvKitchen)
	require.NoError(t, err)
	assert.Len(t, templates, 3)

	bad := inspection.Condition("X")
	_, err = svc.UpdateItem(ctx, tenant, items[0].ID, inspection.ItemUpdate{Condition: &bad})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	_, err = svc.UpdateItem(ctx, id.New(), items[0].ID, inspection.ItemUpdate{Notes: &notes})
	assert.True(t, apperror.IsNotFound(err))
}

func TestAddCustomItem(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()
	tenant := id.New()
	env := &inspection.Environment{InspectionID: id.New(), Type: inspection.EnvOther}
	_, err := svc.CreateEnvironment(ctx, tenant, env)
	require.NoError(t, err)

	item := &inspection.Item{Name: "Chimenea", Material: "Ladrillo"}
	require.NoError(t, svc.AddCustomItem(ctx, tenant, env.ID, item))
	assert.True(t, item.Custom)
	assert.Equal(t, inspection.ConditionGood, item.Condition)

	err = svc.AddCustomItem(ctx, id.New(), env.ID, &inspection.Item{Name: "x"})
	assert.True(t, apperror.IsNotFound(err))
}

func TestDefineTemplate_Duplicate(t *testing.T) {
	svc, _ := newService()
	tenant := id.New()
	_, err := svc.DefineTemplate(context.Background(), tenant, inspection.EnvBedroom, "Closet")
	require.NoError(t, err)
	_, err = svc.DefineTemplate(context.Background(), tenant, inspection.EnvBedroom, "Closet")
	assert.True(t, apperror.HasCode(err, apperror.CodeDuplicate))
}

func TestLoadCatalog(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()
	tenant := id.New()
	_, err := svc.DefineTemplate(ctx, tenant, inspection.EnvBedroom, "Closet")
	require.NoError(t, err)

	doc := `
environments:
  ALCOBA: [Closet, Ventana, Puerta]
  BANO: [Sanitario, Ducha]
`
	created, err := svc.LoadCatalog(ctx, tenant, strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, 4, created)

	templates, err := svc.Templates(ctx, tenant, inspection.EnvBedroom)
	require.NoError(t, err)
	assert.Len(t, templates, 3)

	_, err = svc.LoadCatalog(ctx, tenant, strings.NewReader("environments:\n  GARAJE: [Puerta]\n"))
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

func names(items []*inspection.Item) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.Name
	}
	return out
}
