package contract_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arriendos/internal/core/apperror"
	"arriendos/internal/core/id"
	"arriendos/internal/core/types"
	"arriendos/internal/domain/contract"
	"arriendos/internal/infrastructure/storage/memory"
)

func newService() (*contract.Service, *memory.ContractRepo) {
	store := memory.NewStore()
	repo := memory.NewContractRepo(store)
	return contract.NewService(repo, memory.NewTxManager(store)), repo
}

func newMandate(t *testing.T, svc *contract.Service, tenant id.ID) *contract.Mandate {
	t.Helper()
	m := &contract.Mandate{
		Terms:             contract.DefaultTerms(id.New()),
		OwnerID:           id.New(),
		CommissionPercent: types.MustMoney("10"),
	}
	require.NoError(t, svc.CreateMandate(context.Background(), tenant, m))
	return m
}

func newLease(t *testing.T, svc *contract.Service, tenant id.ID, m *contract.Mandate, terms contract.Terms, rent string) *contract.Lease {
	t.Helper()
	l := &contract.Lease{
		Terms:       terms,
		MandateID:   m.ID,
		LesseeID:    id.New(),
		PaymentDays: 5,
	}
	require.NoError(t, svc.CreateLease(context.Background(), tenant, l, contract.Vigency{
		StartDate: types.NewDate(2024, time.January, 1),
		EndDate:   types.NewDate(2024, time.December, 31),
		Rent:      types.MustMoney(rent),
	}))
	return l
}

func activate(t *testing.T, svc *contract.Service, tenant, leaseID id.ID) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, svc.TransitionLease(ctx, tenant, leaseID, contract.StatusFinalized))
	require.NoError(t, svc.TransitionLease(ctx, tenant, leaseID, contract.StatusActive))
}

func TestCreateMandate_Defaults(t *testing.T) {
	svc, _ := newService()
	tenant := id.New()
	m := newMandate(t, svc, tenant)

	got, err := svc.GetMandate(context.Background(), tenant, m.ID)
	require.NoError(t, err)
	assert.Equal(t, contract.DefaultCutoffDay, got.CutoffDay)
	assert.Equal(t, contract.StatusDraft, got.Status)

	_, err = svc.GetMandate(context.Background(), id.New(), m.ID)
	assert.True(t, apperror.IsNotFound(err))
}

func TestCreateMandate_Validation(t *testing.T) {
	svc, _ := newService()
	tests := []struct {
		name   string
		mutate func(m *contract.Mandate)
	}{
		{"commission above 100", func(m *contract.Mandate) { m.CommissionPercent = types.MustMoney("100.5") }},
		{"commission with three decimals", func(m *contract.Mandate) { m.CommissionPercent = types.MustMoney("10.125") }},
		{"cutoff day 29", func(m *contract.Mandate) { m.CutoffDay = 29 }},
		{"missing owner", func(m *contract.Mandate) { m.OwnerID = id.Nil }},
		{"unknown periodicity", func(m *contract.Mandate) { m.Periodicity = "DIARIO" }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m := &contract.Mandate{
				Terms:             contract.DefaultTerms(id.New()),
				OwnerID:           id.New(),
				CommissionPercent: types.MustMoney("10"),
			}
			tc.mutate(m)
			err := svc.CreateMandate(context.Background(), id.New(), m)
			assert.True(t, apperror.HasCode(err, apperror.CodeValidation), "got %v", err)
		})
	}
}

func TestCreateLease_InconsistentTenant(t *testing.T) {
	svc, _ := newService()
	m := newMandate(t, svc, id.New())

	err := svc.CreateLease(context.Background(), id.New(), &contract.Lease{
		Terms:     contract.DefaultTerms(id.New()),
		MandateID: m.ID,
		LesseeID:  id.New(),
	}, contract.Vigency{
		StartDate: types.NewDate(2024, 1, 1),
		EndDate:   types.NewDate(2024, 12, 31),
		Rent:      types.MustMoney("1500000"),
	})
	assert.True(t, apperror.HasCode(err, apperror.CodeInconsistentTenant))
}

func TestTransitions(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()
	tenant := id.New()
	m := newMandate(t, svc, tenant)

	err := svc.TransitionMandate(ctx, tenant, m.ID, contract.StatusActive)
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidTransition))

	require.NoError(t, svc.TransitionMandate(ctx, tenant, m.ID, contract.StatusFinalized))
	require.NoError(t, svc.TransitionMandate(ctx, tenant, m.ID, contract.StatusActive))

	err = svc.TransitionMandate(ctx, tenant, m.ID, contract.StatusCancelled)
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidTransition))

	require.NoError(t, svc.TransitionMandate(ctx, tenant, m.ID, contract.StatusTerminated))
	got, err := svc.GetMandate(ctx, tenant, m.ID)
	require.NoError(t, err)
	assert.True(t, got.Status.IsClosed())
}

func TestStatus_CanTransition(t *testing.T) {
	assert.True(t, contract.StatusDraft.CanTransition(contract.StatusCancelled))
	assert.True(t, contract.StatusFinalized.CanTransition(contract.StatusCancelled))
	assert.False(t, contract.StatusActive.CanTransition(contract.StatusDraft))
	assert.False(t, contract.StatusTerminated.CanTransition(contract.StatusActive))
	assert.False(t, contract.StatusCancelled.CanTransition(contract.StatusFinalized))
}

func TestRentForPeriod(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()
	tenant := id.New()
	m := newMandate(t, svc, tenant)
	l := newLease(t, svc, tenant, m, contract.DefaultTerms(id.New()), "1500000")

	rent, err := svc.RentForPeriod(ctx, tenant, l.ID, types.MustPeriod(2024, 6))
	require.NoError(t, err)
	assert.Equal(t, "1500000", rent.String())

	rent, err = svc.RentForPeriod(ctx, tenant, l.ID, types.MustPeriod(2025, 1))
	require.NoError(t, err)
	assert.True(t, rent.IsZero())

	expected, err := svc.ExpectedRent(ctx, tenant, m.ID, types.MustPeriod(2024, 6))
	require.NoError(t, err)
	assert.True(t, expected.IsZero(), "draft leases do not count")

	activate(t, svc, tenant, l.ID)
	expected, err = svc.ExpectedRent(ctx, tenant, m.ID, types.MustPeriod(2024, 6))
	require.NoError(t, err)
	assert.Equal(t, "1500000", expected.String())
}

func TestRenew(t *testing.T) {
	tests := []struct {
		name      string
		increment contract.IncrementType
		value     string
		wantRent  string
	}{
		{"cpi", contract.IncrementCPI, "0", "1584300"},
		{"fixed percent", contract.IncrementFixedPercent, "4", "1560000"},
		{"cpi plus points", contract.IncrementCPIPlusPoints, "2", "1614300"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc, repo := newService()
			ctx := context.Background()
			tenant := id.New()
			require.NoError(t, svc.SetCPI(ctx, contract.AnnualCPI{Year: 2024, Value: types.MustMoney("5.62")}))

			terms := contract.DefaultTerms(id.New())
			terms.IncrementType = tc.increment
			terms.IncrementValue = types.MustMoney(tc.value)
			m := newMandate(t, svc, tenant)
			l := newLease(t, svc, tenant, m, terms, "1500000")
			activate(t, svc, tenant, l.ID)

			next, err := svc.Renew(ctx, tenant, l.ID)
			require.NoError(t, err)
			assert.Equal(t, contract.VigencyRenewal, next.Kind)
			assert.Equal(t, types.NewDate(2025, time.January, 1), next.StartDate)
			assert.Equal(t, types.NewDate(2025, time.December, 31), next.EndDate)
			assert.True(t, types.MustMoney(tc.wantRent).Equal(next.Rent), "rent %s", next.Rent)

			vigencies, err := repo.ListVigencies(ctx, l.ID)
			require.NoError(t, err)
			assert.Len(t, vigencies, 2)

			rent, err := svc.RentForPeriod(ctx, tenant, l.ID, types.MustPeriod(2025, 3))
			require.NoError(t, err)
			assert.True(t, next.Rent.Equal(rent))
		})
	}
}

func TestRenew_MissingCPI(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()
	tenant := id.New()
	m := newMandate(t, svc, tenant)
	l := newLease(t, svc, tenant, m, contract.DefaultTerms(id.New()), "1500000")
	activate(t, svc, tenant, l.ID)

	_, err := svc.Renew(ctx, tenant, l.ID)
	assert.True(t, apperror.HasCode(err, apperror.CodeCPINotFound))
}

func TestRenew_DraftLease(t *testing.T) {
	svc, _ := newService()
	tenant := id.New()
	m := newMandate(t, svc, tenant)
	l := newLease(t, svc, tenant, m, contract.DefaultTerms(id.New()), "1500000")

	_, err := svc.Renew(context.Background(), tenant, l.ID)
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidTransition))
}
