package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arriendos/internal/core/apperror"
	"arriendos/internal/core/entity"
	"arriendos/internal/core/id"
	"arriendos/internal/core/types"
	"arriendos/internal/domain/contract"
	"arriendos/internal/domain/ledger"
	"arriendos/internal/infrastructure/storage/memory"
)

type fixture struct {
	ctx       context.Context
	tenant    id.ID
	mandate   *contract.Mandate
	repo      *memory.LedgerRepo
	contracts *memory.ContractRepo
	svc       *ledger.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	f := &fixture{
		ctx:       context.Background(),
		tenant:    id.New(),
		repo:      memory.NewLedgerRepo(store),
		contracts: memory.NewContractRepo(store),
	}
	f.svc = ledger.NewService(f.repo, f.contracts, memory.NewTxManager(store))
	f.mandate = f.newMandate(t, f.tenant)
	return f
}

func (f *fixture) newMandate(t *testing.T, tenant id.ID) *contract.Mandate {
	t.Helper()
	m := &contract.Mandate{
		BaseEntity:        entity.NewBaseEntity(tenant),
		Terms:             contract.DefaultTerms(id.New()),
		OwnerID:           id.New(),
		CommissionPercent: types.MustMoney("10"),
		CutoffDay:         5,
	}
	require.NoError(t, f.contracts.CreateMandate(f.ctx, m))
	return m
}

func (f *fixture) recurring(t *testing.T, start, end time.Time, history ...ledger.ValueEntry) *ledger.RecurringDischarge {
	t.Helper()
	d := &ledger.RecurringDischarge{
		MandateID: f.mandate.ID,
		Concept:   "Administración",
		StartDate: start,
		EndDate:   end,
	}
	require.NoError(t, f.svc.CreateRecurring(f.ctx, f.tenant, d, history))
	return d
}

func entry(value string, y int, m time.Month) ledger.ValueEntry {
	return ledger.ValueEntry{Value: types.MustMoney(value), EffectiveFrom: types.NewDate(y, m, 1)}
}

func TestResolveValueForMonth_History(t *testing.T) {
	f := newFixture(t)
	d := f.recurring(t, types.NewDate(2024, 1, 1), types.NewDate(2024, 12, 31),
		entry("50000", 2024, time.January),
		entry("55000", 2024, time.March),
	)

	feb, err := f.svc.ResolveValueForMonth(f.ctx, f.tenant, d.ID, types.MustPeriod(2024, 2))
	require.NoError(t, err)
	assert.Equal(t, "50000", feb.String())

	mar, err := f.svc.ResolveValueForMonth(f.ctx, f.tenant, d.ID, types.MustPeriod(2024, 3))
	require.NoError(t, err)
	assert.Equal(t, "55000", mar.String())

	_, err = f.svc.ResolveValueForMonth(f.ctx, id.New(), d.ID, types.MustPeriod(2024, 3))
	assert.True(t, apperror.IsNotFound(err))
}

func TestAddValue_AffectsLaterMonths(t *testing.T) {
	f := newFixture(t)
	d := f.recurring(t, types.NewDate(2024, 1, 1), types.NewDate(2024, 12, 31), entry("50000", 2024, time.January))

	_, err := f.svc.AddValue(f.ctx, f.tenant, d.ID, types.MustMoney("60000"), types.NewDate(2024, time.July, 1))
	require.NoError(t, err)

	jun, err := f.svc.ResolveValueForMonth(f.ctx, f.tenant, d.ID, types.MustPeriod(2024, 6))
	require.NoError(t, err)
	jul, err := f.svc.ResolveValueForMonth(f.ctx, f.tenant, d.ID, types.MustPeriod(2024, 7))
	require.NoError(t, err)
	assert.Equal(t, "50000", jun.String())
	assert.Equal(t, "60000", jul.String())

	_, err = f.svc.AddValue(f.ctx, f.tenant, d.ID, types.MustMoney("-1"), types.NewDate(2024, time.August, 1))
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	_, err = f.svc.AddValue(f.ctx, f.tenant, d.ID, types.MustMoney("60000.125"), types.NewDate(2024, time.August, 1))
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

func TestEnsureMonthlyRecord_Idempotent(t *testing.T) {
	f := newFixture(t)
	d := f.recurring(t, types.NewDate(2024, 1, 1), types.NewDate(2024, 12, 31), entry("50000", 2024, time.January))
	feb := types.MustPeriod(2024, 2)

	first, err := f.svc.EnsureMonthlyRecord(f.ctx, f.tenant, d.ID, feb)
	require.NoError(t, err)
	second, err := f.svc.EnsureMonthlyRecord(f.ctx, f.tenant, d.ID, feb)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, ledger.StatusPending, second.Status)
	assert.Equal(t, "50000", second.Value.String())

	pending, err := f.repo.ListPendingRecords(f.ctx, f.mandate.ID, feb)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestEnsureMonthlyRecord_RefreshesPendingValue(t *testing.T) {
	f := newFixture(t)
	d := f.recurring(t, types.NewDate(2024, 1, 1), types.NewDate(2024, 12, 31), entry("50000", 2024, time.January))
	feb := types.MustPeriod(2024, 2)

	rec, err := f.svc.EnsureMonthlyRecord(f.ctx, f.tenant, d.ID, feb)
	require.NoError(t, err)

	_, err = f.svc.AddValue(f.ctx, f.tenant, d.ID, types.MustMoney("52000"), types.NewDate(2024, time.February, 1))
	require.NoError(t, err)

	refreshed, err := f.svc.EnsureMonthlyRecord(f.ctx, f.tenant, d.ID, feb)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, refreshed.ID)
	assert.Equal(t, "52000", refreshed.Value.String())
}

func TestEnsureMonthlyRecord_AppliedConflict(t *testing.T) {
	f := newFixture(t)
	d := f.recurring(t, types.NewDate(2024, 1, 1), types.NewDate(2024, 12, 31), entry("50000", 2024, time.January))
	feb := types.MustPeriod(2024, 2)

	rec, err := f.svc.EnsureMonthlyRecord(f.ctx, f.tenant, d.ID, feb)
	require.NoError(t, err)
	n, err := f.repo.MarkRecordsApplied(f.ctx, []id.ID{rec.ID})
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	same, err := f.svc.EnsureMonthlyRecord(f.ctx, f.tenant, d.ID, feb)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusApplied, same.Status)

	_, err = f.svc.AddValue(f.ctx, f.tenant, d.ID, types.MustMoney("52000"), types.NewDate(2024, time.February, 1))
	require.NoError(t, err)
	_, err = f.svc.EnsureMonthlyRecord(f.ctx, f.tenant, d.ID, feb)
	assert.True(t, apperror.HasCode(err, apperror.CodeDuplicateRecord))
}

func TestEnsureMonthlyRecord_OutsideWindow(t *testing.T) {
	f := newFixture(t)
	d := f.recurring(t, types.NewDate(2024, 3, 1), types.NewDate(2024, 6, 30), entry("50000", 2024, time.March))

	_, err := f.svc.EnsureMonthlyRecord(f.ctx, f.tenant, d.ID, types.MustPeriod(2024, 7))
	assert.True(t, apperror.HasCode(err, apperror.CodeDischargeNotActive))
}

func TestMaterializeMonth_NoApplicableValueAborts(t *testing.T) {
	f := newFixture(t)
	f.recurring(t, types.NewDate(2024, 1, 1), types.NewDate(2024, 12, 31), entry("50000", 2024, time.January))
	f.recurring(t, types.NewDate(2024, 1, 1), types.NewDate(2024, 12, 31), entry("20000", 2024, time.May))

	_, err := f.svc.MaterializeMonth(f.ctx, f.tenant, f.mandate.ID, types.MustPeriod(2024, 2))
	assert.True(t, apperror.HasCode(err, apperror.CodeNoApplicableValue))

	pending, err := f.repo.ListPendingRecords(f.ctx, f.mandate.ID, types.MustPeriod(2024, 2))
	require.NoError(t, err)
	assert.Empty(t, pending, "rollback must discard the records created before the failure")

	records, err := f.svc.MaterializeMonth(f.ctx, f.tenant, f.mandate.ID, types.MustPeriod(2024, 5))
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestCreateRecurring_InconsistentTenant(t *testing.T) {
	f := newFixture(t)
	other := f.newMandate(t, id.New())

	d := &ledger.RecurringDischarge{
		MandateID: other.ID,
		Concept:   "Seguro",
		StartDate: types.NewDate(2024, 1, 1),
		EndDate:   types.NewDate(2024, 12, 31),
	}
	err := f.svc.CreateRecurring(f.ctx, f.tenant, d, []ledger.ValueEntry{entry("1000", 2024, time.January)})
	assert.True(t, apperror.HasCode(err, apperror.CodeInconsistentTenant))

	_, err = f.repo.GetRecurring(f.ctx, d.ID)
	assert.True(t, apperror.IsNotFound(err))
}

func TestReportOneOff(t *testing.T) {
	f := newFixture(t)
	o := &ledger.OneOffDischarge{
		MandateID:        f.mandate.ID,
		Concept:          "Reparación",
		ValueTotal:       types.MustMoney("100000"),
		InstallmentCount: 3,
		ReportDate:       types.NewDate(2024, time.February, 10),
	}
	items, err := f.svc.ReportOneOff(f.ctx, f.tenant, o)
	require.NoError(t, err)
	require.Len(t, items, 3)

	stored, err := f.svc.Installments(f.ctx, f.tenant, o.ID)
	require.NoError(t, err)
	require.Len(t, stored, 3)
	assert.Equal(t, "33334", stored[0].Value.String())
	assert.Equal(t, types.MustPeriod(2024, 2), stored[0].Period)
	assert.Equal(t, types.MustPeriod(2024, 4), stored[2].Period)

	pending, err := f.repo.ListPendingInstallments(f.ctx, f.mandate.ID, types.MustPeriod(2024, 3))
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "33333", pending[0].Value.String())
}

func TestReportOneOff_ScaleOption(t *testing.T) {
	store := memory.NewStore()
	contracts := memory.NewContractRepo(store)
	svc := ledger.NewService(memory.NewLedgerRepo(store), contracts, memory.NewTxManager(store), ledger.WithSplitScale(2))

	tenant := id.New()
	m := &contract.Mandate{
		BaseEntity:        entity.NewBaseEntity(tenant),
		Terms:             contract.DefaultTerms(id.New()),
		OwnerID:           id.New(),
		CommissionPercent: types.MustMoney("8"),
		CutoffDay:         10,
	}
	require.NoError(t, contracts.CreateMandate(context.Background(), m))

	items, err := svc.ReportOneOff(context.Background(), tenant, &ledger.OneOffDischarge{
		MandateID:        m.ID,
		Concept:          "Cerrajería",
		ValueTotal:       types.MustMoney("100000"),
		InstallmentCount: 3,
		ReportDate:       types.NewDate(2024, time.January, 31),
	})
	require.NoError(t, err)
	assert.Equal(t, "33333.34", items[0].Value.String())
}

func TestReportOneOff_Validation(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.ReportOneOff(f.ctx, f.tenant, &ledger.OneOffDischarge{
		MandateID:        f.mandate.ID,
		Concept:          "x",
		ValueTotal:       types.MustMoney("1000"),
		InstallmentCount: 0,
		ReportDate:       types.NewDate(2024, 1, 1),
	})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

func TestReportOneOff_SmallTotalSplitsInCents(t *testing.T) {
	f := newFixture(t)
	items, err := f.svc.ReportOneOff(f.ctx, f.tenant, &ledger.OneOffDischarge{
		MandateID:        f.mandate.ID,
		Concept:          "Llave",
		ValueTotal:       types.MustMoney("2"),
		InstallmentCount: 3,
		ReportDate:       types.NewDate(2024, time.May, 3),
	})
	require.NoError(t, err)
	require.Len(t, items, 3)

	sum := types.Zero()
	for _, inst := range items {
		sum = sum.Add(inst.Value)
	}
	assert.Equal(t, "2", sum.String())
	assert.Equal(t, "0.68", items[0].Value.String())
}

// applyingRepo lets a settlement apply the record right after it is read, leaving the
// caller with a PENDING copy.
type applyingRepo struct {
	*memory.LedgerRepo
	armed bool
}

func (r *applyingRepo) GetMonthlyRecord(ctx context.Context, dischargeID id.ID, period types.Period) (*ledger.MonthlyRecord, error) {
	rec, err := r.LedgerRepo.GetMonthlyRecord(ctx, dischargeID, period)
	if err == nil && r.armed {
		if _, err := r.LedgerRepo.MarkRecordsApplied(ctx, []id.ID{rec.ID}); err != nil {
			return nil, err
		}
	}
	return rec, err
}

func TestEnsureMonthlyRecord_RefreshLosesToSettlement(t *testing.T) {
	store := memory.NewStore()
	repo := &applyingRepo{LedgerRepo: memory.NewLedgerRepo(store)}
	f := &fixture{
		ctx:       context.Background(),
		tenant:    id.New(),
		repo:      repo.LedgerRepo,
		contracts: memory.NewContractRepo(store),
	}
	f.svc = ledger.NewService(repo, f.contracts, memory.NewTxManager(store))
	f.mandate = f.newMandate(t, f.tenant)

	d := f.recurring(t, types.NewDate(2024, 1, 1), types.NewDate(2024, 12, 31), entry("100", 2024, time.January))
	feb := types.MustPeriod(2024, 2)
	_, err := f.svc.EnsureMonthlyRecord(f.ctx, f.tenant, d.ID, feb)
	require.NoError(t, err)
	_, err = f.svc.AddValue(f.ctx, f.tenant, d.ID, types.MustMoney("120"), types.NewDate(2024, time.February, 1))
	require.NoError(t, err)

	repo.armed = true
	_, err = f.svc.EnsureMonthlyRecord(f.ctx, f.tenant, d.ID, feb)
	assert.True(t, apperror.HasCode(err, apperror.CodeDuplicateRecord), "got %v", err)

	got, err := f.repo.GetMonthlyRecord(f.ctx, d.ID, feb)
	require.NoError(t, err)
	assert.Equal(t, "100", got.Value.String())
}
