// Package contract_repo provides the PostgreSQL implementation of contract.Repository.
package contract_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"

	"arriendos/internal/core/apperror"
	"arriendos/internal/core/id"
	"arriendos/internal/domain/contract"
	"arriendos/internal/infrastructure/storage/postgres"
)

const (
	tableMandates  = "mandates"
	tableLeases    = "leases"
	tableVigencies = "lease_vigencies"
	tableCPI       = "annual_cpi"
)

var (
	mandateCols = postgres.Columns[contract.Mandate]()
	leaseCols   = postgres.Columns[contract.Lease]()
	vigencyCols = postgres.Columns[contract.Vigency]()
)

// Repo implements contract.Repository.
type Repo struct {
	txManager *postgres.TxManager
}

var _ contract.Repository = (*Repo)(nil)

// New creates a contract repository.
func New(txManager *postgres.TxManager) *Repo {
	return &Repo{txManager: txManager}
}

func (r *Repo) db(ctx context.Context) postgres.Querier {
	return r.txManager.GetQuerier(ctx)
}

func (r *Repo) insert(ctx context.Context, entity string, key id.ID, q squirrel.InsertBuilder) error {
	if _, err := postgres.Exec(ctx, r.db(ctx), q); err != nil {
		if postgres.UniqueViolationOn(err, "") {
			return apperror.NewDuplicate(entity, "id", key.String())
		}
		return apperror.NewDatabase(fmt.Errorf("insert %s: %w", entity, err))
	}
	return nil
}

func (r *Repo) CreateMandate(ctx context.Context, m *contract.Mandate) error {
	return r.insert(ctx, "mandate", m.ID, postgres.InsertStruct(tableMandates, m))
}

func (r *Repo) GetMandate(ctx context.Context, mandateID id.ID) (*contract.Mandate, error) {
	q := postgres.Builder.Select(mandateCols...).From(tableMandates).Where(squirrel.Eq{"id": mandateID})
	return postgres.GetOne[contract.Mandate](ctx, r.db(ctx), q, "mandate", mandateID)
}

// LockMandate takes a row lock that serializes settlement runs on the mandate.
func (r *Repo) LockMandate(ctx context.Context, mandateID id.ID) (*contract.Mandate, error) {
	if r.txManager.GetTx(ctx) == nil {
		return nil, apperror.NewInternal(fmt.Errorf("LockMandate requires transaction context"))
	}
	return postgres.GetOne[contract.Mandate](ctx, r.db(ctx), lockMandateQuery(mandateID), "mandate", mandateID)
}

func lockMandateQuery(mandateID id.ID) squirrel.SelectBuilder {
	return postgres.Builder.Select(mandateCols...).
		From(tableMandates).
		Where(squirrel.Eq{"id": mandateID}).
		Suffix("FOR UPDATE")
}

func (r *Repo) UpdateMandateStatus(ctx context.Context, mandateID id.ID, status contract.Status) error {
	q := postgres.Builder.Update(tableMandates).Set("status", string(status)).Where(squirrel.Eq{"id": mandateID})
	return postgres.ExecOne(ctx, r.db(ctx), q, "mandate", mandateID)
}

func (r *Repo) CreateLease(ctx context.Context, l *contract.Lease) error {
	return r.insert(ctx, "lease", l.ID, postgres.InsertStruct(tableLeases, l))
}

func (r *Repo) GetLease(ctx context.Context, leaseID id.ID) (*contract.Lease, error) {
	q := postgres.Builder.Select(leaseCols...).From(tableLeases).Where(squirrel.Eq{"id": leaseID})
	return postgres.GetOne[contract.Lease](ctx, r.db(ctx), q, "lease", leaseID)
}

func (r *Repo) ListLeasesByMandate(ctx context.Context, mandateID id.ID) ([]*contract.Lease, error) {
	q := postgres.Builder.Select(leaseCols...).
		From(tableLeases).
		Where(squirrel.Eq{"mandate_id": mandateID}).
		OrderBy("created_at", "id")
	return postgres.SelectAll[contract.Lease](ctx, r.db(ctx), q)
}

func (r *Repo) UpdateLeaseStatus(ctx context.Context, leaseID id.ID, status contract.Status) error {
	q := postgres.Builder.Update(tableLeases).Set("status", string(status)).Where(squirrel.Eq{"id": leaseID})
	return postgres.ExecOne(ctx, r.db(ctx), q, "lease", leaseID)
}

func (r *Repo) CreateVigency(ctx context.Context, v *contract.Vigency) error {
	return r.insert(ctx, "vigency", v.ID, postgres.InsertStruct(tableVigencies, v))
}

func (r *Repo) ListVigencies(ctx context.Context, leaseID id.ID) ([]*contract.Vigency, error) {
	q := postgres.Builder.Select(vigencyCols...).
		From(tableVigencies).
		Where(squirrel.Eq{"lease_id": leaseID}).
		OrderBy("start_date")
	return postgres.SelectAll[contract.Vigency](ctx, r.db(ctx), q)
}

func (r *Repo) UpsertCPI(ctx context.Context, cpi contract.AnnualCPI) error {
	_, err := postgres.Exec(ctx, r.db(ctx), upsertCPIQuery(cpi))
	if err != nil {
		return apperror.NewDatabase(fmt.Errorf("upsert annual cpi: %w", err))
	}
	return nil
}

func upsertCPIQuery(cpi contract.AnnualCPI) squirrel.InsertBuilder {
	return postgres.Builder.Insert(tableCPI).
		Columns("year", "value").
		Values(cpi.Year, cpi.Value).
		Suffix("ON CONFLICT (year) DO UPDATE SET value = EXCLUDED.value")
}

func (r *Repo) GetCPI(ctx context.Context, year int) (*contract.AnnualCPI, error) {
	q := postgres.Builder.Select("year", "value").From(tableCPI).Where(squirrel.Eq{"year": year})
	return postgres.GetOne[contract.AnnualCPI](ctx, r.db(ctx), q, "annual CPI", year)
}
