// Package settlement_repo provides the PostgreSQL implementation of settlement.Repository
// and settlement.ConfigRepository.
package settlement_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"arriendos/internal/core/apperror"
	"arriendos/internal/core/id"
	"arriendos/internal/core/types"
	"arriendos/internal/domain/settlement"
	"arriendos/internal/infrastructure/storage/postgres"
)

const (
	tableSettlements  = "settlements"
	tableRecordLinks  = "settlement_recurring_records"
	tableInstallLinks = "settlement_installments"
	tableConfigs      = "settlement_configs"

	constraintPeriod = "uq_settlements_period"
)

var (
	settlementCols = postgres.Columns[settlement.Settlement]()
	configCols     = postgres.Columns[settlement.Config]()
)

// Repo implements settlement.Repository and settlement.ConfigRepository.
type Repo struct {
	txManager *postgres.TxManager
	batch     *postgres.BatchInserter
}

var (
	_ settlement.Repository       = (*Repo)(nil)
	_ settlement.ConfigRepository = (*Repo)(nil)
)

// New creates a settlement repository.
func New(txManager *postgres.TxManager) *Repo {
	return &Repo{txManager: txManager, batch: postgres.NewBatchInserter(txManager)}
}

func (r *Repo) db(ctx context.Context) postgres.Querier {
	return r.txManager.GetQuerier(ctx)
}

// Create inserts the settlement row and its links in the ambient transaction.
func (r *Repo) Create(ctx context.Context, s *settlement.Settlement) error {
	_, err := postgres.Exec(ctx, r.db(ctx), postgres.InsertStruct(tableSettlements, s))
	if err != nil {
		if postgres.UniqueViolationOn(err, constraintPeriod) {
			return apperror.NewDuplicateSettlement(s.MandateID, s.Period.String())
		}
		return apperror.NewDatabase(fmt.Errorf("insert settlement: %w", err))
	}

	if _, err := r.batch.CopyFromSlice(ctx, tableRecordLinks, []string{"settlement_id", "record_id"}, linkRows(s.ID, s.RecordIDs)); err != nil {
		return r.linkErr(err)
	}
	if _, err := r.batch.CopyFromSlice(ctx, tableInstallLinks, []string{"settlement_id", "installment_id"}, linkRows(s.ID, s.InstallmentIDs)); err != nil {
		return r.linkErr(err)
	}
	return nil
}

// linkErr reports an obligation already linked to another settlement.
func (r *Repo) linkErr(err error) error {
	if postgres.UniqueViolationOn(err, "") {
		return apperror.NewConflict("obligation already consumed by another settlement").WithCause(err)
	}
	return apperror.NewDatabase(fmt.Errorf("link settlement obligations: %w", err))
}

func linkRows(settlementID id.ID, ids []id.ID) [][]any {
	rows := make([][]any, len(ids))
	for i, v := range ids {
		rows[i] = []any{settlementID, v}
	}
	return rows
}

func (r *Repo) Get(ctx context.Context, settlementID id.ID) (*settlement.Settlement, error) {
	q := postgres.Builder.Select(settlementCols...).From(tableSettlements).Where(squirrel.Eq{"id": settlementID})
	s, err := postgres.GetOne[settlement.Settlement](ctx, r.db(ctx), q, "settlement", settlementID)
	if err != nil {
		return nil, err
	}
	if err := r.attachLinks(ctx, []*settlement.Settlement{s}); err != nil {
		return nil, err
	}
	return s, nil
}

type link struct {
	SettlementID id.ID `db:"settlement_id"`
	TargetID     id.ID `db:"target_id"`
}

func linksQuery(table, column string, settlementIDs []id.ID) squirrel.SelectBuilder {
	return postgres.Builder.Select("settlement_id", column+" AS target_id").
		From(table).
		Where(squirrel.Eq{"settlement_id": settlementIDs}).
		OrderBy(column)
}

func (r *Repo) attachLinks(ctx context.Context, ss []*settlement.Settlement) error {
	if len(ss) == 0 {
		return nil
	}
	byID := make(map[id.ID]*settlement.Settlement, len(ss))
	ids := make([]id.ID, len(ss))
	for i, s := range ss {
		byID[s.ID] = s
		ids[i] = s.ID
	}

	records, err := r.links(ctx, linksQuery(tableRecordLinks, "record_id", ids))
	if err != nil {
		return err
	}
	for _, l := range records {
		s := byID[l.SettlementID]
		s.RecordIDs = append(s.RecordIDs, l.TargetID)
	}

	installments, err := r.links(ctx, linksQuery(tableInstallLinks, "installment_id", ids))
	if err != nil {
		return err
	}
	for _, l := range installments {
		s := byID[l.SettlementID]
		s.InstallmentIDs = append(s.InstallmentIDs, l.TargetID)
	}
	return nil
}

func (r *Repo) links(ctx context.Context, q squirrel.SelectBuilder) ([]link, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build links select: %w", err)
	}
	var out []link
	if err := pgxscan.Select(ctx, r.db(ctx), &out, sql, args...); err != nil {
		return nil, apperror.NewDatabase(fmt.Errorf("select settlement links: %w", err))
	}
	return out, nil
}

func (r *Repo) ExistsForPeriod(ctx context.Context, mandateID id.ID, period types.Period) (bool, error) {
	sql, args, err := existsQuery(mandateID, period).ToSql()
	if err != nil {
		return false, fmt.Errorf("build exists: %w", err)
	}
	var exists bool
	if err := r.db(ctx).QueryRow(ctx, sql, args...).Scan(&exists); err != nil {
		return false, apperror.NewDatabase(fmt.Errorf("check settlement exists: %w", err))
	}
	return exists, nil
}

func existsQuery(mandateID id.ID, period types.Period) squirrel.SelectBuilder {
	inner := postgres.Builder.Select("1").
		From(tableSettlements).
		Where(squirrel.Eq{"mandate_id": mandateID, "year": period.Year, "month": int(period.Month)})
	return postgres.Builder.Select().Column(squirrel.Expr("EXISTS (?)", inner))
}

func (r *Repo) ListByPeriod(ctx context.Context, tenantID id.ID, period types.Period) ([]*settlement.Settlement, error) {
	q := postgres.Builder.Select(settlementCols...).
		From(tableSettlements).
		Where(squirrel.Eq{"tenant_id": tenantID, "year": period.Year, "month": int(period.Month)}).
		OrderBy("created_at", "id")
	out, err := postgres.SelectAll[settlement.Settlement](ctx, r.db(ctx), q)
	if err != nil {
		return nil, err
	}
	if err := r.attachLinks(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repo) MarkPaid(ctx context.Context, settlementID id.ID, paymentDate time.Time) (int64, error) {
	n, err := postgres.Exec(ctx, r.db(ctx), markPaidQuery(settlementID, paymentDate))
	if err != nil {
		return 0, apperror.NewDatabase(fmt.Errorf("mark settlement paid: %w", err))
	}
	return n, nil
}

func markPaidQuery(settlementID id.ID, paymentDate time.Time) squirrel.UpdateBuilder {
	return postgres.Builder.Update(tableSettlements).
		Set("paid", true).
		Set("payment_date", types.Date(paymentDate)).
		Where(squirrel.Eq{"id": settlementID, "paid": false})
}

func (r *Repo) GetConfig(ctx context.Context, tenantID id.ID) (*settlement.Config, error) {
	q := postgres.Builder.Select(configCols...).From(tableConfigs).Where(squirrel.Eq{"tenant_id": tenantID})
	return postgres.GetOne[settlement.Config](ctx, r.db(ctx), q, "settlement config", tenantID)
}

func (r *Repo) SaveConfig(ctx context.Context, cfg settlement.Config) error {
	if _, err := postgres.Exec(ctx, r.db(ctx), saveConfigQuery(cfg)); err != nil {
		return apperror.NewDatabase(fmt.Errorf("save settlement config: %w", err))
	}
	return nil
}

func saveConfigQuery(cfg settlement.Config) squirrel.InsertBuilder {
	return postgres.InsertStruct(tableConfigs, &cfg).
		Suffix("ON CONFLICT (tenant_id) DO UPDATE SET " +
			"charges_vat = EXCLUDED.charges_vat, " +
			"vat_percent = EXCLUDED.vat_percent, " +
			"default_payment_days = EXCLUDED.default_payment_days, " +
			"requires_e_invoice = EXCLUDED.requires_e_invoice")
}
