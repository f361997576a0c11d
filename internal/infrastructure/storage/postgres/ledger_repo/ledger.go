// Package ledger_repo provides the PostgreSQL implementation of ledger.Repository.
package ledger_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"

	"arriendos/internal/core/apperror"
	"arriendos/internal/core/id"
	"arriendos/internal/core/types"
	"arriendos/internal/domain/ledger"
	"arriendos/internal/infrastructure/storage/postgres"
)

const (
	tableRecurring    = "recurring_discharges"
	tableValues       = "discharge_values"
	tableRecords      = "monthly_records"
	tableOneOffs      = "one_off_discharges"
	tableInstallments = "installments"

	constraintRecordPeriod      = "uq_monthly_records_period"
	constraintInstallmentPeriod = "uq_installments_period"
)

var (
	recurringCols   = postgres.Columns[ledger.RecurringDischarge]()
	valueCols       = postgres.Columns[ledger.ValueEntry]()
	recordCols      = postgres.Columns[ledger.MonthlyRecord]()
	oneOffCols      = postgres.Columns[ledger.OneOffDischarge]()
	installmentCols = postgres.Columns[ledger.Installment]()
)

// Repo implements ledger.Repository.
type Repo struct {
	txManager *postgres.TxManager
	batch     *postgres.BatchInserter
}

var _ ledger.Repository = (*Repo)(nil)

// New creates a ledger repository.
func New(txManager *postgres.TxManager) *Repo {
	return &Repo{txManager: txManager, batch: postgres.NewBatchInserter(txManager)}
}

func (r *Repo) db(ctx context.Context) postgres.Querier {
	return r.txManager.GetQuerier(ctx)
}

func (r *Repo) exec(ctx context.Context, what string, q squirrel.Sqlizer) (int64, error) {
	n, err := postgres.Exec(ctx, r.db(ctx), q)
	if err != nil {
		return 0, apperror.NewDatabase(fmt.Errorf("%s: %w", what, err))
	}
	return n, nil
}

func (r *Repo) CreateRecurring(ctx context.Context, d *ledger.RecurringDischarge) error {
	_, err := r.exec(ctx, "insert recurring discount", postgres.InsertStruct(tableRecurring, d))
	return err
}

func (r *Repo) GetRecurring(ctx context.Context, dischargeID id.ID) (*ledger.RecurringDischarge, error) {
	q := postgres.Builder.Select(recurringCols...).From(tableRecurring).Where(squirrel.Eq{"id": dischargeID})
	d, err := postgres.GetOne[ledger.RecurringDischarge](ctx, r.db(ctx), q, "recurring discount", dischargeID)
	if err != nil {
		return nil, err
	}
	if err := r.attachHistory(ctx, []*ledger.RecurringDischarge{d}); err != nil {
		return nil, err
	}
	return d, nil
}

func (r *Repo) AddValueEntry(ctx context.Context, e *ledger.ValueEntry) error {
	_, err := postgres.Exec(ctx, r.db(ctx), postgres.InsertStruct(tableValues, e))
	if err != nil {
		if postgres.IsForeignKeyViolation(err) {
			return apperror.NewNotFound("recurring discount", e.DischargeID)
		}
		return apperror.NewDatabase(fmt.Errorf("insert value entry: %w", err))
	}
	return nil
}

func (r *Repo) ListActiveRecurring(ctx context.Context, mandateID id.ID, period types.Period) ([]*ledger.RecurringDischarge, error) {
	out, err := postgres.SelectAll[ledger.RecurringDischarge](ctx, r.db(ctx), activeRecurringQuery(mandateID, period))
	if err != nil {
		return nil, err
	}
	if err := r.attachHistory(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

func activeRecurringQuery(mandateID id.ID, period types.Period) squirrel.SelectBuilder {
	return postgres.Builder.Select(recurringCols...).
		From(tableRecurring).
		Where(squirrel.Eq{"mandate_id": mandateID}).
		Where(squirrel.LtOrEq{"start_date": period.LastDay()}).
		Where(squirrel.GtOrEq{"end_date": period.FirstDay()}).
		OrderBy("id")
}

// attachHistory loads every value entry of the discharges in one query.
func (r *Repo) attachHistory(ctx context.Context, ds []*ledger.RecurringDischarge) error {
	if len(ds) == 0 {
		return nil
	}
	byID := make(map[id.ID]*ledger.RecurringDischarge, len(ds))
	ids := make([]id.ID, len(ds))
	for i, d := range ds {
		byID[d.ID] = d
		ids[i] = d.ID
	}

	entries, err := postgres.SelectAll[ledger.ValueEntry](ctx, r.db(ctx), historyQuery(ids))
	if err != nil {
		return err
	}
	for _, e := range entries {
		d := byID[e.DischargeID]
		d.History = append(d.History, *e)
	}
	for _, d := range ds {
		d.SortHistory()
	}
	return nil
}

func historyQuery(dischargeIDs []id.ID) squirrel.SelectBuilder {
	return postgres.Builder.Select(valueCols...).
		From(tableValues).
		Where(squirrel.Eq{"discharge_id": dischargeIDs}).
		OrderBy("discharge_id", "effective_from DESC", "created_at DESC")
}

func (r *Repo) GetMonthlyRecord(ctx context.Context, dischargeID id.ID, period types.Period) (*ledger.MonthlyRecord, error) {
	return postgres.GetOne[ledger.MonthlyRecord](ctx, r.db(ctx), recordQuery(dischargeID, period), "monthly record", dischargeID)
}

// recordQuery locks the record so a refresh cannot interleave with a settlement
// consuming it.
func recordQuery(dischargeID id.ID, period types.Period) squirrel.SelectBuilder {
	return postgres.Builder.Select(recordCols...).
		From(tableRecords).
		Where(squirrel.Eq{"discharge_id": dischargeID, "year": period.Year, "month": int(period.Month)}).
		Suffix("FOR UPDATE")
}

func (r *Repo) CreateMonthlyRecord(ctx context.Context, rec *ledger.MonthlyRecord) error {
	_, err := postgres.Exec(ctx, r.db(ctx), postgres.InsertStruct(tableRecords, rec))
	if err != nil {
		if postgres.UniqueViolationOn(err, constraintRecordPeriod) {
			return apperror.NewDuplicateRecord(rec.DischargeID, rec.Period.String())
		}
		return apperror.NewDatabase(fmt.Errorf("insert monthly record: %w", err))
	}
	return nil
}

func (r *Repo) UpdateMonthlyRecordValue(ctx context.Context, recordID id.ID, value types.Money) (int64, error) {
	return r.exec(ctx, "refresh monthly record", refreshRecordQuery(recordID, value))
}

func refreshRecordQuery(recordID id.ID, value types.Money) squirrel.UpdateBuilder {
	return postgres.Builder.Update(tableRecords).
		Set("value", value).
		Where(squirrel.Eq{"id": recordID, "status": string(ledger.StatusPending)})
}

func (r *Repo) ListPendingRecords(ctx context.Context, mandateID id.ID, period types.Period) ([]*ledger.MonthlyRecord, error) {
	return postgres.SelectAll[ledger.MonthlyRecord](ctx, r.db(ctx), pendingQuery(tableRecords, recordCols, mandateID, period))
}

// pendingQuery selects a mandate's PENDING rows for the period. The rows are locked so a
// concurrent settlement of the same mandate cannot consume them twice.
func pendingQuery(table string, cols []string, mandateID id.ID, period types.Period) squirrel.SelectBuilder {
	return postgres.Builder.Select(cols...).
		From(table).
		Where(squirrel.Eq{
			"mandate_id": mandateID,
			"year":       period.Year,
			"month":      int(period.Month),
			"status":     string(ledger.StatusPending),
		}).
		OrderBy("id").
		Suffix("FOR UPDATE")
}

func (r *Repo) GetRecordsByIDs(ctx context.Context, ids []id.ID) ([]*ledger.MonthlyRecord, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	q := postgres.Builder.Select(recordCols...).From(tableRecords).Where(squirrel.Eq{"id": ids})
	return postgres.SelectAll[ledger.MonthlyRecord](ctx, r.db(ctx), q)
}

func (r *Repo) MarkRecordsApplied(ctx context.Context, ids []id.ID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	return r.exec(ctx, "apply monthly records", markAppliedQuery(tableRecords, ids))
}

func markAppliedQuery(table string, ids []id.ID) squirrel.UpdateBuilder {
	return postgres.Builder.Update(table).
		Set("status", string(ledger.StatusApplied)).
		Where(squirrel.Eq{"id": ids, "status": string(ledger.StatusPending)})
}

func (r *Repo) CreateOneOff(ctx context.Context, o *ledger.OneOffDischarge) error {
	_, err := r.exec(ctx, "insert one-off discount", postgres.InsertStruct(tableOneOffs, o))
	return err
}

func (r *Repo) GetOneOff(ctx context.Context, dischargeID id.ID) (*ledger.OneOffDischarge, error) {
	q := postgres.Builder.Select(oneOffCols...).From(tableOneOffs).Where(squirrel.Eq{"id": dischargeID})
	return postgres.GetOne[ledger.OneOffDischarge](ctx, r.db(ctx), q, "one-off discount", dischargeID)
}

// CreateInstallments copies the schedule in bulk. It must run inside a transaction.
func (r *Repo) CreateInstallments(ctx context.Context, items []*ledger.Installment) error {
	if _, err := postgres.CopyStructs(ctx, r.batch, tableInstallments, items); err != nil {
		if err := installmentConflict(err, items); err != nil {
			return err
		}
		return apperror.NewDatabase(fmt.Errorf("copy installments: %w", err))
	}
	return nil
}

// installmentConflict maps a unique violation of the schedule onto the discharge it
// belongs to. Other errors yield nil.
func installmentConflict(err error, items []*ledger.Installment) error {
	if !postgres.UniqueViolationOn(err, "") || len(items) == 0 {
		return nil
	}
	first := items[0]
	if postgres.UniqueViolationOn(err, constraintInstallmentPeriod) {
		return apperror.NewDuplicate("installment", "period", first.Period.String()).
			WithDetail("discharge_id", first.DischargeID)
	}
	return apperror.NewDuplicate("installment", "number", first.DischargeID.String())
}

func (r *Repo) ListInstallments(ctx context.Context, dischargeID id.ID) ([]*ledger.Installment, error) {
	q := postgres.Builder.Select(installmentCols...).
		From(tableInstallments).
		Where(squirrel.Eq{"discharge_id": dischargeID}).
		OrderBy("number")
	return postgres.SelectAll[ledger.Installment](ctx, r.db(ctx), q)
}

func (r *Repo) ListPendingInstallments(ctx context.Context, mandateID id.ID, period types.Period) ([]*ledger.Installment, error) {
	return postgres.SelectAll[ledger.Installment](ctx, r.db(ctx), pendingQuery(tableInstallments, installmentCols, mandateID, period))
}

func (r *Repo) GetInstallmentsByIDs(ctx context.Context, ids []id.ID) ([]*ledger.Installment, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	q := postgres.Builder.Select(installmentCols...).From(tableInstallments).Where(squirrel.Eq{"id": ids})
	return postgres.SelectAll[ledger.Installment](ctx, r.db(ctx), q)
}

func (r *Repo) MarkInstallmentsApplied(ctx context.Context, ids []id.ID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	return r.exec(ctx, "apply installments", markAppliedQuery(tableInstallments, ids))
}
