package memory

import (
	"context"
	"slices"
	"sort"

	"arriendos/internal/core/apperror"
	"arriendos/internal/core/id"
	"arriendos/internal/core/types"
	"arriendos/internal/domain/ledger"
)

// LedgerRepo implements ledger.Repository.
type LedgerRepo struct {
	store *Store
}

// NewLedgerRepo creates a ledger repository over the store.
func NewLedgerRepo(store *Store) *LedgerRepo {
	return &LedgerRepo{store: store}
}

var _ ledger.Repository = (*LedgerRepo)(nil)

func (r *LedgerRepo) CreateRecurring(ctx context.Context, d *ledger.RecurringDischarge) error {
	return r.store.write(func(st *state) error {
		row := *d
		row.History = nil
		st.recurring[d.ID] = row
		return nil
	})
}

func withHistory(st *state, d ledger.RecurringDischarge) *ledger.RecurringDischarge {
	d.History = slices.Clone(st.history[d.ID])
	d.SortHistory()
	return &d
}

func (r *LedgerRepo) GetRecurring(ctx context.Context, dischargeID id.ID) (*ledger.RecurringDischarge, error) {
	var out *ledger.RecurringDischarge
	r.store.read(func(st *state) {
		if d, ok := st.recurring[dischargeID]; ok {
			out = withHistory(st, d)
		}
	})
	if out == nil {
		return nil, apperror.NewNotFound("recurring discount", dischargeID)
	}
	return out, nil
}

func (r *LedgerRepo) AddValueEntry(ctx context.Context, e *ledger.ValueEntry) error {
	return r.store.write(func(st *state) error {
		if _, ok := st.recurring[e.DischargeID]; !ok {
			return apperror.NewNotFound("recurring discount", e.DischargeID)
		}
		st.history[e.DischargeID] = append(st.history[e.DischargeID], *e)
		return nil
	})
}

func (r *LedgerRepo) ListActiveRecurring(ctx context.Context, mandateID id.ID, period types.Period) ([]*ledger.RecurringDischarge, error) {
	var out []*ledger.RecurringDischarge
	r.store.read(func(st *state) {
		for _, d := range st.recurring {
			if d.MandateID == mandateID && d.ActiveIn(period) {
				out = append(out, withHistory(st, d))
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

func (r *LedgerRepo) GetMonthlyRecord(ctx context.Context, dischargeID id.ID, period types.Period) (*ledger.MonthlyRecord, error) {
	var out *ledger.MonthlyRecord
	r.store.read(func(st *state) {
		for _, rec := range st.records {
			if rec.DischargeID == dischargeID && rec.Period == period {
				rec := rec
				out = &rec
				return
			}
		}
	})
	if out == nil {
		return nil, apperror.NewNotFound("monthly record", dischargeID)
	}
	return out, nil
}

func (r *LedgerRepo) CreateMonthlyRecord(ctx context.Context, rec *ledger.MonthlyRecord) error {
	return r.store.write(func(st *state) error {
		for _, existing := range st.records {
			if existing.DischargeID == rec.DischargeID && existing.Period == rec.Period {
				return apperror.NewDuplicateRecord(rec.DischargeID, rec.Period.String())
			}
		}
		st.records[rec.ID] = *rec
		return nil
	})
}

func (r *LedgerRepo) UpdateMonthlyRecordValue(ctx context.Context, recordID id.ID, value types.Money) (int64, error) {
	var n int64
	err := r.store.write(func(st *state) error {
		rec, ok := st.records[recordID]
		if !ok || rec.Status != ledger.StatusPending {
			return nil
		}
		rec.Value = value
		st.records[recordID] = rec
		n = 1
		return nil
	})
	return n, err
}

func (r *LedgerRepo) ListPendingRecords(ctx context.Context, mandateID id.ID, period types.Period) ([]*ledger.MonthlyRecord, error) {
	var out []*ledger.MonthlyRecord
	r.store.read(func(st *state) {
		for _, rec := range st.records {
			if rec.MandateID == mandateID && rec.Period == period && rec.Status == ledger.StatusPending {
				rec := rec
				out = append(out, &rec)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

func (r *LedgerRepo) GetRecordsByIDs(ctx context.Context, ids []id.ID) ([]*ledger.MonthlyRecord, error) {
	var out []*ledger.MonthlyRecord
	r.store.read(func(st *state) {
		for _, recordID := range ids {
			if rec, ok := st.records[recordID]; ok {
				out = append(out, &rec)
			}
		}
	})
	return out, nil
}

func (r *LedgerRepo) MarkRecordsApplied(ctx context.Context, ids []id.ID) (int64, error) {
	var n int64
	err := r.store.write(func(st *state) error {
		for _, recordID := range ids {
			rec, ok := st.records[recordID]
			if !ok || rec.Status != ledger.StatusPending {
				continue
			}
			rec.Status = ledger.StatusApplied
			st.records[recordID] = rec
			n++
		}
		return nil
	})
	return n, err
}

func (r *LedgerRepo) CreateOneOff(ctx context.Context, o *ledger.OneOffDischarge) error {
	return r.store.write(func(st *state) error {
		row := *o
		row.Split = nil
		st.oneOffs[o.ID] = row
		return nil
	})
}

func (r *LedgerRepo) GetOneOff(ctx context.Context, dischargeID id.ID) (*ledger.OneOffDischarge, error) {
	var (
		o  ledger.OneOffDischarge
		ok bool
	)
	r.store.read(func(st *state) { o, ok = st.oneOffs[dischargeID] })
	if !ok {
		return nil, apperror.NewNotFound("one-off discount", dischargeID)
	}
	return &o, nil
}

func (r *LedgerRepo) CreateInstallments(ctx context.Context, items []*ledger.Installment) error {
	return r.store.write(func(st *state) error {
		for _, inst := range items {
			for _, existing := range st.installments {
				if existing.DischargeID == inst.DischargeID && existing.Period == inst.Period {
					return apperror.NewDuplicate("installment", "period", inst.Period.String())
				}
			}
			st.installments[inst.ID] = *inst
		}
		return nil
	})
}

func (r *LedgerRepo) ListInstallments(ctx context.Context, dischargeID id.ID) ([]*ledger.Installment, error) {
	var out []*ledger.Installment
	r.store.read(func(st *state) {
		for _, inst := range st.installments {
			if inst.DischargeID == dischargeID {
				inst := inst
				out = append(out, &inst)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (r *LedgerRepo) ListPendingInstallments(ctx context.Context, mandateID id.ID, period types.Period) ([]*ledger.Installment, error) {
	var out []*ledger.Installment
	r.store.read(func(st *state) {
		for _, inst := range st.installments {
			if inst.MandateID == mandateID && inst.Period == period && inst.Status == ledger.StatusPending {
				inst := inst
				out = append(out, &inst)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

func (r *LedgerRepo) GetInstallmentsByIDs(ctx context.Context, ids []id.ID) ([]*ledger.Installment, error) {
	var out []*ledger.Installment
	r.store.read(func(st *state) {
		for _, instID := range ids {
			if inst, ok := st.installments[instID]; ok {
				out = append(out, &inst)
			}
		}
	})
	return out, nil
}

func (r *LedgerRepo) MarkInstallmentsApplied(ctx context.Context, ids []id.ID) (int64, error) {
	var n int64
	err := r.store.write(func(st *state) error {
		for _, instID := range ids {
			inst, ok := st.installments[instID]
			if !ok || inst.Status != ledger.StatusPending {
				continue
			}
			inst.Status = ledger.StatusApplied
			st.installments[instID] = inst
			n++
		}
		return nil
	})
	return n, err
}
