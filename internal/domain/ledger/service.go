package ledger

import (
	"context"
	"fmt"
	"time"

	"arriendos/internal/core/apperror"
	"arriendos/internal/core/entity"
	"arriendos/internal/core/id"
	"arriendos/internal/core/tx"
	"arriendos/internal/core/types"
	"arriendos/internal/domain"
	"arriendos/pkg/logger"
)

// Service maintains the obligation ledger.
type Service struct {
	repo       Repository
	mandates   MandateReader
	txManager  tx.Manager
	splitScale int32
}

// Option configures a Service.
type Option func(*Service)

// WithSplitScale sets the fractional digits used when splitting one-off discounts.
func WithSplitScale(scale int32) Option {
	return func(s *Service) { s.splitScale = scale }
}

// NewService creates a ledger service.
func NewService(repo Repository, mandates MandateReader, txManager tx.Manager, opts ...Option) *Service {
	s := &Service{
		repo:       repo,
		mandates:   mandates,
		txManager:  txManager,
		splitScale: DefaultSplitScale,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// checkMandate verifies the caller, the mandate and the record share a tenant.
func (s *Service) checkMandate(ctx context.Context, tenantID, mandateID id.ID, rec entity.TenantOwned) error {
	if err := entity.EnsureTenant("discount", tenantID, rec); err != nil {
		return err
	}
	m, err := s.mandates.GetMandate(ctx, mandateID)
	if err != nil {
		return domain.NormalizeGetErr(err, "mandate", mandateID)
	}
	return entity.EnsureTenant("mandate", tenantID, m)
}

// CreateRecurring stores a recurring discount together with its initial value history.
func (s *Service) CreateRecurring(ctx context.Context, tenantID id.ID, d *RecurringDischarge, history []ValueEntry) error {
	if id.IsNil(d.ID) {
		d.BaseEntity = entity.NewBaseEntity(tenantID)
	}
	d.StartDate = types.Date(d.StartDate)
	d.EndDate = types.Date(d.EndDate)
	if err := d.Validate(ctx); err != nil {
		return domain.NormalizeValidationErr(err)
	}
	for _, e := range history {
		if err := e.validate(); err != nil {
			return err
		}
	}

	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.checkMandate(ctx, tenantID, d.MandateID, d); err != nil {
			return err
		}
		if err := s.repo.CreateRecurring(ctx, d); err != nil {
			return fmt.Errorf("create recurring discount: %w", err)
		}
		d.History = d.History[:0]
		for _, e := range history {
			e.ID = id.New()
			e.DischargeID = d.ID
			e.EffectiveFrom = types.Date(e.EffectiveFrom)
			e.CreatedAt = time.Now().UTC()
			if err := s.repo.AddValueEntry(ctx, &e); err != nil {
				return fmt.Errorf("add value entry: %w", err)
			}
			d.History = append(d.History, e)
		}
		d.SortHistory()
		logger.Info(ctx, "recurring discount created",
			"tenant_id", tenantID,
			"mandate_id", d.MandateID,
			"discharge_id", d.ID,
			"history_entries", len(history),
		)
		return nil
	})
}

// AddValue appends a value history entry. Months already recorded keep their value
// unless their record is still PENDING and gets refreshed by EnsureMonthlyRecord.
func (s *Service) AddValue(ctx context.Context, tenantID, dischargeID id.ID, value types.Money, effectiveFrom time.Time) (*ValueEntry, error) {
	e := &ValueEntry{
		ID:            id.New(),
		DischargeID:   dischargeID,
		Value:         value,
		EffectiveFrom: types.Date(effectiveFrom),
		CreatedAt:     time.Now().UTC(),
	}
	if err := e.validate(); err != nil {
		return nil, err
	}
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.getRecurring(ctx, tenantID, dischargeID); err != nil {
			return err
		}
		return s.repo.AddValueEntry(ctx, e)
	})
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (s *Service) getRecurring(ctx context.Context, tenantID, dischargeID id.ID) (*RecurringDischarge, error) {
	d, err := s.repo.GetRecurring(ctx, dischargeID)
	if err != nil {
		return nil, domain.NormalizeGetErr(err, "recurring discount", dischargeID)
	}
	if d.TenantID != tenantID {
		return nil, apperror.NewNotFound("recurring discount", dischargeID)
	}
	return d, nil
}

// ResolveValueForMonth returns the discount value in effect for the period.
func (s *Service) ResolveValueForMonth(ctx context.Context, tenantID, dischargeID id.ID, period types.Period) (types.Money, error) {
	d, err := s.getRecurring(ctx, tenantID, dischargeID)
	if err != nil {
		return types.Zero(), err
	}
	return d.ValueFor(period)
}

// EnsureMonthlyRecord returns the discharge's record for the period, creating it on
// first use. A PENDING record whose value drifted from the history is refreshed.
func (s *Service) EnsureMonthlyRecord(ctx context.Context, tenantID, dischargeID id.ID, period types.Period) (*MonthlyRecord, error) {
	var rec *MonthlyRecord
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		d, err := s.getRecurring(ctx, tenantID, dischargeID)
		if err != nil {
			return err
		}
		rec, err = s.ensureRecord(ctx, d, period)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *Service) ensureRecord(ctx context.Context, d *RecurringDischarge, period types.Period) (*MonthlyRecord, error) {
	if !d.ActiveIn(period) {
		return nil, apperror.NewBusinessRule(apperror.CodeDischargeNotActive, "discount is not active in the period").
			WithDetail("discharge_id", d.ID).
			WithDetail("period", period.String())
	}
	value, err := d.ValueFor(period)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.GetMonthlyRecord(ctx, d.ID, period)
	switch {
	case err == nil:
		if existing.Value.Equal(value) {
			return existing, nil
		}
		if existing.Status == StatusApplied {
			return nil, apperror.NewDuplicateRecord(d.ID, period.String()).
				WithDetail("applied_value", existing.Value.String()).
				WithDetail("resolved_value", value.String())
		}
		n, err := s.repo.UpdateMonthlyRecordValue(ctx, existing.ID, value)
		if err != nil {
			return nil, fmt.Errorf("refresh monthly record: %w", err)
		}
		if n == 0 {
			return nil, apperror.NewDuplicateRecord(d.ID, period.String()).
				WithDetail("resolved_value", value.String())
		}
		existing.Value = value
		return existing, nil
	case !apperror.IsNotFound(err):
		return nil, fmt.Errorf("get monthly record: %w", err)
	}

	rec := &MonthlyRecord{
		BaseEntity:  entity.NewBaseEntity(d.TenantID),
		Period:      period,
		DischargeID: d.ID,
		MandateID:   d.MandateID,
		Value:       value,
		Status:      StatusPending,
	}
	if err := s.repo.CreateMonthlyRecord(ctx, rec); err != nil {
		return nil, fmt.Errorf("create monthly record: %w", err)
	}
	return rec, nil
}

// MaterializeMonth ensures a monthly record exists for every recurring discount of the
// mandate active in the period.
func (s *Service) MaterializeMonth(ctx context.Context, tenantID, mandateID id.ID, period types.Period) ([]*MonthlyRecord, error) {
	var out []*MonthlyRecord
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		discharges, err := s.repo.ListActiveRecurring(ctx, mandateID, period)
		if err != nil {
			return fmt.Errorf("list recurring discounts: %w", err)
		}
		out = make([]*MonthlyRecord, 0, len(discharges))
		for _, d := range discharges {
			if d.TenantID != tenantID {
				return apperror.NewInconsistentTenant("recurring discount", tenantID.String(), d.TenantID.String())
			}
			rec, err := s.ensureRecord(ctx, d, period)
			if err != nil {
				return err
			}
			out = append(out, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ReportOneOff stores a one-off discount and its installments.
func (s *Service) ReportOneOff(ctx context.Context, tenantID id.ID, o *OneOffDischarge) ([]*Installment, error) {
	if id.IsNil(o.ID) {
		o.BaseEntity = entity.NewBaseEntity(tenantID)
	}
	o.ReportDate = types.Date(o.ReportDate)
	if o.FirstYear == 0 {
		first := types.PeriodOf(o.ReportDate)
		o.FirstYear, o.FirstMonth = first.Year, first.Month
	}
	if err := o.Validate(ctx); err != nil {
		return nil, domain.NormalizeValidationErr(err)
	}
	items, err := InstallmentsFor(o, s.splitScale)
	if err != nil {
		return nil, err
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.checkMandate(ctx, tenantID, o.MandateID, o); err != nil {
			return err
		}
		if err := s.repo.CreateOneOff(ctx, o); err != nil {
			return fmt.Errorf("create one-off discount: %w", err)
		}
		if err := s.repo.CreateInstallments(ctx, items); err != nil {
			return fmt.Errorf("create installments: %w", err)
		}
		logger.Info(ctx, "one-off discount reported",
			"tenant_id", tenantID,
			"mandate_id", o.MandateID,
			"discharge_id", o.ID,
			"value_total", o.ValueTotal.String(),
			"installments", len(items),
		)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// Installments returns the installments of a one-off discount ordered by number.
func (s *Service) Installments(ctx context.Context, tenantID, dischargeID id.ID) ([]*Installment, error) {
	o, err := s.repo.GetOneOff(ctx, dischargeID)
	if err != nil {
		return nil, domain.NormalizeGetErr(err, "one-off discount", dischargeID)
	}
	if o.TenantID != tenantID {
		return nil, apperror.NewNotFound("one-off discount", dischargeID)
	}
	return s.repo.ListInstallments(ctx, dischargeID)
}

// CollectPending materializes the period's monthly records and returns every PENDING
// obligation of the mandate for it. It must run inside the settlement transaction.
func (s *Service) CollectPending(ctx context.Context, tenantID, mandateID id.ID, period types.Period) (Pending, error) {
	if _, err := s.MaterializeMonth(ctx, tenantID, mandateID, period); err != nil {
		return Pending{}, err
	}
	records, err := s.repo.ListPendingRecords(ctx, mandateID, period)
	if err != nil {
		return Pending{}, fmt.Errorf("list pending records: %w", err)
	}
	installments, err := s.repo.ListPendingInstallments(ctx, mandateID, period)
	if err != nil {
		return Pending{}, fmt.Errorf("list pending installments: %w", err)
	}
	return Pending{Records: records, Installments: installments}, nil
}

// Apply flips the collected obligations to APPLIED. A row that is no longer PENDING
// means another writer consumed it first.
func (s *Service) Apply(ctx context.Context, p Pending) error {
	if len(p.Records) > 0 {
		n, err := s.repo.MarkRecordsApplied(ctx, p.RecordIDs())
		if err != nil {
			return fmt.Errorf("apply monthly records: %w", err)
		}
		if n != int64(len(p.Records)) {
			return apperror.NewConcurrentModification("monthly record", p.RecordIDs())
		}
		for _, r := range p.Records {
			r.Status = StatusApplied
		}
	}
	if len(p.Installments) > 0 {
		n, err := s.repo.MarkInstallmentsApplied(ctx, p.InstallmentIDs())
		if err != nil {
			return fmt.Errorf("apply installments: %w", err)
		}
		if n != int64(len(p.Installments)) {
			return apperror.NewConcurrentModification("installment", p.InstallmentIDs())
		}
		for _, i := range p.Installments {
			i.Status = StatusApplied
		}
	}
	return nil
}

// Linked loads the rows a settlement consumed.
func (s *Service) Linked(ctx context.Context, recordIDs, installmentIDs []id.ID) (Pending, error) {
	records, err := s.repo.GetRecordsByIDs(ctx, recordIDs)
	if err != nil {
		return Pending{}, fmt.Errorf("load monthly records: %w", err)
	}
	installments, err := s.repo.GetInstallmentsByIDs(ctx, installmentIDs)
	if err != nil {
		return Pending{}, fmt.Errorf("load installments: %w", err)
	}
	return Pending{Records: records, Installments: installments}, nil
}
