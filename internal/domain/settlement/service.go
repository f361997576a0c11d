package settlement

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
	"arriendos/internal/domain/audit"
	"arriendos/internal/domain/ledger"
	"arriendos/pkg/logger"
)

const entityName = "settlement"

// Compute outcomes reported to the Recorder.
const (
	OutcomeCreated   = "created"
	OutcomeDuplicate = "duplicate"
	OutcomeFailed    = "failed"
)

// Service computes, stores and verifies settlements.
type Service struct {
	repo        Repository
	configs     ConfigRepository
	mandates    MandateLocker
	obligations Obligations
	txManager   tx.Manager
	auditor     Auditor
	recorder    Recorder
	hooks       *domain.HookRegistry[*Settlement]
}

// ServiceConfig wires a Service. Auditor and Recorder are optional.
type ServiceConfig struct {
	Repo        Repository
	Configs     ConfigRepository
	Mandates    MandateLocker
	Obligations Obligations
	TxManager   tx.Manager
	Auditor     Auditor
	Recorder    Recorder
}

// NewService creates a settlement service.
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		repo:        cfg.Repo,
		configs:     cfg.Configs,
		mandates:    cfg.Mandates,
		obligations: cfg.Obligations,
		txManager:   cfg.TxManager,
		auditor:     cfg.Auditor,
		recorder:    cfg.Recorder,
		hooks:       domain.NewHookRegistry[*Settlement](),
	}
}

// Hooks returns the hook registry. Before-create hooks run inside the compute
// transaction after obligations are flipped and before the settlement is inserted.
func (s *Service) Hooks() *domain.HookRegistry[*Settlement] {
	return s.hooks
}

// TenantConfig returns the tenant's settlement configuration or the defaults.
func (s *Service) TenantConfig(ctx context.Context, tenantID id.ID) (Config, error) {
	cfg, err := s.configs.GetConfig(ctx, tenantID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return DefaultConfig(tenantID), nil
		}
		return Config{}, fmt.Errorf("get settlement config: %w", err)
	}
	return *cfg, nil
}

// SaveConfig stores the tenant's settlement configuration.
func (s *Service) SaveConfig(ctx context.Context, cfg Config) error {
	if !types.ValidPercent(cfg.VATPercent) {
		return apperror.NewValidation("VAT percent must be between 0 and 100")
	}
	if !types.HasMoneyScale(cfg.VATPercent) {
		return apperror.NewValidation("VAT percent has more than two decimals").
			WithDetail("vat_percent", cfg.VATPercent.String())
	}
	if cfg.DefaultPaymentDays < 0 {
		return apperror.NewValidation("default payment days cannot be negative")
	}
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.configs.SaveConfig(ctx, cfg)
	})
}

// Compute settles the mandate for the period. It consumes every PENDING obligation of
// the period and stores the resulting snapshot; any failure leaves no trace.
func (s *Service) Compute(ctx context.Context, tenantID, mandateID id.ID, period types.Period, rentCollected types.Money) (*Settlement, error) {
	started := time.Now()
	st, err := s.compute(ctx, tenantID, mandateID, period, rentCollected)
	s.observe(err, time.Since(started))
	if err != nil {
		logger.Warn(ctx, "settlement failed",
			"tenant_id", tenantID,
			"mandate_id", mandateID,
			"period", period.String(),
			"error", err,
		)
		return nil, err
	}
	logger.Info(ctx, "settlement computed",
		"tenant_id", tenantID,
		"mandate_id", mandateID,
		"settlement_id", st.ID,
		"period", period.String(),
		"records", len(st.RecordIDs),
		"installments", len(st.InstallmentIDs),
		"net_payable", st.NetPayable.String(),
	)
	return st, nil
}

func (s *Service) compute(ctx context.Context, tenantID, mandateID id.ID, period types.Period, rentCollected types.Money) (*Settlement, error) {
	if err := period.Validate(); err != nil {
		return nil, apperror.NewValidation(err.Error())
	}
	if !types.HasMoneyScale(rentCollected) {
		return nil, apperror.NewValidation("rent collected has more than two decimals").
			WithDetail("rent_collected", rentCollected.String())
	}

	var st *Settlement
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		mandate, err := s.mandates.LockMandate(ctx, mandateID)
		if err != nil {
			return domain.NormalizeGetErr(err, "mandate", mandateID)
		}
		if err := entity.EnsureTenant("mandate", tenantID, mandate); err != nil {
			return err
		}

		exists, err := s.repo.ExistsForPeriod(ctx, mandateID, period)
		if err != nil {
			return fmt.Errorf("check existing settlement: %w", err)
		}
		if exists {
			return apperror.NewDuplicateSettlement(mandateID, period.String())
		}

		cfg, err := s.TenantConfig(ctx, tenantID)
		if err != nil {
			return err
		}

		pending, err := s.obligations.CollectPending(ctx, tenantID, mandateID, period)
		if err != nil {
			return err
		}

		b, err := Calculate(Input{
			RentCollected:     rentCollected,
			TotalRecurring:    pending.TotalRecurring(),
			TotalOneOff:       pending.TotalOneOff(),
			CommissionPercent: mandate.CommissionPercent,
			ChargesVAT:        cfg.ChargesVAT,
			VATPercent:        cfg.VATPercent,
		})
		if err != nil {
			return err
		}

		if err := s.obligations.Apply(ctx, pending); err != nil {
			return err
		}

		st = &Settlement{
			BaseEntity:        entity.NewBaseEntity(tenantID),
			Period:            period,
			MandateID:         mandateID,
			RentCollected:     b.RentCollected,
			TotalRecurring:    b.TotalRecurring,
			TotalOneOff:       b.TotalOneOff,
			Commission:        b.Commission,
			VAT:               b.VAT,
			NetPayable:        b.NetPayable,
			CommissionPercent: mandate.CommissionPercent,
			VATPercent:        cfg.VATPercent,
			ChargesVAT:        cfg.ChargesVAT,
			RecordIDs:         pending.RecordIDs(),
			InstallmentIDs:    pending.InstallmentIDs(),
		}
		if err := s.hooks.RunBeforeCreate(ctx, st); err != nil {
			return err
		}
		if err := s.repo.Create(ctx, st); err != nil {
			if apperror.IsAppError(err) {
				return err
			}
			return fmt.Errorf("create settlement: %w", err)
		}
		if s.auditor != nil {
			if err := s.auditor.LogChange(ctx, tenantID, entityName, st.ID, audit.ActionCreate, st); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.hooks.RunAfterCreate(ctx, st); err != nil {
		logger.Warn(ctx, "after-create hook failed", "settlement_id", st.ID, "error", err)
	}
	return st, nil
}

func (s *Service) observe(err error, elapsed time.Duration) {
	if s.recorder == nil {
		return
	}
	outcome := OutcomeCreated
	switch {
	case apperror.IsDuplicateSettlement(err):
		outcome = OutcomeDuplicate
	case err != nil:
		outcome = OutcomeFailed
	}
	s.recorder.ObserveCompute(outcome, elapsed)
}

// Get returns the tenant's settlement.
func (s *Service) Get(ctx context.Context, tenantID, settlementID id.ID) (*Settlement, error) {
	st, err := s.repo.Get(ctx, settlementID)
	if err != nil {
		return nil, domain.NormalizeGetErr(err, entityName, settlementID)
	}
	if st.TenantID != tenantID {
		return nil, apperror.NewNotFound(entityName, settlementID)
	}
	return st, nil
}

// ListByPeriod returns the tenant's settlements for the period.
func (s *Service) ListByPeriod(ctx context.Context, tenantID id.ID, period types.Period) ([]*Settlement, error) {
	return s.repo.ListByPeriod(ctx, tenantID, period)
}

// MarkPaid records the owner payout. It is the only change a settlement accepts.
func (s *Service) MarkPaid(ctx context.Context, tenantID, settlementID id.ID, paymentDate time.Time) (*Settlement, error) {
	var st *Settlement
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		if st, err = s.Get(ctx, tenantID, settlementID); err != nil {
			return err
		}
		if err := s.hooks.RunBeforeUpdate(ctx, st); err != nil {
			return err
		}
		day := types.Date(paymentDate)
		n, err := s.repo.MarkPaid(ctx, settlementID, day)
		if err != nil {
			return fmt.Errorf("mark settlement paid: %w", err)
		}
		if n == 0 {
			return apperror.NewBusinessRule(apperror.CodeSettlementPaid, "settlement is already paid").
				WithDetail("settlement_id", settlementID)
		}
		st.Paid = true
		st.PaymentDate = &day
		if s.auditor != nil {
			return s.auditor.LogChange(ctx, tenantID, entityName, st.ID, audit.ActionMarkPaid, st)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if s.recorder != nil {
		s.recorder.ObservePaid()
	}
	logger.Info(ctx, "settlement paid", "tenant_id", tenantID, "settlement_id", settlementID)
	return st, nil
}

// Statement is a settlement with the obligation rows it consumed.
type Statement struct {
	Settlement   *Settlement
	Records      []*ledger.MonthlyRecord
	Installments []*ledger.Installment
}

// Statement loads the settlement and its linked obligations.
func (s *Service) Statement(ctx context.Context, tenantID, settlementID id.ID) (*Statement, error) {
	var stmt *Statement
	err := s.readOnly(ctx, func(ctx context.Context) error {
		st, err := s.Get(ctx, tenantID, settlementID)
		if err != nil {
			return err
		}
		linked, err := s.obligations.Linked(ctx, st.RecordIDs, st.InstallmentIDs)
		if err != nil {
			return err
		}
		stmt = &Statement{Settlement: st, Records: linked.Records, Installments: linked.Installments}
		return nil
	})
	return stmt, err
}

// readOnly runs fn in a read-only transaction when the manager supports one.
func (s *Service) readOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	if ro, ok := s.txManager.(tx.ReadOnlyManager); ok {
		return ro.ReadOnly(ctx, fn)
	}
	return fn(ctx)
}

// Verify recomputes the settlement from its linked rows and stored rates.
func (s *Service) Verify(ctx context.Context, tenantID, settlementID id.ID) error {
	stmt, err := s.Statement(ctx, tenantID, settlementID)
	if err != nil {
		return err
	}
	st := stmt.Settlement
	linked := ledger.Pending{Records: stmt.Records, Installments: stmt.Installments}

	if len(linked.Records) != len(st.RecordIDs) || len(linked.Installments) != len(st.InstallmentIDs) {
		return inconsistent(st, "linked rows are missing")
	}
	for _, r := range linked.Records {
		if r.Status != ledger.StatusApplied {
			return inconsistent(st, "linked monthly record is not applied").WithDetail("record_id", r.ID)
		}
	}
	for _, i := range linked.Installments {
		if i.Status != ledger.StatusApplied {
			return inconsistent(st, "linked installment is not applied").WithDetail("installment_id", i.ID)
		}
	}

	want, err := Calculate(Input{
		RentCollected:     st.RentCollected,
		TotalRecurring:    linked.TotalRecurring(),
		TotalOneOff:       linked.TotalOneOff(),
		CommissionPercent: st.CommissionPercent,
		ChargesVAT:        st.ChargesVAT,
		VATPercent:        st.VATPercent,
	})
	if err != nil {
		return err
	}
	got := st.Breakdown()
	checks := []struct {
		field     string
		want, got types.Money
	}{
		{"total_recurring", want.TotalRecurring, got.TotalRecurring},
		{"total_one_off", want.TotalOneOff, got.TotalOneOff},
		{"commission", want.Commission, got.Commission},
		{"vat", want.VAT, got.VAT},
		{"net_payable", want.NetPayable, got.NetPayable},
	}
	for _, c := range checks {
		if !c.want.Equal(c.got) {
			return inconsistent(st, "stored amount does not match its inputs").
				WithDetail("field", c.field).
				WithDetail("expected", c.want.String()).
				WithDetail("stored", c.got.String())
		}
	}
	return nil
}

func inconsistent(st *Settlement, msg string) *apperror.AppError {
	return apperror.NewBusinessRule(apperror.CodeSettlementInconsistent, msg).
		WithDetail("settlement_id", st.ID).
		WithDetail("period", st.Period.String())
}
