package contract

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

// Service manages the contract lifecycle.
type Service struct {
	repo      Repository
	txManager tx.Manager
}

// NewService creates a contract service.
func NewService(repo Repository, txManager tx.Manager) *Service {
	return &Service{repo: repo, txManager: txManager}
}

// CreateMandate validates and stores a new mandate for the tenant.
func (s *Service) CreateMandate(ctx context.Context, tenantID id.ID, m *Mandate) error {
	if id.IsNil(m.ID) {
		m.BaseEntity = entity.NewBaseEntity(tenantID)
	}
	if err := entity.EnsureTenant("mandate", tenantID, m); err != nil {
		return err
	}
	if m.CutoffDay == 0 {
		m.CutoffDay = DefaultCutoffDay
	}
	if m.Status == "" {
		m.Status = StatusDraft
	}
	if err := m.Validate(ctx); err != nil {
		return domain.NormalizeValidationErr(err)
	}
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.CreateMandate(ctx, m); err != nil {
			return fmt.Errorf("create mandate: %w", err)
		}
		logger.Info(ctx, "mandate created", "tenant_id", tenantID, "mandate_id", m.ID)
		return nil
	})
}

// GetMandate returns the tenant's mandate. Mandates of other tenants are reported as missing.
func (s *Service) GetMandate(ctx context.Context, tenantID, mandateID id.ID) (*Mandate, error) {
	m, err := s.repo.GetMandate(ctx, mandateID)
	if err != nil {
		return nil, domain.NormalizeGetErr(err, "mandate", mandateID)
	}
	if m.TenantID != tenantID {
		return nil, apperror.NewNotFound("mandate", mandateID)
	}
	return m, nil
}

// CreateLease stores a lease and its initial vigency. The lease must belong to the
// same tenant as its mandate.
func (s *Service) CreateLease(ctx context.Context, tenantID id.ID, l *Lease, initial Vigency) error {
	if id.IsNil(l.ID) {
		l.BaseEntity = entity.NewBaseEntity(tenantID)
	}
	if err := entity.EnsureTenant("lease", tenantID, l); err != nil {
		return err
	}
	if l.Status == "" {
		l.Status = StatusDraft
	}
	if err := l.Validate(ctx); err != nil {
		return domain.NormalizeValidationErr(err)
	}

	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		m, err := s.repo.GetMandate(ctx, l.MandateID)
		if err != nil {
			return domain.NormalizeGetErr(err, "mandate", l.MandateID)
		}
		if err := entity.EnsureTenant("mandate", tenantID, m); err != nil {
			return err
		}
		if err := s.repo.CreateLease(ctx, l); err != nil {
			return fmt.Errorf("create lease: %w", err)
		}

		initial.BaseEntity = entity.NewBaseEntity(tenantID)
		initial.LeaseID = l.ID
		initial.Kind = VigencyInitial
		return s.addVigency(ctx, &initial)
	})
}

// GetLease returns the tenant's lease.
func (s *Service) GetLease(ctx context.Context, tenantID, leaseID id.ID) (*Lease, error) {
	l, err := s.repo.GetLease(ctx, leaseID)
	if err != nil {
		return nil, domain.NormalizeGetErr(err, "lease", leaseID)
	}
	if l.TenantID != tenantID {
		return nil, apperror.NewNotFound("lease", leaseID)
	}
	return l, nil
}

// TransitionMandate moves a mandate to the target status.
func (s *Service) TransitionMandate(ctx context.Context, tenantID, mandateID id.ID, target Status) error {
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		m, err := s.repo.LockMandate(ctx, mandateID)
		if err != nil {
			return domain.NormalizeGetErr(err, "mandate", mandateID)
		}
		if m.TenantID != tenantID {
			return apperror.NewNotFound("mandate", mandateID)
		}
		if err := checkTransition(m.Status, target); err != nil {
			return err
		}
		return s.repo.UpdateMandateStatus(ctx, mandateID, target)
	})
}

// TransitionLease moves a lease to the target status.
func (s *Service) TransitionLease(ctx context.Context, tenantID, leaseID id.ID, target Status) error {
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		l, err := s.GetLease(ctx, tenantID, leaseID)
		if err != nil {
			return err
		}
		if err := checkTransition(l.Status, target); err != nil {
			return err
		}
		return s.repo.UpdateLeaseStatus(ctx, leaseID, target)
	})
}

func checkTransition(from, to Status) error {
	if from.CanTransition(to) {
		return nil
	}
	return apperror.NewBusinessRule(apperror.CodeInvalidTransition,
		fmt.Sprintf("cannot move contract from %s to %s", from, to)).
		WithDetail("from", from).
		WithDetail("to", to)
}

func (s *Service) addVigency(ctx context.Context, v *Vigency) error {
	v.StartDate = types.Date(v.StartDate)
	v.EndDate = types.Date(v.EndDate)
	v.Rent = types.RoundMoney(v.Rent)
	if err := v.Validate(ctx); err != nil {
		return domain.NormalizeValidationErr(err)
	}
	existing, err := s.repo.ListVigencies(ctx, v.LeaseID)
	if err != nil {
		return fmt.Errorf("list vigencies: %w", err)
	}
	for _, e := range existing {
		if e.overlaps(v) {
			return apperror.NewValidation("vigency overlaps an existing one").
				WithDetail("existing_id", e.ID).
				WithDetail("start", e.StartDate.Format(time.DateOnly))
		}
	}
	if err := s.repo.CreateVigency(ctx, v); err != nil {
		return fmt.Errorf("create vigency: %w", err)
	}
	return nil
}

// RentForPeriod returns the rent of the vigency covering the first day of the period,
// or zero when no vigency covers it.
func (s *Service) RentForPeriod(ctx context.Context, tenantID, leaseID id.ID, period types.Period) (types.Money, error) {
	if _, err := s.GetLease(ctx, tenantID, leaseID); err != nil {
		return types.Zero(), err
	}
	vigencies, err := s.repo.ListVigencies(ctx, leaseID)
	if err != nil {
		return types.Zero(), fmt.Errorf("list vigencies: %w", err)
	}
	for _, v := range vigencies {
		if v.Covers(period.FirstDay()) {
			return v.Rent, nil
		}
	}
	return types.Zero(), nil
}

// ExpectedRent sums RentForPeriod over every active lease of the mandate.
func (s *Service) ExpectedRent(ctx context.Context, tenantID, mandateID id.ID, period types.Period) (types.Money, error) {
	if _, err := s.GetMandate(ctx, tenantID, mandateID); err != nil {
		return types.Zero(), err
	}
	leases, err := s.repo.ListLeasesByMandate(ctx, mandateID)
	if err != nil {
		return types.Zero(), fmt.Errorf("list leases: %w", err)
	}
	total := types.Zero()
	for _, l := range leases {
		if l.Status != StatusActive {
			continue
		}
		rent, err := s.RentForPeriod(ctx, tenantID, l.ID, period)
		if err != nil {
			return types.Zero(), err
		}
		total = total.Add(rent)
	}
	return total, nil
}

// SetCPI records the annual CPI variation for a year.
func (s *Service) SetCPI(ctx context.Context, cpi AnnualCPI) error {
	if cpi.Year < 1900 {
		return apperror.NewValidation("invalid CPI year").WithDetail("year", cpi.Year)
	}
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.UpsertCPI(ctx, cpi)
	})
}

// Renew appends the next vigency to a lease. It starts the day after the current one
// ends, lasts as long, and carries the rent indexed by the lease's increment type.
func (s *Service) Renew(ctx context.Context, tenantID, leaseID id.ID) (*Vigency, error) {
	var next *Vigency
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		l, err := s.GetLease(ctx, tenantID, leaseID)
		if err != nil {
			return err
		}
		if l.Status.IsClosed() || l.Status == StatusDraft {
			return apperror.NewBusinessRule(apperror.CodeInvalidTransition,
				fmt.Sprintf("lease in status %s cannot be renewed", l.Status))
		}

		vigencies, err := s.repo.ListVigencies(ctx, leaseID)
		if err != nil {
			return fmt.Errorf("list vigencies: %w", err)
		}
		if len(vigencies) == 0 {
			return apperror.NewBusinessRule(apperror.CodeBusinessRule, "lease has no vigency to renew")
		}
		current := vigencies[len(vigencies)-1]

		pct, err := s.increasePercent(ctx, l.Terms, current.EndDate.Year())
		if err != nil {
			return err
		}

		start := current.EndDate.AddDate(0, 0, 1)
		next = &Vigency{
			BaseEntity: entity.NewBaseEntity(tenantID),
			LeaseID:    leaseID,
			Kind:       VigencyRenewal,
			StartDate:  start,
			EndDate:    sameLengthEnd(current.StartDate, current.EndDate, start),
			Rent:       types.ApplyIncrease(current.Rent, pct),
		}
		if err := s.addVigency(ctx, next); err != nil {
			return err
		}
		logger.Info(ctx, "lease renewed",
			"tenant_id", tenantID,
			"lease_id", leaseID,
			"increase_percent", pct.String(),
			"rent", next.Rent.String(),
		)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return next, nil
}

func (s *Service) increasePercent(ctx context.Context, terms Terms, cpiYear int) (types.Percent, error) {
	switch terms.IncrementType {
	case IncrementFixedPercent:
		return terms.IncrementValue, nil
	case IncrementCPI, IncrementCPIPlusPoints:
		cpi, err := s.repo.GetCPI(ctx, cpiYear)
		if err != nil {
			if apperror.IsNotFound(err) {
				return types.Zero(), apperror.NewBusinessRule(apperror.CodeCPINotFound,
					fmt.Sprintf("no CPI registered for %d", cpiYear)).WithDetail("year", cpiYear)
			}
			return types.Zero(), fmt.Errorf("get cpi: %w", err)
		}
		if terms.IncrementType == IncrementCPIPlusPoints {
			return cpi.Value.Add(terms.IncrementValue), nil
		}
		return cpi.Value, nil
	default:
		return types.Zero(), apperror.NewValidation("unknown increment type")
	}
}

// sameLengthEnd keeps whole-month terms whole; other terms keep their day count.
func sameLengthEnd(start, end, nextStart time.Time) time.Time {
	after := end.AddDate(0, 0, 1)
	months := (after.Year()-start.Year())*12 + int(after.Month()-start.Month())
	if months > 0 && start.AddDate(0, months, 0).Equal(after) {
		return nextStart.AddDate(0, months, -1)
	}
	days := int(end.Sub(start).Hours() / 24)
	return nextStart.AddDate(0, 0, days)
}
