package memory

import (
	"context"
	"sort"
	"time"

	"arriendos/internal/core/apperror"
	"arriendos/internal/core/id"
	"arriendos/internal/core/types"
	"arriendos/internal/domain/settlement"
)

// SettlementRepo implements settlement.Repository and settlement.ConfigRepository.
type SettlementRepo struct {
	store *Store
}

// NewSettlementRepo creates a settlement repository over the store.
func NewSettlementRepo(store *Store) *SettlementRepo {
	return &SettlementRepo{store: store}
}

var (
	_ settlement.Repository       = (*SettlementRepo)(nil)
	_ settlement.ConfigRepository = (*SettlementRepo)(nil)
)

func (r *SettlementRepo) Create(ctx context.Context, s *settlement.Settlement) error {
	return r.store.write(func(st *state) error {
		for _, existing := range st.settlements {
			if existing.MandateID == s.MandateID && existing.Period == s.Period {
				return apperror.NewDuplicateSettlement(s.MandateID, s.Period.String())
			}
		}
		st.settlements[s.ID] = cloneSettlement(*s)
		return nil
	})
}

func (r *SettlementRepo) Get(ctx context.Context, settlementID id.ID) (*settlement.Settlement, error) {
	var out *settlement.Settlement
	r.store.read(func(st *state) {
		if s, ok := st.settlements[settlementID]; ok {
			c := cloneSettlement(s)
			out = &c
		}
	})
	if out == nil {
		return nil, apperror.NewNotFound("settlement", settlementID)
	}
	return out, nil
}

func (r *SettlementRepo) ExistsForPeriod(ctx context.Context, mandateID id.ID, period types.Period) (bool, error) {
	found := false
	r.store.read(func(st *state) {
		for _, s := range st.settlements {
			if s.MandateID == mandateID && s.Period == period {
				found = true
				return
			}
		}
	})
	return found, nil
}

func (r *SettlementRepo) ListByPeriod(ctx context.Context, tenantID id.ID, period types.Period) ([]*settlement.Settlement, error) {
	var out []*settlement.Settlement
	r.store.read(func(st *state) {
		for _, s := range st.settlements {
			if s.TenantID == tenantID && s.Period == period {
				c := cloneSettlement(s)
				out = append(out, &c)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// Count returns how many settlements exist for the key.
func (r *SettlementRepo) Count(mandateID id.ID, period types.Period) int {
	n := 0
	r.store.read(func(st *state) {
		for _, s := range st.settlements {
			if s.MandateID == mandateID && s.Period == period {
				n++
			}
		}
	})
	return n
}

func (r *SettlementRepo) MarkPaid(ctx context.Context, settlementID id.ID, paymentDate time.Time) (int64, error) {
	var n int64
	err := r.store.write(func(st *state) error {
		s, ok := st.settlements[settlementID]
		if !ok {
			return apperror.NewNotFound("settlement", settlementID)
		}
		if s.Paid {
			return nil
		}
		s.Paid = true
		s.PaymentDate = &paymentDate
		st.settlements[settlementID] = s
		n = 1
		return nil
	})
	return n, err
}

func (r *SettlementRepo) GetConfig(ctx context.Context, tenantID id.ID) (*settlement.Config, error) {
	var (
		c  settlement.Config
		ok bool
	)
	r.store.read(func(st *state) { c, ok = st.configs[tenantID] })
	if !ok {
		return nil, apperror.NewNotFound("settlement config", tenantID)
	}
	return &c, nil
}

func (r *SettlementRepo) SaveConfig(ctx context.Context, cfg settlement.Config) error {
	return r.store.write(func(st *state) error {
		st.configs[cfg.TenantID] = cfg
		return nil
	})
}
