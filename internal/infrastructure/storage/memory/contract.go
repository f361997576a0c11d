package memory

import (
	"context"
	"sort"

	"arriendos/internal/core/apperror"
	"arriendos/internal/core/id"
	"arriendos/internal/domain/contract"
)

// ContractRepo implements contract.Repository.
type ContractRepo struct {
	store *Store
}

// NewContractRepo creates a contract repository over the store.
func NewContractRepo(store *Store) *ContractRepo {
	return &ContractRepo{store: store}
}

var _ contract.Repository = (*ContractRepo)(nil)

func (r *ContractRepo) CreateMandate(ctx context.Context, m *contract.Mandate) error {
	return r.store.write(func(st *state) error {
		if _, ok := st.mandates[m.ID]; ok {
			return apperror.NewDuplicate("mandate", "id", m.ID.String())
		}
		st.mandates[m.ID] = *m
		return nil
	})
}

func (r *ContractRepo) GetMandate(ctx context.Context, mandateID id.ID) (*contract.Mandate, error) {
	var (
		m  contract.Mandate
		ok bool
	)
	r.store.read(func(st *state) { m, ok = st.mandates[mandateID] })
	if !ok {
		return nil, apperror.NewNotFound("mandate", mandateID)
	}
	return &m, nil
}

// LockMandate is GetMandate: transactions are already serialized by the store.
func (r *ContractRepo) LockMandate(ctx context.Context, mandateID id.ID) (*contract.Mandate, error) {
	return r.GetMandate(ctx, mandateID)
}

func (r *ContractRepo) UpdateMandateStatus(ctx context.Context, mandateID id.ID, status contract.Status) error {
	return r.store.write(func(st *state) error {
		m, ok := st.mandates[mandateID]
		if !ok {
			return apperror.NewNotFound("mandate", mandateID)
		}
		m.Status = status
		st.mandates[mandateID] = m
		return nil
	})
}

func (r *ContractRepo) CreateLease(ctx context.Context, l *contract.Lease) error {
	return r.store.write(func(st *state) error {
		if _, ok := st.leases[l.ID]; ok {
			return apperror.NewDuplicate("lease", "id", l.ID.String())
		}
		st.leases[l.ID] = *l
		return nil
	})
}

func (r *ContractRepo) GetLease(ctx context.Context, leaseID id.ID) (*contract.Lease, error) {
	var (
		l  contract.Lease
		ok bool
	)
	r.store.read(func(st *state) { l, ok = st.leases[leaseID] })
	if !ok {
		return nil, apperror.NewNotFound("lease", leaseID)
	}
	return &l, nil
}

func (r *ContractRepo) ListLeasesByMandate(ctx context.Context, mandateID id.ID) ([]*contract.Lease, error) {
	var out []*contract.Lease
	r.store.read(func(st *state) {
		for _, l := range st.leases {
			if l.MandateID == mandateID {
				l := l
				out = append(out, &l)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *ContractRepo) UpdateLeaseStatus(ctx context.Context, leaseID id.ID, status contract.Status) error {
	return r.store.write(func(st *state) error {
		l, ok := st.leases[leaseID]
		if !ok {
			return apperror.NewNotFound("lease", leaseID)
		}
		l.Status = status
		st.leases[leaseID] = l
		return nil
	})
}

func (r *ContractRepo) CreateVigency(ctx context.Context, v *contract.Vigency) error {
	return r.store.write(func(st *state) error {
		st.vigencies[v.ID] = *v
		return nil
	})
}

func (r *ContractRepo) ListVigencies(ctx context.Context, leaseID id.ID) ([]*contract.Vigency, error) {
	var out []*contract.Vigency
	r.store.read(func(st *state) {
		for _, v := range st.vigencies {
			if v.LeaseID == leaseID {
				v := v
				out = append(out, &v)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate) })
	return out, nil
}

func (r *ContractRepo) UpsertCPI(ctx context.Context, cpi contract.AnnualCPI) error {
	return r.store.write(func(st *state) error {
		st.cpi[cpi.Year] = cpi
		return nil
	})
}

func (r *ContractRepo) GetCPI(ctx context.Context, year int) (*contract.AnnualCPI, error) {
	var (
		c  contract.AnnualCPI
		ok bool
	)
	r.store.read(func(st *state) { c, ok = st.cpi[year] })
	if !ok {
		return nil, apperror.NewNotFound("annual CPI", year)
	}
	return &c, nil
}
