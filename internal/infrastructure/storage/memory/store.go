// Package memory provides in-process repositories and a snapshot transaction manager.
// It backs the tests and single-process tools that run without PostgreSQL.
package memory

import (
	"context"
	"maps"
	"slices"
	"sync"

	"arriendos/internal/core/id"
	"arriendos/internal/domain/audit"
	"arriendos/internal/domain/contract"
	"arriendos/internal/domain/inspection"
	"arriendos/internal/domain/ledger"
	"arriendos/internal/domain/settlement"
)

type state struct {
	mandates  map[id.ID]contract.Mandate
	leases    map[id.ID]contract.Lease
	vigencies map[id.ID]contract.Vigency
	cpi       map[int]contract.AnnualCPI

	recurring    map[id.ID]ledger.RecurringDischarge
	history      map[id.ID][]ledger.ValueEntry
	records      map[id.ID]ledger.MonthlyRecord
	oneOffs      map[id.ID]ledger.OneOffDischarge
	installments map[id.ID]ledger.Installment

	settlements map[id.ID]settlement.Settlement
	configs     map[id.ID]settlement.Config

	templates    map[id.ID]inspection.Template
	environments map[id.ID]inspection.Environment
	items        map[id.ID]inspection.Item

	audit []audit.Entry
}

func newState() *state {
	return &state{
		mandates:     make(map[id.ID]contract.Mandate),
		leases:       make(map[id.ID]contract.Lease),
		vigencies:    make(map[id.ID]contract.Vigency),
		cpi:          make(map[int]contract.AnnualCPI),
		recurring:    make(map[id.ID]ledger.RecurringDischarge),
		history:      make(map[id.ID][]ledger.ValueEntry),
		records:      make(map[id.ID]ledger.MonthlyRecord),
		oneOffs:      make(map[id.ID]ledger.OneOffDischarge),
		installments: make(map[id.ID]ledger.Installment),
		settlements:  make(map[id.ID]settlement.Settlement),
		configs:      make(map[id.ID]settlement.Config),
		templates:    make(map[id.ID]inspection.Template),
		environments: make(map[id.ID]inspection.Environment),
		items:        make(map[id.ID]inspection.Item),
	}
}

// clone copies every table. Slices held by rows are copied too, so a restored
// snapshot never shares backing arrays with rolled-back writes.
func (s *state) clone() *state {
	c := &state{
		mandates:     maps.Clone(s.mandates),
		leases:       maps.Clone(s.leases),
		vigencies:    maps.Clone(s.vigencies),
		cpi:          maps.Clone(s.cpi),
		recurring:    maps.Clone(s.recurring),
		history:      make(map[id.ID][]ledger.ValueEntry, len(s.history)),
		records:      maps.Clone(s.records),
		oneOffs:      maps.Clone(s.oneOffs),
		installments: maps.Clone(s.installments),
		settlements:  make(map[id.ID]settlement.Settlement, len(s.settlements)),
		configs:      maps.Clone(s.configs),
		templates:    maps.Clone(s.templates),
		environments: maps.Clone(s.environments),
		items:        maps.Clone(s.items),
		audit:        slices.Clone(s.audit),
	}
	for k, v := range s.history {
		c.history[k] = slices.Clone(v)
	}
	for k, v := range s.settlements {
		c.settlements[k] = cloneSettlement(v)
	}
	return c
}

func cloneSettlement(v settlement.Settlement) settlement.Settlement {
	v.RecordIDs = slices.Clone(v.RecordIDs)
	v.InstallmentIDs = slices.Clone(v.InstallmentIDs)
	if v.PaymentDate != nil {
		d := *v.PaymentDate
		v.PaymentDate = &d
	}
	return v
}

// Store holds every table in memory.
type Store struct {
	mu   sync.RWMutex
	data *state

	// txMu serializes transactions, which stands in for row locks.
	txMu sync.Mutex
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{data: newState()}
}

func (s *Store) read(fn func(st *state)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.data)
}

func (s *Store) write(fn func(st *state) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.data)
}

type txKey struct{}

// TxManager implements tx.Manager over a Store. A failed unit of work restores the
// snapshot taken when it began.
type TxManager struct {
	store *Store
}

// NewTxManager creates a transaction manager for the store.
func NewTxManager(store *Store) *TxManager {
	return &TxManager{store: store}
}

// RunInTransaction implements tx.Manager. Nested calls join the outer transaction.
func (m *TxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if InTransaction(ctx) {
		return fn(ctx)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.store.txMu.Lock()
	defer m.store.txMu.Unlock()

	m.store.mu.RLock()
	snapshot := m.store.data.clone()
	m.store.mu.RUnlock()

	defer func() {
		if p := recover(); p != nil {
			m.restore(snapshot)
			panic(p)
		}
		if err != nil {
			m.restore(snapshot)
		}
	}()

	return fn(context.WithValue(ctx, txKey{}, true))
}

// ReadOnly runs fn under the transaction lock without snapshotting.
func (m *TxManager) ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	if InTransaction(ctx) {
		return fn(ctx)
	}
	m.store.txMu.Lock()
	defer m.store.txMu.Unlock()
	return fn(context.WithValue(ctx, txKey{}, true))
}

func (m *TxManager) restore(snapshot *state) {
	m.store.mu.Lock()
	m.store.data = snapshot
	m.store.mu.Unlock()
}

// InTransaction reports whether ctx carries a memory transaction.
func InTransaction(ctx context.Context) bool {
	v, _ := ctx.Value(txKey{}).(bool)
	return v
}
