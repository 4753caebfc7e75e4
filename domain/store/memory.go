// Package store provides the in-memory Store implementation.
package store

import (
	"context"
	"sync"

	"github.com/warp/housing-ledger/domain"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory keeps all four collections in maps guarded by one RWMutex.
// Creation order is preserved in separate id slices so List* output is
// deterministic.
type Memory struct {
	mu sync.RWMutex

	accounts     map[string]domain.Account
	accountOrder []string

	tickets     map[string]domain.Ticket
	ticketOrder []string

	meters     map[string]domain.Meter
	meterOrder []string

	contractors    []domain.Contractor
	nextContractor int64
}

func NewMemory() *Memory {
	return &Memory{
		accounts: make(map[string]domain.Account),
		tickets:  make(map[string]domain.Ticket),
		meters:   make(map[string]domain.Meter),
	}
}

var _ domain.Store = (*Memory)(nil)

// =============================================================================
// ACCOUNTS
// =============================================================================

func (m *Memory) CreateAccount(_ context.Context, a domain.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.accounts[a.ID]; ok {
		return &domain.DuplicateKeyError{Kind: domain.KindAccount, ID: a.ID}
	}
	m.accounts[a.ID] = a
	m.accountOrder = append(m.accountOrder, a.ID)
	return nil
}

func (m *Memory) GetAccount(_ context.Context, id string) (domain.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.accounts[id]
	if !ok {
		return domain.Account{}, &domain.NotFoundError{Kind: domain.KindAccount, ID: id}
	}
	return a, nil
}

func (m *Memory) ListAccounts(_ context.Context) ([]domain.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.Account, 0, len(m.accountOrder))
	for _, id := range m.accountOrder {
		out = append(out, m.accounts[id])
	}
	return out, nil
}

func (m *Memory) UpdateAccount(_ context.Context, id string, mutate func(*domain.Account) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.accounts[id]
	if !ok {
		return &domain.NotFoundError{Kind: domain.KindAccount, ID: id}
	}
	if err := mutate(&a); err != nil {
		return err
	}
	a.ID = id // the id is immutable
	m.accounts[id] = a
	return nil
}

func (m *Memory) DeleteAccount(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.accounts[id]; !ok {
		return &domain.NotFoundError{Kind: domain.KindAccount, ID: id}
	}
	delete(m.accounts, id)
	m.accountOrder = removeID(m.accountOrder, id)
	return nil
}

// =============================================================================
// TICKETS
// =============================================================================

func (m *Memory) CreateTicket(_ context.Context, t domain.Ticket) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.tickets[t.ID]; ok {
		return &domain.DuplicateKeyError{Kind: domain.KindTicket, ID: t.ID}
	}
	m.tickets[t.ID] = t
	m.ticketOrder = append(m.ticketOrder, t.ID)
	return nil
}

func (m *Memory) GetTicket(_ context.Context, id string) (domain.Ticket, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.tickets[id]
	if !ok {
		return domain.Ticket{}, &domain.NotFoundError{Kind: domain.KindTicket, ID: id}
	}
	return t, nil
}

func (m *Memory) ListTickets(_ context.Context) ([]domain.Ticket, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.Ticket, 0, len(m.ticketOrder))
	for _, id := range m.ticketOrder {
		out = append(out, m.tickets[id])
	}
	return out, nil
}

func (m *Memory) UpdateTicket(_ context.Context, id string, mutate func(*domain.Ticket) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tickets[id]
	if !ok {
		return &domain.NotFoundError{Kind: domain.KindTicket, ID: id}
	}
	if err := mutate(&t); err != nil {
		return err
	}
	t.ID = id
	m.tickets[id] = t
	return nil
}

func (m *Memory) CountTickets(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.tickets), nil
}

// =============================================================================
// METERS
// =============================================================================

func (m *Memory) CreateMeter(_ context.Context, meter domain.Meter) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(meter.Readings) == 0 {
		return &domain.NoInitialReadingError{MeterID: meter.ID}
	}
	if _, ok := m.meters[meter.ID]; ok {
		return &domain.DuplicateKeyError{Kind: domain.KindMeter, ID: meter.ID}
	}
	// Copy the reading slice so later appends by the caller don't alias.
	meter.Readings = append([]domain.Reading(nil), meter.Readings...)
	m.meters[meter.ID] = meter
	m.meterOrder = append(m.meterOrder, meter.ID)
	return nil
}

func (m *Memory) GetMeter(_ context.Context, id string) (domain.Meter, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	meter, ok := m.meters[id]
	if !ok {
		return domain.Meter{}, &domain.NotFoundError{Kind: domain.KindMeter, ID: id}
	}
	meter.Readings = append([]domain.Reading(nil), meter.Readings...)
	return meter, nil
}

func (m *Memory) ListMeters(_ context.Context) ([]domain.Meter, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.Meter, 0, len(m.meterOrder))
	for _, id := range m.meterOrder {
		meter := m.meters[id]
		meter.Readings = append([]domain.Reading(nil), meter.Readings...)
		out = append(out, meter)
	}
	return out, nil
}

func (m *Memory) AppendReading(_ context.Context, meterID string, r domain.Reading) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	meter, ok := m.meters[meterID]
	if !ok {
		return &domain.NotFoundError{Kind: domain.KindMeter, ID: meterID}
	}
	// Append at the end of the stored order, no re-sort by date.
	meter.Readings = append(meter.Readings, r)
	m.meters[meterID] = meter
	return nil
}

func (m *Memory) DeleteMeter(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.meters[id]; !ok {
		return &domain.NotFoundError{Kind: domain.KindMeter, ID: id}
	}
	delete(m.meters, id)
	m.meterOrder = removeID(m.meterOrder, id)
	return nil
}

// =============================================================================
// CONTRACTORS
// =============================================================================

func (m *Memory) CreateContractor(_ context.Context, c domain.Contractor) (domain.Contractor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextContractor++
	c.ID = m.nextContractor
	m.contractors = append(m.contractors, c)
	return c, nil
}

func (m *Memory) ListContractors(_ context.Context) ([]domain.Contractor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.Contractor, len(m.contractors))
	copy(out, m.contractors)
	return out, nil
}

func (m *Memory) FindContractorByName(_ context.Context, name string) (domain.Contractor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, c := range m.contractors {
		if c.Name == name {
			return c, nil
		}
	}
	return domain.Contractor{}, &domain.NotFoundError{Kind: domain.KindContractor, ID: name}
}

// Reset wipes all collections. Used by the demo scenario loader; not
// part of the domain.Store contract.
func (m *Memory) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.accounts = make(map[string]domain.Account)
	m.accountOrder = nil
	m.tickets = make(map[string]domain.Ticket)
	m.ticketOrder = nil
	m.meters = make(map[string]domain.Meter)
	m.meterOrder = nil
	m.contractors = nil
	m.nextContractor = 0
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

func removeID(ids []string, id string) []string {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
