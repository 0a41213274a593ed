// Package store provides Store implementations.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/kegtracer/engine/ledger"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu         sync.RWMutex
	clients    map[ledger.ClientID]ledger.Client
	beers      map[ledger.BeerID]ledger.Beer
	movements  []ledger.Movement
	nextClient ledger.ClientID
	nextBeer   ledger.BeerID
}

func NewMemory() *Memory {
	return &Memory{
		clients:    make(map[ledger.ClientID]ledger.Client),
		beers:      make(map[ledger.BeerID]ledger.Beer),
		nextClient: 1,
		nextBeer:   1,
	}
}

// -----------------------------------------------------------------------------
// Clients
// -----------------------------------------------------------------------------

func (m *Memory) CreateClient(_ context.Context, c ledger.Client) (ledger.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.clients {
		if existing.Name == c.Name {
			return ledger.Client{}, &ledger.ConflictError{Kind: "client", Name: c.Name, Reason: ledger.ErrDuplicateName}
		}
	}
	c.ID = m.nextClient
	m.nextClient++
	m.clients[c.ID] = c
	return c, nil
}

func (m *Memory) GetClient(_ context.Context, id ledger.ClientID) (*ledger.Client, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.clients[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (m *Memory) ListClients(_ context.Context) ([]ledger.Client, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	clients := make([]ledger.Client, 0, len(m.clients))
	for _, c := range m.clients {
		clients = append(clients, c)
	}
	sort.Slice(clients, func(i, j int) bool { return clients[i].Name < clients[j].Name })
	return clients, nil
}

func (m *Memory) DeleteClient(_ context.Context, id ledger.ClientID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.clients[id]; !ok {
		return ledger.ErrClientNotFound
	}
	delete(m.clients, id)
	return nil
}

func (m *Memory) ClientHasMovements(_ context.Context, id ledger.ClientID) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, mv := range m.movements {
		if mv.ClientID == id {
			return true, nil
		}
	}
	return false, nil
}

// -----------------------------------------------------------------------------
// Beers
// -----------------------------------------------------------------------------

func (m *Memory) CreateBeer(_ context.Context, b ledger.Beer) (ledger.Beer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.beers {
		if existing.Name == b.Name {
			return ledger.Beer{}, &ledger.ConflictError{Kind: "beer", Name: b.Name, Reason: ledger.ErrDuplicateName}
		}
	}
	b.ID = m.nextBeer
	m.nextBeer++
	m.beers[b.ID] = b
	return b, nil
}

func (m *Memory) GetBeer(_ context.Context, id ledger.BeerID) (*ledger.Beer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	b, ok := m.beers[id]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (m *Memory) GetBeerByName(_ context.Context, name string) (*ledger.Beer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, b := range m.beers {
		if b.Name == name {
			b := b
			return &b, nil
		}
	}
	return nil, nil
}

func (m *Memory) ListBeers(_ context.Context) ([]ledger.Beer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	beers := make([]ledger.Beer, 0, len(m.beers))
	for _, b := range m.beers {
		beers = append(beers, b)
	}
	sort.Slice(beers, func(i, j int) bool { return beers[i].Name < beers[j].Name })
	return beers, nil
}

// UpdateBeerPrice mutates a catalog row in place. Only exists so tests can
// prove the frozen-value invariant: real catalogs grow by new rows.
func (m *Memory) UpdateBeerPrice(id ledger.BeerID, price, deposit string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b := m.beers[id]
	b.PriceTTC = ledger.MustDecimal(price)
	b.DepositPerKeg = ledger.MustDecimal(deposit)
	m.beers[id] = b
}

// -----------------------------------------------------------------------------
// Movements
// -----------------------------------------------------------------------------

func (m *Memory) Append(_ context.Context, mv ledger.Movement) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.movements = append(m.movements, mv)
	return nil
}

func (m *Memory) GetMovement(_ context.Context, id ledger.MovementID) (*ledger.Movement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, mv := range m.movements {
		if mv.ID == id {
			mv := mv
			return &mv, nil
		}
	}
	return nil, nil
}

func (m *Memory) GetByIdempotencyKey(_ context.Context, key string) (*ledger.Movement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, mv := range m.movements {
		if mv.IdempotencyKey != "" && mv.IdempotencyKey == key {
			mv := mv
			return &mv, nil
		}
	}
	return nil, nil
}

func (m *Memory) FindRecentMatch(_ context.Context, probe ledger.Movement, since time.Time) (*ledger.Movement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var latest *ledger.Movement
	for i := range m.movements {
		mv := m.movements[i]
		if mv.CreatedAt.Before(since) {
			continue
		}
		if !mv.Date.Equal(probe.Date) || mv.Type != probe.Type ||
			mv.ClientID != probe.ClientID || mv.BeerID != probe.BeerID ||
			mv.Quantity != probe.Quantity || mv.Note != probe.Note {
			continue
		}
		if latest == nil || mv.CreatedAt.After(latest.CreatedAt) {
			latest = &m.movements[i]
		}
	}
	if latest == nil {
		return nil, nil
	}
	mv := *latest
	return &mv, nil
}

func (m *Memory) Load(_ context.Context, f ledger.Filter) ([]ledger.Movement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []ledger.Movement
	for _, mv := range m.movements {
		if f.ClientID != nil && mv.ClientID != *f.ClientID {
			continue
		}
		if f.BeerID != nil && mv.BeerID != *f.BeerID {
			continue
		}
		if f.Range != nil && !f.Range.Contains(mv.Date) {
			continue
		}
		result = append(result, mv)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].Date.Equal(result[j].Date) {
			return result[i].Date.After(result[j].Date)
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (m *Memory) Delete(_ context.Context, id ledger.MovementID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, mv := range m.movements {
		if mv.ID == id {
			m.movements = append(m.movements[:i], m.movements[i+1:]...)
			return nil
		}
	}
	return ledger.ErrMovementNotFound
}
