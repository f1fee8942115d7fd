package billing

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
)

type MemoryEvent struct {
	Title  string
	Type   string
	Active bool
}

type MemoryPrice struct {
	EventID string
	Amount  decimal.Decimal
	Active  bool
}

// Memory is an in-process Provider used when no billing provider is
// configured.
type Memory struct {
	mu     sync.Mutex
	seq    int
	events map[string]*MemoryEvent
	prices map[string]*MemoryPrice
}

func NewMemory() *Memory {
	return &Memory{
		events: map[string]*MemoryEvent{},
		prices: map[string]*MemoryPrice{},
	}
}

func (m *Memory) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s_%d", prefix, m.seq)
}

func (m *Memory) CreateEvent(_ context.Context, title, eventType string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID("evt")
	m.events[id] = &MemoryEvent{Title: title, Type: eventType, Active: true}
	return id, nil
}

func (m *Memory) UpdateEvent(_ context.Context, id, title, eventType string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.events[id]
	if !ok {
		return "", fmt.Errorf("billing.Memory.UpdateEvent: %w", ErrNotFound)
	}
	e.Title, e.Type = title, eventType
	return id, nil
}

func (m *Memory) DeleteEvent(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.events[id]; !ok {
		return fmt.Errorf("billing.Memory.DeleteEvent: %w", ErrNotFound)
	}
	delete(m.events, id)
	return nil
}

func (m *Memory) CreatePrice(_ context.Context, eventID string, amount decimal.Decimal) (string, error) {
	const op = "billing.Memory.CreatePrice"

	if amount.IsNegative() {
		return "", fmt.Errorf("%s: %w", op, ErrInvalidAmount)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.events[eventID]; !ok {
		return "", fmt.Errorf("%s: %w", op, ErrNotFound)
	}

	id := m.nextID("price")
	m.prices[id] = &MemoryPrice{EventID: eventID, Amount: amount, Active: true}
	return id, nil
}

func (m *Memory) UpdatePrice(_ context.Context, priceID, eventID string, amount decimal.Decimal) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.prices[priceID]
	if !ok || p.EventID != eventID {
		return "", fmt.Errorf("billing.Memory.UpdatePrice: %w", ErrNotFound)
	}
	p.Amount = amount
	return priceID, nil
}

func (m *Memory) DeletePrice(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.prices[id]; !ok {
		return fmt.Errorf("billing.Memory.DeletePrice: %w", ErrNotFound)
	}
	delete(m.prices, id)
	return nil
}

// Event returns a copy of a stored billing event.
func (m *Memory) Event(id string) (MemoryEvent, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.events[id]
	if !ok {
		return MemoryEvent{}, false
	}
	return *e, true
}

// Price returns a copy of a stored price.
func (m *Memory) Price(id string) (MemoryPrice, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.prices[id]
	if !ok {
		return MemoryPrice{}, false
	}
	return *p, true
}
