package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/x402labs/x402gate/internal/model"
)

// MemoryStore is the fallback store used when no database is configured,
// and the fixture store for tests. It honors the same compare-and-swap
// semantics as the Postgres implementation.
type MemoryStore struct {
	mu          sync.RWMutex
	orders      map[string]*model.Order
	settlements map[string]*model.Settlement
	activity    []*model.ActivityLog
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		orders:      make(map[string]*model.Order),
		settlements: make(map[string]*model.Settlement),
	}
}

func (s *MemoryStore) CreateOrder(_ context.Context, order *model.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *order
	s.orders[order.ID] = &cp
	return nil
}

func (s *MemoryStore) GetOrder(_ context.Context, id string) (*model.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	order, ok := s.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *order
	return &cp, nil
}

func (s *MemoryStore) TransitionOrder(_ context.Context, id string, from, to model.OrderStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[id]
	if !ok {
		return ErrNotFound
	}
	if order.Status != from {
		return ErrConflict
	}
	order.Status = to
	order.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryStore) SetNextRun(_ context.Context, id string, at *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[id]
	if !ok {
		return ErrNotFound
	}
	order.NextRunAt = at
	order.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryStore) ListDueRecurring(_ context.Context, now time.Time) ([]*model.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	due := make([]*model.Order, 0)
	for _, order := range s.orders {
		if order.ExecutionType == model.ExecutionOnce || order.NextRunAt == nil {
			continue
		}
		if !order.NextRunAt.After(now) {
			cp := *order
			due = append(due, &cp)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].NextRunAt.Before(*due[j].NextRunAt) })
	return due, nil
}

func (s *MemoryStore) SaveSettlement(_ context.Context, settlement *model.Settlement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *settlement
	s.settlements[settlement.OrderID] = &cp
	return nil
}

func (s *MemoryStore) GetSettlement(_ context.Context, orderID string) (*model.Settlement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	settlement, ok := s.settlements[orderID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *settlement
	return &cp, nil
}

func (s *MemoryStore) ListSettlementsByWallet(_ context.Context, wallet string) ([]*model.Settlement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*model.Settlement, 0)
	for _, settlement := range s.settlements {
		if settlement.Wallet == wallet {
			cp := *settlement
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) InsertActivity(_ context.Context, entry *model.ActivityLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *entry
	s.activity = append(s.activity, &cp)
	return nil
}
