package repository

import (
	"context"
	"errors"
	"time"

	"github.com/x402labs/x402gate/internal/model"
)

var (
	// ErrNotFound means the keyed record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConflict means a conditional status transition matched nothing,
	// i.e. another writer got there first or the state is terminal.
	ErrConflict = errors.New("status conflict")
)

// OrderStore persists orders. TransitionOrder is the compare-and-swap
// primitive the settlement executor relies on to serialize execution:
// it must update the status only when the current status equals from,
// and report ErrConflict otherwise.
type OrderStore interface {
	CreateOrder(ctx context.Context, order *model.Order) error
	GetOrder(ctx context.Context, id string) (*model.Order, error)
	TransitionOrder(ctx context.Context, id string, from, to model.OrderStatus) error
	SetNextRun(ctx context.Context, id string, at *time.Time) error
	ListDueRecurring(ctx context.Context, now time.Time) ([]*model.Order, error)
}

// SettlementStore persists settlements keyed by order id.
type SettlementStore interface {
	SaveSettlement(ctx context.Context, s *model.Settlement) error
	GetSettlement(ctx context.Context, orderID string) (*model.Settlement, error)
	ListSettlementsByWallet(ctx context.Context, wallet string) ([]*model.Settlement, error)
}

// ActivityStore appends to the wallet activity feed.
type ActivityStore interface {
	InsertActivity(ctx context.Context, entry *model.ActivityLog) error
}

// Store is the full persistence surface the service layer consumes.
type Store interface {
	OrderStore
	SettlementStore
	ActivityStore
}
