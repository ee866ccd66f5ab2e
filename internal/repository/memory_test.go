package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/x402labs/x402gate/internal/model"
)

func TestTransitionOrderCompareAndSwap(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.CreateOrder(ctx, &model.Order{
		ID:     "o1",
		Status: model.OrderStatusPending,
	}))

	require.NoError(t, store.TransitionOrder(ctx, "o1", model.OrderStatusPending, model.OrderStatusExecuting))

	// the same transition cannot win twice
	err := store.TransitionOrder(ctx, "o1", model.OrderStatusPending, model.OrderStatusExecuting)
	assert.ErrorIs(t, err, ErrConflict)

	require.NoError(t, store.TransitionOrder(ctx, "o1", model.OrderStatusExecuting, model.OrderStatusCompleted))

	// a completed order no longer matches the pending precondition
	err = store.TransitionOrder(ctx, "o1", model.OrderStatusPending, model.OrderStatusExecuting)
	assert.ErrorIs(t, err, ErrConflict)

	err = store.TransitionOrder(ctx, "missing", model.OrderStatusPending, model.OrderStatusExecuting)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListDueRecurring(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Now().UTC()

	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	require.NoError(t, store.CreateOrder(ctx, &model.Order{
		ID: "due", ExecutionType: model.ExecutionDaily, NextRunAt: &past, Status: model.OrderStatusCompleted,
	}))
	require.NoError(t, store.CreateOrder(ctx, &model.Order{
		ID: "later", ExecutionType: model.ExecutionWeekly, NextRunAt: &future, Status: model.OrderStatusCompleted,
	}))
	require.NoError(t, store.CreateOrder(ctx, &model.Order{
		ID: "oneshot", ExecutionType: model.ExecutionOnce, Status: model.OrderStatusPending,
	}))

	due, err := store.ListDueRecurring(ctx, now)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "due", due[0].ID)
}

func TestSettlementLookupIsolation(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	settlement := &model.Settlement{
		OrderID: "o1",
		Wallet:  "0xabc",
		Status:  model.SettlementStatusConfirmed,
		Steps:   []model.SettlementStep{{StepNumber: 1}},
	}
	require.NoError(t, store.SaveSettlement(ctx, settlement))

	got, err := store.GetSettlement(ctx, "o1")
	require.NoError(t, err)

	// mutating the returned copy must not leak into the store
	got.Status = model.SettlementStatusFailed
	again, err := store.GetSettlement(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, model.SettlementStatusConfirmed, again.Status)

	_, err = store.GetSettlement(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
