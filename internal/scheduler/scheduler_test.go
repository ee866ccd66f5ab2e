package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/x402labs/x402gate/internal/config"
	"github.com/x402labs/x402gate/internal/model"
	"github.com/x402labs/x402gate/internal/repository"
	"github.com/x402labs/x402gate/internal/routing"
	"github.com/x402labs/x402gate/internal/settlement"
)

func TestSweepReplaysDueOrder(t *testing.T) {
	store := repository.NewMemoryStore()
	cost := routing.NewStaticCostModel()
	gen := routing.NewGenerator(cost, config.RoutingConfig{
		CrossChainThreshold: 30,
		SourceChain:         "ethereum",
		TargetChain:         "base",
		SourceToken:         "USDC",
	})
	exec := settlement.NewExecutor(store, repository.NewMemoryLock(), cost)

	sched, err := New("0 * * * * *", store, exec)
	require.NoError(t, err)

	due := time.Now().UTC().Add(-time.Minute)
	alloc := model.Allocation{Stable: 40, Liquid: 60}
	parent := &model.Order{
		ID:            uuid.New().String(),
		Wallet:        "0x00000000000000000000000000000000000000aa",
		Amount:        decimal.NewFromInt(1000),
		Allocation:    alloc,
		Routes:        gen.Generate(alloc, decimal.NewFromInt(1000)),
		ExecutionType: model.ExecutionDaily,
		Status:        model.OrderStatusCompleted,
		NextRunAt:     &due,
	}
	require.NoError(t, store.CreateOrder(context.Background(), parent))

	sched.sweep()

	// parent schedule advanced past now
	updated, err := store.GetOrder(context.Background(), parent.ID)
	require.NoError(t, err)
	require.NotNil(t, updated.NextRunAt)
	assert.True(t, updated.NextRunAt.After(time.Now().UTC()))
	assert.Equal(t, model.OrderStatusCompleted, updated.Status, "parent status never changes")

	// a settled one-shot child exists
	children, err := store.ListSettlementsByWallet(context.Background(), parent.Wallet)
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, model.SettlementStatusConfirmed, children[0].Status)

	child, err := store.GetOrder(context.Background(), children[0].OrderID)
	require.NoError(t, err)
	assert.Equal(t, parent.ID, child.ParentID)
	assert.Equal(t, model.ExecutionOnce, child.ExecutionType)
	assert.Equal(t, model.OrderStatusCompleted, child.Status)
}
