package settlement

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/x402labs/x402gate/internal/config"
	"github.com/x402labs/x402gate/internal/model"
	"github.com/x402labs/x402gate/internal/pkg/apperrors"
	"github.com/x402labs/x402gate/internal/repository"
	"github.com/x402labs/x402gate/internal/routing"
)

func seedOrder(t *testing.T, store *repository.MemoryStore, alloc model.Allocation) *model.Order {
	t.Helper()

	cfg := config.RoutingConfig{
		CrossChainThreshold: 30,
		BestPriceThreshold:  0.003,
		SourceChain:         "ethereum",
		TargetChain:         "base",
		SourceToken:         "USDC",
		CrossChainFeeBps:    10,
	}
	gen := routing.NewGenerator(routing.NewStaticCostModel(), cfg)

	order := &model.Order{
		ID:         uuid.New().String(),
		Wallet:     "0x00000000000000000000000000000000000000aa",
		Amount:     decimal.NewFromInt(1000),
		Allocation: alloc,
		Routes:     gen.Generate(alloc, decimal.NewFromInt(1000)),
		Status:     model.OrderStatusPending,
		CreatedAt:  time.Now().UTC(),
	}
	require.NoError(t, store.CreateOrder(context.Background(), order))
	return order
}

func TestExecuteSettlementRoundTrip(t *testing.T) {
	store := repository.NewMemoryStore()
	exec := NewExecutor(store, repository.NewMemoryLock(), routing.NewStaticCostModel())
	order := seedOrder(t, store, model.Allocation{Stable: 20, Liquid: 30, Growth: 50})

	settlement, err := exec.Execute(context.Background(), order.ID)
	require.NoError(t, err)
	require.NotNil(t, settlement)

	assert.Equal(t, model.SettlementStatusConfirmed, settlement.Status)
	require.Len(t, settlement.Steps, len(order.Routes))

	var gasSum int64
	for i, step := range settlement.Steps {
		assert.Equal(t, i+1, step.StepNumber)
		assert.Equal(t, model.SettlementStatusConfirmed, step.Status)
		assert.NotEmpty(t, step.TxHash)
		gasSum += step.GasUsed
	}
	assert.Equal(t, gasSum, settlement.GasUsed)

	// the store reflects the most recent write, repeatedly
	for i := 0; i < 3; i++ {
		stored, err := store.GetSettlement(context.Background(), order.ID)
		require.NoError(t, err)
		assert.Equal(t, settlement.GasUsed, stored.GasUsed)
		assert.Len(t, stored.Steps, len(order.Routes))
	}

	updated, err := store.GetOrder(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusCompleted, updated.Status)
}

func TestExecuteSettlementDeterministicHashes(t *testing.T) {
	cost := routing.NewStaticCostModel()
	assert.Equal(t, cost.TxHash("order-1", 1), cost.TxHash("order-1", 1))
	assert.NotEqual(t, cost.TxHash("order-1", 1), cost.TxHash("order-1", 2))
	assert.NotEqual(t, cost.TxHash("order-1", 1), cost.TxHash("order-2", 1))
}

func TestExecuteSettlementStepFailure(t *testing.T) {
	store := repository.NewMemoryStore()
	failAt := 1
	exec := NewExecutor(store, repository.NewMemoryLock(), routing.NewStaticCostModel(),
		WithOutcome(func(_ *model.Order, step int) error {
			if step == failAt {
				return errors.New("insufficient liquidity on venue")
			}
			return nil
		}))
	order := seedOrder(t, store, model.Allocation{Stable: 20, Liquid: 30, Growth: 50})

	settlement, err := exec.Execute(context.Background(), order.ID)
	require.NoError(t, err, "simulated step failures are reported, not raised")

	assert.Equal(t, model.SettlementStatusFailed, settlement.Status)
	// step 1 succeeded and stays recorded, step 2 failed, step 3 never ran
	require.Len(t, settlement.Steps, 2)
	assert.Equal(t, model.SettlementStatusConfirmed, settlement.Steps[0].Status)
	assert.Equal(t, model.SettlementStatusFailed, settlement.Steps[1].Status)
	assert.Equal(t, "insufficient liquidity on venue", settlement.Steps[1].Error)

	updated, err := store.GetOrder(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusFailed, updated.Status)
}

func TestExecuteSettlementUnknownOrder(t *testing.T) {
	exec := NewExecutor(repository.NewMemoryStore(), repository.NewMemoryLock(), routing.NewStaticCostModel())

	_, err := exec.Execute(context.Background(), "no-such-order")
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ErrOrderNotFound, appErr.Type)
}

func TestExecuteSettlementTerminalOrderRejected(t *testing.T) {
	store := repository.NewMemoryStore()
	exec := NewExecutor(store, repository.NewMemoryLock(), routing.NewStaticCostModel())
	order := seedOrder(t, store, model.Allocation{Stable: 100})

	_, err := exec.Execute(context.Background(), order.ID)
	require.NoError(t, err)

	// second execution of a completed order must conflict and must not
	// produce a new settlement
	before, err := store.GetSettlement(context.Background(), order.ID)
	require.NoError(t, err)

	_, err = exec.Execute(context.Background(), order.ID)
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ErrInvalidState, appErr.Type)

	after, err := store.GetSettlement(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, before.UpdatedAt, after.UpdatedAt)
}

type recordingSink struct {
	mu       sync.Mutex
	steps    []model.SettlementStep
	statuses []model.SettlementStatus
}

func (r *recordingSink) PublishStep(_ string, step model.SettlementStep) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.steps = append(r.steps, step)
}

func (r *recordingSink) PublishStatus(_ string, status model.SettlementStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, status)
}

func TestExecuteSettlementPublishesEvents(t *testing.T) {
	store := repository.NewMemoryStore()
	sink := &recordingSink{}
	exec := NewExecutor(store, repository.NewMemoryLock(), routing.NewStaticCostModel(), WithEventSink(sink))
	order := seedOrder(t, store, model.Allocation{Stable: 20, Liquid: 30, Growth: 50})

	_, err := exec.Execute(context.Background(), order.ID)
	require.NoError(t, err)

	// one step event per route, in route order
	require.Len(t, sink.steps, len(order.Routes))
	for i, step := range sink.steps {
		assert.Equal(t, i+1, step.StepNumber)
		assert.Equal(t, model.SettlementStatusConfirmed, step.Status)
	}

	// status moves pending -> confirmed
	require.Len(t, sink.statuses, 2)
	assert.Equal(t, model.SettlementStatusPending, sink.statuses[0])
	assert.Equal(t, model.SettlementStatusConfirmed, sink.statuses[1])
}

type saveFailStore struct {
	*repository.MemoryStore
}

func (s *saveFailStore) SaveSettlement(context.Context, *model.Settlement) error {
	return errors.New("settlement write rejected")
}

func TestExecuteSettlementSaveFailureReleasesOrder(t *testing.T) {
	mem := repository.NewMemoryStore()
	exec := NewExecutor(&saveFailStore{mem}, repository.NewMemoryLock(), routing.NewStaticCostModel())
	order := seedOrder(t, mem, model.Allocation{Stable: 100})

	_, err := exec.Execute(context.Background(), order.ID)
	require.Error(t, err)

	// the order must not stay stranded in executing
	updated, err := mem.GetOrder(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusFailed, updated.Status)
}

func TestExecuteSettlementConcurrentCallsSerialized(t *testing.T) {
	store := repository.NewMemoryStore()
	exec := NewExecutor(store, repository.NewMemoryLock(), routing.NewStaticCostModel())
	order := seedOrder(t, store, model.Allocation{Stable: 50, Liquid: 50})

	const callers = 8
	var wg sync.WaitGroup
	results := make([]error, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = exec.Execute(context.Background(), order.ID)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range results {
		if err == nil {
			succeeded++
			continue
		}
		var appErr *apperrors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, apperrors.ErrInvalidState, appErr.Type)
	}
	assert.Equal(t, 1, succeeded, "exactly one concurrent caller may settle the order")
}
