package settlement

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/x402labs/x402gate/internal/model"
	"github.com/x402labs/x402gate/internal/pkg/apperrors"
	"github.com/x402labs/x402gate/internal/pkg/logger"
	"github.com/x402labs/x402gate/internal/pkg/metrics"
	"github.com/x402labs/x402gate/internal/repository"
	"github.com/x402labs/x402gate/internal/routing"
)

// StepOutcome decides whether a settlement step succeeds. The default
// always succeeds; tests and future real integrations inject their own.
type StepOutcome func(order *model.Order, stepIndex int) error

// EventSink receives live settlement progress. The websocket hub
// implements it; a nil sink is fine.
type EventSink interface {
	PublishStep(orderID string, step model.SettlementStep)
	PublishStatus(orderID string, status model.SettlementStatus)
}

// Executor walks an order's routes in index order and produces the
// settlement record. Execution is best-effort sequential: a failing step
// stops the walk, already-confirmed steps stay recorded, and the
// settlement reports the partial result. There is no rollback.
type Executor struct {
	store   repository.Store
	lock    repository.ExecutionLock
	cost    routing.CostModel
	outcome StepOutcome
	sink    EventSink
}

type Option func(*Executor)

// WithOutcome overrides the step outcome function.
func WithOutcome(fn StepOutcome) Option {
	return func(e *Executor) { e.outcome = fn }
}

// WithEventSink attaches a progress sink.
func WithEventSink(sink EventSink) Option {
	return func(e *Executor) { e.sink = sink }
}

func NewExecutor(store repository.Store, lock repository.ExecutionLock, cost routing.CostModel, opts ...Option) *Executor {
	e := &Executor{
		store:   store,
		lock:    lock,
		cost:    cost,
		outcome: func(*model.Order, int) error { return nil },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute settles the order. Exactly one call per order can succeed:
// the claim lock turns away concurrent callers early, and the
// conditional pending->executing transition in the store is the
// authoritative gate. Simulated step failures are reported in the
// settlement, never raised; errors are reserved for unknown orders and
// state conflicts.
func (e *Executor) Execute(ctx context.Context, orderID string) (*model.Settlement, error) {
	claimed, err := e.lock.Claim(ctx, orderID)
	if err != nil {
		return nil, apperrors.New(apperrors.ErrUpstream, "execution lock unavailable", err)
	}
	if !claimed {
		return nil, apperrors.NewInvalidState("settlement already in progress for order " + orderID)
	}
	defer e.lock.Release(ctx, orderID)

	order, err := e.store.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewOrderNotFound(orderID)
		}
		return nil, apperrors.Wrap(err)
	}

	if err := e.store.TransitionOrder(ctx, orderID, model.OrderStatusPending, model.OrderStatusExecuting); err != nil {
		switch {
		case errors.Is(err, repository.ErrConflict):
			return nil, apperrors.NewInvalidState("order " + orderID + " is not pending (status: " + string(order.Status) + ")")
		case errors.Is(err, repository.ErrNotFound):
			return nil, apperrors.NewOrderNotFound(orderID)
		default:
			return nil, apperrors.Wrap(err)
		}
	}
	e.publishStatus(orderID, model.SettlementStatusPending)

	settlement := e.runSteps(order)

	if err := e.store.SaveSettlement(ctx, settlement); err != nil {
		// release the claim so the order is not stranded in executing
		// with no settlement to poll
		if terr := e.store.TransitionOrder(ctx, orderID, model.OrderStatusExecuting, model.OrderStatusFailed); terr != nil {
			logger.WithOrder(orderID).Error("failed to release order after settlement save error", "error", terr)
		}
		return nil, apperrors.Wrap(err)
	}

	final := model.OrderStatusCompleted
	if settlement.Status == model.SettlementStatusFailed {
		final = model.OrderStatusFailed
	}
	if err := e.store.TransitionOrder(ctx, orderID, model.OrderStatusExecuting, final); err != nil {
		// settlement is saved; the caller can re-read and retry the
		// status write via polling
		logger.WithOrder(orderID).Error("failed to finalize order status", "error", err)
	}

	metrics.SettlementsTotal.WithLabelValues(string(settlement.Status)).Inc()
	e.publishStatus(orderID, settlement.Status)

	return settlement, nil
}

func (e *Executor) runSteps(order *model.Order) *model.Settlement {
	now := time.Now().UTC()
	settlement := &model.Settlement{
		OrderID:      order.ID,
		Wallet:       order.Wallet,
		TxHash:       e.cost.TxHash(order.ID, 0),
		Status:       model.SettlementStatusConfirmed,
		ActualOutput: decimal.Zero,
		MEVProtected: order.MEVProtection,
		CrossChain:   order.CrossChain,
		Steps:        make([]model.SettlementStep, 0, len(order.Routes)),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	notional := decimal.Zero
	for i, route := range order.Routes {
		notional = notional.Add(route.Amount)
		step := model.SettlementStep{
			StepID:     uuid.New().String(),
			StepNumber: i + 1,
			Protocol:   route.Protocol,
			TxHash:     e.cost.TxHash(order.ID, i+1),
		}

		if err := e.outcome(order, i); err != nil {
			step.Status = model.SettlementStatusFailed
			step.Error = err.Error()
			settlement.Steps = append(settlement.Steps, step)
			settlement.Status = model.SettlementStatusFailed
			metrics.SettlementSteps.WithLabelValues(string(route.Kind), string(step.Status)).Inc()
			e.publishStep(order.ID, step)
			break
		}

		step.Status = model.SettlementStatusConfirmed
		step.GasUsed = route.GasEstimate
		step.ExecutionTime = route.TimeEstimate
		step.Output = route.ExpectedOutput
		settlement.Steps = append(settlement.Steps, step)
		settlement.GasUsed += step.GasUsed
		settlement.ExecutionTime += step.ExecutionTime
		settlement.ActualOutput = settlement.ActualOutput.Add(step.Output)
		metrics.SettlementSteps.WithLabelValues(string(route.Kind), string(step.Status)).Inc()
		e.publishStep(order.ID, step)
	}

	if settlement.Status == model.SettlementStatusConfirmed {
		settlement.MEVSavings = e.cost.MEVSavings(notional, order.MEVProtection)
	}

	return settlement
}

func (e *Executor) publishStep(orderID string, step model.SettlementStep) {
	if e.sink != nil {
		e.sink.PublishStep(orderID, step)
	}
}

func (e *Executor) publishStatus(orderID string, status model.SettlementStatus) {
	if e.sink != nil {
		e.sink.PublishStatus(orderID, status)
	}
}
