package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/x402labs/x402gate/internal/config"
	"github.com/x402labs/x402gate/internal/intent"
	"github.com/x402labs/x402gate/internal/model"
	"github.com/x402labs/x402gate/internal/pkg/apperrors"
	"github.com/x402labs/x402gate/internal/pkg/logger"
	"github.com/x402labs/x402gate/internal/pkg/metrics"
	"github.com/x402labs/x402gate/internal/repository"
	"github.com/x402labs/x402gate/internal/routing"
	"github.com/x402labs/x402gate/internal/settlement"
)

// SettleService orchestrates the quote -> order -> settlement pipeline.
// All request validation (allocation sum, amount, wallet format) happens
// here, once, at the API boundary.
type SettleService struct {
	cfg    *config.Config
	store  repository.Store
	gen    *routing.Generator
	agg    *routing.Aggregator
	exec   *settlement.Executor
	parser intent.Parser
	cache  repository.QuoteCache // nil when redis is not configured
}

func NewSettleService(
	cfg *config.Config,
	store repository.Store,
	gen *routing.Generator,
	agg *routing.Aggregator,
	exec *settlement.Executor,
	parser intent.Parser,
	cache repository.QuoteCache,
) *SettleService {
	return &SettleService{
		cfg:    cfg,
		store:  store,
		gen:    gen,
		agg:    agg,
		exec:   exec,
		parser: parser,
		cache:  cache,
	}
}

func validateBoundary(wallet string, amount float64, alloc model.Allocation) error {
	if !common.IsHexAddress(wallet) {
		return apperrors.New(apperrors.ErrInvalidRequest, "wallet_address is not a valid address", nil)
	}
	if amount <= 0 {
		return apperrors.NewInvalidAmount(fmt.Sprintf("amount %.4f must be positive", amount))
	}
	if !alloc.Valid() {
		return apperrors.NewInvalidAllocation(
			fmt.Sprintf("allocation sums to %.1f, expected 100 (±%.1f)", alloc.Sum(), model.AllocationTolerance))
	}
	return nil
}

// GetQuote validates the request, decomposes the allocation into routes
// and aggregates them into a quote. Quotes are ephemeral; a short-TTL
// cache keyed by (intent, amount, allocation) absorbs repeat requests.
func (s *SettleService) GetQuote(ctx context.Context, req model.QuoteRequest) (*model.Quote, error) {
	if err := validateBoundary(req.WalletAddress, req.Amount, req.Allocation); err != nil {
		metrics.QuotesTotal.WithLabelValues("rejected").Inc()
		return nil, err
	}

	cacheKey := repository.QuoteCacheKey(req.Intent, req.Amount, req.Allocation)
	if s.cache != nil {
		if quote, ok := s.cache.Get(ctx, cacheKey); ok {
			metrics.QuotesTotal.WithLabelValues("cached").Inc()
			return quote, nil
		}
	}

	amount := decimal.NewFromFloat(req.Amount)
	routes := s.gen.Generate(req.Allocation, amount)
	quote := s.agg.BuildQuote(uuid.New().String(), routes, false)

	if s.cache != nil {
		s.cache.Set(ctx, cacheKey, &quote)
	}
	metrics.QuotesTotal.WithLabelValues("ok").Inc()
	return &quote, nil
}

// CreateOrder persists an approved strategy as a pending order with its
// routes and estimates attached.
func (s *SettleService) CreateOrder(ctx context.Context, req model.OrderRequest) (*model.Order, error) {
	if err := validateBoundary(req.WalletAddress, req.Amount, req.Allocation); err != nil {
		return nil, err
	}

	amount := decimal.NewFromFloat(req.Amount)
	routes := s.gen.Generate(req.Allocation, amount)
	execType := model.ParseExecutionType(req.ExecutionType)

	order := &model.Order{
		ID:            uuid.New().String(),
		Wallet:        req.WalletAddress,
		Intent:        req.Intent,
		Amount:        amount,
		SourceChain:   orDefault(req.SourceChain, s.cfg.Routing.SourceChain),
		TargetChain:   orDefault(req.TargetChain, s.cfg.Routing.TargetChain),
		SourceToken:   orDefault(req.SourceToken, s.cfg.Routing.SourceToken),
		TargetToken:   req.TargetToken,
		Allocation:    req.Allocation,
		Routes:        routes,
		ExecutionType: execType,
		MEVProtection: req.MEVProtection,
		Status:        model.OrderStatusPending,
		CreatedAt:     time.Now().UTC(),
		UpdatedAt:     time.Now().UTC(),
	}

	quote := s.agg.BuildQuote(order.ID, routes, req.MEVProtection)
	order.EstimatedGas = quote.TotalGasEstimate
	order.EstimatedTime = quote.TotalExecutionTime
	order.CrossChain = quote.CrossChainFee.Sign() > 0

	if interval := execType.Interval(); interval > 0 {
		next := time.Now().UTC().Add(interval)
		order.NextRunAt = &next
	}

	if err := s.store.CreateOrder(ctx, order); err != nil {
		return nil, apperrors.Wrap(err)
	}

	metrics.OrdersTotal.WithLabelValues(string(order.Status), string(execType)).Inc()
	logger.WithWallet(order.Wallet).Info("order created",
		"order_id", order.ID,
		"routes", len(order.Routes),
		"cross_chain", order.CrossChain)
	return order, nil
}

// ExecuteOrder runs the settlement for a pending order.
func (s *SettleService) ExecuteOrder(ctx context.Context, orderID, wallet string) (*model.Settlement, error) {
	if !common.IsHexAddress(wallet) {
		return nil, apperrors.New(apperrors.ErrInvalidRequest, "wallet_address is not a valid address", nil)
	}
	return s.exec.Execute(ctx, orderID)
}

// GetSettlement is the idempotent status poll.
func (s *SettleService) GetSettlement(ctx context.Context, orderID string) (*model.Settlement, error) {
	settlement, err := s.store.GetSettlement(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewOrderNotFound(orderID)
		}
		return nil, apperrors.Wrap(err)
	}
	return settlement, nil
}

// ListSettlements returns a wallet's settlements with aggregate stats.
func (s *SettleService) ListSettlements(ctx context.Context, wallet string) (*model.SettlementListResponse, error) {
	if !common.IsHexAddress(wallet) {
		return nil, apperrors.New(apperrors.ErrInvalidRequest, "wallet is not a valid address", nil)
	}

	settlements, err := s.store.ListSettlementsByWallet(ctx, wallet)
	if err != nil {
		return nil, apperrors.Wrap(err)
	}

	resp := &model.SettlementListResponse{Settlements: settlements}
	resp.Stats.TotalSettlements = len(settlements)
	for _, st := range settlements {
		if st.MEVProtected {
			resp.Stats.MEVProtectedSettlements++
		}
		if st.CrossChain {
			resp.Stats.CrossChainSettlements++
		}
		if st.Status == model.SettlementStatusConfirmed {
			resp.Stats.CompletedSettlements++
		}
	}
	return resp, nil
}

// ParseIntent delegates to the configured parser and re-validates the
// returned allocation before handing it to callers.
func (s *SettleService) ParseIntent(ctx context.Context, text string) (*model.ParsedIntent, error) {
	parsed, err := s.parser.Parse(ctx, text)
	if err != nil {
		return nil, err
	}
	if !parsed.Allocation.Valid() {
		return nil, apperrors.NewInvalidAllocation(
			fmt.Sprintf("parsed allocation sums to %.1f, expected 100", parsed.Allocation.Sum()))
	}
	return parsed, nil
}

func orDefault(v, def string) string {
	if v != "" {
		return v
	}
	return def
}
