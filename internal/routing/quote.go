package routing

import (
	"github.com/shopspring/decimal"
	"github.com/x402labs/x402gate/internal/config"
	"github.com/x402labs/x402gate/internal/model"
)

// Aggregator folds a route set into a single quote. Given the same
// routes and flags it always produces the same quote.
type Aggregator struct {
	cost CostModel
	cfg  config.RoutingConfig
}

func NewAggregator(cost CostModel, cfg config.RoutingConfig) *Aggregator {
	return &Aggregator{cost: cost, cfg: cfg}
}

func (a *Aggregator) BuildQuote(orderID string, routes []model.Route, mevProtected bool) model.Quote {
	quote := model.Quote{
		OrderID:       orderID,
		Routes:        routes,
		MEVSavings:    decimal.Zero,
		CrossChainFee: decimal.Zero,
	}

	notional := decimal.Zero
	bridged := decimal.Zero
	weightedImpact := decimal.Zero

	for _, r := range routes {
		quote.TotalGasEstimate += r.GasEstimate
		quote.TotalExecutionTime += r.TimeEstimate
		notional = notional.Add(r.Amount)
		weightedImpact = weightedImpact.Add(r.Amount.Mul(decimal.NewFromFloat(r.PriceImpact)))
		if r.Kind.IsCrossChain() {
			bridged = bridged.Add(r.Amount)
		}
	}

	if notional.Sign() > 0 {
		quote.PriceImpact, _ = weightedImpact.Div(notional).Float64()
	}
	quote.MEVSavings = a.cost.MEVSavings(notional, mevProtected)
	if bridged.Sign() > 0 {
		quote.CrossChainFee = bridged.Mul(decimal.New(a.cfg.CrossChainFeeBps, -4))
	}
	quote.BestPrice = quote.PriceImpact < a.cfg.BestPriceThreshold

	return quote
}
