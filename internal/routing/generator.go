package routing

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/x402labs/x402gate/internal/config"
	"github.com/x402labs/x402gate/internal/model"
)

// Protocol labels by kind. Labels are presentation only; all decisions
// downstream key off model.ProtocolKind.
const (
	protocolStableSwap = "Curve"
	protocolAggregator = "1inch"
	protocolStaking    = "Lido"
	protocolBridge     = "Stargate"
)

// Target tokens per bucket.
const (
	tokenStable = "USDT"
	tokenLiquid = "ETH"
	tokenGrowth = "stETH"
)

// Generator decomposes an allocation into discrete execution routes.
// Allocation validity (sum == 100) is enforced once at the API boundary;
// the generator assumes its input already passed.
type Generator struct {
	cost CostModel
	cfg  config.RoutingConfig
}

func NewGenerator(cost CostModel, cfg config.RoutingConfig) *Generator {
	return &Generator{cost: cost, cfg: cfg}
}

// Generate emits one route per non-zero bucket, amounts proportional to
// the bucket's share of totalAmount. A growth bucket above the
// cross-chain threshold is routed over a bridge instead of staking.
// A zero amount yields no routes.
func (g *Generator) Generate(alloc model.Allocation, totalAmount decimal.Decimal) []model.Route {
	if totalAmount.Sign() <= 0 {
		return nil
	}

	routes := make([]model.Route, 0, 3)

	if alloc.Stable > 0 {
		routes = append(routes, g.sameChainRoute(model.KindStableSwap, protocolStableSwap, tokenStable, bucketAmount(totalAmount, alloc.Stable)))
	}
	if alloc.Liquid > 0 {
		routes = append(routes, g.sameChainRoute(model.KindDexAggregator, protocolAggregator, tokenLiquid, bucketAmount(totalAmount, alloc.Liquid)))
	}
	if alloc.Growth > 0 {
		amount := bucketAmount(totalAmount, alloc.Growth)
		if alloc.Growth > g.cfg.CrossChainThreshold {
			bridged := g.OptimizeCrossChain(alloc.Growth, g.cfg.SourceChain, g.cfg.TargetChain, amount)
			if len(bridged) > 0 {
				routes = append(routes, bridged...)
				return routes
			}
			// same source and target chain: bridging is a no-op, fall
			// back to the staking venue
		}
		routes = append(routes, g.sameChainRoute(model.KindStaking, protocolStaking, tokenGrowth, amount))
	}

	return routes
}

// OptimizeCrossChain produces the bridge leg for a growth bucket that
// exceeds the threshold. Bridging within one chain is a no-op, not an
// error.
func (g *Generator) OptimizeCrossChain(amountPercent float64, sourceChain, targetChain string, amount decimal.Decimal) []model.Route {
	if sourceChain == targetChain {
		return nil
	}

	impact := g.cost.Impact(model.KindBridge)
	return []model.Route{{
		ID:             uuid.New().String(),
		Protocol:       protocolBridge,
		Kind:           model.KindBridge,
		SourceToken:    g.cfg.SourceToken,
		TargetToken:    tokenGrowth,
		Amount:         amount,
		ExpectedOutput: expectedOutput(amount, impact),
		PriceImpact:    impact,
		GasEstimate:    g.cost.Gas(model.KindBridge),
		TimeEstimate:   g.cost.ExecTime(model.KindBridge),
		Path:           []string{g.cfg.SourceToken, "BRIDGE", tokenGrowth},
	}}
}

func (g *Generator) sameChainRoute(kind model.ProtocolKind, protocol, targetToken string, amount decimal.Decimal) model.Route {
	impact := g.cost.Impact(kind)
	return model.Route{
		ID:             uuid.New().String(),
		Protocol:       protocol,
		Kind:           kind,
		SourceToken:    g.cfg.SourceToken,
		TargetToken:    targetToken,
		Amount:         amount,
		ExpectedOutput: expectedOutput(amount, impact),
		PriceImpact:    impact,
		GasEstimate:    g.cost.Gas(kind),
		TimeEstimate:   g.cost.ExecTime(kind),
		Path:           []string{g.cfg.SourceToken, targetToken},
	}
}

func bucketAmount(total decimal.Decimal, percent float64) decimal.Decimal {
	return total.Mul(decimal.NewFromFloat(percent)).Div(decimal.NewFromInt(100))
}
