package routing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/x402labs/x402gate/internal/model"
)

func newTestAggregator() *Aggregator {
	return NewAggregator(NewStaticCostModel(), testRoutingConfig())
}

func TestBuildQuoteDeterministic(t *testing.T) {
	gen := newTestGenerator()
	agg := newTestAggregator()

	routes := gen.Generate(model.Allocation{Stable: 20, Liquid: 30, Growth: 50}, decimal.NewFromInt(1000))

	first := agg.BuildQuote("order-1", routes, true)
	second := agg.BuildQuote("order-1", routes, true)

	assert.Equal(t, first.TotalGasEstimate, second.TotalGasEstimate)
	assert.Equal(t, first.TotalExecutionTime, second.TotalExecutionTime)
	assert.Equal(t, first.PriceImpact, second.PriceImpact)
	assert.True(t, first.MEVSavings.Equal(second.MEVSavings))
	assert.True(t, first.CrossChainFee.Equal(second.CrossChainFee))
}

func TestBuildQuoteTotals(t *testing.T) {
	gen := newTestGenerator()
	agg := newTestAggregator()
	cost := NewStaticCostModel()

	routes := gen.Generate(model.Allocation{Stable: 40, Liquid: 60}, decimal.NewFromInt(1000))
	quote := agg.BuildQuote("order-1", routes, false)

	assert.Equal(t, cost.Gas(model.KindStableSwap)+cost.Gas(model.KindDexAggregator), quote.TotalGasEstimate)
	assert.Equal(t, cost.ExecTime(model.KindStableSwap)+cost.ExecTime(model.KindDexAggregator), quote.TotalExecutionTime)

	// weighted average: 0.4*0.0002 + 0.6*0.0005
	assert.InDelta(t, 0.4*impactStable+0.6*impactLiquid, quote.PriceImpact, 1e-9)
}

func TestBuildQuoteCrossChainFee(t *testing.T) {
	gen := newTestGenerator()
	agg := newTestAggregator()

	sameChain := agg.BuildQuote("o1", gen.Generate(model.Allocation{Stable: 40, Liquid: 60}, decimal.NewFromInt(1000)), false)
	assert.True(t, sameChain.CrossChainFee.IsZero(), "same-chain quote must have zero cross-chain fee")
	assert.True(t, sameChain.BestPrice, "low weighted impact should flag best price")

	bridged := agg.BuildQuote("o2", gen.Generate(model.Allocation{Stable: 20, Liquid: 30, Growth: 50}, decimal.NewFromInt(1000)), false)
	assert.True(t, bridged.CrossChainFee.Sign() > 0, "bridged quote must carry a cross-chain fee")
	// 500 bridged at 10 bps
	assert.True(t, bridged.CrossChainFee.Equal(decimal.NewFromFloat(0.5)), "got fee %s", bridged.CrossChainFee)
}

func TestBuildQuoteMEVSavings(t *testing.T) {
	gen := newTestGenerator()
	agg := newTestAggregator()
	routes := gen.Generate(model.Allocation{Stable: 100}, decimal.NewFromInt(1000))

	protected := agg.BuildQuote("o1", routes, true)
	unprotected := agg.BuildQuote("o1", routes, false)

	assert.True(t, protected.MEVSavings.GreaterThan(unprotected.MEVSavings))
	// 30 bps of 1000
	assert.True(t, protected.MEVSavings.Equal(decimal.NewFromInt(3)), "got %s", protected.MEVSavings)
}

func TestBuildQuoteEmptyRoutes(t *testing.T) {
	agg := newTestAggregator()
	quote := agg.BuildQuote("o1", nil, false)

	require.Zero(t, quote.TotalGasEstimate)
	assert.Zero(t, quote.PriceImpact)
	assert.True(t, quote.CrossChainFee.IsZero())
	assert.True(t, quote.BestPrice)
}
