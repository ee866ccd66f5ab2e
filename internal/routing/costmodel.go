package routing

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"
	"github.com/x402labs/x402gate/internal/model"
)

// CostModel supplies every per-route figure the engine needs. Production
// would back this with real on-chain estimation; the static model below
// uses fixed tables so quotes and settlements are deterministic and
// testable.
type CostModel interface {
	Gas(kind model.ProtocolKind) int64
	ExecTime(kind model.ProtocolKind) int64 // seconds
	Impact(kind model.ProtocolKind) float64 // fraction, 0..1
	MEVSavings(notional decimal.Decimal, protected bool) decimal.Decimal
	TxHash(orderID string, step int) string
}

// Impact bands must stay monotonic: stable < liquid < growth < bridge,
// reflecting decreasing liquidity depth.
const (
	impactStable = 0.0002
	impactLiquid = 0.0005
	impactGrowth = 0.0015
	impactBridge = 0.005
)

// StaticCostModel is the fixture-grade model used both by the simulator
// and by tests. All values are synthetic units.
type StaticCostModel struct {
	MEVSavingsBps         int64 // applied to notional when protection is on
	UnprotectedSavingsBps int64 // baseline savings without protection
}

func NewStaticCostModel() *StaticCostModel {
	return &StaticCostModel{
		MEVSavingsBps:         30,
		UnprotectedSavingsBps: 5,
	}
}

func (m *StaticCostModel) Gas(kind model.ProtocolKind) int64 {
	switch kind {
	case model.KindStableSwap:
		return 120_000
	case model.KindDexAggregator:
		return 180_000
	case model.KindStaking:
		return 150_000
	case model.KindBridge:
		// an order of magnitude above same-chain, covering L1 settlement
		return 1_500_000
	default:
		return 0
	}
}

func (m *StaticCostModel) ExecTime(kind model.ProtocolKind) int64 {
	switch kind {
	case model.KindStableSwap, model.KindDexAggregator:
		return 15
	case model.KindStaking:
		return 20
	case model.KindBridge:
		return 45
	default:
		return 0
	}
}

func (m *StaticCostModel) Impact(kind model.ProtocolKind) float64 {
	switch kind {
	case model.KindStableSwap:
		return impactStable
	case model.KindDexAggregator:
		return impactLiquid
	case model.KindStaking:
		return impactGrowth
	case model.KindBridge:
		return impactBridge
	default:
		return 0
	}
}

func (m *StaticCostModel) MEVSavings(notional decimal.Decimal, protected bool) decimal.Decimal {
	bps := m.UnprotectedSavingsBps
	if protected {
		bps = m.MEVSavingsBps
	}
	return notional.Mul(decimal.New(bps, -4))
}

// TxHash derives a stable synthetic transaction hash from the order id
// and step index, so repeated simulations of the same order agree.
func (m *StaticCostModel) TxHash(orderID string, step int) string {
	sum := crypto.Keccak256([]byte(fmt.Sprintf("%s:%d", orderID, step)))
	return hexutil.Encode(sum)
}

// expectedOutput applies the impact band to a route amount.
func expectedOutput(amount decimal.Decimal, impact float64) decimal.Decimal {
	return amount.Mul(decimal.NewFromFloat(1 - impact))
}
