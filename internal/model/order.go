package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus transitions are monotonic: pending -> executing -> completed|failed.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusExecuting OrderStatus = "executing"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusFailed    OrderStatus = "failed"
)

// Terminal reports whether no further status transition is allowed.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusFailed
}

type SettlementStatus string

const (
	SettlementStatusPending   SettlementStatus = "pending"
	SettlementStatusConfirmed SettlementStatus = "confirmed"
	SettlementStatusFailed    SettlementStatus = "failed"
)

type ExecutionType string

const (
	ExecutionOnce    ExecutionType = "once"
	ExecutionDaily   ExecutionType = "daily"
	ExecutionWeekly  ExecutionType = "weekly"
	ExecutionMonthly ExecutionType = "monthly"
)

// Interval returns the recurrence period, zero for one-shot orders.
func (t ExecutionType) Interval() time.Duration {
	switch t {
	case ExecutionDaily:
		return 24 * time.Hour
	case ExecutionWeekly:
		return 7 * 24 * time.Hour
	case ExecutionMonthly:
		return 30 * 24 * time.Hour
	default:
		return 0
	}
}

func ParseExecutionType(raw string) ExecutionType {
	switch ExecutionType(raw) {
	case ExecutionDaily, ExecutionWeekly, ExecutionMonthly:
		return ExecutionType(raw)
	default:
		return ExecutionOnce
	}
}

// Allocation splits capital across the three asset buckets, in
// percentage points. A valid allocation sums to 100.
type Allocation struct {
	Stable float64 `json:"stable" mapstructure:"stable"`
	Liquid float64 `json:"liquid" mapstructure:"liquid"`
	Growth float64 `json:"growth" mapstructure:"growth"`
}

// AllocationTolerance is how far from 100 the bucket sum may drift before
// validation rejects the allocation.
const AllocationTolerance = 0.1

func (a Allocation) Sum() float64 {
	return a.Stable + a.Liquid + a.Growth
}

func (a Allocation) Valid() bool {
	if a.Stable < 0 || a.Liquid < 0 || a.Growth < 0 {
		return false
	}
	diff := a.Sum() - 100
	return diff >= -AllocationTolerance && diff <= AllocationTolerance
}

// Route is one atomic execution leg. Routes are immutable once generated
// and owned by the Quote or Order that produced them.
type Route struct {
	ID             string          `json:"id"`
	Protocol       string          `json:"protocol"`
	Kind           ProtocolKind    `json:"kind"`
	SourceToken    string          `json:"source_token"`
	TargetToken    string          `json:"target_token"`
	Amount         decimal.Decimal `json:"amount"`
	ExpectedOutput decimal.Decimal `json:"expected_output"`
	PriceImpact    float64         `json:"price_impact"` // fraction, 0..1
	GasEstimate    int64           `json:"gas_estimate"`
	TimeEstimate   int64           `json:"time_estimate"` // seconds
	Path           []string        `json:"path"`
}

// Quote is derived from a route set and never persisted; callers recompute
// it per request (the service may cache it for a short TTL).
type Quote struct {
	OrderID            string          `json:"order_id"`
	Routes             []Route         `json:"routes"`
	TotalGasEstimate   int64           `json:"total_gas_estimate"`
	TotalExecutionTime int64           `json:"total_execution_time"` // seconds
	PriceImpact        float64         `json:"price_impact"`
	MEVSavings         decimal.Decimal `json:"mev_savings"`
	CrossChainFee      decimal.Decimal `json:"cross_chain_fee"`
	BestPrice          bool            `json:"best_price"`
}

// Order is the persisted strategy approval.
type Order struct {
	ID            string          `json:"id" gorm:"primaryKey;column:id"`
	Wallet        string          `json:"wallet" gorm:"index;column:wallet"`
	Intent        string          `json:"intent" gorm:"column:intent"`
	Amount        decimal.Decimal `json:"amount" gorm:"type:decimal(32,18);column:amount"`
	SourceChain   string          `json:"source_chain" gorm:"column:source_chain"`
	TargetChain   string          `json:"target_chain" gorm:"column:target_chain"`
	SourceToken   string          `json:"source_token" gorm:"column:source_token"`
	TargetToken   string          `json:"target_token" gorm:"column:target_token"`
	Allocation    Allocation      `json:"allocation" gorm:"embedded;embeddedPrefix:alloc_"`
	Routes        []Route         `json:"routes" gorm:"serializer:json"`
	ExecutionType ExecutionType   `json:"execution_type" gorm:"column:execution_type"`
	MEVProtection bool            `json:"mev_protection" gorm:"column:mev_protection"`
	CrossChain    bool            `json:"cross_chain" gorm:"column:cross_chain"`
	Status        OrderStatus     `json:"status" gorm:"index;column:status"`
	EstimatedGas  int64           `json:"estimated_gas" gorm:"column:estimated_gas"`
	EstimatedTime int64           `json:"estimated_time" gorm:"column:estimated_time"`
	ParentID      string          `json:"parent_id,omitempty" gorm:"column:parent_id"`
	NextRunAt     *time.Time      `json:"next_run_at,omitempty" gorm:"column:next_run_at"`
	CreatedAt     time.Time       `json:"created_at" gorm:"column:created_at"`
	UpdatedAt     time.Time       `json:"updated_at" gorm:"column:updated_at"`
}

func (Order) TableName() string { return "orders" }

// SettlementStep mirrors one Route, carrying execution-time results
// instead of estimates. StepNumber is 1-based and follows route order.
type SettlementStep struct {
	StepID        string           `json:"step_id"`
	StepNumber    int              `json:"step_number"`
	Protocol      string           `json:"protocol"`
	TxHash        string           `json:"tx_hash"`
	Status        SettlementStatus `json:"status"`
	GasUsed       int64            `json:"gas_used"`
	ExecutionTime int64            `json:"execution_time"` // seconds
	Output        decimal.Decimal  `json:"output"`
	Error         string           `json:"error,omitempty"`
}

// Settlement is the per-order execution record, keyed by order id for
// idempotent status polling. One Settlement per Order.
type Settlement struct {
	OrderID       string           `json:"order_id" gorm:"primaryKey;column:order_id"`
	Wallet        string           `json:"wallet" gorm:"index;column:wallet"`
	TxHash        string           `json:"tx_hash" gorm:"column:tx_hash"`
	Status        SettlementStatus `json:"status" gorm:"column:status"`
	GasUsed       int64            `json:"gas_used" gorm:"column:gas_used"`
	ExecutionTime int64            `json:"execution_time" gorm:"column:execution_time"`
	ActualOutput  decimal.Decimal  `json:"actual_output" gorm:"type:decimal(32,18);column:actual_output"`
	MEVSavings    decimal.Decimal  `json:"mev_savings" gorm:"type:decimal(32,18);column:mev_savings"`
	MEVProtected  bool             `json:"mev_protected" gorm:"column:mev_protected"`
	CrossChain    bool             `json:"cross_chain" gorm:"column:cross_chain"`
	Steps         []SettlementStep `json:"steps" gorm:"serializer:json"`
	CreatedAt     time.Time        `json:"created_at" gorm:"column:created_at"`
	UpdatedAt     time.Time        `json:"updated_at" gorm:"column:updated_at"`
}

func (Settlement) TableName() string { return "settlements" }

// ParsedIntent is what the external intent parser returns for a free-text
// goal. The allocation must be validated before use.
type ParsedIntent struct {
	Amount        decimal.Decimal `json:"amount"`
	RiskLevel     string          `json:"risk_level"`
	Allocation    Allocation      `json:"allocation"`
	ExecutionType ExecutionType   `json:"execution_type"`
	Monitoring    bool            `json:"monitoring"`
	Explanation   string          `json:"explanation"`
}
