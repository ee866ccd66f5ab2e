package model

import "github.com/shopspring/decimal"

// QuoteRequest is the incoming JSON body for POST /v1/quote.
type QuoteRequest struct {
	Intent        string     `json:"intent"`
	Amount        float64    `json:"amount" binding:"required"`
	Allocation    Allocation `json:"allocation" binding:"required"`
	WalletAddress string     `json:"wallet_address" binding:"required"`
}

// OrderRequest is the incoming JSON body for POST /v1/order.
type OrderRequest struct {
	Intent        string     `json:"intent"`
	Amount        float64    `json:"amount" binding:"required"`
	Allocation    Allocation `json:"allocation" binding:"required"`
	WalletAddress string     `json:"wallet_address" binding:"required"`
	ExecutionType string     `json:"execution_type,omitempty"` // once/daily/weekly/monthly
	MEVProtection bool       `json:"mev_protection,omitempty"`
	SourceChain   string     `json:"source_chain,omitempty"`
	TargetChain   string     `json:"target_chain,omitempty"`
	SourceToken   string     `json:"source_token,omitempty"`
	TargetToken   string     `json:"target_token,omitempty"`
}

// ExecuteRequest is the body for PUT /v1/order/:id/execute.
type ExecuteRequest struct {
	WalletAddress string `json:"wallet_address" binding:"required"`
}

// IntentRequest is the body for POST /v1/intent.
type IntentRequest struct {
	Text string `json:"text" binding:"required"`
}

// SettlementStats are the aggregate counters returned alongside a
// wallet's settlement list.
type SettlementStats struct {
	TotalSettlements        int `json:"total_settlements"`
	MEVProtectedSettlements int `json:"mev_protected_settlements"`
	CrossChainSettlements   int `json:"cross_chain_settlements"`
	CompletedSettlements    int `json:"completed_settlements"`
}

// SettlementListResponse is the body for GET /v1/settlements.
type SettlementListResponse struct {
	Settlements []*Settlement   `json:"settlements"`
	Stats       SettlementStats `json:"stats"`
}

// PaymentRequirements describes how to unlock a gated feature when the
// server answers 402.
type PaymentRequirements struct {
	Scheme    string          `json:"scheme"`
	Network   string          `json:"network"`
	Asset     string          `json:"asset"`
	PayTo     string          `json:"pay_to"`
	MaxAmount decimal.Decimal `json:"max_amount_required"`
	Resource  string          `json:"resource"`
}
