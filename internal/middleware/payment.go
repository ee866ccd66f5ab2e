package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/x402labs/x402gate/internal/config"
	"github.com/x402labs/x402gate/internal/model"
	"github.com/x402labs/x402gate/internal/pkg/apperrors"
	"github.com/x402labs/x402gate/internal/pkg/metrics"
)

const HeaderPayment = "X-Payment"

// paymentProbe is the slice of the order body the gate inspects.
type paymentProbe struct {
	MEVProtection bool `json:"mev_protection"`
	Allocation    *struct {
		Growth float64 `json:"growth"`
	} `json:"allocation"`
}

// PaymentMiddleware implements the x402 gate: MEV-protected and
// cross-chain orders are premium features and require an X-Payment
// header when the gate is enabled. The header is accepted as-is; this
// is a simulation, no payment is verified against a facilitator.
func PaymentMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !cfg.Payment.Enabled || c.Request.Body == nil {
			c.Next()
			return
		}

		// read and restore the body so binding still works downstream
		raw, _ := io.ReadAll(c.Request.Body)
		c.Request.Body = io.NopCloser(bytes.NewBuffer(raw))

		var probe paymentProbe
		if err := json.Unmarshal(raw, &probe); err != nil {
			c.Next()
			return
		}

		// cross-chain is premium only when the generator will actually
		// bridge: growth over the threshold on distinct chains.
		// Same-chain deployments fall back to staking.
		crossChain := probe.Allocation != nil &&
			probe.Allocation.Growth > cfg.Routing.CrossChainThreshold &&
			cfg.Routing.SourceChain != cfg.Routing.TargetChain
		premium := probe.MEVProtection || crossChain
		if !premium || c.GetHeader(HeaderPayment) != "" {
			c.Next()
			return
		}

		metrics.PaymentRequired.Inc()
		c.JSON(http.StatusPaymentRequired, gin.H{
			"code":    apperrors.ErrPaymentRequired,
			"message": "premium settlement features require payment",
			"accepts": []model.PaymentRequirements{{
				Scheme:    "exact",
				Network:   cfg.Payment.Network,
				Asset:     cfg.Payment.Asset,
				PayTo:     cfg.Payment.PayTo,
				MaxAmount: decimal.NewFromFloat(cfg.Payment.Price),
				Resource:  c.Request.URL.Path,
			}},
		})
		c.Abort()
	}
}
