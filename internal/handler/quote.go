package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/x402labs/x402gate/internal/model"
	"github.com/x402labs/x402gate/internal/pkg/apperrors"
	"github.com/x402labs/x402gate/internal/service"
)

type QuoteHandler struct {
	svc *service.SettleService
}

func NewQuoteHandler(svc *service.SettleService) *QuoteHandler {
	return &QuoteHandler{svc: svc}
}

// GetQuote handles POST /v1/quote.
func (h *QuoteHandler) GetQuote(c *gin.Context) {
	var req model.QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.New(apperrors.ErrInvalidRequest, err.Error(), err))
		return
	}

	quote, err := h.svc.GetQuote(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, quote)
}

// GetQuoteStatus handles GET /v1/quote/:orderId, returning the current
// settlement status for the order.
func (h *QuoteHandler) GetQuoteStatus(c *gin.Context) {
	orderID := c.Param("orderId")

	settlement, err := h.svc.GetSettlement(c.Request.Context(), orderID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, settlement)
}
