package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/x402labs/x402gate/internal/pkg/apperrors"
	"github.com/x402labs/x402gate/internal/service"
	"github.com/x402labs/x402gate/internal/stream"
)

type SettlementHandler struct {
	svc *service.SettleService
	hub *stream.Hub
}

func NewSettlementHandler(svc *service.SettleService, hub *stream.Hub) *SettlementHandler {
	return &SettlementHandler{svc: svc, hub: hub}
}

// ListSettlements handles GET /v1/settlements?wallet=0x...
func (h *SettlementHandler) ListSettlements(c *gin.Context) {
	wallet := c.Query("wallet")
	if wallet == "" {
		_ = c.Error(apperrors.New(apperrors.ErrInvalidRequest, "wallet query parameter is required", nil))
		return
	}

	resp, err := h.svc.ListSettlements(c.Request.Context(), wallet)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Stream handles GET /v1/settlements/stream, upgrading to a websocket
// that pushes live settlement progress.
func (h *SettlementHandler) Stream(c *gin.Context) {
	h.hub.ServeWS(c.Writer, c.Request)
}
