package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/x402labs/x402gate/internal/model"
	"github.com/x402labs/x402gate/internal/pkg/apperrors"
	"github.com/x402labs/x402gate/internal/service"
)

type IntentHandler struct {
	svc *service.SettleService
}

func NewIntentHandler(svc *service.SettleService) *IntentHandler {
	return &IntentHandler{svc: svc}
}

// ParseIntent handles POST /v1/intent.
func (h *IntentHandler) ParseIntent(c *gin.Context) {
	var req model.IntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.New(apperrors.ErrInvalidRequest, err.Error(), err))
		return
	}

	parsed, err := h.svc.ParseIntent(c.Request.Context(), req.Text)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, parsed)
}
