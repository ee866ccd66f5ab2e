package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/x402labs/x402gate/internal/middleware"
	"github.com/x402labs/x402gate/internal/model"
	"github.com/x402labs/x402gate/internal/pkg/apperrors"
	"github.com/x402labs/x402gate/internal/service"
)

type OrderHandler struct {
	svc *service.SettleService
}

func NewOrderHandler(svc *service.SettleService) *OrderHandler {
	return &OrderHandler{svc: svc}
}

// CreateOrder handles POST /v1/order.
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req model.OrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.New(apperrors.ErrInvalidRequest, err.Error(), err))
		return
	}

	order, err := h.svc.CreateOrder(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		return
	}

	middleware.AddActivityDetail(c, "order "+order.ID+" created")
	c.JSON(http.StatusOK, gin.H{"order": order})
}

// ExecuteOrder handles PUT /v1/order/:orderId/execute.
func (h *OrderHandler) ExecuteOrder(c *gin.Context) {
	orderID := c.Param("orderId")

	var req model.ExecuteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.New(apperrors.ErrInvalidRequest, err.Error(), err))
		return
	}

	settlement, err := h.svc.ExecuteOrder(c.Request.Context(), orderID, req.WalletAddress)
	if err != nil {
		_ = c.Error(err)
		return
	}

	middleware.AddActivityDetail(c, "order "+orderID+" settled: "+string(settlement.Status))
	c.JSON(http.StatusOK, gin.H{"settlement": settlement})
}
