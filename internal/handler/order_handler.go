package handler

import (
	"context"
	"net/http"
	"strconv"

	"pesagate/internal/domain"
	"pesagate/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type OrderCreator interface {
	Create(ctx context.Context, o *models.Order) error
	GetByID(ctx context.Context, id uint) (*models.Order, error)
}

// OrderHandler is the admin-facing order intake, standing in for the shop
// that would normally create orders ahead of checkout.
type OrderHandler struct {
	orders OrderCreator
}

func NewOrderHandler(orders OrderCreator) *OrderHandler {
	return &OrderHandler{orders: orders}
}

type createOrderRequest struct {
	AmountCents      int64  `json:"amount_cents" binding:"required,min=1"`
	Currency         string `json:"currency"`
	AccountReference string `json:"account_reference"`
}

func (h *OrderHandler) Create(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	currency := req.Currency
	if currency == "" {
		currency = "KES"
	}
	o := &models.Order{
		OrderKey:         uuid.NewString(),
		AmountCents:      req.AmountCents,
		Currency:         currency,
		AccountReference: req.AccountReference,
		Status:           domain.OrderStatusPending,
	}
	if err := h.orders.Create(c.Request.Context(), o); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create order"})
		return
	}
	c.JSON(http.StatusCreated, o)
}

func (h *OrderHandler) Get(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}
	o, err := h.orders.GetByID(c.Request.Context(), uint(id))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
		return
	}
	c.JSON(http.StatusOK, o)
}
