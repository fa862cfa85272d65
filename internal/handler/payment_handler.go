package handler

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"pesagate/config"
	"pesagate/internal/domain"
	"pesagate/internal/models"
	"pesagate/internal/service"
	"pesagate/pkg/daraja"
	"pesagate/pkg/phone"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type StkPusher interface {
	STKPush(ctx context.Context, req daraja.STKPushRequest) (*daraja.STKPushResponse, error)
}

// OrderStore is the order access the checkout initiation path needs.
type OrderStore interface {
	GetByID(ctx context.Context, id uint) (*models.Order, error)
	Update(ctx context.Context, o *models.Order) error
}

// PaymentHandler pushes the payment prompt to the buyer's phone and parks
// the order until the result callback lands.
type PaymentHandler struct {
	daraja   config.DarajaConfig
	checkout config.CheckoutConfig
	orders   OrderStore
	pusher   StkPusher
	log      *zap.Logger
}

func NewPaymentHandler(cfg *config.Config, orders OrderStore, pusher StkPusher, log *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		daraja:   cfg.Daraja,
		checkout: cfg.Checkout,
		orders:   orders,
		pusher:   pusher,
		log:      log,
	}
}

type initiateRequest struct {
	OrderID  uint   `json:"order_id" binding:"required"`
	OrderKey string `json:"order_key" binding:"required"`
	Phone    string `json:"phone" binding:"required"`
}

// Initiate validates the order key and phone, sends the STK push and
// records the checkout request id so the callback can find the order. One
// attempt only; on provider failure the order is marked failed and the
// buyer has to start over.
func (h *PaymentHandler) Initiate(c *gin.Context) {
	var req initiateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	msisdn, err := phone.Normalize(req.Phone)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "please enter a valid Kenyan phone number in format 2547XXXXXXXX"})
		return
	}

	ctx := c.Request.Context()
	o, err := h.orders.GetByID(ctx, req.OrderID)
	if err != nil || o.OrderKey != req.OrderKey {
		c.JSON(http.StatusNotFound, gin.H{"error": "invalid order"})
		return
	}
	if o.Status != domain.OrderStatusPending {
		c.JSON(http.StatusConflict, gin.H{"error": "order is not awaiting payment"})
		return
	}

	reference := o.AccountReference
	if reference == "" {
		reference = fmt.Sprintf("ORDER-%d", o.ID)
	}
	resp, err := h.pusher.STKPush(ctx, daraja.STKPushRequest{
		Phone:            msisdn,
		Amount:           wholeKES(o.AmountCents),
		AccountReference: reference,
		Description:      fmt.Sprintf("Payment for order #%d", o.ID),
		CallbackURL:      h.callbackURL(),
	})
	if err != nil {
		h.log.Warn("stk push failed",
			zap.Uint("order_id", o.ID),
			zap.Error(err))
		o.Status = domain.OrderStatusFailed
		o.FailureReason = service.SanitizeText(err.Error())
		o.Notes = append(o.Notes, models.OrderNote{OrderID: o.ID, Note: "M-Pesa payment initiation failed: " + o.FailureReason})
		if uerr := h.orders.Update(ctx, o); uerr != nil {
			h.log.Error("failed to record initiation failure", zap.Uint("order_id", o.ID), zap.Error(uerr))
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": "payment error: " + o.FailureReason})
		return
	}

	now := time.Now()
	o.Phone = msisdn
	o.CheckoutRequestID = &resp.CheckoutRequestID
	o.PaymentInitiatedAt = &now
	o.Notes = append(o.Notes, models.OrderNote{OrderID: o.ID, Note: "Awaiting M-Pesa payment"})
	if err := h.orders.Update(ctx, o); err != nil {
		h.log.Error("failed to persist checkout request id",
			zap.Uint("order_id", o.ID),
			zap.String("checkout_request_id", resp.CheckoutRequestID),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record payment request"})
		return
	}

	message := resp.CustomerMessage
	if message == "" {
		message = "Payment request sent to your phone"
	}
	c.JSON(http.StatusOK, gin.H{
		"result":   "success",
		"message":  message,
		"redirect": h.waitRedirect(o),
	})
}

func (h *PaymentHandler) callbackURL() string {
	return strings.TrimRight(h.daraja.CallbackBaseURL, "/") + "/api/v1/mpesa/callback"
}

func (h *PaymentHandler) waitRedirect(o *models.Order) string {
	args := url.Values{}
	args.Set("order_id", fmt.Sprintf("%d", o.ID))
	args.Set("order_key", o.OrderKey)
	sep := "?"
	if strings.Contains(h.checkout.WaitPageURL, "?") {
		sep = "&"
	}
	return h.checkout.WaitPageURL + sep + args.Encode()
}

// wholeKES converts cents to the whole-shilling amount Daraja accepts,
// rounding up so the shop never collects less than the order total.
func wholeKES(cents int64) int64 {
	return (cents + 99) / 100
}
