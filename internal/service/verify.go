package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"pesagate/internal/domain"
	"pesagate/internal/models"

	"go.uber.org/zap"
)

// Poll verdicts returned to the waiting browser.
const (
	VerifyStatusCompleted = "completed"
	VerifyStatusTimeout   = "timeout"
	VerifyStatusPending   = "pending"

	// Via reports which signal settled the order: the webhook itself or a
	// status change observed in the store.
	VerifyViaCallback = "callback"
	VerifyViaDatabase = "database"
)

type VerifyResult struct {
	Status   string `json:"status"`
	Via      string `json:"via,omitempty"`
	Redirect string `json:"redirect,omitempty"`
	Message  string `json:"message,omitempty"`
	Attempts int    `json:"attempts,omitempty"`
}

// OrderGetter is the read-only order access the poll endpoint needs.
type OrderGetter interface {
	GetByID(ctx context.Context, id uint) (*models.Order, error)
}

// VerifyService answers the browser's "has my payment settled yet" poll.
// It never mutates an order; in particular a timeout verdict is advisory
// only, since the webhook may still arrive after it.
type VerifyService struct {
	orders         OrderGetter
	timeout        time.Duration
	receiptPageURL string
	log            *zap.Logger
	now            func() time.Time
}

func NewVerifyService(orders OrderGetter, timeout time.Duration, receiptPageURL string, log *zap.Logger) *VerifyService {
	return &VerifyService{
		orders:         orders,
		timeout:        timeout,
		receiptPageURL: receiptPageURL,
		log:            log,
		now:            time.Now,
	}
}

// Verify checks the order's settlement state. The order key is a
// capability token: a mismatch gets the same answer as a missing order, so
// callers cannot probe for order existence.
func (s *VerifyService) Verify(ctx context.Context, orderID uint, orderKey string, attempts int) (*VerifyResult, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil || o.OrderKey == "" || o.OrderKey != orderKey {
		return nil, domain.ErrInvalidOrderKey
	}

	if o.CallbackReceivedAt != nil {
		return &VerifyResult{
			Status:   VerifyStatusCompleted,
			Via:      VerifyViaCallback,
			Redirect: s.receiptRedirect(o),
		}, nil
	}
	if o.Status == domain.OrderStatusPaid {
		return &VerifyResult{
			Status:   VerifyStatusCompleted,
			Via:      VerifyViaDatabase,
			Redirect: s.receiptRedirect(o),
		}, nil
	}
	if o.PaymentInitiatedAt != nil && s.now().Sub(*o.PaymentInitiatedAt) > s.timeout {
		return &VerifyResult{
			Status:  VerifyStatusTimeout,
			Message: "Payment verification timeout. Please check your M-Pesa messages.",
		}, nil
	}
	return &VerifyResult{
		Status:   VerifyStatusPending,
		Message:  "Waiting for payment confirmation...",
		Attempts: attempts + 1,
	}, nil
}

func (s *VerifyService) receiptRedirect(o *models.Order) string {
	args := url.Values{}
	args.Set("order_id", fmt.Sprintf("%d", o.ID))
	args.Set("order_key", o.OrderKey)
	sep := "?"
	if strings.Contains(s.receiptPageURL, "?") {
		sep = "&"
	}
	return s.receiptPageURL + sep + args.Encode()
}
