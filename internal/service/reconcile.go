package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"pesagate/internal/domain"
	"pesagate/internal/models"

	"go.uber.org/zap"
)

// Ack is the acknowledgment shape Safaricom expects from a callback URL.
// ResultCode here is protocol-level: 0 means "delivery accepted, do not
// redeliver", regardless of whether the payment itself succeeded.
type Ack struct {
	ResultCode int    `json:"ResultCode"`
	ResultDesc string `json:"ResultDesc"`
}

// OrderClaimer is the slice of the order store reconciliation needs: an
// atomic load-mutate-persist keyed by checkout request id.
type OrderClaimer interface {
	Claim(ctx context.Context, checkoutRequestID string, fn func(*models.Order) error) (*models.Order, error)
}

type callbackEnvelope struct {
	Body struct {
		StkCallback stkCallback `json:"stkCallback"`
	} `json:"Body"`
}

type stkCallback struct {
	MerchantRequestID string `json:"MerchantRequestID"`
	CheckoutRequestID string `json:"CheckoutRequestID"`
	// Pointer so an absent ResultCode is distinguishable from 0.
	ResultCode       *int   `json:"ResultCode"`
	ResultDesc       string `json:"ResultDesc"`
	CallbackMetadata struct {
		Item []metadataItem `json:"Item"`
	} `json:"CallbackMetadata"`
}

type metadataItem struct {
	Name  string `json:"Name"`
	Value any    `json:"Value"`
}

// ReconcileService applies M-Pesa result callbacks to pending orders. It
// never lets an error escape: every delivery, however malformed, gets a
// well-formed Ack so the sender stops redelivering things a retry cannot
// fix.
type ReconcileService struct {
	orders OrderClaimer
	events *Events
	log    *zap.Logger
	now    func() time.Time
}

func NewReconcileService(orders OrderClaimer, events *Events, log *zap.Logger) *ReconcileService {
	return &ReconcileService{orders: orders, events: events, log: log, now: time.Now}
}

// ProcessCallback reconciles one webhook delivery. First delivery wins;
// later deliveries for the same checkout request are acknowledged without
// touching the order.
func (s *ReconcileService) ProcessCallback(ctx context.Context, body []byte) Ack {
	var env callbackEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		s.log.Warn("callback with invalid JSON", zap.Error(err))
		return Ack{ResultCode: 1, ResultDesc: "Invalid JSON payload"}
	}
	cb := env.Body.StkCallback
	if cb.CheckoutRequestID == "" || cb.ResultCode == nil {
		s.log.Warn("callback with missing parameters",
			zap.String("checkout_request_id", cb.CheckoutRequestID))
		return Ack{ResultCode: 1, ResultDesc: "Invalid callback parameters"}
	}

	resultCode := *cb.ResultCode
	var event PaymentEvent
	order, err := s.orders.Claim(ctx, cb.CheckoutRequestID, func(o *models.Order) error {
		if o.Status == domain.OrderStatusPaid || o.Status == domain.OrderStatusFailed || o.CallbackReceivedAt != nil {
			return domain.ErrAlreadyProcessed
		}
		if resultCode == 0 {
			s.markPaid(o, cb.CallbackMetadata.Item)
		} else {
			s.markFailed(o, cb.ResultDesc)
		}
		event = PaymentEvent{
			OrderID:         o.ID,
			OrderKey:        o.OrderKey,
			AmountCents:     o.AmountCents,
			Phone:           o.Phone,
			Receipt:         o.ReceiptNumber,
			TransactionDate: o.TransactionDate,
			Reason:          o.FailureReason,
		}
		return nil
	})
	switch {
	case errors.Is(err, domain.ErrOrderNotFound):
		s.log.Warn("callback for unknown checkout request",
			zap.String("checkout_request_id", cb.CheckoutRequestID))
		return Ack{ResultCode: 1, ResultDesc: "Order not found for request ID"}
	case errors.Is(err, domain.ErrAlreadyProcessed):
		s.log.Info("duplicate callback ignored",
			zap.Uint("order_id", order.ID),
			zap.String("checkout_request_id", cb.CheckoutRequestID))
		return Ack{ResultCode: 0, ResultDesc: "Already processed"}
	case err != nil:
		s.log.Error("callback processing failed",
			zap.String("checkout_request_id", cb.CheckoutRequestID), zap.Error(err))
		return Ack{ResultCode: 1, ResultDesc: "Processing error"}
	}

	if resultCode == 0 {
		s.log.Info("order paid",
			zap.Uint("order_id", order.ID),
			zap.String("receipt", order.ReceiptNumber))
		s.events.EmitCompleted(ctx, event)
	} else {
		s.log.Info("order failed",
			zap.Uint("order_id", order.ID),
			zap.Int("result_code", resultCode),
			zap.String("reason", order.FailureReason))
		s.events.EmitFailed(ctx, event)
	}
	return Ack{ResultCode: 0, ResultDesc: "Accepted"}
}

// markPaid applies the success transition and copies known metadata items
// onto the order. Unknown item names are ignored.
func (s *ReconcileService) markPaid(o *models.Order, items []metadataItem) {
	now := s.now()
	o.Status = domain.OrderStatusPaid
	o.CallbackReceivedAt = &now

	lines := []string{"M-Pesa payment received"}
	for _, item := range items {
		value := metaString(item.Value)
		if value == "" {
			continue
		}
		switch item.Name {
		case domain.MetaAmount:
			o.AmountPaid = value
			lines = append(lines, "Amount: "+value)
		case domain.MetaReceiptNumber:
			o.ReceiptNumber = value
			lines = append(lines, "Receipt: "+value)
		case domain.MetaPhoneNumber:
			o.Phone = value
			lines = append(lines, "Phone: "+value)
		case domain.MetaTransactionDate:
			o.TransactionDate = value
			lines = append(lines, "Date: "+value)
		}
	}
	o.Notes = append(o.Notes, models.OrderNote{OrderID: o.ID, Note: strings.Join(lines, "\n")})
}

func (s *ReconcileService) markFailed(o *models.Order, desc string) {
	o.Status = domain.OrderStatusFailed
	o.FailureReason = SanitizeText(desc)
	if o.FailureReason == "" {
		o.FailureReason = "Payment failed"
	}
	o.Notes = append(o.Notes, models.OrderNote{OrderID: o.ID, Note: "M-Pesa payment failed: " + o.FailureReason})
}

// metaString renders a callback metadata value. Numeric values come in as
// float64; MSISDNs and epoch-style dates must not end up in scientific
// notation.
func metaString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// SanitizeText reduces provider-supplied text to plain, bounded content
// before it is stored or shown to a shopper.
func SanitizeText(s string) string {
	s = tagPattern.ReplaceAllString(s, "")
	s = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return ' '
		}
		return r
	}, s)
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > 255 {
		s = s[:255]
	}
	return s
}
