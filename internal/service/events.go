package service

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// PaymentEvent describes a settled payment attempt, successful or not.
type PaymentEvent struct {
	OrderID         uint   `json:"order_id"`
	OrderKey        string `json:"order_key"`
	AmountCents     int64  `json:"amount_cents"`
	Phone           string `json:"phone,omitempty"`
	Receipt         string `json:"receipt,omitempty"`
	TransactionDate string `json:"transaction_date,omitempty"`
	Reason          string `json:"reason,omitempty"`
}

// PaymentListener receives payment outcome events. Listener errors are
// logged and swallowed; dispatch is fire-and-forget and must never affect
// the webhook acknowledgment.
type PaymentListener interface {
	PaymentCompleted(ctx context.Context, ev PaymentEvent) error
	PaymentFailed(ctx context.Context, ev PaymentEvent) error
}

// Events fans payment outcomes out to registered listeners.
type Events struct {
	mu        sync.RWMutex
	listeners []PaymentListener
	log       *zap.Logger
}

func NewEvents(log *zap.Logger) *Events {
	return &Events{log: log}
}

func (e *Events) Register(l PaymentListener) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners = append(e.listeners, l)
}

func (e *Events) EmitCompleted(ctx context.Context, ev PaymentEvent) {
	e.mu.RLock()
	listeners := make([]PaymentListener, len(e.listeners))
	copy(listeners, e.listeners)
	e.mu.RUnlock()
	for _, l := range listeners {
		if err := l.PaymentCompleted(ctx, ev); err != nil {
			e.log.Error("payment completed listener failed",
				zap.Uint("order_id", ev.OrderID), zap.Error(err))
		}
	}
}

func (e *Events) EmitFailed(ctx context.Context, ev PaymentEvent) {
	e.mu.RLock()
	listeners := make([]PaymentListener, len(e.listeners))
	copy(listeners, e.listeners)
	e.mu.RUnlock()
	for _, l := range listeners {
		if err := l.PaymentFailed(ctx, ev); err != nil {
			e.log.Error("payment failed listener failed",
				zap.Uint("order_id", ev.OrderID), zap.Error(err))
		}
	}
}
