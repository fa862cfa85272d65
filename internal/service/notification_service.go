package service

import (
	"context"
	"encoding/json"
	"fmt"

	"pesagate/internal/models"
)

// NotificationStore persists notification records.
type NotificationStore interface {
	Create(ctx context.Context, n *models.Notification) error
}

// NotificationService records payment outcomes as notification rows. It is
// registered as a payment listener.
type NotificationService struct {
	store NotificationStore
}

func NewNotificationService(store NotificationStore) *NotificationService {
	return &NotificationService{store: store}
}

func (s *NotificationService) PaymentCompleted(ctx context.Context, ev PaymentEvent) error {
	body := fmt.Sprintf("Order #%d paid via M-Pesa", ev.OrderID)
	if ev.Receipt != "" {
		body += ", receipt " + ev.Receipt
	}
	return s.notify(ctx, ev, "PAYMENT_COMPLETED", "Payment received", body)
}

func (s *NotificationService) PaymentFailed(ctx context.Context, ev PaymentEvent) error {
	body := fmt.Sprintf("Order #%d M-Pesa payment failed", ev.OrderID)
	if ev.Reason != "" {
		body += ": " + ev.Reason
	}
	return s.notify(ctx, ev, "PAYMENT_FAILED", "Payment failed", body)
}

func (s *NotificationService) notify(ctx context.Context, ev PaymentEvent, notifType, title, body string) error {
	data, _ := json.Marshal(ev)
	return s.store.Create(ctx, &models.Notification{
		OrderID: ev.OrderID,
		Type:    notifType,
		Title:   title,
		Body:    body,
		Data:    string(data),
	})
}
