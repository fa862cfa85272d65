package models

import (
	"time"

	"gorm.io/gorm"
)

// Order is a checkout order awaiting (or past) M-Pesa payment. The unique
// index on CheckoutRequestID guarantees at most one live order per Daraja
// checkout request, which is what callback reconciliation relies on.
type Order struct {
	ID               uint   `gorm:"primaryKey" json:"id"`
	OrderKey         string `gorm:"size:64;uniqueIndex;not null" json:"order_key"`
	AmountCents      int64  `gorm:"not null" json:"amount_cents"`
	Currency         string `gorm:"size:3;default:'KES'" json:"currency"`
	Phone            string `gorm:"size:20" json:"phone"`
	AccountReference string `gorm:"size:64" json:"account_reference"`
	Status           string `gorm:"size:20;not null;index" json:"status"`

	// Nil until a push is initiated; nullable so the unique index does not
	// collide on orders that never reached the provider.
	CheckoutRequestID *string `gorm:"size:64;uniqueIndex" json:"checkout_request_id,omitempty"`
	AmountPaid        string `gorm:"size:20" json:"amount_paid"`
	ReceiptNumber     string `gorm:"size:32" json:"receipt_number"`
	TransactionDate   string `gorm:"size:20" json:"transaction_date"`
	FailureReason     string `gorm:"size:255" json:"failure_reason"`

	PaymentInitiatedAt *time.Time `json:"payment_initiated_at"`
	CallbackReceivedAt *time.Time `json:"callback_received_at"`

	Notes []OrderNote `gorm:"foreignKey:OrderID" json:"notes,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Order) TableName() string {
	return "orders"
}

// OrderNote is an audit note attached to an order, e.g. the summary of a
// received payment callback.
type OrderNote struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	OrderID   uint      `gorm:"not null;index" json:"order_id"`
	Note      string    `gorm:"type:text;not null" json:"note"`
	CreatedAt time.Time `json:"created_at"`
}

func (OrderNote) TableName() string {
	return "order_notes"
}
