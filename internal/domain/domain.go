package domain

import "errors"

// Order statuses. PAID and FAILED are terminal for the STK flow; a
// CANCELLED order releases its checkout request id for reuse.
const (
	OrderStatusPending   = "PENDING"
	OrderStatusPaid      = "PAID"
	OrderStatusFailed    = "FAILED"
	OrderStatusCancelled = "CANCELLED"
)

// Daraja callback metadata item names we copy onto the order. Anything
// else in CallbackMetadata is ignored.
const (
	MetaAmount          = "Amount"
	MetaReceiptNumber   = "MpesaReceiptNumber"
	MetaPhoneNumber     = "PhoneNumber"
	MetaTransactionDate = "TransactionDate"
)

var (
	ErrOrderNotFound = errors.New("order not found")
	// ErrAlreadyProcessed marks a duplicate delivery for an order that
	// already reached a terminal state. Callers acknowledge and move on.
	ErrAlreadyProcessed = errors.New("order already processed")
	ErrInvalidOrderKey  = errors.New("invalid order key")
)
