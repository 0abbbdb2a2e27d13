package model

import (
	"time"
)

type Payment struct {
	ID            string        `db:"id" json:"id"`
	OrderID       string        `db:"order_id" json:"orderId"`
	UserID        string        `db:"user_id" json:"userId"`
	StreamID      string        `db:"stream_id" json:"streamId"`
	AmountMinor   int64         `db:"amount_minor" json:"amountMinor"`
	Currency      string        `db:"currency" json:"currency"`
	Status        PaymentStatus `db:"status" json:"status"`
	TransactionID *string       `db:"transaction_id" json:"transactionId,omitempty"`
	// PayerToken is the gateway's saved-card token, AES-GCM encrypted at rest.
	PayerToken *string    `db:"payer_token" json:"-"`
	FailReason *string    `db:"fail_reason" json:"failReason,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updatedAt"`
	PaidAt     *time.Time `db:"paid_at" json:"paidAt,omitempty"`
	RefundedAt *time.Time `db:"refunded_at" json:"refundedAt,omitempty"`
}

type CreatePaymentParams struct {
	OrderID     string
	UserID      string
	StreamID    string
	AmountMinor int64
	Currency    string
}
