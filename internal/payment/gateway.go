package payment

import (
	"context"
)

// CreateParams describes a payment to initiate at the gateway.
type CreateParams struct {
	OrderID     string
	AmountMinor int64
	Currency    string
	Description string
	OkURL       string
	FailURL     string
	CallbackURL string
}

// CreateResult is what the gateway returns for a newly initiated payment.
type CreateResult struct {
	PayURL        string
	TransactionID string
}

// Gateway abstracts the payment provider. The provider's wire protocol is an
// external collaborator; the application only initiates payments and refunds
// and consumes signed callbacks.
type Gateway interface {
	CreatePayment(ctx context.Context, params CreateParams) (*CreateResult, error)
	Refund(ctx context.Context, transactionID string, amountMinor int64) error
}
