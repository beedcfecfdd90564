package payment

import (
	"context"

	"github.com/shopspring/decimal"
)

// Gateway is the external payment processor. A decline is reported in the
// returned value; an error means the processor could not be reached or
// answered with something unexpected.
type Gateway interface {
	ProcessPayment(ctx context.Context, patronID string, amount decimal.Decimal, description string) (Charge, error)
	RefundPayment(ctx context.Context, transactionID string, amount decimal.Decimal) (Refund, error)
}

type Charge struct {
	Approved      bool
	TransactionID string
	Message       string
}

type Refund struct {
	Approved bool
	Message  string
}

// Wire types shared by the HTTP client and the payment processor service.

type ChargeRequest struct {
	PatronID    string          `json:"patronId"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

type ChargeResponse struct {
	Approved      bool   `json:"approved"`
	TransactionID string `json:"transactionId,omitempty"`
	Message       string `json:"message"`
}

type RefundRequest struct {
	TransactionID string          `json:"transactionId"`
	Amount        decimal.Decimal `json:"amount"`
}

type RefundResponse struct {
	Approved bool   `json:"approved"`
	Message  string `json:"message"`
}
