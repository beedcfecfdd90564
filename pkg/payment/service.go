// Package payment settles late fees through an external payment processor.
package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"library_catalog/pkg/apperr"
	"library_catalog/pkg/fees"
	"library_catalog/pkg/models"
	"library_catalog/pkg/store"
	"library_catalog/pkg/validation"
)

const TransactionPrefix = "txn_"

type FeeCalculator interface {
	Calculate(ctx context.Context, patronID string, bookID uint) (fees.Result, error)
}

type BookLookup interface {
	GetByID(ctx context.Context, id uint) (*models.Book, error)
}

type Outcome struct {
	TransactionID string          `json:"transactionId,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	Message       string          `json:"message"`
}

type Service struct {
	fees    FeeCalculator
	books   BookLookup
	gateway Gateway
	lg      *slog.Logger
}

func NewService(calc FeeCalculator, books BookLookup, gateway Gateway, lg *slog.Logger) *Service {
	return &Service{fees: calc, books: books, gateway: gateway, lg: lg}
}

// PayLateFees charges the current late fee of the patron's latest borrow of
// the book. The gateway is called at most once.
func (s *Service) PayLateFees(ctx context.Context, patronID string, bookID uint) (Outcome, error) {
	if err := validation.ValidatePatronID(patronID); err != nil {
		return Outcome{}, err
	}

	fee, err := s.fees.Calculate(ctx, patronID, bookID)
	if err != nil {
		s.lg.Error("late fee calculation failed", "patronId", patronID, "bookId", bookID, "err", err)
		return Outcome{}, apperr.Storage("Unable to calculate late fees.", err)
	}
	if !fee.FeeAmount.IsPositive() {
		return Outcome{}, apperr.Conflict("No late fees to pay for this book.")
	}

	book, err := s.books.GetByID(ctx, bookID)
	if errors.Is(err, store.ErrNotFound) {
		return Outcome{}, apperr.NotFound("Book not found.")
	}
	if err != nil {
		return Outcome{}, apperr.Storage("Database error occurred while loading the book.", err)
	}

	charge, err := s.gateway.ProcessPayment(ctx, patronID, fee.FeeAmount, fmt.Sprintf("Late fees for '%s'", book.Title))
	if err != nil {
		s.lg.Error("payment gateway call failed", "patronId", patronID, "bookId", bookID, "err", err)
		return Outcome{}, apperr.Gateway("Payment processing error: "+err.Error(), err)
	}
	if !charge.Approved {
		s.lg.Info("payment declined", "patronId", patronID, "bookId", bookID, "reason", charge.Message)
		return Outcome{}, apperr.Declined("Payment failed: " + charge.Message)
	}

	s.lg.Info("late fee paid", "patronId", patronID, "bookId", bookID,
		"amount", fee.FeeAmount.StringFixed(2), "transactionId", charge.TransactionID)
	return Outcome{
		TransactionID: charge.TransactionID,
		Amount:        fee.FeeAmount,
		Message:       "Payment successful! " + charge.Message,
	}, nil
}

// RefundLateFeePayment refunds part or all of an earlier late-fee charge.
func (s *Service) RefundLateFeePayment(ctx context.Context, transactionID string, amount decimal.Decimal) (Outcome, error) {
	if !strings.HasPrefix(transactionID, TransactionPrefix) {
		return Outcome{}, apperr.Invalid("Invalid transaction ID.")
	}
	if !amount.IsPositive() {
		return Outcome{}, apperr.Invalid("Refund amount must be greater than 0.")
	}
	if amount.GreaterThan(fees.MaxFee) {
		return Outcome{}, apperr.Invalid("Refund amount exceeds maximum late fee.")
	}

	refund, err := s.gateway.RefundPayment(ctx, transactionID, amount)
	if err != nil {
		s.lg.Error("refund gateway call failed", "transactionId", transactionID, "err", err)
		return Outcome{}, apperr.Gateway("Refund processing error: "+err.Error(), err)
	}
	if !refund.Approved {
		return Outcome{}, apperr.Declined("Refund failed: " + refund.Message)
	}

	s.lg.Info("late fee refunded", "transactionId", transactionID, "amount", amount.StringFixed(2))
	return Outcome{TransactionID: transactionID, Amount: amount, Message: refund.Message}, nil
}
