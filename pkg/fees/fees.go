// Package fees computes late fees for borrowed books.
//
// The schedule is tiered per calendar day past the due date: the first week
// costs $0.50 a day, every later day $1.00, and one book never costs more
// than $15.00. A book that is still out is charged up to "now", so the amount
// keeps growing until it is returned.
package fees

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"library_catalog/pkg/clock"
	"library_catalog/pkg/models"
	"library_catalog/pkg/store"
	"library_catalog/pkg/validation"
)

const (
	LoanPeriod     = 14 * 24 * time.Hour
	FirstTierDays  = 7
	StatusInvalid  = Status("Invalid patron ID")
	StatusNoRecord = Status("No borrow record")
	StatusNoDue    = Status("No due date")
	StatusOverdue  = Status("Overdue")
	StatusOnTime   = Status("On time")
)

var (
	FirstTierRate  = decimal.RequireFromString("0.50")
	SecondTierRate = decimal.RequireFromString("1.00")
	MaxFee         = decimal.RequireFromString("15.00")
)

type Status string

type Result struct {
	FeeAmount   decimal.Decimal
	DaysOverdue int
	Status      Status
}

type Calculator struct {
	records store.BorrowStore
	clock   clock.Clock
}

func NewCalculator(records store.BorrowStore, clk clock.Clock) *Calculator {
	return &Calculator{records: records, clock: clk}
}

// Calculate assesses the patron's latest borrow of the book. Only a failed
// store lookup is returned as an error; every other problem is a status.
func (c *Calculator) Calculate(ctx context.Context, patronID string, bookID uint) (Result, error) {
	if err := validation.ValidatePatronID(patronID); err != nil {
		return Result{Status: StatusInvalid}, nil
	}

	record, err := c.records.MostRecentRecord(ctx, patronID, bookID)
	if errors.Is(err, store.ErrNotFound) {
		return Result{Status: StatusNoRecord}, nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("look up borrow record: %w", err)
	}

	return Assess(*record, c.clock.Now()), nil
}

// Assess computes the fee of a single record as of now. A missing due date is
// backfilled from the borrow date.
func Assess(record models.BorrowRecord, now time.Time) Result {
	due := record.DueDate
	if !due.Valid && record.BorrowDate.Valid {
		due = models.NewTimestamp(record.BorrowDate.Time.Add(LoanPeriod))
	}
	if !due.Valid {
		return Result{Status: StatusNoDue}
	}

	at := now
	if record.ReturnDate.Valid {
		at = record.ReturnDate.Time
	}

	days := DaysOverdue(due.Time, at)
	status := StatusOnTime
	if days > 0 {
		status = StatusOverdue
	}
	return Result{FeeAmount: Fee(days), DaysOverdue: days, Status: status}
}

// DaysOverdue counts whole calendar days (UTC) from due to at, never negative.
func DaysOverdue(due, at time.Time) int {
	days := int(civilDate(at).Sub(civilDate(due)).Hours() / 24)
	return max(days, 0)
}

func Fee(daysOverdue int) decimal.Decimal {
	if daysOverdue <= 0 {
		return decimal.Zero
	}
	first := min(daysOverdue, FirstTierDays)
	rest := max(daysOverdue-FirstTierDays, 0)

	fee := FirstTierRate.Mul(decimal.NewFromInt(int64(first))).
		Add(SecondTierRate.Mul(decimal.NewFromInt(int64(rest))))
	if fee.GreaterThan(MaxFee) {
		fee = MaxFee
	}
	return fee.Round(2)
}

func civilDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
