// Package status builds a patron's account report: books currently out with
// their running late fees, and the history of returned books.
package status

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"library_catalog/pkg/apperr"
	"library_catalog/pkg/fees"
	"library_catalog/pkg/models"
	"library_catalog/pkg/store"
	"library_catalog/pkg/validation"
)

type FeeCalculator interface {
	Calculate(ctx context.Context, patronID string, bookID uint) (fees.Result, error)
}

type ActiveLoan struct {
	BookID      uint             `json:"bookId"`
	Title       string           `json:"title"`
	Author      string           `json:"author"`
	BorrowDate  models.Timestamp `json:"borrowDate"`
	DueDate     models.Timestamp `json:"dueDate"`
	DaysOverdue int              `json:"daysOverdue"`
	CurrentFee  decimal.Decimal  `json:"currentFee"`
}

type HistoryEntry struct {
	RecordID   uint             `json:"recordId"`
	BookID     uint             `json:"bookId"`
	Title      string           `json:"title"`
	Author     string           `json:"author"`
	BorrowDate models.Timestamp `json:"borrowDate"`
	DueDate    models.Timestamp `json:"dueDate"`
	ReturnDate models.Timestamp `json:"returnDate"`
}

type Report struct {
	PatronID      string          `json:"patronId"`
	BorrowedBooks []ActiveLoan    `json:"borrowedBooks"`
	BorrowedCount int             `json:"borrowedCount"`
	TotalLateFees decimal.Decimal `json:"totalLateFees"`
	History       []HistoryEntry  `json:"borrowHistory"`
}

type Reporter struct {
	records store.BorrowStore
	fees    FeeCalculator
	lg      *slog.Logger
}

func NewReporter(records store.BorrowStore, calc FeeCalculator, lg *slog.Logger) *Reporter {
	return &Reporter{records: records, fees: calc, lg: lg}
}

// PatronStatus builds the patron's report. An invalid patron id still yields
// an empty report (the id echoed back, no loans, no history, zero fees)
// alongside an Invalid error; callers may render the report and show the
// error message next to it instead of failing.
func (r *Reporter) PatronStatus(ctx context.Context, patronID string) (Report, error) {
	if err := validation.ValidatePatronID(patronID); err != nil {
		return emptyReport(patronID), err
	}

	active, err := r.records.ActiveRecordsForPatron(ctx, patronID)
	if err != nil {
		r.lg.Error("list active borrows failed", "patronId", patronID, "err", err)
		return Report{}, apperr.Storage("Database error occurred while loading the patron status.", err)
	}

	report := Report{
		PatronID:      patronID,
		BorrowedBooks: make([]ActiveLoan, 0, len(active)),
		History:       []HistoryEntry{},
	}

	total := decimal.Zero
	for _, rec := range active {
		fee, err := r.fees.Calculate(ctx, patronID, rec.BookID)
		if err != nil {
			r.lg.Error("late fee snapshot failed", "patronId", patronID, "bookId", rec.BookID, "err", err)
			return Report{}, apperr.Storage("Database error occurred while loading the patron status.", err)
		}
		total = total.Add(fee.FeeAmount)
		report.BorrowedBooks = append(report.BorrowedBooks, ActiveLoan{
			BookID:      rec.BookID,
			Title:       rec.Book.Title,
			Author:      rec.Book.Author,
			BorrowDate:  rec.BorrowDate,
			DueDate:     rec.DueDate,
			DaysOverdue: fee.DaysOverdue,
			CurrentFee:  fee.FeeAmount,
		})
	}
	report.BorrowedCount = len(report.BorrowedBooks)
	report.TotalLateFees = total.Round(2)

	history, err := r.records.ReturnedHistoryForPatron(ctx, patronID)
	if err != nil {
		r.lg.Error("list borrow history failed", "patronId", patronID, "err", err)
		return Report{}, apperr.Storage("Database error occurred while loading the patron status.", err)
	}
	for _, rec := range history {
		report.History = append(report.History, HistoryEntry{
			RecordID:   rec.ID,
			BookID:     rec.BookID,
			Title:      rec.Book.Title,
			Author:     rec.Book.Author,
			BorrowDate: rec.BorrowDate,
			DueDate:    rec.DueDate,
			ReturnDate: rec.ReturnDate,
		})
	}
	return report, nil
}

func emptyReport(patronID string) Report {
	return Report{
		PatronID:      patronID,
		BorrowedBooks: []ActiveLoan{},
		TotalLateFees: decimal.Zero,
		History:       []HistoryEntry{},
	}
}
