// Package lending runs the borrow/return lifecycle of a book copy.
//
// A borrow record is created on borrow and closed exactly once on return.
// Both transitions write the record and the book's availability inside one
// transaction, so a failed second write leaves neither behind.
package lending

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"library_catalog/pkg/apperr"
	"library_catalog/pkg/clock"
	"library_catalog/pkg/fees"
	"library_catalog/pkg/models"
	"library_catalog/pkg/store"
	"library_catalog/pkg/validation"
)

const MaxActiveBorrows = 5

type Receipt struct {
	Message string
	Book    *models.Book
	Record  *models.BorrowRecord
	LateFee decimal.Decimal
}

type Manager struct {
	uow   store.UnitOfWork
	clock clock.Clock
	lg    *slog.Logger
}

func NewManager(uow store.UnitOfWork, clk clock.Clock, lg *slog.Logger) *Manager {
	return &Manager{uow: uow, clock: clk, lg: lg}
}

func (m *Manager) Borrow(ctx context.Context, patronID string, bookID uint) (Receipt, error) {
	if err := validation.ValidatePatronID(patronID); err != nil {
		return Receipt{}, err
	}

	book, err := m.lookupBook(ctx, bookID)
	if err != nil {
		return Receipt{}, err
	}
	if book.AvailableCopies <= 0 {
		return Receipt{}, apperr.Conflict("This book is currently not available.")
	}

	active, err := m.uow.Records().CountActiveForPatron(ctx, patronID)
	if err != nil {
		m.lg.Error("count active borrows failed", "patronId", patronID, "err", err)
		return Receipt{}, apperr.Storage("Database error occurred while creating borrow record.", err)
	}
	if active >= MaxActiveBorrows {
		return Receipt{}, apperr.Conflict(fmt.Sprintf("You have reached the maximum borrowing limit of %d books.", MaxActiveBorrows))
	}

	now := m.clock.Now()
	record := &models.BorrowRecord{
		PatronID:   patronID,
		BookID:     book.ID,
		BorrowDate: models.NewTimestamp(now),
		DueDate:    models.NewTimestamp(now.Add(fees.LoanPeriod)),
	}

	err = m.uow.Atomic(ctx, func(tx store.UnitOfWork) error {
		if err := tx.Records().Insert(ctx, record); err != nil {
			return apperr.Storage("Database error occurred while creating borrow record.", err)
		}
		err := tx.Books().UpdateAvailability(ctx, book.ID, -1)
		if errors.Is(err, store.ErrOutOfRange) {
			return apperr.Conflict("This book is currently not available.")
		}
		if err != nil {
			return apperr.Storage("Database error occurred while updating book availability.", err)
		}
		return nil
	})
	if err != nil {
		m.lg.Warn("borrow rolled back", "patronId", patronID, "bookId", bookID, "err", err)
		return Receipt{}, err
	}

	book.AvailableCopies--
	m.lg.Info("book borrowed", "patronId", patronID, "bookId", book.ID, "due", record.DueDate.Date())
	return Receipt{
		Message: fmt.Sprintf("Successfully borrowed \"%s\". Due date: %s.", book.Title, record.DueDate.Date()),
		Book:    book,
		Record:  record,
		LateFee: decimal.Zero,
	}, nil
}

func (m *Manager) Return(ctx context.Context, patronID string, bookID uint) (Receipt, error) {
	if err := validation.ValidatePatronID(patronID); err != nil {
		return Receipt{}, err
	}

	book, err := m.lookupBook(ctx, bookID)
	if err != nil {
		return Receipt{}, err
	}

	active, err := m.uow.Records().ActiveRecordsForPatron(ctx, patronID)
	if err != nil {
		m.lg.Error("list active borrows failed", "patronId", patronID, "err", err)
		return Receipt{}, apperr.Storage("Could not record return", err)
	}
	borrowed := false
	for _, r := range active {
		if r.BookID == book.ID {
			borrowed = true
			break
		}
	}
	if !borrowed {
		return Receipt{}, apperr.Conflict("Book not borrowed by patron")
	}

	now := m.clock.Now()
	var closed *models.BorrowRecord
	err = m.uow.Atomic(ctx, func(tx store.UnitOfWork) error {
		var err error
		closed, err = tx.Records().SetReturnDate(ctx, patronID, book.ID, now)
		if errors.Is(err, store.ErrNotFound) {
			return apperr.Conflict("Book not borrowed by patron")
		}
		if err != nil {
			return apperr.Storage("Could not record return", err)
		}
		if err := tx.Books().UpdateAvailability(ctx, book.ID, 1); err != nil {
			return apperr.Storage("Could not update availability", err)
		}
		return nil
	})
	if err != nil {
		m.lg.Warn("return rolled back", "patronId", patronID, "bookId", bookID, "err", err)
		return Receipt{}, err
	}
	book.AvailableCopies++

	// The fee belongs to the record just closed, which is not necessarily the
	// patron's latest borrow of this book.
	fee := fees.Assess(*closed, now).FeeAmount

	msg := "Returned successfully"
	if fee.IsPositive() {
		msg = fmt.Sprintf("Returned successfully. Late fee: $%s", fee.StringFixed(2))
	}
	m.lg.Info("book returned", "patronId", patronID, "bookId", book.ID, "lateFee", fee.StringFixed(2))
	return Receipt{Message: msg, Book: book, Record: closed, LateFee: fee}, nil
}

func (m *Manager) lookupBook(ctx context.Context, bookID uint) (*models.Book, error) {
	book, err := m.uow.Books().GetByID(ctx, bookID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("Book not found.")
	}
	if err != nil {
		m.lg.Error("book lookup failed", "bookId", bookID, "err", err)
		return nil, apperr.Storage("Database error occurred while loading the book.", err)
	}
	return book, nil
}
