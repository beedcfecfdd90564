package lending

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"library_catalog/pkg/apperr"
	"library_catalog/pkg/database"
	"library_catalog/pkg/models"
	"library_catalog/pkg/store"
)

var start = time.Date(2025, 6, 30, 10, 0, 0, 0, time.UTC)

type stepClock struct {
	now time.Time
}

func (c *stepClock) Now() time.Time { return c.now }

type fixture struct {
	store   *store.Store
	clock   *stepClock
	manager *Manager
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db, err := database.OpenSQLite(":memory:", database.LibraryModels()...)
	require.NoError(t, err)

	s := store.New(db)
	clk := &stepClock{now: start}
	lg := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &fixture{
		store:   s,
		clock:   clk,
		manager: NewManager(s, clk, lg),
	}
}

func (f *fixture) withUnitOfWork(uow store.UnitOfWork) *Manager {
	return NewManager(uow, f.clock, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func (f *fixture) addBook(t *testing.T, isbn string, total, available int) *models.Book {
	t.Helper()
	book := &models.Book{Title: "Book " + isbn, Author: "Author", ISBN: isbn, TotalCopies: total, AvailableCopies: available}
	require.NoError(t, f.store.Books().Insert(context.Background(), book))
	return book
}

func (f *fixture) book(t *testing.T, id uint) *models.Book {
	t.Helper()
	book, err := f.store.Books().GetByID(context.Background(), id)
	require.NoError(t, err)
	return book
}

func (f *fixture) activeCount(t *testing.T, patronID string) int64 {
	t.Helper()
	n, err := f.store.Records().CountActiveForPatron(context.Background(), patronID)
	require.NoError(t, err)
	return n
}

// faultyUnitOfWork runs the real transaction but fails chosen writes inside it.
type faultyUnitOfWork struct {
	store.UnitOfWork
	insertErr       error
	returnErr       error
	availabilityErr error
}

func (u *faultyUnitOfWork) Atomic(ctx context.Context, fn func(tx store.UnitOfWork) error) error {
	return u.UnitOfWork.Atomic(ctx, func(tx store.UnitOfWork) error {
		return fn(&faultyUnitOfWork{UnitOfWork: tx, insertErr: u.insertErr, returnErr: u.returnErr, availabilityErr: u.availabilityErr})
	})
}

func (u *faultyUnitOfWork) Books() store.BookStore {
	return &faultyBooks{BookStore: u.UnitOfWork.Books(), err: u.availabilityErr}
}

func (u *faultyUnitOfWork) Records() store.BorrowStore {
	return &faultyRecords{BorrowStore: u.UnitOfWork.Records(), insertErr: u.insertErr, returnErr: u.returnErr}
}

type faultyBooks struct {
	store.BookStore
	err error
}

func (b *faultyBooks) UpdateAvailability(ctx context.Context, id uint, delta int) error {
	if b.err != nil {
		return b.err
	}
	return b.BookStore.UpdateAvailability(ctx, id, delta)
}

type faultyRecords struct {
	store.BorrowStore
	insertErr error
	returnErr error
}

func (r *faultyRecords) Insert(ctx context.Context, record *models.BorrowRecord) error {
	if r.insertErr != nil {
		return r.insertErr
	}
	return r.BorrowStore.Insert(ctx, record)
}

func (r *faultyRecords) SetReturnDate(ctx context.Context, patronID string, bookID uint, at time.Time) (*models.BorrowRecord, error) {
	if r.returnErr != nil {
		return nil, r.returnErr
	}
	return r.BorrowStore.SetReturnDate(ctx, patronID, bookID, at)
}

func TestBorrow(t *testing.T) {
	f := setup(t)
	book := f.addBook(t, "1234567890123", 3, 3)

	receipt, err := f.manager.Borrow(context.Background(), "123456", book.ID)
	require.NoError(t, err)
	assert.Equal(t, `Successfully borrowed "Book 1234567890123". Due date: 2025-07-14.`, receipt.Message)
	assert.Equal(t, 2, receipt.Book.AvailableCopies)
	assert.Equal(t, "2025-06-30", receipt.Record.BorrowDate.Date())

	assert.Equal(t, 2, f.book(t, book.ID).AvailableCopies)
	assert.Equal(t, int64(1), f.activeCount(t, "123456"))
}

func TestBorrowRejections(t *testing.T) {
	tests := []struct {
		name     string
		patronID string
		bookID   uint
		kind     error
		msg      string
	}{
		{"short patron id", "12345", 1, apperr.ErrInvalid, "Invalid patron ID. Must be exactly 6 digits."},
		{"non digit patron id", "12a456", 1, apperr.ErrInvalid, "Invalid patron ID. Must be exactly 6 digits."},
		{"missing book", "123456", 99, apperr.ErrNotFound, "Book not found."},
		{"no copies left", "123456", 2, apperr.ErrConflict, "This book is currently not available."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t)
			f.addBook(t, "1111111111111", 1, 1)
			f.addBook(t, "2222222222222", 1, 0)

			_, err := f.manager.Borrow(context.Background(), tt.patronID, tt.bookID)
			assert.ErrorIs(t, err, tt.kind)
			assert.Equal(t, tt.msg, apperr.Message(err))
			assert.Zero(t, f.activeCount(t, tt.patronID))
		})
	}
}

func TestBorrowLimit(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	isbns := []string{"1000000000001", "1000000000002", "1000000000003", "1000000000004", "1000000000005", "1000000000006"}
	var books []*models.Book
	for _, isbn := range isbns {
		books = append(books, f.addBook(t, isbn, 2, 2))
	}

	for _, b := range books[:MaxActiveBorrows] {
		_, err := f.manager.Borrow(ctx, "123456", b.ID)
		require.NoError(t, err)
	}

	_, err := f.manager.Borrow(ctx, "123456", books[5].ID)
	assert.ErrorIs(t, err, apperr.ErrConflict)
	assert.Equal(t, "You have reached the maximum borrowing limit of 5 books.", apperr.Message(err))
	assert.Equal(t, 2, f.book(t, books[5].ID).AvailableCopies)

	_, err = f.manager.Return(ctx, "123456", books[0].ID)
	require.NoError(t, err)
	_, err = f.manager.Borrow(ctx, "123456", books[5].ID)
	assert.NoError(t, err)
}

func TestBorrowRollsBackWhenAvailabilityUpdateFails(t *testing.T) {
	f := setup(t)
	book := f.addBook(t, "1234567890123", 3, 3)
	m := f.withUnitOfWork(&faultyUnitOfWork{UnitOfWork: f.store, availabilityErr: errors.New("lock timeout")})

	_, err := m.Borrow(context.Background(), "123456", book.ID)
	assert.ErrorIs(t, err, apperr.ErrStorage)
	assert.Equal(t, "Database error occurred while updating book availability.", apperr.Message(err))

	assert.Zero(t, f.activeCount(t, "123456"))
	assert.Equal(t, 3, f.book(t, book.ID).AvailableCopies)
}

func TestBorrowInsertFailure(t *testing.T) {
	f := setup(t)
	book := f.addBook(t, "1234567890123", 3, 3)
	m := f.withUnitOfWork(&faultyUnitOfWork{UnitOfWork: f.store, insertErr: errors.New("disk full")})

	_, err := m.Borrow(context.Background(), "123456", book.ID)
	assert.ErrorIs(t, err, apperr.ErrStorage)
	assert.Equal(t, "Database error occurred while creating borrow record.", apperr.Message(err))
	assert.Equal(t, 3, f.book(t, book.ID).AvailableCopies)
}

func TestBorrowLosesRaceForLastCopy(t *testing.T) {
	f := setup(t)
	book := f.addBook(t, "1234567890123", 1, 1)
	m := f.withUnitOfWork(&faultyUnitOfWork{UnitOfWork: f.store, availabilityErr: store.ErrOutOfRange})

	_, err := m.Borrow(context.Background(), "123456", book.ID)
	assert.ErrorIs(t, err, apperr.ErrConflict)
	assert.Equal(t, "This book is currently not available.", apperr.Message(err))
	assert.Zero(t, f.activeCount(t, "123456"))
}

func TestReturnOnTime(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	book := f.addBook(t, "1234567890123", 2, 2)

	_, err := f.manager.Borrow(ctx, "123456", book.ID)
	require.NoError(t, err)
	f.clock.now = start.AddDate(0, 0, 14)

	receipt, err := f.manager.Return(ctx, "123456", book.ID)
	require.NoError(t, err)
	assert.Equal(t, "Returned successfully", receipt.Message)
	assert.True(t, receipt.LateFee.IsZero())
	assert.Equal(t, 2, f.book(t, book.ID).AvailableCopies)
	assert.Zero(t, f.activeCount(t, "123456"))
}

func TestReturnLateReportsFee(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	book := f.addBook(t, "1234567890123", 2, 2)

	_, err := f.manager.Borrow(ctx, "123456", book.ID)
	require.NoError(t, err)
	f.clock.now = start.AddDate(0, 0, 24)

	receipt, err := f.manager.Return(ctx, "123456", book.ID)
	require.NoError(t, err)
	assert.Equal(t, "Returned successfully. Late fee: $6.50", receipt.Message)
	assert.Equal(t, "6.50", receipt.LateFee.StringFixed(2))
}

func TestReturnChargesTheCopyBeingClosed(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	book := f.addBook(t, "1234567890123", 2, 2)

	first, err := f.manager.Borrow(ctx, "123456", book.ID)
	require.NoError(t, err)
	f.clock.now = start.AddDate(0, 0, 20)
	second, err := f.manager.Borrow(ctx, "123456", book.ID)
	require.NoError(t, err)
	f.clock.now = start.AddDate(0, 0, 24)

	receipt, err := f.manager.Return(ctx, "123456", book.ID)
	require.NoError(t, err)
	assert.Equal(t, "Returned successfully. Late fee: $6.50", receipt.Message)
	assert.Equal(t, "6.50", receipt.LateFee.StringFixed(2))
	require.NotNil(t, receipt.Record)
	assert.Equal(t, first.Record.ID, receipt.Record.ID)
	assert.Equal(t, "2025-07-24", receipt.Record.ReturnDate.Date())

	active, err := f.store.Records().ActiveRecordsForPatron(ctx, "123456")
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, second.Record.ID, active[0].ID)
	assert.Equal(t, 1, f.book(t, book.ID).AvailableCopies)
}

func TestReturnRejections(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	book := f.addBook(t, "1234567890123", 2, 2)

	_, err := f.manager.Return(ctx, "abc", book.ID)
	assert.ErrorIs(t, err, apperr.ErrInvalid)

	_, err = f.manager.Return(ctx, "123456", 404)
	assert.Equal(t, "Book not found.", apperr.Message(err))

	_, err = f.manager.Return(ctx, "123456", book.ID)
	assert.ErrorIs(t, err, apperr.ErrConflict)
	assert.Equal(t, "Book not borrowed by patron", apperr.Message(err))
	assert.Equal(t, 2, f.book(t, book.ID).AvailableCopies)
}

func TestReturnTwiceOnlyRestoresOneCopy(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	book := f.addBook(t, "1234567890123", 1, 1)

	_, err := f.manager.Borrow(ctx, "123456", book.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, f.book(t, book.ID).AvailableCopies)

	_, err = f.manager.Return(ctx, "123456", book.ID)
	require.NoError(t, err)
	_, err = f.manager.Return(ctx, "123456", book.ID)
	assert.Equal(t, "Book not borrowed by patron", apperr.Message(err))

	assert.Equal(t, 1, f.book(t, book.ID).AvailableCopies)
}

func TestReturnRollsBackWhenAvailabilityUpdateFails(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	book := f.addBook(t, "1234567890123", 2, 2)
	_, err := f.manager.Borrow(ctx, "123456", book.ID)
	require.NoError(t, err)

	m := f.withUnitOfWork(&faultyUnitOfWork{UnitOfWork: f.store, availabilityErr: errors.New("lock timeout")})
	_, err = m.Return(ctx, "123456", book.ID)
	assert.ErrorIs(t, err, apperr.ErrStorage)
	assert.Equal(t, "Could not update availability", apperr.Message(err))

	assert.Equal(t, int64(1), f.activeCount(t, "123456"))
	assert.Equal(t, 1, f.book(t, book.ID).AvailableCopies)
}

func TestReturnRecordFailure(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	book := f.addBook(t, "1234567890123", 2, 2)
	_, err := f.manager.Borrow(ctx, "123456", book.ID)
	require.NoError(t, err)

	m := f.withUnitOfWork(&faultyUnitOfWork{UnitOfWork: f.store, returnErr: errors.New("disk full")})
	_, err = m.Return(ctx, "123456", book.ID)
	assert.Equal(t, "Could not record return", apperr.Message(err))
	assert.Equal(t, 1, f.book(t, book.ID).AvailableCopies)
}

func TestAvailabilityStaysWithinBounds(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	book := f.addBook(t, "1234567890123", 2, 2)
	patrons := []string{"100001", "100002", "100003"}

	for _, p := range patrons {
		_, _ = f.manager.Borrow(ctx, p, book.ID)
		got := f.book(t, book.ID)
		assert.GreaterOrEqual(t, got.AvailableCopies, 0)
		assert.LessOrEqual(t, got.AvailableCopies, got.TotalCopies)
	}
	assert.Equal(t, 0, f.book(t, book.ID).AvailableCopies)

	for _, p := range patrons {
		_, _ = f.manager.Return(ctx, p, book.ID)
		got := f.book(t, book.ID)
		assert.LessOrEqual(t, got.AvailableCopies, got.TotalCopies)
	}
	assert.Equal(t, 2, f.book(t, book.ID).AvailableCopies)
}
