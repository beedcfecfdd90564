package fees

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"library_catalog/pkg/clock"
	"library_catalog/pkg/database"
	"library_catalog/pkg/models"
	"library_catalog/pkg/store"
)

var now = time.Date(2025, 6, 30, 15, 0, 0, 0, time.UTC)

func setupTestDB(t *testing.T) (*gorm.DB, *store.Store) {
	t.Helper()
	db, err := database.OpenSQLite(":memory:", database.LibraryModels()...)
	require.NoError(t, err)
	return db, store.New(db)
}

func seedBorrow(t *testing.T, s *store.Store, patronID string, due time.Time) models.BorrowRecord {
	t.Helper()
	ctx := context.Background()
	book := models.Book{Title: "Dune", Author: "Herbert", ISBN: "1234567890123", TotalCopies: 3, AvailableCopies: 2}
	if existing, err := s.Books().GetByISBN(ctx, book.ISBN); err == nil {
		book = *existing
	} else {
		require.NoError(t, s.Books().Insert(ctx, &book))
	}
	rec := models.BorrowRecord{
		PatronID:   patronID,
		BookID:     book.ID,
		BorrowDate: models.NewTimestamp(due.Add(-LoanPeriod)),
		DueDate:    models.NewTimestamp(due),
	}
	require.NoError(t, s.Records().Insert(ctx, &rec))
	return rec
}

func TestFeeSchedule(t *testing.T) {
	tests := []struct {
		days int
		want string
	}{
		{days: -3, want: "0"},
		{days: 0, want: "0"},
		{days: 1, want: "0.5"},
		{days: 3, want: "1.5"},
		{days: 7, want: "3.5"},
		{days: 8, want: "4.5"},
		{days: 10, want: "6.5"},
		{days: 18, want: "14.5"},
		{days: 19, want: "15"},
		{days: 40, want: "15"},
		{days: 1000, want: "15"},
	}

	for _, tt := range tests {
		got := Fee(tt.days)
		assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "days=%d: got %s want %s", tt.days, got, tt.want)
	}
}

func TestFeeMatchesClosedForm(t *testing.T) {
	for days := 1; days <= 60; days++ {
		var want decimal.Decimal
		if days <= 7 {
			want = decimal.NewFromFloat(0.5).Mul(decimal.NewFromInt(int64(days)))
		} else {
			want = decimal.NewFromFloat(3.5).Add(decimal.NewFromInt(int64(days - 7)))
		}
		if want.GreaterThan(MaxFee) {
			want = MaxFee
		}
		assert.True(t, want.Equal(Fee(days)), "days=%d", days)
	}
}

func TestDaysOverdueIgnoresTimeOfDay(t *testing.T) {
	due := time.Date(2025, 6, 20, 23, 59, 0, 0, time.UTC)

	assert.Equal(t, 1, DaysOverdue(due, time.Date(2025, 6, 21, 0, 1, 0, 0, time.UTC)))
	assert.Equal(t, 0, DaysOverdue(due, time.Date(2025, 6, 20, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 0, DaysOverdue(due, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 10, DaysOverdue(due, time.Date(2025, 6, 30, 8, 0, 0, 0, time.UTC)))
}

func TestAssess(t *testing.T) {
	borrowed := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		record models.BorrowRecord
		days   int
		fee    string
		status Status
	}{
		{
			name:   "unreturned and on time",
			record: models.BorrowRecord{BorrowDate: models.NewTimestamp(borrowed), DueDate: models.NewTimestamp(now.AddDate(0, 0, 3))},
			fee:    "0",
			status: StatusOnTime,
		},
		{
			name:   "unreturned ten days late accrues against now",
			record: models.BorrowRecord{BorrowDate: models.NewTimestamp(borrowed), DueDate: models.NewTimestamp(now.AddDate(0, 0, -10))},
			days:   10,
			fee:    "6.5",
			status: StatusOverdue,
		},
		{
			name: "returned late uses the return date",
			record: models.BorrowRecord{
				BorrowDate: models.NewTimestamp(borrowed),
				DueDate:    models.NewTimestamp(borrowed.Add(LoanPeriod)),
				ReturnDate: models.NewTimestamp(borrowed.Add(LoanPeriod).AddDate(0, 0, 2)),
			},
			days:   2,
			fee:    "1",
			status: StatusOverdue,
		},
		{
			name:   "missing due date is backfilled from borrow date",
			record: models.BorrowRecord{BorrowDate: models.NewTimestamp(now.AddDate(0, 0, -17))},
			days:   3,
			fee:    "1.5",
			status: StatusOverdue,
		},
		{
			name:   "no dates at all",
			record: models.BorrowRecord{},
			fee:    "0",
			status: StatusNoDue,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Assess(tt.record, now)
			assert.Equal(t, tt.status, got.Status)
			assert.Equal(t, tt.days, got.DaysOverdue)
			assert.True(t, decimal.RequireFromString(tt.fee).Equal(got.FeeAmount), "fee %s", got.FeeAmount)
		})
	}
}

func TestCalculateTenDaysOverdue(t *testing.T) {
	_, s := setupTestDB(t)
	rec := seedBorrow(t, s, "654321", now.AddDate(0, 0, -10))

	got, err := NewCalculator(s.Records(), clock.Fixed(now)).Calculate(context.Background(), "654321", rec.BookID)
	require.NoError(t, err)
	assert.Equal(t, 10, got.DaysOverdue)
	assert.Equal(t, "6.50", got.FeeAmount.StringFixed(2))
	assert.Equal(t, StatusOverdue, got.Status)
}

func TestCalculateCapsAtMaximum(t *testing.T) {
	_, s := setupTestDB(t)
	rec := seedBorrow(t, s, "654321", now.AddDate(0, 0, -40))

	got, err := NewCalculator(s.Records(), clock.Fixed(now)).Calculate(context.Background(), "654321", rec.BookID)
	require.NoError(t, err)
	assert.Equal(t, 40, got.DaysOverdue)
	assert.Equal(t, "15.00", got.FeeAmount.StringFixed(2))
}

func TestCalculateUsesLatestRecord(t *testing.T) {
	ctx := context.Background()
	_, s := setupTestDB(t)
	old := seedBorrow(t, s, "654321", now.AddDate(0, 0, -40))
	_, err := s.Records().SetReturnDate(ctx, "654321", old.BookID, now.AddDate(0, 0, -30))
	require.NoError(t, err)
	seedBorrow(t, s, "654321", now.AddDate(0, 0, 5))

	got, err := NewCalculator(s.Records(), clock.Fixed(now)).Calculate(ctx, "654321", old.BookID)
	require.NoError(t, err)
	assert.Equal(t, StatusOnTime, got.Status)
	assert.True(t, got.FeeAmount.IsZero())
}

func TestCalculateStatuses(t *testing.T) {
	ctx := context.Background()
	_, s := setupTestDB(t)
	calc := NewCalculator(s.Records(), clock.Fixed(now))

	got, err := calc.Calculate(ctx, "12ab56", 1)
	require.NoError(t, err)
	assert.Equal(t, StatusInvalid, got.Status)
	assert.True(t, got.FeeAmount.IsZero())

	got, err = calc.Calculate(ctx, "123456", 1)
	require.NoError(t, err)
	assert.Equal(t, StatusNoRecord, got.Status)
}

func TestCalculateToleratesTextDates(t *testing.T) {
	ctx := context.Background()
	db, s := setupTestDB(t)
	rec := seedBorrow(t, s, "654321", now)

	require.NoError(t, db.Exec("UPDATE borrow_records SET borrow_date = ?, due_date = ? WHERE id = ?",
		"10-06-2025 09:00:00", "not a date", rec.ID).Error)

	got, err := NewCalculator(s.Records(), clock.Fixed(now)).Calculate(ctx, "654321", rec.BookID)
	require.NoError(t, err)
	assert.Equal(t, 6, got.DaysOverdue)
	assert.Equal(t, "3.00", got.FeeAmount.StringFixed(2))

	require.NoError(t, db.Exec("UPDATE borrow_records SET borrow_date = ?, due_date = NULL WHERE id = ?",
		"garbage", rec.ID).Error)

	got, err = NewCalculator(s.Records(), clock.Fixed(now)).Calculate(ctx, "654321", rec.BookID)
	require.NoError(t, err)
	assert.Equal(t, StatusNoDue, got.Status)
	assert.True(t, got.FeeAmount.IsZero())
}

type failingRecords struct {
	store.BorrowStore
}

func (failingRecords) MostRecentRecord(context.Context, string, uint) (*models.BorrowRecord, error) {
	return nil, errors.New("connection reset")
}

func TestCalculateReportsStoreFailure(t *testing.T) {
	_, err := NewCalculator(failingRecords{}, clock.Fixed(now)).Calculate(context.Background(), "123456", 1)
	assert.Error(t, err)
}
