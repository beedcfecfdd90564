package store

import (
	"context"
	"fmt"
	"slices"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"library_catalog/pkg/models"
)

type Records struct {
	db *gorm.DB
}

func (r *Records) Insert(ctx context.Context, record *models.BorrowRecord) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(record).Error; err != nil {
		return fmt.Errorf("insert borrow record: %w", err)
	}
	return nil
}

// SetReturnDate closes the patron's oldest open record for the book and
// returns it with the return date filled in.
func (r *Records) SetReturnDate(ctx context.Context, patronID string, bookID uint, at time.Time) (*models.BorrowRecord, error) {
	db := r.db.WithContext(ctx)

	var open models.BorrowRecord
	err := db.Where("patron_id = ? AND book_id = ? AND return_date IS NULL", patronID, bookID).
		Order("id").
		First(&open).Error
	if err != nil {
		return nil, notFound(err)
	}

	returned := models.NewTimestamp(at)
	res := db.Model(&models.BorrowRecord{}).
		Where("id = ? AND return_date IS NULL", open.ID).
		Update("return_date", returned)
	if res.Error != nil {
		return nil, fmt.Errorf("set return date of record %d: %w", open.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	open.ReturnDate = returned
	return &open, nil
}

func (r *Records) CountActiveForPatron(ctx context.Context, patronID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.BorrowRecord{}).
		Where("patron_id = ? AND return_date IS NULL", patronID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count active borrows: %w", err)
	}
	return count, nil
}

func (r *Records) ActiveRecordsForPatron(ctx context.Context, patronID string) ([]models.BorrowRecord, error) {
	var records []models.BorrowRecord
	err := r.db.WithContext(ctx).
		Preload("Book").
		Where("patron_id = ? AND return_date IS NULL", patronID).
		Order("id").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("list active borrows: %w", err)
	}
	return records, nil
}

func (r *Records) MostRecentRecord(ctx context.Context, patronID string, bookID uint) (*models.BorrowRecord, error) {
	var record models.BorrowRecord
	err := r.db.WithContext(ctx).
		Where("patron_id = ? AND book_id = ?", patronID, bookID).
		Order("id DESC").
		First(&record).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &record, nil
}

// ReturnedHistoryForPatron lists closed records, latest return first. Dates
// may be stored in more than one text encoding, so ordering happens after
// they are parsed rather than in SQL.
func (r *Records) ReturnedHistoryForPatron(ctx context.Context, patronID string) ([]models.BorrowRecord, error) {
	var records []models.BorrowRecord
	err := r.db.WithContext(ctx).
		Preload("Book").
		Where("patron_id = ? AND return_date IS NOT NULL", patronID).
		Order("id DESC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("list borrow history: %w", err)
	}

	slices.SortStableFunc(records, func(a, b models.BorrowRecord) int {
		return b.ReturnDate.Time.Compare(a.ReturnDate.Time)
	})
	return records, nil
}
