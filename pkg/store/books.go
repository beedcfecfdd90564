package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"library_catalog/pkg/models"
)

type Books struct {
	db *gorm.DB
}

func (b *Books) GetByID(ctx context.Context, id uint) (*models.Book, error) {
	var book models.Book
	if err := b.db.WithContext(ctx).First(&book, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &book, nil
}

func (b *Books) GetByISBN(ctx context.Context, isbn string) (*models.Book, error) {
	var book models.Book
	if err := b.db.WithContext(ctx).Where("isbn = ?", isbn).First(&book).Error; err != nil {
		return nil, notFound(err)
	}
	return &book, nil
}

func (b *Books) Insert(ctx context.Context, book *models.Book) error {
	if err := b.db.WithContext(ctx).Create(book).Error; err != nil {
		return fmt.Errorf("insert book: %w", err)
	}
	return nil
}

// UpdateAvailability shifts available_copies by delta in a single conditional
// UPDATE, so concurrent borrowers cannot take the same last copy.
func (b *Books) UpdateAvailability(ctx context.Context, id uint, delta int) error {
	res := b.db.WithContext(ctx).
		Model(&models.Book{}).
		Where("id = ? AND available_copies + ? >= 0 AND available_copies + ? <= total_copies", id, delta, delta).
		UpdateColumn("available_copies", gorm.Expr("available_copies + ?", delta))
	if res.Error != nil {
		return fmt.Errorf("update availability of book %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrOutOfRange
	}
	return nil
}

func (b *Books) ListAll(ctx context.Context) ([]models.Book, error) {
	var books []models.Book
	if err := b.db.WithContext(ctx).Order("id").Find(&books).Error; err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	return books, nil
}
