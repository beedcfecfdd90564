// Package store persists books and borrow records with gorm. Every read goes
// to the database; nothing is cached between calls.
package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"library_catalog/pkg/models"
)

var (
	ErrNotFound = errors.New("record not found")
	// ErrOutOfRange is returned when an availability change would leave a
	// book below zero or above its total copies.
	ErrOutOfRange = errors.New("availability out of range")
)

type BookStore interface {
	GetByID(ctx context.Context, id uint) (*models.Book, error)
	GetByISBN(ctx context.Context, isbn string) (*models.Book, error)
	Insert(ctx context.Context, book *models.Book) error
	UpdateAvailability(ctx context.Context, id uint, delta int) error
	ListAll(ctx context.Context) ([]models.Book, error)
}

type BorrowStore interface {
	Insert(ctx context.Context, record *models.BorrowRecord) error
	SetReturnDate(ctx context.Context, patronID string, bookID uint, at time.Time) (*models.BorrowRecord, error)
	CountActiveForPatron(ctx context.Context, patronID string) (int64, error)
	ActiveRecordsForPatron(ctx context.Context, patronID string) ([]models.BorrowRecord, error)
	MostRecentRecord(ctx context.Context, patronID string, bookID uint) (*models.BorrowRecord, error)
	ReturnedHistoryForPatron(ctx context.Context, patronID string) ([]models.BorrowRecord, error)
}

// UnitOfWork hands out stores and runs multi-step mutations atomically.
// Stores passed to fn see and write only through the transaction.
type UnitOfWork interface {
	Books() BookStore
	Records() BorrowStore
	Atomic(ctx context.Context, fn func(tx UnitOfWork) error) error
}

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Books() BookStore {
	return &Books{db: s.db}
}

func (s *Store) Records() BorrowStore {
	return &Records{db: s.db}
}

func (s *Store) Atomic(ctx context.Context, fn func(tx UnitOfWork) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(New(tx))
	})
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
