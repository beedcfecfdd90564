// Package catalog adds books to the library and finds them again.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"library_catalog/pkg/apperr"
	"library_catalog/pkg/models"
	"library_catalog/pkg/store"
	"library_catalog/pkg/validation"
)

const (
	SearchByISBN   = "isbn"
	SearchByTitle  = "title"
	SearchByAuthor = "author"
)

type NewBook struct {
	Title       string `json:"title"`
	Author      string `json:"author"`
	ISBN        string `json:"isbn"`
	TotalCopies int    `json:"totalCopies"`
}

type AddResult struct {
	Book    *models.Book
	Message string
}

type Manager struct {
	books store.BookStore
	lg    *slog.Logger
}

func NewManager(books store.BookStore, lg *slog.Logger) *Manager {
	return &Manager{books: books, lg: lg}
}

func (m *Manager) AddBook(ctx context.Context, in NewBook) (AddResult, error) {
	if err := validation.ValidateBookInput(in.Title, in.Author, in.ISBN, in.TotalCopies); err != nil {
		return AddResult{}, err
	}

	_, err := m.books.GetByISBN(ctx, in.ISBN)
	switch {
	case err == nil:
		return AddResult{}, apperr.Conflict("A book with this ISBN already exists.")
	case !errors.Is(err, store.ErrNotFound):
		m.lg.Error("isbn lookup failed", "isbn", in.ISBN, "err", err)
		return AddResult{}, apperr.Storage("Database error occurred while adding the book.", err)
	}

	book := &models.Book{
		Title:           strings.TrimSpace(in.Title),
		Author:          strings.TrimSpace(in.Author),
		ISBN:            in.ISBN,
		TotalCopies:     in.TotalCopies,
		AvailableCopies: in.TotalCopies,
	}
	if err := m.books.Insert(ctx, book); err != nil {
		m.lg.Error("insert book failed", "isbn", in.ISBN, "err", err)
		return AddResult{}, apperr.Storage("Database error occurred while adding the book.", err)
	}

	m.lg.Info("book added", "bookId", book.ID, "isbn", book.ISBN)
	return AddResult{
		Book:    book,
		Message: fmt.Sprintf("Book \"%s\" has been successfully added to the catalog.", book.Title),
	}, nil
}

// Search matches isbn exactly and title/author as case-insensitive
// substrings. Any other searchType matches title or author. A blank term
// returns nothing without touching the store.
func (m *Manager) Search(ctx context.Context, term, searchType string) ([]models.Book, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return []models.Book{}, nil
	}

	books, err := m.books.ListAll(ctx)
	if err != nil {
		return nil, apperr.Storage("Database error occurred while searching the catalog.", err)
	}

	needle := strings.ToLower(term)
	contains := func(s string) bool { return strings.Contains(strings.ToLower(s), needle) }

	results := make([]models.Book, 0, len(books))
	for _, b := range books {
		var ok bool
		switch searchType {
		case SearchByISBN:
			ok = b.ISBN == term
		case SearchByTitle:
			ok = contains(b.Title)
		case SearchByAuthor:
			ok = contains(b.Author)
		default:
			ok = contains(b.Title) || contains(b.Author)
		}
		if ok {
			results = append(results, b)
		}
	}
	return results, nil
}

func (m *Manager) List(ctx context.Context) ([]models.Book, error) {
	books, err := m.books.ListAll(ctx)
	if err != nil {
		return nil, apperr.Storage("Database error occurred while loading the catalog.", err)
	}
	return books, nil
}

func (m *Manager) Get(ctx context.Context, id uint) (*models.Book, error) {
	book, err := m.books.GetByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("Book not found.")
	}
	if err != nil {
		return nil, apperr.Storage("Database error occurred while loading the book.", err)
	}
	return book, nil
}
