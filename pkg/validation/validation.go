package validation

import (
	"strings"
	"unicode/utf8"

	"library_catalog/pkg/apperr"
)

const (
	PatronIDLength  = 6
	ISBNLength      = 13
	MaxTitleLength  = 200
	MaxAuthorLength = 100
)

func ValidatePatronID(id string) error {
	if len(id) != PatronIDLength || !isDigits(id) {
		return apperr.Invalid("Invalid patron ID. Must be exactly 6 digits.")
	}
	return nil
}

func ValidateISBN(isbn string) error {
	if len(isbn) != ISBNLength || !isDigits(isbn) {
		return apperr.Invalid("ISBN must be exactly 13 digits.")
	}
	return nil
}

// ValidateBookInput checks a catalog entry before it reaches the store.
// Title and author are measured after trimming, in characters.
func ValidateBookInput(title, author, isbn string, totalCopies int) error {
	title = strings.TrimSpace(title)
	author = strings.TrimSpace(author)

	switch {
	case title == "":
		return apperr.Invalid("Title is required.")
	case utf8.RuneCountInString(title) > MaxTitleLength:
		return apperr.Invalid("Title must be less than 200 characters.")
	case author == "":
		return apperr.Invalid("Author is required.")
	case utf8.RuneCountInString(author) > MaxAuthorLength:
		return apperr.Invalid("Author must be less than 100 characters.")
	}

	if err := ValidateISBN(isbn); err != nil {
		return err
	}

	if totalCopies <= 0 {
		return apperr.Invalid("Total copies must be a positive integer.")
	}
	return nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
