package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Book struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	Title           string    `gorm:"size:200;not null" json:"title"`
	Author          string    `gorm:"size:100;not null" json:"author"`
	ISBN            string    `gorm:"column:isbn;size:13;uniqueIndex;not null" json:"isbn"`
	TotalCopies     int       `gorm:"not null;check:total_copies > 0" json:"totalCopies"`
	AvailableCopies int       `gorm:"not null;check:available_copies >= 0 AND available_copies <= total_copies" json:"availableCopies"`
	CreatedAt       time.Time `json:"-"`
	UpdatedAt       time.Time `json:"-"`
}

// BorrowRecord is created on borrow and updated once, when the copy comes back.
// ReturnDate is null while the book is out.
type BorrowRecord struct {
	ID         uint      `gorm:"primaryKey"`
	PatronID   string    `gorm:"size:6;not null;index:idx_borrow_patron_book"`
	BookID     uint      `gorm:"not null;index:idx_borrow_patron_book"`
	BorrowDate Timestamp `gorm:"not null"`
	DueDate    Timestamp
	ReturnDate Timestamp

	Book Book `gorm:"foreignKey:BookID"`
}

func (r BorrowRecord) Active() bool {
	return !r.ReturnDate.Valid
}

const (
	PaymentCaptured          = "CAPTURED"
	PaymentPartiallyRefunded = "PARTIALLY_REFUNDED"
	PaymentRefunded          = "REFUNDED"
)

// Payment is a ledger row of the payment processor service.
type Payment struct {
	ID             uint            `gorm:"primaryKey"`
	TransactionID  string          `gorm:"size:64;uniqueIndex;not null"`
	PatronID       string          `gorm:"size:6;not null;index"`
	Amount         decimal.Decimal `gorm:"type:numeric(10,2);not null"`
	RefundedAmount decimal.Decimal `gorm:"type:numeric(10,2);not null;default:0"`
	Description    string          `gorm:"size:255"`
	Status         string          `gorm:"size:20;not null"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (p Payment) Refundable() decimal.Decimal {
	return p.Amount.Sub(p.RefundedAmount)
}
