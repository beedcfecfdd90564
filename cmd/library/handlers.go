package main

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"library_catalog/pkg/apperr"
	"library_catalog/pkg/catalog"
	"library_catalog/pkg/database"
	"library_catalog/pkg/fees"
	"library_catalog/pkg/validation"
)

const patronHeader = "X-Patron-Id"

func getBooks(c *gin.Context) {
	books, err := catalogMgr.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"totalElements": len(books),
		"items":         books,
	})
}

func addBook(c *gin.Context) {
	var req catalog.NewBook
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	res, err := catalogMgr.AddBook(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": res.Message,
		"book":    res.Book,
	})
}

func getBook(c *gin.Context) {
	bookID, ok := bookIDParam(c)
	if !ok {
		return
	}

	book, err := catalogMgr.Get(c.Request.Context(), bookID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, book)
}

func searchBooks(c *gin.Context) {
	books, err := catalogMgr.Search(c.Request.Context(), c.Query("q"), c.Query("type"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"totalElements": len(books),
		"items":         books,
	})
}

func borrowBook(c *gin.Context) {
	bookID, ok := bookIDParam(c)
	if !ok {
		return
	}

	receipt, err := lendingMgr.Borrow(c.Request.Context(), c.GetHeader(patronHeader), bookID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":         receipt.Message,
		"bookId":          receipt.Book.ID,
		"dueDate":         receipt.Record.DueDate.Date(),
		"availableCopies": receipt.Book.AvailableCopies,
	})
}

func returnBook(c *gin.Context) {
	bookID, ok := bookIDParam(c)
	if !ok {
		return
	}

	receipt, err := lendingMgr.Return(c.Request.Context(), c.GetHeader(patronHeader), bookID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":         receipt.Message,
		"bookId":          receipt.Book.ID,
		"lateFee":         receipt.LateFee.StringFixed(2),
		"availableCopies": receipt.Book.AvailableCopies,
	})
}

func getLateFee(c *gin.Context) {
	bookID, ok := bookIDParam(c)
	if !ok {
		return
	}

	patronID := c.GetHeader(patronHeader)
	if err := validation.ValidatePatronID(patronID); err != nil {
		respondError(c, err)
		return
	}

	res, err := feeCalc.Calculate(c.Request.Context(), patronID, bookID)
	if err != nil {
		respondError(c, apperr.Storage("Unable to calculate late fees.", err))
		return
	}
	if res.Status == fees.StatusNoRecord {
		c.JSON(http.StatusNotFound, gin.H{"error": string(res.Status)})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"feeAmount":   res.FeeAmount.StringFixed(2),
		"daysOverdue": res.DaysOverdue,
		"status":      res.Status,
	})
}

func payLateFee(c *gin.Context) {
	bookID, ok := bookIDParam(c)
	if !ok {
		return
	}

	out, err := payments.PayLateFees(c.Request.Context(), c.GetHeader(patronHeader), bookID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

type refundRequest struct {
	TransactionID string          `json:"transactionId"`
	Amount        decimal.Decimal `json:"amount"`
}

func refundLateFee(c *gin.Context) {
	var req refundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	out, err := payments.RefundLateFeePayment(c.Request.Context(), req.TransactionID, req.Amount)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func getPatronStatus(c *gin.Context) {
	report, err := reporter.PatronStatus(c.Request.Context(), c.Param("patronId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func healthCheck(c *gin.Context) {
	if err := database.Ping(db); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func bookIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("bookId"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid book id"})
		return 0, false
	}
	return uint(id), true
}

func respondError(c *gin.Context, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, apperr.ErrInvalid), errors.Is(err, apperr.ErrConflict):
		code = http.StatusBadRequest
	case errors.Is(err, apperr.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, apperr.ErrDeclined):
		code = http.StatusPaymentRequired
	case errors.Is(err, apperr.ErrGateway):
		code = http.StatusBadGateway
	}
	if code == http.StatusInternalServerError {
		lg.Error("request failed", "path", c.FullPath(), "err", err)
	}
	c.JSON(code, gin.H{"error": apperr.Message(err)})
}
