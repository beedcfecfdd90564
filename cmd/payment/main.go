package main

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"library_catalog/pkg/config"
	"library_catalog/pkg/database"
	"library_catalog/pkg/models"
	"library_catalog/pkg/payment"
)

var (
	db        *gorm.DB
	maxCharge decimal.Decimal
)

var errDeclined = errors.New("refund declined")

func main() {
	log.Println("Starting payment service...")

	cfg := config.Load(":8090", "payments")
	maxCharge = cfg.MaxCharge

	var err error
	db, err = database.Open(cfg.Logger(), cfg.Database, database.PaymentModels()...)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	log.Println("Database connected successfully")

	server := newRouter()

	log.Printf("Payment service starting on %s", cfg.HTTPAddr)
	if err := server.Run(cfg.HTTPAddr); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

func newRouter() *gin.Engine {
	server := gin.Default()
	server.POST("/api/v1/payments", processPayment)
	server.GET("/api/v1/payments/:transactionId", getPayment)
	server.POST("/api/v1/refunds", refundPayment)
	server.GET("/manage/health", healthCheck)
	return server
}

func decline(c *gin.Context, message string) {
	c.JSON(http.StatusPaymentRequired, payment.ChargeResponse{Approved: false, Message: message})
}

func processPayment(c *gin.Context) {
	var req payment.ChargeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if req.PatronID == "" {
		decline(c, "Patron ID is required.")
		return
	}
	if !req.Amount.IsPositive() {
		decline(c, "Invalid amount: must be greater than 0.")
		return
	}
	if req.Amount.GreaterThan(maxCharge) {
		decline(c, fmt.Sprintf("Amount exceeds the single charge limit of $%s.", maxCharge.StringFixed(2)))
		return
	}

	p := models.Payment{
		TransactionID:  payment.TransactionPrefix + uuid.New().String(),
		PatronID:       req.PatronID,
		Amount:         req.Amount.Round(2),
		RefundedAmount: decimal.Zero,
		Description:    req.Description,
		Status:         models.PaymentCaptured,
	}
	if err := db.WithContext(c.Request.Context()).Create(&p).Error; err != nil {
		log.Printf("Failed to store payment for patron %s: %v", req.PatronID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store payment"})
		return
	}

	c.JSON(http.StatusOK, payment.ChargeResponse{
		Approved:      true,
		TransactionID: p.TransactionID,
		Message:       fmt.Sprintf("Payment of $%s processed.", p.Amount.StringFixed(2)),
	})
}

func getPayment(c *gin.Context) {
	var p models.Payment
	err := db.WithContext(c.Request.Context()).
		Where("transaction_id = ?", c.Param("transactionId")).
		First(&p).Error
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Transaction not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"transactionId":  p.TransactionID,
		"patronId":       p.PatronID,
		"amount":         p.Amount.StringFixed(2),
		"refundedAmount": p.RefundedAmount.StringFixed(2),
		"description":    p.Description,
		"status":         p.Status,
	})
}

func refundPayment(c *gin.Context) {
	var req payment.RefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if !req.Amount.IsPositive() {
		c.JSON(http.StatusPaymentRequired, payment.RefundResponse{Message: "Refund amount must be greater than 0."})
		return
	}

	var reason string
	err := db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		var p models.Payment
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("transaction_id = ?", req.TransactionID).
			First(&p).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			reason = "Transaction not found."
			return errDeclined
		}
		if err != nil {
			return err
		}

		if req.Amount.GreaterThan(p.Refundable()) {
			reason = fmt.Sprintf("Refund amount exceeds refundable balance of $%s.", p.Refundable().StringFixed(2))
			return errDeclined
		}

		p.RefundedAmount = p.RefundedAmount.Add(req.Amount)
		p.Status = models.PaymentPartiallyRefunded
		if p.Refundable().IsZero() {
			p.Status = models.PaymentRefunded
		}
		return tx.Model(&p).Select("RefundedAmount", "Status").Updates(&p).Error
	})
	switch {
	case errors.Is(err, errDeclined):
		c.JSON(http.StatusPaymentRequired, payment.RefundResponse{Message: reason})
		return
	case err != nil:
		log.Printf("Failed to refund %s: %v", req.TransactionID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process refund"})
		return
	}

	c.JSON(http.StatusOK, payment.RefundResponse{
		Approved: true,
		Message:  fmt.Sprintf("Refund of $%s processed successfully.", req.Amount.StringFixed(2)),
	})
}

func healthCheck(c *gin.Context) {
	if err := database.Ping(db); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
