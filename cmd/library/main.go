package main

import (
	"context"
	"errors"
	"log"
	"log/slog"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"library_catalog/pkg/apperr"
	"library_catalog/pkg/catalog"
	"library_catalog/pkg/clock"
	"library_catalog/pkg/config"
	"library_catalog/pkg/database"
	"library_catalog/pkg/fees"
	"library_catalog/pkg/lending"
	"library_catalog/pkg/payment"
	"library_catalog/pkg/status"
	"library_catalog/pkg/store"
)

var (
	db         *gorm.DB
	lg         *slog.Logger
	catalogMgr *catalog.Manager
	lendingMgr *lending.Manager
	feeCalc    *fees.Calculator
	payments   *payment.Service
	reporter   *status.Reporter
)

func main() {
	log.Println("Starting library service...")

	cfg := config.Load(":8060", "library")
	logger := cfg.Logger()

	conn, err := database.Open(logger, cfg.Database, database.LibraryModels()...)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	log.Println("Database connected successfully")

	wire(conn, payment.NewClient(logger, cfg.Payment), clock.System{}, logger)

	if cfg.SeedData {
		seedTestData(context.Background())
	}

	server := newRouter()

	log.Printf("Library service starting on %s", cfg.HTTPAddr)
	if err := server.Run(cfg.HTTPAddr); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

// wire builds the services every handler uses on top of conn.
func wire(conn *gorm.DB, gateway payment.Gateway, clk clock.Clock, logger *slog.Logger) {
	db = conn
	lg = logger

	s := store.New(conn)
	feeCalc = fees.NewCalculator(s.Records(), clk)
	catalogMgr = catalog.NewManager(s.Books(), logger)
	lendingMgr = lending.NewManager(s, clk, logger)
	payments = payment.NewService(feeCalc, s.Books(), gateway, logger)
	reporter = status.NewReporter(s.Records(), feeCalc, logger)
}

func newRouter() *gin.Engine {
	server := gin.Default()

	server.GET("/api/v1/books", getBooks)
	server.POST("/api/v1/books", addBook)
	server.GET("/api/v1/books/search", searchBooks)
	server.GET("/api/v1/books/:bookId", getBook)
	server.POST("/api/v1/books/:bookId/borrow", borrowBook)
	server.POST("/api/v1/books/:bookId/return", returnBook)
	server.GET("/api/v1/books/:bookId/fee", getLateFee)
	server.POST("/api/v1/books/:bookId/fee/pay", payLateFee)
	server.POST("/api/v1/refunds", refundLateFee)
	server.GET("/api/v1/patrons/:patronId/status", getPatronStatus)
	server.GET("/manage/health", healthCheck)

	return server
}

func seedTestData(ctx context.Context) {
	books := []catalog.NewBook{
		{Title: "The Great Gatsby", Author: "F. Scott Fitzgerald", ISBN: "9780743273565", TotalCopies: 3},
		{Title: "To Kill a Mockingbird", Author: "Harper Lee", ISBN: "9780061120084", TotalCopies: 2},
		{Title: "1984", Author: "George Orwell", ISBN: "9780451524935", TotalCopies: 1},
	}

	for _, b := range books {
		res, err := catalogMgr.AddBook(ctx, b)
		switch {
		case errors.Is(err, apperr.ErrConflict):
			continue
		case err != nil:
			log.Printf("Failed to create test book %s: %v", b.Title, err)
		default:
			log.Printf("Created test book: %s", res.Book.Title)
		}
	}
	log.Println("Library test data seeded")
}
