package main

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"

	"library_catalog/pkg/catalog"
	"library_catalog/pkg/clock"
	"library_catalog/pkg/config"
	"library_catalog/pkg/database"
	"library_catalog/pkg/fees"
	"library_catalog/pkg/lending"
	"library_catalog/pkg/models"
	"library_catalog/pkg/payment"
	"library_catalog/pkg/status"
	"library_catalog/pkg/store"
)

type app struct {
	catalog  *catalog.Manager
	lending  *lending.Manager
	fees     *fees.Calculator
	payments *payment.Service
	status   *status.Reporter
}

// newApp opens the database named by the environment. Replaced in tests.
var newApp = func(clk clock.Clock) (*app, error) {
	cfg := config.Load("", "library")
	// desk output stays readable unless debug logging is asked for
	lg := slog.New(slog.DiscardHandler)
	if cfg.LogLevel <= slog.LevelDebug {
		lg = cfg.Logger()
	}

	db, err := database.Open(lg, cfg.Database, database.LibraryModels()...)
	if err != nil {
		return nil, err
	}
	return buildApp(store.New(db), payment.NewClient(lg, cfg.Payment), clk, lg), nil
}

func buildApp(s *store.Store, gateway payment.Gateway, clk clock.Clock, lg *slog.Logger) *app {
	calc := fees.NewCalculator(s.Records(), clk)
	return &app{
		catalog:  catalog.NewManager(s.Books(), lg),
		lending:  lending.NewManager(s, clk, lg),
		fees:     calc,
		payments: payment.NewService(calc, s.Books(), gateway, lg),
		status:   status.NewReporter(s.Records(), calc, lg),
	}
}

func newRootCmd() *cobra.Command {
	var (
		a  *app
		at string
	)

	rootCmd := &cobra.Command{
		Use:   "librarian",
		Short: "Circulation desk tool for the library catalog",
		Long: `librarian adds books, checks them in and out, reports late fees and
settles them through the payment processor.

Database and payment settings are read from the environment (or a .env file),
the same variables the library service uses.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var clk clock.Clock = clock.System{}
			if at != "" {
				ts, ok := models.ParseTimestamp(at)
				if !ok {
					return fmt.Errorf("invalid --at date %q", at)
				}
				clk = clock.Fixed(ts.Time)
			}

			var err error
			a, err = newApp(clk)
			return err
		},
	}
	rootCmd.PersistentFlags().StringVar(&at, "at", "", "evaluate dates and fees as of this date (YYYY-MM-DD)")

	current := func() *app { return a }
	rootCmd.AddCommand(
		newAddBookCmd(current),
		newSearchCmd(current),
		newBorrowCmd(current),
		newReturnCmd(current),
		newFeeCmd(current),
		newStatusCmd(current),
		newPayCmd(current),
		newRefundCmd(current),
	)
	return rootCmd
}

func parseBookID(s string) (uint, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid book id %q", s)
	}
	return uint(id), nil
}
