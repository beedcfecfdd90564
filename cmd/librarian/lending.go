package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newBorrowCmd(app func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "borrow <patron-id> <book-id>",
		Short: "Check a book out to a patron",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			bookID, err := parseBookID(args[1])
			if err != nil {
				return err
			}
			receipt, err := app().lending.Borrow(cmd.Context(), args[0], bookID)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), receipt.Message)
			return nil
		},
	}
}

func newReturnCmd(app func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "return <patron-id> <book-id>",
		Short: "Check a book back in",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			bookID, err := parseBookID(args[1])
			if err != nil {
				return err
			}
			receipt, err := app().lending.Return(cmd.Context(), args[0], bookID)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), receipt.Message)
			return nil
		},
	}
}

func newFeeCmd(app func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "fee <patron-id> <book-id>",
		Short: "Show the late fee of a patron's latest borrow of a book",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			bookID, err := parseBookID(args[1])
			if err != nil {
				return err
			}
			res, err := app().fees.Calculate(cmd.Context(), args[0], bookID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: $%s (%d days overdue)\n", res.Status, res.FeeAmount.StringFixed(2), res.DaysOverdue)
			return nil
		},
	}
}

func newStatusCmd(app func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status <patron-id>",
		Short: "Show a patron's borrowed books, fees and history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := app().status.PatronStatus(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Patron %s: %d borrowed, late fees $%s\n",
				report.PatronID, report.BorrowedCount, report.TotalLateFees.StringFixed(2))

			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			if len(report.BorrowedBooks) > 0 {
				fmt.Fprintln(w, "BOOK\tTITLE\tDUE\tDAYS OVERDUE\tFEE")
				for _, b := range report.BorrowedBooks {
					fmt.Fprintf(w, "%d\t%s\t%s\t%d\t$%s\n", b.BookID, b.Title, b.DueDate.Date(), b.DaysOverdue, b.CurrentFee.StringFixed(2))
				}
			}
			if len(report.History) > 0 {
				fmt.Fprintln(w, "\nRETURNED\tTITLE\tBORROWED\tDUE\t")
				for _, h := range report.History {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t\n", h.ReturnDate.Date(), h.Title, h.BorrowDate.Date(), h.DueDate.Date())
				}
			}
			return w.Flush()
		},
	}
}
