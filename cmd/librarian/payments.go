package main

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func newPayCmd(app func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "pay <patron-id> <book-id>",
		Short: "Charge the outstanding late fee for a book",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			bookID, err := parseBookID(args[1])
			if err != nil {
				return err
			}
			out, err := app().payments.PayLateFees(cmd.Context(), args[0], bookID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (transaction %s, $%s)\n", out.Message, out.TransactionID, out.Amount.StringFixed(2))
			return nil
		},
	}
}

func newRefundCmd(app func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "refund <transaction-id> <amount>",
		Short: "Refund a late fee payment",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := decimal.NewFromString(args[1])
			if err != nil {
				return fmt.Errorf("invalid amount %q", args[1])
			}
			out, err := app().payments.RefundLateFeePayment(cmd.Context(), args[0], amount)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out.Message)
			return nil
		},
	}
}
