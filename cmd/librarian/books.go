package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"library_catalog/pkg/catalog"
	"library_catalog/pkg/models"
)

func newAddBookCmd(app func() *app) *cobra.Command {
	var in catalog.NewBook

	cmd := &cobra.Command{
		Use:   "add-book",
		Short: "Add a book to the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := app().catalog.AddBook(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Message)
			return nil
		},
	}
	cmd.Flags().StringVar(&in.Title, "title", "", "book title")
	cmd.Flags().StringVar(&in.Author, "author", "", "book author")
	cmd.Flags().StringVar(&in.ISBN, "isbn", "", "13 digit ISBN")
	cmd.Flags().IntVar(&in.TotalCopies, "copies", 1, "number of copies")
	return cmd
}

func newSearchCmd(app func() *app) *cobra.Command {
	var searchType string

	cmd := &cobra.Command{
		Use:   "search <term>",
		Short: "Search the catalog by title, author or ISBN",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			books, err := app().catalog.Search(cmd.Context(), args[0], searchType)
			if err != nil {
				return err
			}
			printBooks(cmd, books)
			return nil
		},
	}
	cmd.Flags().StringVar(&searchType, "type", "title", "isbn, title or author")
	return cmd
}

func printBooks(cmd *cobra.Command, books []models.Book) {
	if len(books) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No books found.")
		return
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tAUTHOR\tISBN\tAVAILABLE")
	for _, b := range books {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d/%d\n", b.ID, b.Title, b.Author, b.ISBN, b.AvailableCopies, b.TotalCopies)
	}
	_ = w.Flush()
}
