package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/dgallion1/bookfetch/internal/book"
	"github.com/dgallion1/bookfetch/internal/pipeline"
)

var (
	startIndex int
	endIndex   int
	textOnly   bool
)

var getCmd = &cobra.Command{
	Use:   "get <title> [author]",
	Short: "Print a window of a book's text",
	Long: `Fetch a book by title (and optional author) and print one window of its
text as JSON. Without --end the window is WINDOW_SIZE characters long.

Examples:
  bookfetch get "The Art of War" "Sun Tzu"
  bookfetch get "The Art of War" --start 95000
  bookfetch get Dune --start 0 --end 500 --text`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := setup()
		if err != nil {
			return err
		}
		svc := pipeline.New(cfg, log)
		defer svc.Close()

		req := pipeline.Request{Title: args[0], StartIndex: startIndex}
		if len(args) > 1 {
			req.Author = args[1]
		}
		if cmd.Flags().Changed("end") {
			req.EndIndex = &endIndex
		}

		slice, err := svc.GetBook(cmd.Context(), req)
		if err != nil {
			return fmt.Errorf("%s: %w", book.Kind(err), err)
		}
		return printSlice(cmd.OutOrStdout(), slice, textOnly)
	},
}

func init() {
	getCmd.Flags().IntVar(&startIndex, "start", 0, "start index in characters")
	getCmd.Flags().IntVar(&endIndex, "end", 0, "end index in characters (default: start + window size)")
	getCmd.Flags().BoolVar(&textOnly, "text", false, "print only the text of the window")
}

func printSlice(w io.Writer, s book.Slice, textOnly bool) error {
	if textOnly {
		_, err := fmt.Fprintln(w, s.Text)
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}
