package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dgallion1/bookfetch/internal/config"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "bookfetch",
	Short: "Fetch the full text of a book and read it in windows",
	Long: `bookfetch locates a downloadable copy of a book in a LibGen-style
catalog, downloads it, extracts its text page by page, and prints a bounded
window of that text with positional metadata.

Configuration is read from the same environment variables as the server
(CATALOG_URL, CATALOG_FORMAT, MIRROR_PRIORITY, EXTRACT_WORKERS, ...).`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log pipeline progress to stderr")
	rootCmd.AddCommand(getCmd)
}

// setup loads and validates configuration and builds a stderr logger.
func setup() (config.Config, *slog.Logger, error) {
	cfg := config.Load()
	level := slog.LevelWarn
	if verbose {
		level = min(cfg.Level(), slog.LevelInfo)
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	if err := cfg.Validate(); err != nil {
		return cfg, log, err
	}
	return cfg, log, nil
}
