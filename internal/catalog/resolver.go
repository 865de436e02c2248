package catalog

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dgallion1/bookfetch/internal/book"
)

// Resolver runs one catalog search per call and turns an empty result into
// *book.NotFoundError.
type Resolver struct {
	catalog Catalog
	format  string
	log     *slog.Logger
}

func NewResolver(c Catalog, format string, log *slog.Logger) *Resolver {
	return &Resolver{catalog: c, format: format, log: log}
}

// Resolve returns the ordered, non-empty candidate list.
func (r *Resolver) Resolve(ctx context.Context, title, author string) ([]Candidate, error) {
	results, err := r.catalog.Search(ctx, Query{
		Title:     title,
		Author:    author,
		Extension: r.format,
	})
	if err != nil {
		return nil, fmt.Errorf("search catalog: %w", err)
	}
	if len(results) == 0 {
		return nil, &book.NotFoundError{Title: title, Author: author}
	}
	r.log.Info("catalog search", "title", title, "author", author, "results", len(results),
		"first_id", results[0].ID)
	return results, nil
}
