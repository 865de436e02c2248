package parser

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dgallion1/bookfetch/internal/book"
)

// PageSeparator joins consecutive pages in the extracted text.
const PageSeparator = "\n"

// Engine extracts a document's pages on a bounded pool of workers.
type Engine struct {
	workers int
	log     *slog.Logger
}

// NewEngine creates an engine with the given pool size; workers <= 0 uses
// runtime.NumCPU().
func NewEngine(workers int, log *slog.Logger) *Engine {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Engine{workers: workers, log: log}
}

// Workers returns the pool size.
func (e *Engine) Workers() int {
	return e.workers
}

// Extract returns the text of every page joined by PageSeparator in page
// order. Results land in a slot per page index, so completion order never
// affects the output. The first failing page cancels the remaining work and
// is reported as *book.ParseError carrying its index.
func (e *Engine) Extract(ctx context.Context, doc Document) (string, error) {
	n := doc.NumPages()
	if n == 0 {
		return "", nil
	}
	start := time.Now()
	workers := min(e.workers, n)

	pages := make([]string, n)
	tasks := make(chan int)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(tasks)
		for i := 0; i < n; i++ {
			select {
			case tasks <- i:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	for w := 0; w < workers; w++ {
		g.Go(func() error {
			ex, err := doc.Extractor(gctx)
			if err != nil {
				return &book.ParseError{Page: -1, Err: err}
			}
			for i := range tasks {
				if err := gctx.Err(); err != nil {
					return err
				}
				text, err := ex.ExtractPage(i)
				if err != nil {
					var perr *book.ParseError
					if errors.As(err, &perr) {
						return err
					}
					return &book.ParseError{Page: i, Err: err}
				}
				pages[i] = text
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return "", err
	}

	e.log.Debug("extracted document", "pages", n, "workers", workers,
		"duration_ms", time.Since(start).Milliseconds())
	return strings.Join(pages, PageSeparator), nil
}
