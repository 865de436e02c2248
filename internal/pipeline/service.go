// Package pipeline wires catalog search, mirror selection, download,
// extraction, and caching into the get_book operation.
package pipeline

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/dgallion1/bookfetch/internal/book"
	"github.com/dgallion1/bookfetch/internal/cache"
	"github.com/dgallion1/bookfetch/internal/catalog"
	"github.com/dgallion1/bookfetch/internal/parser"
	"github.com/dgallion1/bookfetch/internal/stats"
)

// Searcher finds candidate files for a title.
type Searcher interface {
	Resolve(ctx context.Context, title, author string) ([]catalog.Candidate, error)
}

// SourceSelector picks one download URL for a candidate.
type SourceSelector interface {
	Select(ctx context.Context, c catalog.Candidate) (catalog.Source, error)
}

type Fetcher interface {
	Download(ctx context.Context, url string) ([]byte, error)
}

type Decoder interface {
	Decode(data []byte, format string) (parser.Document, error)
}

type Extractor interface {
	Extract(ctx context.Context, doc parser.Document) (string, error)
}

// Deps are the stages of one acquisition.
type Deps struct {
	Search  Searcher
	Sources SourceSelector
	Fetch   Fetcher
	Decode  Decoder
	Extract Extractor
	Cache   *cache.Cache
	Stats   *stats.Stages
	Closers []func()
}

// Options tune serving behavior.
type Options struct {
	// WindowSize is the default slice length when no end index is given.
	WindowSize int
	// Timeout bounds one whole acquisition; zero disables it.
	Timeout time.Duration
	// Format is used when a candidate carries no extension.
	Format string
}

// Request is the get_book input.
type Request struct {
	Title      string `json:"title"`
	Author     string `json:"author"`
	StartIndex int    `json:"start_index"`
	EndIndex   *int   `json:"end_index,omitempty"`
}

// Service serves windows of books, acquiring each book at most once.
type Service struct {
	deps Deps
	opts Options
	log  *slog.Logger
}

func NewService(deps Deps, opts Options, log *slog.Logger) *Service {
	if opts.WindowSize <= 0 {
		opts.WindowSize = book.DefaultWindowSize
	}
	if deps.Cache == nil {
		deps.Cache = cache.New(0, log)
	}
	if deps.Stats == nil {
		deps.Stats = stats.NewStages(0)
	}
	return &Service{deps: deps, opts: opts, log: log}
}

// GetBook returns the requested window of the book's text. Invalid requests
// fail with *book.ValidationError before any network work. Every pipeline
// failure reaches the caller as its typed error.
func (s *Service) GetBook(ctx context.Context, req Request) (book.Slice, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return book.Slice{}, &book.ValidationError{Field: "title", Reason: "is required"}
	}
	window := book.SliceRequest{Start: req.StartIndex, End: req.EndIndex}
	if err := window.Validate(); err != nil {
		return book.Slice{}, err
	}

	key := book.NewKey(title, req.Author)
	b, hit, err := s.deps.Cache.GetOrFetch(ctx, key, func(ctx context.Context) (string, error) {
		return s.acquire(ctx, title, strings.TrimSpace(req.Author))
	})
	if err != nil {
		s.log.Warn("get_book failed", "title", title, "author", req.Author,
			"kind", book.Kind(err), "error", err)
		return book.Slice{}, err
	}

	slice, err := book.Window(b, window, s.opts.WindowSize)
	if err != nil {
		return book.Slice{}, err
	}
	s.log.Info("get_book", "title", title, "author", req.Author, "cache_hit", hit,
		"start_index", slice.StartIndex, "end_index", slice.EndIndex,
		"total_length", slice.TotalLength, "has_more", slice.HasMore)
	return slice, nil
}

// acquire runs search, selection, download, and extraction for one book.
func (s *Service) acquire(ctx context.Context, title, author string) (string, error) {
	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}
	begin := time.Now()
	log := s.log.With("title", title, "author", author)

	t := time.Now()
	candidates, err := s.deps.Search.Resolve(ctx, title, author)
	s.deps.Stats.Search.Since(t)
	if err != nil {
		return "", err
	}
	cand := candidates[0]

	src, err := s.deps.Sources.Select(ctx, cand)
	if err != nil {
		return "", err
	}
	log = log.With("candidate_id", cand.ID, "mirror", src.Name)

	t = time.Now()
	data, err := s.deps.Fetch.Download(ctx, src.URL)
	s.deps.Stats.Download.Since(t)
	if err != nil {
		return "", err
	}

	format := cand.Extension
	if format == "" {
		format = s.opts.Format
	}
	log.Info("downloaded book", "bytes", len(data), "format", format,
		"content_hash", ContentHashHex(data))

	doc, err := s.deps.Decode.Decode(data, format)
	if err != nil {
		return "", err
	}
	defer func() {
		if err := doc.Close(); err != nil {
			log.Warn("close document", "error", err)
		}
	}()

	t = time.Now()
	text, err := s.deps.Extract.Extract(ctx, doc)
	s.deps.Stats.Extract.Since(t)
	if err != nil {
		return "", err
	}

	s.deps.Stats.Acquire.Since(begin)
	log.Info("acquired book", "pages", doc.NumPages(), "chars", len([]rune(text)),
		"duration_ms", time.Since(begin).Milliseconds())
	return text, nil
}

// Snapshot reports cache activity and per-stage latencies.
type Snapshot struct {
	Cache  cache.Stats               `json:"cache"`
	Stages map[string]stats.Snapshot `json:"stages"`
}

func (s *Service) Stats() Snapshot {
	return Snapshot{
		Cache:  s.deps.Cache.Stats(),
		Stages: s.deps.Stats.Snapshot(),
	}
}

// ClearCache drops every cached book and returns how many were dropped.
func (s *Service) ClearCache() int {
	n := s.deps.Cache.Clear()
	s.log.Info("cache cleared", "entries", n)
	return n
}

// Close releases the HTTP clients behind the pipeline.
func (s *Service) Close() {
	for _, c := range s.deps.Closers {
		c()
	}
}
