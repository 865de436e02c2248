package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dgallion1/bookfetch/internal/book"
	"github.com/dgallion1/bookfetch/internal/pipeline"
)

// BookService is the pipeline surface the HTTP layer needs.
type BookService interface {
	GetBook(ctx context.Context, req pipeline.Request) (book.Slice, error)
	Stats() pipeline.Snapshot
	ClearCache() int
}

// Server is the HTTP API server for bookfetch.
type Server struct {
	router chi.Router
	books  BookService
	log    *slog.Logger
	apiKey string
}

// NewServer creates and configures the HTTP server. An empty apiKey leaves
// the API routes unauthenticated.
func NewServer(books BookService, apiKey string, log *slog.Logger) *Server {
	s := &Server{
		books:  books,
		log:    log,
		apiKey: apiKey,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.apiKey, s.log))

		r.Post("/api/tools/get_book", s.handleGetBookTool)
		r.Get("/api/books", s.handleGetBook)
		r.Get("/api/stats", s.handleStats)
		r.Delete("/api/cache", s.handleClearCache)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
