package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/dgallion1/bookfetch/internal/book"
	"github.com/dgallion1/bookfetch/internal/pipeline"
)

// maxToolBody caps get_book request bodies; the payload is four fields.
const maxToolBody = 64 << 10

// handleGetBookTool serves the get_book tool call as a JSON body.
func (s *Server) handleGetBookTool(w http.ResponseWriter, r *http.Request) {
	var req pipeline.Request
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxToolBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, &book.ValidationError{Field: "body", Reason: err.Error()})
		return
	}
	s.serveBook(w, r, req)
}

// handleGetBook serves get_book from query parameters.
func (s *Server) handleGetBook(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := pipeline.Request{
		Title:  q.Get("title"),
		Author: q.Get("author"),
	}
	if v := q.Get("start_index"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, &book.ValidationError{Field: "start_index", Reason: "must be an integer"})
			return
		}
		req.StartIndex = n
	}
	if v := q.Get("end_index"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, &book.ValidationError{Field: "end_index", Reason: "must be an integer"})
			return
		}
		req.EndIndex = &n
	}
	s.serveBook(w, r, req)
}

func (s *Server) serveBook(w http.ResponseWriter, r *http.Request, req pipeline.Request) {
	slice, err := s.books.GetBook(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, slice)
}
