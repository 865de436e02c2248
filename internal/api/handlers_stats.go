package api

import (
	"net/http"
)

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.books.Stats())
}

func (s *Server) handleClearCache(w http.ResponseWriter, r *http.Request) {
	n := s.books.ClearCache()
	writeJSON(w, http.StatusOK, map[string]int{"cleared": n})
}
