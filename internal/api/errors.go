package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dgallion1/bookfetch/internal/book"
)

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
	Page  *int   `json:"page,omitempty"`
}

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	switch book.Kind(err) {
	case "validation":
		return http.StatusBadRequest
	case "not_found", "no_source":
		return http.StatusNotFound
	case "download":
		return http.StatusBadGateway
	case "parse":
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, err error) {
	body := errorBody{Error: err.Error(), Kind: book.Kind(err)}
	var perr *book.ParseError
	if errors.As(err, &perr) && perr.Page >= 0 {
		body.Page = &perr.Page
	}
	writeJSON(w, statusFor(err), body)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
