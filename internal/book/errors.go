package book

import (
	"errors"
	"fmt"
	"net/http"
)

// NotFoundError means the catalog returned no candidates.
type NotFoundError struct {
	Title  string
	Author string
}

func (e *NotFoundError) Error() string {
	if e.Author == "" {
		return fmt.Sprintf("no results for %q", e.Title)
	}
	return fmt.Sprintf("no results for %q by %q", e.Title, e.Author)
}

// NoSourceError means a candidate resolved to an empty mirror map.
type NoSourceError struct {
	CandidateID string
}

func (e *NoSourceError) Error() string {
	return fmt.Sprintf("candidate %s has no download sources", e.CandidateID)
}

// DownloadError is a transport failure or non-2xx response.
type DownloadError struct {
	URL        string
	StatusCode int // 0 when the request never got a response
	Status     string
	Err        error

	// Terminal marks failures that must not be retried regardless of status.
	Terminal bool
}

func (e *DownloadError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("download %s: status %s", e.URL, e.Status)
	}
	return fmt.Sprintf("download %s: %v", e.URL, e.Err)
}

func (e *DownloadError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the failure is transient: a transport error, 429,
// or a 5xx response.
func (e *DownloadError) Retryable() bool {
	if e.Terminal {
		return false
	}
	if e.StatusCode == 0 {
		return true
	}
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// ParseError means the payload is not a valid document, or one page of it
// could not be extracted. Page is the zero-based page index, or -1 for
// document-level failures.
type ParseError struct {
	Page int
	Err  error
}

func (e *ParseError) Error() string {
	if e.Page < 0 {
		return fmt.Sprintf("parse document: %v", e.Err)
	}
	return fmt.Sprintf("parse page %d: %v", e.Page, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ValidationError rejects slice indices before any work is done.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Kind names the taxonomy entry of err, or "internal" when err is not one of
// the typed failures.
func Kind(err error) string {
	var (
		notFound   *NotFoundError
		noSource   *NoSourceError
		download   *DownloadError
		parse      *ParseError
		validation *ValidationError
	)
	switch {
	case errors.As(err, &validation):
		return "validation"
	case errors.As(err, &notFound):
		return "not_found"
	case errors.As(err, &noSource):
		return "no_source"
	case errors.As(err, &download):
		return "download"
	case errors.As(err, &parse):
		return "parse"
	}
	return "internal"
}
