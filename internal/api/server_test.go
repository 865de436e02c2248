package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/bookfetch/internal/book"
	"github.com/dgallion1/bookfetch/internal/cache"
	"github.com/dgallion1/bookfetch/internal/pipeline"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeBooks struct {
	err     error
	lastReq pipeline.Request
	calls   int
	cleared int
}

func (f *fakeBooks) GetBook(_ context.Context, req pipeline.Request) (book.Slice, error) {
	f.calls++
	f.lastReq = req
	if f.err != nil {
		return book.Slice{}, f.err
	}
	b := book.New(book.NewKey(req.Title, req.Author), "abcdefghij")
	return book.Window(b, book.SliceRequest{Start: req.StartIndex, End: req.EndIndex}, 4)
}

func (f *fakeBooks) Stats() pipeline.Snapshot {
	return pipeline.Snapshot{Cache: cache.Stats{Entries: 2, Hits: 5}}
}

func (f *fakeBooks) ClearCache() int {
	f.cleared++
	return 2
}

func do(t *testing.T, h http.Handler, method, target, body string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	srv := NewServer(&fakeBooks{}, "secret", discard)
	rec := do(t, srv, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestGetBookTool(t *testing.T) {
	fb := &fakeBooks{}
	srv := NewServer(fb, "", discard)

	rec := do(t, srv, http.MethodPost, "/api/tools/get_book",
		`{"title":"Dune","author":"Frank Herbert","start_index":2}`, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var got book.Slice
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "cdef", got.Text)
	assert.Equal(t, 10, got.TotalLength)
	assert.Equal(t, 2, got.StartIndex)
	assert.Equal(t, 6, got.EndIndex)
	assert.Equal(t, 4, got.SliceLength)
	assert.True(t, got.HasMore)
	assert.Equal(t, "Frank Herbert", fb.lastReq.Author)
	assert.Nil(t, fb.lastReq.EndIndex)
}

func TestGetBookTool_BadBody(t *testing.T) {
	fb := &fakeBooks{}
	srv := NewServer(fb, "", discard)

	for _, body := range []string{`{"title":`, `{"title":"x","unknown":1}`, `{"title":"x","start_index":"zero"}`} {
		rec := do(t, srv, http.MethodPost, "/api/tools/get_book", body, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
	assert.Zero(t, fb.calls)
}

func TestGetBookQuery(t *testing.T) {
	fb := &fakeBooks{}
	srv := NewServer(fb, "", discard)

	rec := do(t, srv, http.MethodGet, "/api/books?title=Dune&start_index=8&end_index=20", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got book.Slice
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "ij", got.Text)
	assert.False(t, got.HasMore)
	require.NotNil(t, fb.lastReq.EndIndex)
	assert.Equal(t, 20, *fb.lastReq.EndIndex)

	rec = do(t, srv, http.MethodGet, "/api/books?title=Dune&start_index=abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "start_index")
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		kind   string
	}{
		{"validation", &book.ValidationError{Field: "start_index", Reason: "must be >= 0"}, 400, "validation"},
		{"not found", &book.NotFoundError{Title: "Nope"}, 404, "not_found"},
		{"no source", &book.NoSourceError{CandidateID: "1"}, 404, "no_source"},
		{"download", &book.DownloadError{URL: "u", StatusCode: 503, Status: "503 Service Unavailable"}, 502, "download"},
		{"parse", &book.ParseError{Page: 3, Err: errors.New("bad stream")}, 422, "parse"},
		{"deadline", fmt.Errorf("acquire: %w", context.DeadlineExceeded), 504, "internal"},
		{"other", errors.New("boom"), 500, "internal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := NewServer(&fakeBooks{err: tt.err}, "", discard)
			rec := do(t, srv, http.MethodGet, "/api/books?title=x", "", nil)
			assert.Equal(t, tt.status, rec.Code)

			var body errorBody
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.kind, body.Kind)
			assert.Equal(t, tt.err.Error(), body.Error)
		})
	}
}

func TestErrorMapping_ParsePage(t *testing.T) {
	srv := NewServer(&fakeBooks{err: &book.ParseError{Page: 7, Err: errors.New("x")}}, "", discard)
	rec := do(t, srv, http.MethodGet, "/api/books?title=x", "", nil)
	assert.JSONEq(t, `{"error":"parse page 7: x","kind":"parse","page":7}`, rec.Body.String())

	srv = NewServer(&fakeBooks{err: &book.ParseError{Page: -1, Err: errors.New("x")}}, "", discard)
	rec = do(t, srv, http.MethodGet, "/api/books?title=x", "", nil)
	assert.NotContains(t, rec.Body.String(), `"page"`)
}

func TestAuth(t *testing.T) {
	fb := &fakeBooks{}
	srv := NewServer(fb, "secret", discard)

	rec := do(t, srv, http.MethodGet, "/api/books?title=x", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, srv, http.MethodGet, "/api/books?title=x", "", map[string]string{"Authorization": "Bearer wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Zero(t, fb.calls)

	rec = do(t, srv, http.MethodGet, "/api/books?title=x", "", map[string]string{"Authorization": "Bearer secret"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStatsAndClear(t *testing.T) {
	fb := &fakeBooks{}
	srv := NewServer(fb, "", discard)

	rec := do(t, srv, http.MethodGet, "/api/stats", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var snap pipeline.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, 2, snap.Cache.Entries)
	assert.Equal(t, int64(5), snap.Cache.Hits)

	rec = do(t, srv, http.MethodDelete, "/api/cache", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"cleared":2}`, rec.Body.String())
	assert.Equal(t, 1, fb.cleared)
}
