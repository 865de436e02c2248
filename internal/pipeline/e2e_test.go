package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/bookfetch/internal/config"
)

func renderPDF(t *testing.T, pages int) []byte {
	t.Helper()
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Helvetica", "", 12)
	for i := 0; i < pages; i++ {
		pdf.AddPage()
		pdf.Cell(80, 10, fmt.Sprintf("CHAPTER%02d", i))
	}
	var buf bytes.Buffer
	require.NoError(t, pdf.Output(&buf))
	return buf.Bytes()
}

// newUpstream serves a LibGen-style search page, a mirror page, and the file.
func newUpstream(t *testing.T, file []byte) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var fileHits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/search.php", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><table class="c">
<tr><td>ID</td><td>Author(s)</td><td>Title</td><td>Publisher</td><td>Year</td><td>Pages</td><td>Language</td><td>Size</td><td>Extension</td><td>Mirrors</td></tr>
<tr><td>7</td><td>Sun Tzu</td><td><a href="book/index.php?md5=AAA" id="7">The Art of War</a></td>
<td>Pub</td><td>2005</td><td>4</td><td>English</td><td>1 Kb</td><td>pdf</td><td><a href="/mirror/AAA">[1]</a></td></tr>
</table></body></html>`)
	})
	mux.HandleFunc("/mirror/AAA", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><a href="/files/aow.pdf">GET</a><a href="https://ipfs.invalid/x">IPFS.io</a></body></html>`)
	})
	mux.HandleFunc("/files/aow.pdf", func(w http.ResponseWriter, r *http.Request) {
		fileHits.Add(1)
		w.Header().Set("Content-Type", "application/pdf")
		w.Write(file)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &fileHits
}

func TestNew_EndToEndPDF(t *testing.T) {
	srv, fileHits := newUpstream(t, renderPDF(t, 4))

	cfg := config.Load()
	cfg.CatalogURL = srv.URL
	cfg.CatalogFormat = "pdf"
	cfg.CatalogTimeout = 5 * time.Second
	cfg.DownloadTimeout = 5 * time.Second
	cfg.DownloadMaxAttempts = 1
	cfg.ExtractWorkers = 3
	cfg.PDFValidate = true
	cfg.PDFFallbackPdftotext = false
	cfg.WindowSize = 95000
	svc := New(cfg, discard)
	defer svc.Close()

	got, err := svc.GetBook(context.Background(), Request{Title: "The Art of War", Author: "Sun Tzu"})
	require.NoError(t, err)
	assert.False(t, got.HasMore)
	assert.Equal(t, got.TotalLength, got.SliceLength)

	last := -1
	for i := 0; i < 4; i++ {
		idx := strings.Index(got.Text, fmt.Sprintf("CHAPTER%02d", i))
		require.GreaterOrEqual(t, idx, 0, "page %d missing from %q", i, got.Text)
		assert.Greater(t, idx, last)
		last = idx
	}

	again, err := svc.GetBook(context.Background(), Request{Title: "THE ART OF WAR", Author: "sun tzu"})
	require.NoError(t, err)
	assert.Equal(t, got.Text, again.Text)
	assert.Equal(t, int32(1), fileHits.Load())
}
