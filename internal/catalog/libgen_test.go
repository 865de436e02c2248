package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const searchPage = `<html><body>
<table class="c">
<tr><td>ID</td><td>Author(s)</td><td>Title</td><td>Publisher</td><td>Year</td><td>Pages</td><td>Language</td><td>Size</td><td>Extension</td><td>Mirrors</td><td></td></tr>
<tr>
  <td>101</td><td>Sun Tzu, Lionel Giles</td>
  <td><a href="book/index.php?md5=AAA" id="101">The Art of War<br><font color="green"><i>9781599869773</i></font></a></td>
  <td>Filiquarian</td><td>2007</td><td>64</td><td>English</td><td>1 Mb</td><td>pdf</td>
  <td><a href="/mirror/AAA">[1]</a></td><td><a href="https://other.example/AAA">[2]</a></td>
</tr>
<tr>
  <td>102</td><td>Sun Tzu</td>
  <td><a href="book/index.php?md5=BBB" id="102">The Art of War</a></td>
  <td>Pub</td><td>2010</td><td>80</td><td>English</td><td>300 Kb</td><td>epub</td>
  <td><a href="/mirror/BBB">[1]</a></td><td></td>
</tr>
<tr>
  <td>103</td><td>Someone Else</td>
  <td><a href="book/index.php?md5=CCC" id="103">The Art of War: Commentary</a></td>
  <td>Pub</td><td>2015</td><td>300</td><td>English</td><td>5 Mb</td><td>PDF</td>
  <td><a href="/mirror/CCC">[1]</a></td><td></td>
</tr>
</table>
</body></html>`

const mirrorPage = `<html><body>
<div id="download">
  <h2><a href="https://download.example/main/AAA/book.pdf">GET</a></h2>
  <ul>
    <li><a href="https://cloudflare-ipfs.com/ipfs/xyz">Cloudflare</a></li>
    <li><a href="https://ipfs.io/ipfs/xyz">IPFS.io</a></li>
    <li><a href="/ipfs/relative">Infura</a></li>
  </ul>
  <a href="/about">About</a>
</div>
</body></html>`

func newLibGenServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/search.php", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("req") != "The Art of War" || r.URL.Query().Get("column") != "title" {
			http.Error(w, "bad query", http.StatusBadRequest)
			return
		}
		w.Write([]byte(searchPage))
	})
	mux.HandleFunc("/mirror/AAA", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(mirrorPage))
	})
	mux.HandleFunc("/mirror/EMPTY", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><p>nothing here</p></body></html>`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestLibGen_SearchFiltersExtensionAndAuthor(t *testing.T) {
	srv := newLibGenServer(t)
	c := NewLibGen(srv.URL+"/", 5*time.Second)
	defer c.Close()

	got, err := c.Search(context.Background(), Query{Title: "The Art of War", Author: "sun tzu", Extension: "pdf"})
	require.NoError(t, err)
	require.Len(t, got, 1)

	cand := got[0]
	assert.Equal(t, "101", cand.ID)
	assert.Equal(t, "The Art of War", cand.Title)
	assert.Equal(t, "Sun Tzu, Lionel Giles", cand.Author)
	assert.Equal(t, "pdf", cand.Extension)
	assert.Equal(t, "2007", cand.Year)
	assert.Equal(t, []string{srv.URL + "/mirror/AAA", "https://other.example/AAA"}, cand.MirrorPages)
}

func TestLibGen_SearchWithoutAuthor(t *testing.T) {
	srv := newLibGenServer(t)
	c := NewLibGen(srv.URL, 5*time.Second)

	got, err := c.Search(context.Background(), Query{Title: "The Art of War", Extension: "pdf"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "101", got[0].ID)
	assert.Equal(t, "103", got[1].ID)
}

func TestLibGen_SearchStatusError(t *testing.T) {
	srv := newLibGenServer(t)
	c := NewLibGen(srv.URL, 5*time.Second)

	_, err := c.Search(context.Background(), Query{Title: "wrong"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
}

func TestLibGen_ResolveMirrors(t *testing.T) {
	srv := newLibGenServer(t)
	c := NewLibGen(srv.URL, 5*time.Second)

	sources, err := c.ResolveMirrors(context.Background(), Candidate{
		ID:          "101",
		MirrorPages: []string{srv.URL + "/mirror/AAA"},
	})
	require.NoError(t, err)
	assert.Equal(t, Sources{
		"GET":        "https://download.example/main/AAA/book.pdf",
		"Cloudflare": "https://cloudflare-ipfs.com/ipfs/xyz",
		"IPFS.io":    "https://ipfs.io/ipfs/xyz",
		"Infura":     srv.URL + "/ipfs/relative",
	}, sources)

	src, ok := Pick(sources, DefaultMirrorPriority)
	require.True(t, ok)
	assert.Equal(t, "GET", src.Name)
}

func TestLibGen_ResolveMirrorsEmpty(t *testing.T) {
	srv := newLibGenServer(t)
	c := NewLibGen(srv.URL, 5*time.Second)

	sources, err := c.ResolveMirrors(context.Background(), Candidate{ID: "1", MirrorPages: []string{srv.URL + "/mirror/EMPTY"}})
	require.NoError(t, err)
	assert.Empty(t, sources)

	sources, err = c.ResolveMirrors(context.Background(), Candidate{ID: "2"})
	require.NoError(t, err)
	assert.Empty(t, sources)
}
