package catalog

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/dgallion1/bookfetch/internal/book"
)

const userAgent = "bookfetch/1.0"

// MirrorNames are the anchor texts recognised on a mirror page.
var MirrorNames = []string{"GET", "Cloudflare", "IPFS.io", "Infura", "Pinata"}

// LibGen talks to a LibGen-style catalog over HTML.
type LibGen struct {
	baseURL    string
	httpClient *http.Client
}

func NewLibGen(baseURL string, timeout time.Duration) *LibGen {
	return &LibGen{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Search queries by title and filters rows by extension and author.
func (c *LibGen) Search(ctx context.Context, q Query) ([]Candidate, error) {
	params := url.Values{}
	params.Set("req", q.Title)
	params.Set("column", "title")
	params.Set("res", "100")
	searchURL := c.baseURL + "/search.php?" + params.Encode()

	doc, err := c.fetchDocument(ctx, searchURL)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	wantAuthor := book.NewKey("", q.Author).Author
	var out []Candidate
	doc.Find("table.c tr").Each(func(i int, row *goquery.Selection) {
		if i == 0 {
			return // header
		}
		cand, ok := parseRow(row, searchURL)
		if !ok {
			return
		}
		if q.Extension != "" && !strings.EqualFold(cand.Extension, q.Extension) {
			return
		}
		if wantAuthor != "" && !strings.Contains(book.NewKey("", cand.Author).Author, wantAuthor) {
			return
		}
		out = append(out, cand)
	})
	return out, nil
}

// ResolveMirrors reads the candidate's first mirror page and collects every
// anchor whose text is a known mirror name.
func (c *LibGen) ResolveMirrors(ctx context.Context, cand Candidate) (Sources, error) {
	if len(cand.MirrorPages) == 0 {
		return Sources{}, nil
	}
	pageURL := cand.MirrorPages[0]

	doc, err := c.fetchDocument(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("mirror page: %w", err)
	}

	sources := Sources{}
	doc.Find("a").Each(func(_ int, a *goquery.Selection) {
		name := strings.TrimSpace(a.Text())
		if !isMirrorName(name) {
			return
		}
		href, ok := a.Attr("href")
		if !ok || href == "" {
			return
		}
		if _, seen := sources[name]; seen {
			return
		}
		sources[name] = resolveURL(pageURL, href)
	})
	return sources, nil
}

// Close releases idle connections.
func (c *LibGen) Close() {
	c.httpClient.CloseIdleConnections()
}

func (c *LibGen) fetchDocument(ctx context.Context, u string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("get %s: status %d: %s", u, resp.StatusCode, string(body))
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}

// parseRow reads one results row. Columns: ID, Author(s), Title, Publisher,
// Year, Pages, Language, Size, Extension, then mirror links.
func parseRow(row *goquery.Selection, base string) (Candidate, bool) {
	cells := row.Children().Filter("td")
	if cells.Length() < 10 {
		return Candidate{}, false
	}
	cell := func(i int) string {
		return strings.Join(strings.Fields(cells.Eq(i).Text()), " ")
	}

	title := cell(2)
	// The title cell also carries ISBNs and edition notes; the anchor with an
	// id holds just the title.
	if a := cells.Eq(2).Find("a[id]").First(); a.Length() > 0 {
		if own := strings.TrimSpace(a.Contents().Not("font, i").Text()); own != "" {
			title = strings.Join(strings.Fields(own), " ")
		}
	}

	cand := Candidate{
		ID:        cell(0),
		Author:    cell(1),
		Title:     title,
		Publisher: cell(3),
		Year:      cell(4),
		Pages:     cell(5),
		Language:  cell(6),
		Size:      cell(7),
		Extension: strings.ToLower(cell(8)),
	}
	cells.Slice(9, cells.Length()).Each(func(_ int, td *goquery.Selection) {
		if href, ok := td.Find("a").First().Attr("href"); ok && href != "" {
			cand.MirrorPages = append(cand.MirrorPages, resolveURL(base, href))
		}
	})
	if cand.ID == "" {
		return Candidate{}, false
	}
	return cand, true
}

func isMirrorName(s string) bool {
	for _, n := range MirrorNames {
		if strings.EqualFold(s, n) {
			return true
		}
	}
	return false
}

func resolveURL(base, ref string) string {
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return b.ResolveReference(r).String()
}
