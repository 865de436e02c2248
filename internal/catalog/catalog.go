// Package catalog resolves a title/author request to a single download URL.
package catalog

import "context"

// Candidate is one search result identifying a specific downloadable file.
type Candidate struct {
	ID        string
	Title     string
	Author    string
	Publisher string
	Year      string
	Pages     string
	Language  string
	Size      string
	Extension string

	// MirrorPages are the catalog's per-file mirror pages, in table order.
	MirrorPages []string
}

// Query is a catalog search. Author and Extension are optional filters.
type Query struct {
	Title     string
	Author    string
	Extension string
}

// Sources maps mirror names (e.g. "GET", "IPFS.io") to download URLs.
type Sources map[string]string

// Catalog is the external search service.
type Catalog interface {
	Search(ctx context.Context, q Query) ([]Candidate, error)
	ResolveMirrors(ctx context.Context, c Candidate) (Sources, error)
}
