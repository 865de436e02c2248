package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/dgallion1/bookfetch/internal/book"
)

// DefaultMirrorPriority prefers the direct link, then the IPFS gateway, the
// pinning-service gateway, and finally the CDN.
var DefaultMirrorPriority = []string{"GET", "IPFS.io", "Infura", "Cloudflare"}

// Source is the chosen download location.
type Source struct {
	Name string
	URL  string
}

// Selector picks one mirror per candidate by a fixed priority list.
type Selector struct {
	catalog  Catalog
	priority []string
	log      *slog.Logger
}

func NewSelector(c Catalog, priority []string, log *slog.Logger) *Selector {
	if len(priority) == 0 {
		priority = DefaultMirrorPriority
	}
	return &Selector{catalog: c, priority: priority, log: log}
}

// Select resolves the candidate's mirrors and picks one.
func (s *Selector) Select(ctx context.Context, c Candidate) (Source, error) {
	sources, err := s.catalog.ResolveMirrors(ctx, c)
	if err != nil {
		return Source{}, fmt.Errorf("resolve mirrors for %s: %w", c.ID, err)
	}

	src, ok := Pick(sources, s.priority)
	if !ok {
		return Source{}, &book.NoSourceError{CandidateID: c.ID}
	}
	s.log.Info("selected mirror", "candidate", c.ID, "mirror", src.Name, "url", src.URL,
		"available", len(sources))
	return src, nil
}

// Pick returns the first priority name present in sources. Names compare
// case-insensitively. When none match, the lexically smallest available name
// wins so the choice stays deterministic.
func Pick(sources Sources, priority []string) (Source, bool) {
	usable := make(map[string]string, len(sources))
	for name, u := range sources {
		if strings.TrimSpace(u) != "" {
			usable[name] = u
		}
	}
	if len(usable) == 0 {
		return Source{}, false
	}

	names := make([]string, 0, len(usable))
	for name := range usable {
		names = append(names, name)
	}
	slices.Sort(names)

	// An exact name wins over case variants; among variants the sorted
	// order decides.
	for _, want := range priority {
		if u, ok := usable[want]; ok {
			return Source{Name: want, URL: u}, true
		}
		for _, name := range names {
			if strings.EqualFold(name, want) {
				return Source{Name: name, URL: usable[name]}, true
			}
		}
	}

	return Source{Name: names[0], URL: usable[names[0]]}, true
}
