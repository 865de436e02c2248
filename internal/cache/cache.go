// Package cache memoizes acquired books by normalized (title, author) key
// and collapses concurrent acquisitions of the same key into one fetch.
package cache

import (
	"context"
	"log/slog"
	"sync"

	"github.com/golang/groupcache/lru"
	"golang.org/x/sync/singleflight"

	"github.com/dgallion1/bookfetch/internal/book"
)

// FetchFunc acquires the full text of a book. It runs detached from the
// cancellation of any single caller.
type FetchFunc func(ctx context.Context) (string, error)

// Stats is a point-in-time view of cache activity.
type Stats struct {
	Entries    int   `json:"entries"`
	MaxEntries int   `json:"max_entries"`
	Hits       int64 `json:"hits"`
	Misses     int64 `json:"misses"`
	Fetches    int64 `json:"fetches"`
	Shared     int64 `json:"shared"`
	Evictions  int64 `json:"evictions"`
	TotalChars int64 `json:"total_chars"`
}

// Cache holds successfully acquired books. Failed acquisitions are never
// stored, so the next request for the same key retries from scratch.
type Cache struct {
	mu         sync.Mutex
	books      *lru.Cache
	maxEntries int
	flight     singleflight.Group
	log        *slog.Logger

	hits, misses, fetches, shared, evictions, totalChars int64
}

// New creates a cache. maxEntries <= 0 means unbounded.
func New(maxEntries int, log *slog.Logger) *Cache {
	c := &Cache{maxEntries: max(maxEntries, 0), log: log}
	c.books = c.newLRU()
	return c
}

func (c *Cache) newLRU() *lru.Cache {
	l := lru.New(c.maxEntries)
	l.OnEvicted = func(key lru.Key, value any) {
		c.evictions++
		c.totalChars -= int64(value.(*book.Book).Len())
		c.log.Debug("book evicted", "key", key)
	}
	return l
}

// GetOrFetch returns the cached book for key, or runs fetch to acquire it.
// Concurrent callers for the same key share one fetch. hit reports whether
// the book was already cached. A caller whose ctx ends stops waiting, but
// the shared fetch keeps running for the others.
func (c *Cache) GetOrFetch(ctx context.Context, key book.Key, fetch FetchFunc) (b *book.Book, hit bool, err error) {
	id := key.String()

	c.mu.Lock()
	if v, ok := c.books.Get(id); ok {
		c.hits++
		c.mu.Unlock()
		return v.(*book.Book), true, nil
	}
	c.misses++
	c.mu.Unlock()

	detached := context.WithoutCancel(ctx)
	ch := c.flight.DoChan(id, func() (any, error) {
		// A flight that finished between our miss and DoChan already stored it.
		if b, ok := c.peek(id); ok {
			return b, nil
		}

		c.mu.Lock()
		c.fetches++
		c.mu.Unlock()

		text, err := fetch(detached)
		if err != nil {
			return nil, err
		}
		b := book.New(key, text)

		c.mu.Lock()
		c.books.Add(id, b)
		c.totalChars += int64(b.Len())
		c.mu.Unlock()
		c.log.Info("book cached", "title", key.Title, "author", key.Author, "chars", b.Len())
		return b, nil
	})

	select {
	case res := <-ch:
		if res.Shared {
			c.mu.Lock()
			c.shared++
			c.mu.Unlock()
		}
		if res.Err != nil {
			return nil, false, res.Err
		}
		return res.Val.(*book.Book), false, nil
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
}

// Get returns a cached book without fetching.
func (c *Cache) Get(key book.Key) (*book.Book, bool) {
	return c.peek(key.String())
}

func (c *Cache) peek(id string) (*book.Book, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.books.Get(id)
	if !ok {
		return nil, false
	}
	return v.(*book.Book), true
}

// Clear drops every cached book. In-flight fetches still complete and
// store their result.
func (c *Cache) Clear() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := c.books.Len()
	c.books = c.newLRU()
	c.totalChars = 0
	return n
}

func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Entries:    c.books.Len(),
		MaxEntries: c.maxEntries,
		Hits:       c.hits,
		Misses:     c.misses,
		Fetches:    c.fetches,
		Shared:     c.shared,
		Evictions:  c.evictions,
		TotalChars: c.totalChars,
	}
}
