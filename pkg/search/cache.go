package search

import (
	"sort"
	"strconv"
	"strings"
	"sync"
)

// DefaultCacheSize is the number of marked texts kept by NewCache(0).
const DefaultCacheSize = 4096

// Cache memoizes Mark results keyed by text and token set. It is safe for
// concurrent use. Entries are evicted oldest first once the cache is full.
type Cache struct {
	mu      sync.Mutex
	size    int
	entries map[string][]Span
	order   []string

	hits   uint64
	misses uint64
}

// NewCache creates a cache holding at most size entries.
func NewCache(size int) *Cache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	return &Cache{
		size:    size,
		entries: make(map[string][]Span, size),
	}
}

// Mark is equivalent to the package-level Mark, served from the cache when
// the same text was marked with the same tokens before.
func (c *Cache) Mark(text string, tokens []string) Marked {
	if len(tokens) == 0 || text == "" {
		return Marked{Text: text}
	}

	key := cacheKey(text, tokens)

	c.mu.Lock()
	spans, ok := c.entries[key]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	c.mu.Unlock()

	if ok {
		return Marked{Text: text, Spans: spans}
	}

	m := Mark(text, tokens)
	c.store(key, m.Spans)
	return m
}

// Warm marks every text so later lookups with the same tokens are hits.
func (c *Cache) Warm(texts []string, tokens []string) {
	for _, t := range texts {
		c.Mark(t, tokens)
	}
}

// Stats returns the hit and miss counters.
func (c *Cache) Stats() (hits, misses uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) store(key string, spans []Span) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; ok {
		return
	}
	for len(c.order) >= c.size {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
	c.entries[key] = spans
	c.order = append(c.order, key)
}

// cacheKey encodes the folded, sorted token set with length prefixes followed
// by the text, so distinct inputs never share a key.
func cacheKey(text string, tokens []string) string {
	folded := foldTokens(tokens)
	sort.Strings(folded)

	var b strings.Builder
	for _, t := range folded {
		b.WriteString(strconv.Itoa(len(t)))
		b.WriteByte(':')
		b.WriteString(t)
	}
	b.WriteByte('|')
	b.WriteString(text)
	return b.String()
}
