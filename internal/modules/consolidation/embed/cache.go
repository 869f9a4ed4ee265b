package embed

import (
	"context"
	"fmt"
	"sync"

	"github.com/yungbote/kgconsolidate/internal/domain"
)

// Cache wraps a Provider and remembers vectors by exact text, so stages in one run
// do not re-embed nodes that did not change.
type Cache struct {
	inner Provider

	mu      sync.Mutex
	vectors map[string][]float32
	misses  int
}

func NewCache(inner Provider) *Cache {
	return &Cache{inner: inner, vectors: map[string][]float32{}}
}

func (c *Cache) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if c == nil || c.inner == nil {
		return nil, domain.ErrNoEmbedder
	}
	c.mu.Lock()
	missing := make([]string, 0)
	queued := map[string]bool{}
	for _, t := range texts {
		if _, ok := c.vectors[t]; ok || queued[t] {
			continue
		}
		queued[t] = true
		missing = append(missing, t)
	}
	c.mu.Unlock()

	if len(missing) > 0 {
		vecs, err := c.inner.Embed(ctx, missing)
		if err != nil {
			return nil, err
		}
		if len(vecs) != len(missing) {
			return nil, fmt.Errorf("embed cache: got %d vectors for %d texts: %w", len(vecs), len(missing), domain.ErrEmbeddingCount)
		}
		c.mu.Lock()
		for i, t := range missing {
			c.vectors[t] = vecs[i]
		}
		c.misses += len(missing)
		c.mu.Unlock()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = c.vectors[t]
	}
	return out, nil
}

// Misses is the number of texts sent to the wrapped provider so far.
func (c *Cache) Misses() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.misses
}
