package media

import (
	"context"
	"time"

	"github.com/Nixie-Tech-LLC/stheno/internal/model"
)

// prefetchTimeout bounds one tree's background warm-up.
const prefetchTimeout = 2 * time.Minute

// TreeLoader is the subset of the content loader the prefetcher wraps.
type TreeLoader interface {
	Load(ctx context.Context, ref model.ContentRef) (model.DesignTree, bool, error)
}

// PrefetchingLoader warms the local asset cache for every tree it serves.
// Warming is asynchronous; a mount never waits on a download.
type PrefetchingLoader struct {
	inner TreeLoader
	cache *Cache
}

func NewPrefetchingLoader(inner TreeLoader, cache *Cache) *PrefetchingLoader {
	return &PrefetchingLoader{inner: inner, cache: cache}
}

func (l *PrefetchingLoader) Load(ctx context.Context, ref model.ContentRef) (model.DesignTree, bool, error) {
	tree, stale, err := l.inner.Load(ctx, ref)
	if err != nil {
		return tree, stale, err
	}
	go func() {
		pctx, cancel := context.WithTimeout(context.Background(), prefetchTimeout)
		defer cancel()
		l.cache.Prefetch(pctx, tree)
	}()
	return tree, stale, nil
}
