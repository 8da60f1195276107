package media

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/stheno/internal/model"
)

// Cache mirrors remote media on local disk so playback survives network
// loss. Files are keyed by a hash of their source, keeping the original
// extension so the render host can sniff the type.
type Cache struct {
	dir     string
	fetcher Fetcher

	mu       sync.Mutex
	inflight map[string]chan struct{}
}

func NewCache(dir string, fetcher Fetcher) *Cache {
	return &Cache{
		dir:      dir,
		fetcher:  fetcher,
		inflight: make(map[string]chan struct{}),
	}
}

// Path is the local file path a source maps to, whether or not it has
// been downloaded yet.
func (c *Cache) Path(source string) string {
	sum := sha256.Sum256([]byte(source))
	name := hex.EncodeToString(sum[:8]) + filepath.Ext(source)
	return filepath.Join(c.dir, name)
}

// Ensure downloads a source unless it is already cached, returning the
// local path. Concurrent callers for one source share a single download.
// Hits refresh the file's mtime, which is what Sweep evicts by.
func (c *Cache) Ensure(ctx context.Context, source string) (string, error) {
	path := c.Path(source)
	if _, err := os.Stat(path); err == nil {
		now := time.Now()
		_ = os.Chtimes(path, now, now)
		return path, nil
	}

	c.mu.Lock()
	if ch, ok := c.inflight[source]; ok {
		c.mu.Unlock()
		select {
		case <-ch:
		case <-ctx.Done():
			return "", ctx.Err()
		}
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
		return "", fmt.Errorf("download of %q failed", source)
	}
	ch := make(chan struct{})
	c.inflight[source] = ch
	c.mu.Unlock()

	err := c.download(ctx, source, path)

	c.mu.Lock()
	delete(c.inflight, source)
	close(ch)
	c.mu.Unlock()

	if err != nil {
		return "", err
	}
	return path, nil
}

func (c *Cache) download(ctx context.Context, source, path string) error {
	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	body, err := c.fetcher.Fetch(ctx, source)
	if err != nil {
		return err
	}
	defer body.Close()

	tmp := path + ".part"
	dst, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create cache file: %w", err)
	}

	if _, err := io.Copy(dst, body); err != nil {
		dst.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to download %q: %w", source, err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

// Prefetch warms the cache for every downloadable item in a tree. Apps and
// web pages render live and are skipped; individual failures are logged and
// the rest of the tree still warms.
func (c *Cache) Prefetch(ctx context.Context, tree model.DesignTree) {
	for _, zone := range tree.Zones {
		for _, item := range zone.Items {
			if item.Kind != model.MediaImage && item.Kind != model.MediaVideo {
				continue
			}
			if _, err := c.Ensure(ctx, item.Source); err != nil {
				log.Warn().Err(err).
					Str("zone", zone.ID).
					Int("item_id", item.ID).
					Msg("media prefetch failed")
			}
		}
	}
}

// Sweep removes cached files untouched for longer than maxAge and reports
// how many were removed. Scheduled as a maintenance job.
func (c *Cache) Sweep(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(c.dir, entry.Name())); err != nil {
			log.Warn().Err(err).Str("file", entry.Name()).Msg("cache sweep failed to remove file")
			continue
		}
		removed++
	}
	if removed > 0 {
		log.Info().Int("removed", removed).Msg("media cache swept")
	}
	return removed, nil
}
