package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nixie-Tech-LLC/stheno/internal/model"
)

type mapFetcher struct {
	mu      sync.Mutex
	objects map[string]string
	calls   map[string]int
	delay   time.Duration
	err     error
}

func newMapFetcher() *mapFetcher {
	return &mapFetcher{objects: make(map[string]string), calls: make(map[string]int)}
}

func (f *mapFetcher) Fetch(_ context.Context, source string) (io.ReadCloser, error) {
	f.mu.Lock()
	f.calls[source]++
	body, ok := f.objects[source]
	err := f.err
	delay := f.delay
	f.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("no object %q", source)
	}
	return io.NopCloser(strings.NewReader(body)), nil
}

func (f *mapFetcher) fetches(source string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[source]
}

func TestEnsureDownloadsOnceAndReuses(t *testing.T) {
	fetcher := newMapFetcher()
	fetcher.objects["https://cdn.example.com/a.png"] = "png-bytes"
	c := NewCache(t.TempDir(), fetcher)

	path, err := c.Ensure(context.Background(), "https://cdn.example.com/a.png")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, ".png"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))

	again, err := c.Ensure(context.Background(), "https://cdn.example.com/a.png")
	require.NoError(t, err)
	assert.Equal(t, path, again)
	assert.Equal(t, 1, fetcher.fetches("https://cdn.example.com/a.png"))
}

func TestPathIsStablePerSource(t *testing.T) {
	c := NewCache("/var/cache/media", nil)
	a := c.Path("https://cdn.example.com/clip.mp4")
	assert.Equal(t, a, c.Path("https://cdn.example.com/clip.mp4"))
	assert.True(t, strings.HasSuffix(a, ".mp4"))
	assert.NotEqual(t, a, c.Path("https://cdn.example.com/other.mp4"))
}

func TestConcurrentEnsureSharesOneDownload(t *testing.T) {
	fetcher := newMapFetcher()
	fetcher.objects["a.png"] = "bytes"
	fetcher.delay = 50 * time.Millisecond
	c := NewCache(t.TempDir(), fetcher)

	var wg sync.WaitGroup
	paths := make([]string, 5)
	errs := make([]error, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			paths[i], errs[i] = c.Ensure(context.Background(), "a.png")
		}(i)
	}
	wg.Wait()

	for i := 0; i < 5; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, paths[0], paths[i])
	}
	assert.Equal(t, 1, fetcher.fetches("a.png"))
}

func TestEnsureFailureLeavesNothingBehind(t *testing.T) {
	fetcher := newMapFetcher()
	fetcher.err = errors.New("cdn down")
	dir := t.TempDir()
	c := NewCache(dir, fetcher)

	_, err := c.Ensure(context.Background(), "a.png")
	require.Error(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "no partial files survive a failed download")

	// a later attempt is not poisoned by the failure
	fetcher.mu.Lock()
	fetcher.err = nil
	fetcher.objects["a.png"] = "bytes"
	fetcher.mu.Unlock()
	_, err = c.Ensure(context.Background(), "a.png")
	assert.NoError(t, err)
}

func TestPrefetchWarmsOnlyDownloadableKinds(t *testing.T) {
	fetcher := newMapFetcher()
	fetcher.objects["a.png"] = "img"
	fetcher.objects["b.mp4"] = "vid"
	c := NewCache(t.TempDir(), fetcher)

	tree := model.DesignTree{
		Ref: model.ContentRef{Type: model.ContentLayout, ID: 1},
		Zones: []model.Zone{{
			ID: "main",
			Items: []model.PlayableItem{
				{ID: 1, Kind: model.MediaImage, Source: "a.png"},
				{ID: 2, Kind: model.MediaVideo, Source: "b.mp4"},
				{ID: 3, Kind: model.MediaApp, Source: "clock-app"},
				{ID: 4, Kind: model.MediaWebPage, Source: "https://example.com"},
			},
		}},
	}
	c.Prefetch(context.Background(), tree)

	assert.Equal(t, 1, fetcher.fetches("a.png"))
	assert.Equal(t, 1, fetcher.fetches("b.mp4"))
	assert.Zero(t, fetcher.fetches("clock-app"), "apps render live, nothing to download")
	assert.Zero(t, fetcher.fetches("https://example.com"))
}

func TestPrefetchSurvivesIndividualFailures(t *testing.T) {
	fetcher := newMapFetcher()
	fetcher.objects["good.png"] = "img"
	c := NewCache(t.TempDir(), fetcher)

	tree := model.SingleZoneTree(model.ContentRef{Type: model.ContentPlaylist, ID: 1}, []model.PlayableItem{
		{ID: 1, Kind: model.MediaImage, Source: "missing.png"},
		{ID: 2, Kind: model.MediaImage, Source: "good.png"},
	}, false)
	c.Prefetch(context.Background(), tree)

	_, err := os.Stat(c.Path("good.png"))
	assert.NoError(t, err, "one broken asset must not stop the rest of the warmup")
}

func TestEnsureHitRefreshesSweepClock(t *testing.T) {
	fetcher := newMapFetcher()
	fetcher.objects["a.png"] = "x"
	c := NewCache(t.TempDir(), fetcher)

	path, err := c.Ensure(context.Background(), "a.png")
	require.NoError(t, err)
	stale := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(path, stale, stale))

	// a hit marks the file as in use, so the janitor leaves it alone
	_, err = c.Ensure(context.Background(), "a.png")
	require.NoError(t, err)

	removed, err := c.Sweep(time.Hour)
	require.NoError(t, err)
	assert.Zero(t, removed)
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestSweepRemovesOnlyStaleFiles(t *testing.T) {
	fetcher := newMapFetcher()
	fetcher.objects["old.png"] = "x"
	fetcher.objects["new.png"] = "y"
	dir := t.TempDir()
	c := NewCache(dir, fetcher)

	oldPath, err := c.Ensure(context.Background(), "old.png")
	require.NoError(t, err)
	newPath, err := c.Ensure(context.Background(), "new.png")
	require.NoError(t, err)

	stale := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(oldPath, stale, stale))

	removed, err := c.Sweep(time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = os.Stat(oldPath)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(newPath)
	assert.NoError(t, err)
}

func TestSweepToleratesMissingDirectory(t *testing.T) {
	c := NewCache("/nonexistent/cache/dir", nil)
	removed, err := c.Sweep(time.Hour)
	assert.NoError(t, err)
	assert.Zero(t, removed)
}

func TestObjectKeyStripsCDNPrefix(t *testing.T) {
	assert.Equal(t, "media/a.png", objectKey("https://cdn.example.com/media/a.png"))
	assert.Equal(t, "media/a.png", objectKey("/media/a.png"))
	assert.Equal(t, "media/a.png", objectKey("media/a.png"))
}

func TestHTTPFetcherChecksStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/ok" {
			fmt.Fprint(w, "payload")
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	hf := NewHTTPFetcher(srv.Client())

	body, err := hf.Fetch(context.Background(), srv.URL+"/ok")
	require.NoError(t, err)
	data, err := io.ReadAll(body)
	require.NoError(t, err)
	require.NoError(t, body.Close())
	assert.Equal(t, "payload", string(data))

	_, err = hf.Fetch(context.Background(), srv.URL+"/missing")
	assert.Error(t, err)
}

type stubTreeLoader struct {
	tree  model.DesignTree
	stale bool
	err   error
}

func (s *stubTreeLoader) Load(context.Context, model.ContentRef) (model.DesignTree, bool, error) {
	return s.tree, s.stale, s.err
}

func TestPrefetchingLoaderWarmsInBackground(t *testing.T) {
	fetcher := newMapFetcher()
	fetcher.objects["a.png"] = "img"
	c := NewCache(t.TempDir(), fetcher)

	ref := model.ContentRef{Type: model.ContentPlaylist, ID: 1}
	inner := &stubTreeLoader{tree: model.SingleZoneTree(ref, []model.PlayableItem{
		{ID: 1, Kind: model.MediaImage, Source: "a.png"},
	}, false)}

	l := NewPrefetchingLoader(inner, c)
	tree, stale, err := l.Load(context.Background(), ref)
	require.NoError(t, err)
	assert.False(t, stale)
	assert.Equal(t, ref, tree.Ref)

	require.Eventually(t, func() bool {
		_, statErr := os.Stat(c.Path("a.png"))
		return statErr == nil
	}, time.Second, 10*time.Millisecond, "the cache warms off the load path")
}

func TestPrefetchingLoaderSkipsWarmupOnError(t *testing.T) {
	fetcher := newMapFetcher()
	c := NewCache(t.TempDir(), fetcher)
	inner := &stubTreeLoader{err: errors.New("backend down")}

	l := NewPrefetchingLoader(inner, c)
	_, _, err := l.Load(context.Background(), model.ContentRef{Type: model.ContentPlaylist, ID: 1})
	assert.Error(t, err)
	assert.Zero(t, fetcher.fetches("a.png"))
}
