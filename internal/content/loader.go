package content

import (
	"context"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/stheno/internal/model"
)

// Snapshots persists last-good trees across restarts. Implemented by the
// redis cache; misses surface as errors.
type Snapshots interface {
	SaveTree(ctx context.Context, tree model.DesignTree) error
	LoadTree(ctx context.Context, ref model.ContentRef) (model.DesignTree, error)
}

type LoaderConfig struct {
	Source    TreeSource
	Snapshots Snapshots // optional
	Attempts  uint
	Timeout   time.Duration
}

// Loader wraps a TreeSource with bounded retries and a last-good fallback.
// A screen that was rendering keeps rendering its previous tree when the
// source goes away; blanking is reserved for refs that never loaded.
type Loader struct {
	source    TreeSource
	snapshots Snapshots
	attempts  uint
	timeout   time.Duration

	mu   sync.Mutex
	last map[model.ContentRef]model.DesignTree
}

func NewLoader(cfg LoaderConfig) *Loader {
	attempts := cfg.Attempts
	if attempts == 0 {
		attempts = 3
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	return &Loader{
		source:    cfg.Source,
		snapshots: cfg.Snapshots,
		attempts:  attempts,
		timeout:   timeout,
		last:      make(map[model.ContentRef]model.DesignTree),
	}
}

// Load fetches the tree for a ref. stale reports that the returned tree
// came from the last-good cache because every fetch attempt failed; the
// caller should mount it anyway and try again later.
func (l *Loader) Load(ctx context.Context, ref model.ContentRef) (tree model.DesignTree, stale bool, err error) {
	err = retry.Do(
		func() error {
			attemptCtx, cancel := context.WithTimeout(ctx, l.timeout)
			defer cancel()
			t, loadErr := l.source.Load(attemptCtx, ref)
			if loadErr != nil {
				return loadErr
			}
			tree = t
			return nil
		},
		retry.Attempts(l.attempts),
		retry.Delay(200*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.MaxDelay(2*time.Second),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, retryErr error) {
			log.Warn().Err(retryErr).Uint("attempt", n+1).Str("ref", ref.String()).Msg("content load attempt failed")
		}),
	)
	if err == nil {
		l.remember(ctx, tree)
		return tree, false, nil
	}

	if cached, ok := l.recall(ctx, ref); ok {
		log.Warn().Err(err).Str("ref", ref.String()).Msg("content load failed, serving last-good tree")
		return cached, true, nil
	}
	return model.DesignTree{}, false, err
}

func (l *Loader) remember(ctx context.Context, tree model.DesignTree) {
	l.mu.Lock()
	l.last[tree.Ref] = tree
	l.mu.Unlock()
	if l.snapshots != nil {
		if err := l.snapshots.SaveTree(ctx, tree); err != nil {
			log.Debug().Err(err).Str("ref", tree.Ref.String()).Msg("snapshot save skipped")
		}
	}
}

func (l *Loader) recall(ctx context.Context, ref model.ContentRef) (model.DesignTree, bool) {
	l.mu.Lock()
	tree, ok := l.last[ref]
	l.mu.Unlock()
	if ok {
		return tree, true
	}
	if l.snapshots == nil {
		return model.DesignTree{}, false
	}
	tree, err := l.snapshots.LoadTree(ctx, ref)
	if err != nil {
		return model.DesignTree{}, false
	}
	return tree, true
}
