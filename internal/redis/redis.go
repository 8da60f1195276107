package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/stheno/internal/model"
)

var Rdb *redis.Client

// snapshotTTL keeps cached trees long enough to ride out any realistic
// authoring-side outage.
const snapshotTTL = 7 * 24 * time.Hour

// stateTTL bounds how stale a published screen state may get before the
// ops surface stops trusting it.
const stateTTL = 5 * time.Minute

func InitRedis(redisAddress string, redisUsername string, redisPassword string) {
	Rdb = redis.NewClient(&redis.Options{
		Addr:     redisAddress,
		Username: redisUsername,
		Password: redisPassword,
		DB:       0,
	})
}

// Cache wraps the shared client with the engine's snapshot operations.
type Cache struct {
	client *redis.Client
}

func NewCache(client *redis.Client) *Cache {
	return &Cache{client: client}
}

func treeKey(ref model.ContentRef) string {
	return fmt.Sprintf("stheno:trees:%s", ref)
}

func stateKey(screenID int) string {
	return fmt.Sprintf("stheno:screens:%d:state", screenID)
}

// SaveTree caches the last successfully assembled tree for a content ref
// so playback can ride out the content source going away.
func (c *Cache) SaveTree(ctx context.Context, tree model.DesignTree) error {
	raw, err := json.Marshal(tree)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, treeKey(tree.Ref), raw, snapshotTTL).Err(); err != nil {
		log.Error().Err(err).Str("ref", tree.Ref.String()).Msg("failed to cache tree snapshot")
		return err
	}
	return nil
}

// LoadTree returns the cached tree for a ref. Cache misses surface as
// redis.Nil.
func (c *Cache) LoadTree(ctx context.Context, ref model.ContentRef) (model.DesignTree, error) {
	raw, err := c.client.Get(ctx, treeKey(ref)).Bytes()
	if err != nil {
		return model.DesignTree{}, err
	}
	var tree model.DesignTree
	if err := json.Unmarshal(raw, &tree); err != nil {
		return model.DesignTree{}, err
	}
	return tree, nil
}

// SaveScreenState publishes the engine's latest state document for the
// ops surface to read, possibly from another process.
func (c *Cache) SaveScreenState(ctx context.Context, screenID int, raw []byte) error {
	if err := c.client.Set(ctx, stateKey(screenID), raw, stateTTL).Err(); err != nil {
		log.Error().Err(err).Int("screen_id", screenID).Msg("failed to publish screen state")
		return err
	}
	return nil
}

func (c *Cache) LoadScreenState(ctx context.Context, screenID int) ([]byte, error) {
	return c.client.Get(ctx, stateKey(screenID)).Bytes()
}
