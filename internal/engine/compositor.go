package engine

import (
	"encoding/json"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/stheno/internal/live"
	"github.com/Nixie-Tech-LLC/stheno/internal/model"
)

type CompositorConfig struct {
	ScreenID  int
	Clock     Clock
	Broker    live.Broker // nil disables live zone updates
	OnAdvance AdvanceHook
	OnShow    ShowFunc
}

type mountedZone struct {
	zone   model.Zone
	player *Player
	sub    live.Subscription
}

// Compositor owns the players for every zone of the mounted design tree.
// Zones are independent: one zone failing to subscribe or play never
// touches its siblings. Live edits replace a single zone's player while
// the rest keep their positions.
type Compositor struct {
	mu        sync.Mutex
	screenID  int
	clock     Clock
	broker    live.Broker
	onAdvance AdvanceHook
	onShow    ShowFunc

	tree  *model.DesignTree
	zones map[string]*mountedZone
	order []string
}

func NewCompositor(cfg CompositorConfig) *Compositor {
	clk := cfg.Clock
	if clk == nil {
		clk = RealClock{}
	}
	return &Compositor{
		screenID:  cfg.ScreenID,
		clock:     clk,
		broker:    cfg.Broker,
		onAdvance: cfg.OnAdvance,
		onShow:    cfg.OnShow,
		zones:     make(map[string]*mountedZone),
	}
}

// Mount tears down the current tree and brings up every zone of the new
// one. Zones are mounted back-to-front so the render host receives shows
// in stacking order.
func (c *Compositor) Mount(tree model.DesignTree) {
	zs := append([]model.Zone(nil), tree.Zones...)
	sort.SliceStable(zs, func(i, j int) bool { return zs[i].Z < zs[j].Z })

	c.mu.Lock()
	stopped, subs := c.unmountLocked()
	c.tree = &tree
	started := make([]*Player, 0, len(zs))
	for _, z := range zs {
		mz := c.mountZoneLocked(z)
		c.zones[z.ID] = mz
		c.order = append(c.order, z.ID)
		started = append(started, mz.player)
	}
	c.mu.Unlock()

	c.release(stopped, subs)
	for _, p := range started {
		p.Start()
	}
}

// Unmount stops every zone player and drops the tree.
func (c *Compositor) Unmount() {
	c.mu.Lock()
	stopped, subs := c.unmountLocked()
	c.tree = nil
	c.mu.Unlock()
	c.release(stopped, subs)
}

func (c *Compositor) unmountLocked() ([]*Player, []live.Subscription) {
	players := make([]*Player, 0, len(c.zones))
	subs := make([]live.Subscription, 0, len(c.zones))
	for _, mz := range c.zones {
		players = append(players, mz.player)
		if mz.sub != nil {
			subs = append(subs, mz.sub)
		}
	}
	c.zones = make(map[string]*mountedZone)
	c.order = nil
	return players, subs
}

func (c *Compositor) release(players []*Player, subs []live.Subscription) {
	for _, s := range subs {
		s.Unsubscribe()
	}
	for _, p := range players {
		p.Stop()
	}
}

func (c *Compositor) mountZoneLocked(z model.Zone) *mountedZone {
	mz := &mountedZone{
		zone: z,
		player: NewPlayer(PlayerConfig{
			ZoneID:    z.ID,
			Items:     z.Items,
			Shuffle:   z.Shuffle,
			AutoPlay:  z.AutoPlay,
			Clock:     c.clock,
			OnAdvance: c.onAdvance,
			OnShow:    c.onShow,
		}),
	}
	if c.broker != nil {
		sub, err := c.broker.Subscribe(live.ZoneDesignTopic(c.screenID, z.ID), c.handleZoneDesign)
		if err != nil {
			log.Error().Err(err).
				Int("screen_id", c.screenID).
				Str("zone", z.ID).
				Msg("failed to subscribe zone to live updates")
		} else {
			mz.sub = sub
		}
	}
	return mz
}

func (c *Compositor) handleZoneDesign(topic string, payload []byte) {
	var z model.Zone
	if err := json.Unmarshal(payload, &z); err != nil {
		log.Error().Err(err).Str("topic", topic).Msg("ignoring malformed zone design payload")
		return
	}
	c.ReplaceZone(z)
}

// ReplaceZone swaps one zone's playlist in place. Unknown zones are
// ignored: structural tree changes arrive as a full remount, not as a
// zone edit.
func (c *Compositor) ReplaceZone(z model.Zone) {
	c.mu.Lock()
	mz, ok := c.zones[z.ID]
	if !ok {
		c.mu.Unlock()
		log.Warn().Int("screen_id", c.screenID).Str("zone", z.ID).Msg("zone design update for unmounted zone")
		return
	}
	mz.zone = z
	player := mz.player
	c.mu.Unlock()
	player.Replace(z.Items, z.Shuffle)
}

// Zone returns the player for a mounted zone.
func (c *Compositor) Zone(zoneID string) (*Player, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	mz, ok := c.zones[zoneID]
	if !ok {
		return nil, false
	}
	return mz.player, true
}

// Tree returns the mounted design tree, or nil when nothing is mounted.
func (c *Compositor) Tree() *model.DesignTree {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tree
}

// Snapshot reports every mounted zone's playback state in stacking order.
func (c *Compositor) Snapshot() []PlayerSnapshot {
	c.mu.Lock()
	players := make([]*Player, 0, len(c.order))
	for _, id := range c.order {
		if mz, ok := c.zones[id]; ok {
			players = append(players, mz.player)
		}
	}
	c.mu.Unlock()

	snaps := make([]PlayerSnapshot, 0, len(players))
	for _, p := range players {
		snaps = append(snaps, p.Snapshot())
	}
	return snaps
}
