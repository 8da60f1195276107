package engine

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nixie-Tech-LLC/stheno/internal/live"
	"github.com/Nixie-Tech-LLC/stheno/internal/model"
)

func testZone(id string, z int, items ...model.PlayableItem) model.Zone {
	return model.Zone{
		ID:       id,
		Frame:    model.FullCanvas(),
		Z:        z,
		Content:  model.ContentRef{Type: model.ContentPlaylist, ID: 1},
		Items:    items,
		AutoPlay: true,
	}
}

func designTree(zones ...model.Zone) model.DesignTree {
	return model.DesignTree{
		Ref:   model.ContentRef{Type: model.ContentLayout, ID: 1},
		Zones: zones,
	}
}

func (r *playbackRecorder) showsFor(zone string) []shownRecord {
	var out []shownRecord
	for _, s := range r.Shows() {
		if s.Zone == zone {
			out = append(out, s)
		}
	}
	return out
}

func TestMountShowsZonesInStackingOrder(t *testing.T) {
	clk := NewManualClock(time.Unix(0, 0))
	rec := &playbackRecorder{}
	c := NewCompositor(CompositorConfig{ScreenID: 1, Clock: clk, OnAdvance: rec.onAdvance, OnShow: rec.onShow})

	c.Mount(designTree(
		testZone("overlay", 2, imageItem(3, 5)),
		testZone("background", 0, imageItem(1, 5)),
		testZone("ticker", 1, imageItem(2, 5)),
	))

	shows := rec.Shows()
	require.Len(t, shows, 3)
	assert.Equal(t, "background", shows[0].Zone)
	assert.Equal(t, "ticker", shows[1].Zone)
	assert.Equal(t, "overlay", shows[2].Zone)
}

func TestZonesAdvanceIndependently(t *testing.T) {
	clk := NewManualClock(time.Unix(0, 0))
	rec := &playbackRecorder{}
	c := NewCompositor(CompositorConfig{ScreenID: 1, Clock: clk, OnAdvance: rec.onAdvance, OnShow: rec.onShow})

	c.Mount(designTree(
		testZone("left", 0, imageItem(1, 5), imageItem(2, 5)),
		testZone("right", 1, imageItem(11, 8), imageItem(12, 8)),
	))

	clk.Advance(5 * time.Second)
	left := rec.showsFor("left")
	require.Len(t, left, 2)
	assert.Equal(t, 2, left[1].ItemID)
	assert.Len(t, rec.showsFor("right"), 1, "the right zone's longer item is still up")

	clk.Advance(3 * time.Second)
	right := rec.showsFor("right")
	require.Len(t, right, 2)
	assert.Equal(t, 12, right[1].ItemID)
	assert.Len(t, rec.showsFor("left"), 2)
}

func TestReplaceZoneSwapsOnlyThatZone(t *testing.T) {
	clk := NewManualClock(time.Unix(0, 0))
	rec := &playbackRecorder{}
	c := NewCompositor(CompositorConfig{ScreenID: 1, Clock: clk, OnAdvance: rec.onAdvance, OnShow: rec.onShow})

	c.Mount(designTree(
		testZone("left", 0, imageItem(1, 5)),
		testZone("right", 1, imageItem(11, 5)),
	))

	c.ReplaceZone(model.Zone{ID: "left", Items: []model.PlayableItem{imageItem(99, 5)}, AutoPlay: true})

	assert.Equal(t, 99, rec.lastShow(t).ItemID)
	assert.Len(t, rec.showsFor("right"), 1, "an untouched sibling keeps its position")

	right, ok := c.Zone("right")
	require.True(t, ok)
	assert.Equal(t, StatePlaying, right.State())
}

func TestReplaceUnknownZoneIsIgnored(t *testing.T) {
	clk := NewManualClock(time.Unix(0, 0))
	rec := &playbackRecorder{}
	c := NewCompositor(CompositorConfig{ScreenID: 1, Clock: clk, OnAdvance: rec.onAdvance, OnShow: rec.onShow})

	c.Mount(designTree(testZone("main", 0, imageItem(1, 5))))
	shows := len(rec.Shows())

	c.ReplaceZone(model.Zone{ID: "ghost", Items: []model.PlayableItem{imageItem(99, 5)}})
	assert.Len(t, rec.Shows(), shows)
}

func TestLiveZoneEditArrivesOverBroker(t *testing.T) {
	clk := NewManualClock(time.Unix(0, 0))
	rec := &playbackRecorder{}
	bus := live.NewBus()
	defer bus.Close()
	c := NewCompositor(CompositorConfig{ScreenID: 7, Clock: clk, Broker: bus, OnAdvance: rec.onAdvance, OnShow: rec.onShow})

	c.Mount(designTree(testZone("main", 0, imageItem(1, 5))))

	payload, err := json.Marshal(model.Zone{ID: "main", Items: []model.PlayableItem{imageItem(42, 5)}, AutoPlay: true})
	require.NoError(t, err)
	require.NoError(t, bus.Publish(live.ZoneDesignTopic(7, "main"), payload))

	assert.Equal(t, 42, rec.lastShow(t).ItemID)
}

func TestMalformedLiveEditIsDropped(t *testing.T) {
	clk := NewManualClock(time.Unix(0, 0))
	rec := &playbackRecorder{}
	bus := live.NewBus()
	defer bus.Close()
	c := NewCompositor(CompositorConfig{ScreenID: 7, Clock: clk, Broker: bus, OnAdvance: rec.onAdvance, OnShow: rec.onShow})

	c.Mount(designTree(testZone("main", 0, imageItem(1, 5))))
	shows := len(rec.Shows())

	require.NoError(t, bus.Publish(live.ZoneDesignTopic(7, "main"), []byte("{not json")))
	assert.Len(t, rec.Shows(), shows)
}

func TestUnmountReleasesZonesAndSubscriptions(t *testing.T) {
	clk := NewManualClock(time.Unix(0, 0))
	rec := &playbackRecorder{}
	bus := live.NewBus()
	defer bus.Close()
	c := NewCompositor(CompositorConfig{ScreenID: 7, Clock: clk, Broker: bus, OnAdvance: rec.onAdvance, OnShow: rec.onShow})

	c.Mount(designTree(testZone("main", 0, imageItem(1, 5))))
	c.Unmount()

	assert.Nil(t, c.Tree())
	assert.Empty(t, c.Snapshot())
	assert.Equal(t, 0, clk.PendingTimers())
	_, ok := c.Zone("main")
	assert.False(t, ok)

	// the zone subscription is gone, so edits for the old tree are inert
	shows := len(rec.Shows())
	payload, _ := json.Marshal(model.Zone{ID: "main", Items: []model.PlayableItem{imageItem(42, 5)}, AutoPlay: true})
	require.NoError(t, bus.Publish(live.ZoneDesignTopic(7, "main"), payload))
	assert.Len(t, rec.Shows(), shows)
}

func TestMountReplacesPreviousTree(t *testing.T) {
	clk := NewManualClock(time.Unix(0, 0))
	rec := &playbackRecorder{}
	c := NewCompositor(CompositorConfig{ScreenID: 1, Clock: clk, OnAdvance: rec.onAdvance, OnShow: rec.onShow})

	c.Mount(designTree(testZone("old", 0, imageItem(1, 5))))
	c.Mount(designTree(testZone("new", 0, imageItem(2, 7))))

	_, ok := c.Zone("old")
	assert.False(t, ok)
	assert.Equal(t, 1, clk.PendingTimers(), "only the new tree's timer is armed")

	clk.Advance(7 * time.Second)
	last := rec.lastShow(t)
	assert.Equal(t, "new", last.Zone)
}

func TestSnapshotListsZonesInStackingOrder(t *testing.T) {
	clk := NewManualClock(time.Unix(0, 0))
	rec := &playbackRecorder{}
	c := NewCompositor(CompositorConfig{ScreenID: 1, Clock: clk, OnAdvance: rec.onAdvance, OnShow: rec.onShow})

	c.Mount(designTree(
		testZone("top", 5, imageItem(3, 5)),
		testZone("bottom", 0, imageItem(1, 5)),
		testZone("middle", 2, imageItem(2, 5)),
	))

	snaps := c.Snapshot()
	require.Len(t, snaps, 3)
	assert.Equal(t, "bottom", snaps[0].ZoneID)
	assert.Equal(t, "middle", snaps[1].ZoneID)
	assert.Equal(t, "top", snaps[2].ZoneID)
}
