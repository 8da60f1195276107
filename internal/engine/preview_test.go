package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nixie-Tech-LLC/stheno/internal/model"
)

func drainEvents(s *PreviewSession) []PreviewEvent {
	var out []PreviewEvent
	for {
		select {
		case ev := <-s.Events():
			out = append(out, ev)
		default:
			return out
		}
	}
}

func lastShowEvent(t *testing.T, events []PreviewEvent) PreviewEvent {
	t.Helper()
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Kind == "show" {
			return events[i]
		}
	}
	t.Fatal("no show event in stream")
	return PreviewEvent{}
}

func previewTree(items ...model.PlayableItem) model.DesignTree {
	return model.SingleZoneTree(playlistRef(1), items, false)
}

func TestPreviewSessionStreamsPlayback(t *testing.T) {
	clk := NewManualClock(time.Unix(0, 0))
	s := NewPreviewSession(previewTree(imageItem(1, 5), imageItem(2, 5)), clk)
	defer s.Close()

	events := drainEvents(s)
	require.Len(t, events, 1)
	assert.Equal(t, "show", events[0].Kind)
	assert.Equal(t, 1, events[0].Item.ID)
	assert.NotZero(t, events[0].Generation)

	clk.Advance(5 * time.Second)
	events = drainEvents(s)
	require.Len(t, events, 2)
	assert.Equal(t, "advance", events[0].Kind)
	assert.Equal(t, model.TriggerTimer, events[0].Trigger)
	assert.Equal(t, "show", events[1].Kind)
	assert.Equal(t, 2, events[1].Item.ID)
}

func TestPreviewControlDrivesTheZone(t *testing.T) {
	clk := NewManualClock(time.Unix(0, 0))
	s := NewPreviewSession(previewTree(imageItem(1, 5), imageItem(2, 5), imageItem(3, 5)), clk)
	defer s.Close()
	drainEvents(s)

	require.NoError(t, s.Control("canvas", "next", 0))
	events := drainEvents(s)
	require.NotEmpty(t, events)
	assert.Equal(t, "state", events[len(events)-1].Kind, "every control ends with a state resync")

	snap := s.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, 1, snap[0].CurrentIndex)

	require.NoError(t, s.Control("canvas", "goto", 2))
	assert.Equal(t, 2, s.Snapshot()[0].CurrentIndex)

	require.NoError(t, s.Control("canvas", "previous", 0))
	assert.Equal(t, 1, s.Snapshot()[0].CurrentIndex)
}

func TestPreviewControlRejectsUnknownInput(t *testing.T) {
	clk := NewManualClock(time.Unix(0, 0))
	s := NewPreviewSession(previewTree(imageItem(1, 5)), clk)
	defer s.Close()

	assert.Error(t, s.Control("ghost", "next", 0))
	assert.Error(t, s.Control("canvas", "rewind", 0))
}

func TestPreviewTogglePlayPausesTheTimer(t *testing.T) {
	clk := NewManualClock(time.Unix(0, 0))
	s := NewPreviewSession(previewTree(imageItem(1, 5), imageItem(2, 5)), clk)
	defer s.Close()

	require.NoError(t, s.Control("canvas", "toggle_play", 0))
	assert.Equal(t, StatePaused, s.Snapshot()[0].State)
	assert.Equal(t, 0, clk.PendingTimers())

	clk.Advance(time.Minute)
	assert.Equal(t, StatePaused, s.Snapshot()[0].State)

	require.NoError(t, s.Control("canvas", "toggle_play", 0))
	assert.Equal(t, StatePlaying, s.Snapshot()[0].State)
	assert.Equal(t, 1, clk.PendingTimers())
}

func TestPreviewSessionsAreIndependent(t *testing.T) {
	clk := NewManualClock(time.Unix(0, 0))
	tree := previewTree(imageItem(1, 5), imageItem(2, 5))
	a := NewPreviewSession(tree, clk)
	defer a.Close()
	b := NewPreviewSession(tree, clk)
	defer b.Close()

	assert.NotEqual(t, a.ID(), b.ID())

	require.NoError(t, a.Control("canvas", "next", 0))
	assert.Equal(t, 1, a.Snapshot()[0].CurrentIndex)
	assert.Equal(t, 0, b.Snapshot()[0].CurrentIndex, "one reviewer's controls never touch another session")
}

func TestPreviewMediaEndReportAdvancesVideo(t *testing.T) {
	clk := NewManualClock(time.Unix(0, 0))
	s := NewPreviewSession(previewTree(videoItem(1), imageItem(2, 5)), clk)
	defer s.Close()

	show := lastShowEvent(t, drainEvents(s))
	s.ReportMediaEnd("canvas", show.Generation)
	assert.Equal(t, 2, s.Snapshot()[0].Current.ID)

	// the echoed generation is stale now and must not advance again
	s.ReportMediaEnd("canvas", show.Generation)
	assert.Equal(t, 2, s.Snapshot()[0].Current.ID)
}

func TestPreviewLoadFailureReportSkipsItem(t *testing.T) {
	clk := NewManualClock(time.Unix(0, 0))
	s := NewPreviewSession(previewTree(imageItem(1, 5), imageItem(2, 5)), clk)
	defer s.Close()

	show := lastShowEvent(t, drainEvents(s))
	s.ReportLoadFailure("canvas", show.Generation)

	events := drainEvents(s)
	require.NotEmpty(t, events)
	assert.Equal(t, model.TriggerFailure, events[0].Trigger)
	assert.Equal(t, 2, s.Snapshot()[0].Current.ID)
}

func TestPreviewSlowConsumerNeverBlocksPlayback(t *testing.T) {
	clk := NewManualClock(time.Unix(0, 0))
	s := NewPreviewSession(previewTree(imageItem(1, 5), imageItem(2, 5)), clk)
	defer s.Close()

	// nobody reads; the buffer fills and playback keeps moving
	for i := 0; i < 200; i++ {
		require.NoError(t, s.Control("canvas", "next", 0))
	}
	assert.LessOrEqual(t, len(drainEvents(s)), 64)
}

func TestPreviewCloseTearsDownOnce(t *testing.T) {
	clk := NewManualClock(time.Unix(0, 0))
	s := NewPreviewSession(previewTree(imageItem(1, 5)), clk)

	s.Close()
	s.Close()

	select {
	case <-s.Done():
	default:
		t.Fatal("Done must be closed after Close")
	}
	assert.Empty(t, s.Snapshot())
	assert.Equal(t, 0, clk.PendingTimers())
	assert.Error(t, s.Control("canvas", "next", 0), "a closed session has no zones left to drive")
}
