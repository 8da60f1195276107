package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManualClockFiresInDeadlineOrder(t *testing.T) {
	clk := NewManualClock(time.Unix(0, 0))
	var order []string
	clk.AfterFunc(3*time.Second, func() { order = append(order, "c") })
	clk.AfterFunc(time.Second, func() { order = append(order, "a") })
	clk.AfterFunc(2*time.Second, func() { order = append(order, "b") })

	clk.Advance(3 * time.Second)
	assert.Equal(t, []string{"a", "b", "c"}, order)
	assert.Equal(t, 0, clk.PendingTimers())
}

func TestManualClockNowTracksFiringTimer(t *testing.T) {
	start := time.Unix(0, 0)
	clk := NewManualClock(start)
	var at time.Time
	clk.AfterFunc(2*time.Second, func() { at = clk.Now() })

	clk.Advance(10 * time.Second)
	assert.Equal(t, start.Add(2*time.Second), at, "a callback observes its own deadline, not the advance target")
	assert.Equal(t, start.Add(10*time.Second), clk.Now())
}

func TestManualClockStoppedTimerNeverFires(t *testing.T) {
	clk := NewManualClock(time.Unix(0, 0))
	fired := false
	tm := clk.AfterFunc(time.Second, func() { fired = true })

	assert.True(t, tm.Stop())
	clk.Advance(time.Minute)
	assert.False(t, fired)
	assert.False(t, tm.Stop(), "stopping twice reports the timer was already gone")
}

func TestManualClockChainedTimersFireWithinOneAdvance(t *testing.T) {
	clk := NewManualClock(time.Unix(0, 0))
	fires := 0
	var rearm func()
	rearm = func() {
		fires++
		if fires < 5 {
			clk.AfterFunc(time.Second, rearm)
		}
	}
	clk.AfterFunc(time.Second, rearm)

	clk.Advance(3 * time.Second)
	assert.Equal(t, 3, fires, "each rearmed timer due within the window fires")

	clk.Advance(2 * time.Second)
	assert.Equal(t, 5, fires)
}

func TestManualClockTickerDelivery(t *testing.T) {
	start := time.Unix(0, 0)
	clk := NewManualClock(start)
	tk := clk.NewTicker(time.Second)
	defer tk.Stop()

	clk.Advance(3 * time.Second)

	var ticks []time.Time
	for {
		select {
		case ts := <-tk.C():
			ticks = append(ticks, ts)
			continue
		default:
		}
		break
	}
	require.Len(t, ticks, 3)
	assert.Equal(t, start.Add(time.Second), ticks[0])
	assert.Equal(t, start.Add(3*time.Second), ticks[2])
}
