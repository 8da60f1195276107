package live

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusDeliversToEverySubscriber(t *testing.T) {
	b := NewBus()
	defer b.Close()

	var got []string
	for i := 0; i < 2; i++ {
		_, err := b.Subscribe("screens/1/schedule", func(topic string, payload []byte) {
			got = append(got, topic+":"+string(payload))
		})
		require.NoError(t, err)
	}

	require.NoError(t, b.Publish("screens/1/schedule", []byte("hi")))
	assert.Equal(t, []string{"screens/1/schedule:hi", "screens/1/schedule:hi"}, got)
}

func TestBusDeliversInSubscriptionOrder(t *testing.T) {
	b := NewBus()
	defer b.Close()

	var order []string
	for _, name := range []string{"a", "b", "c"} {
		name := name
		_, err := b.Subscribe("t", func(string, []byte) { order = append(order, name) })
		require.NoError(t, err)
	}

	require.NoError(t, b.Publish("t", nil))
	assert.Equal(t, []string{"a", "b", "c"}, order)
}

func TestBusKeepsTopicsApart(t *testing.T) {
	b := NewBus()
	defer b.Close()

	calls := 0
	_, err := b.Subscribe("screens/1/settings", func(string, []byte) { calls++ })
	require.NoError(t, err)

	require.NoError(t, b.Publish("screens/2/settings", nil))
	assert.Zero(t, calls)

	require.NoError(t, b.Publish("screens/1/settings", nil))
	assert.Equal(t, 1, calls)
}

func TestBusUnsubscribeStopsDelivery(t *testing.T) {
	b := NewBus()
	defer b.Close()

	calls := 0
	sub, err := b.Subscribe("t", func(string, []byte) { calls++ })
	require.NoError(t, err)

	require.NoError(t, b.Publish("t", nil))
	sub.Unsubscribe()
	require.NoError(t, b.Publish("t", nil))
	assert.Equal(t, 1, calls)
}

func TestBusClosedRefusesEverything(t *testing.T) {
	b := NewBus()
	b.Close()

	assert.ErrorIs(t, b.Publish("t", nil), ErrBusClosed)
	_, err := b.Subscribe("t", func(string, []byte) {})
	assert.ErrorIs(t, err, ErrBusClosed)
}

func TestTopicNamesMatchTheAuthoringSide(t *testing.T) {
	assert.Equal(t, "screens/4/schedule", ScheduleTopic(4))
	assert.Equal(t, "screens/4/zones/left/design", ZoneDesignTopic(4, "left"))
	assert.Equal(t, "screens/4/settings", SettingsTopic(4))
}
