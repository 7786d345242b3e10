package events

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubPublish(t *testing.T) {
	h := NewHub()
	a := h.Subscribe()
	b := h.Subscribe()
	assert.Equal(t, 2, h.Subscribers())

	require.NoError(t, h.Publish(Event{Type: "job_result", Data: map[string]string{"job": "daily_digest"}}))

	for _, ch := range []chan []byte{a, b} {
		var evt Event
		require.NoError(t, json.Unmarshal(<-ch, &evt))
		assert.Equal(t, "job_result", evt.Type)
		assert.False(t, evt.At.IsZero())
	}

	h.Unsubscribe(a)
	h.Unsubscribe(a)
	_, open := <-a
	assert.False(t, open)
	assert.Equal(t, 1, h.Subscribers())
}

func TestHubDropsForSlowSubscriber(t *testing.T) {
	h := NewHub()
	ch := h.Subscribe()

	for i := 0; i < subscriberBuffer+3; i++ {
		require.NoError(t, h.Publish(Event{Type: "tick"}))
	}

	assert.Len(t, ch, subscriberBuffer)
	assert.Equal(t, 3, h.Dropped())
}

func TestHubPublishEncodeError(t *testing.T) {
	h := NewHub()
	assert.Error(t, h.Publish(Event{Type: "bad", Data: make(chan int)}))
}
