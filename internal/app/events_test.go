package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusDeliversToAllSubscribers(t *testing.T) {
	b := NewBus()
	a, _ := b.Subscribe(4)
	c, _ := b.Subscribe(4)

	b.Publish(Event{Type: EventAmplitude, Amplitude: 0.5})

	for _, ch := range []<-chan Event{a, c} {
		e := <-ch
		assert.Equal(t, EventAmplitude, e.Type)
		assert.Equal(t, 0.5, e.Amplitude)
		assert.False(t, e.Time.IsZero())
	}
}

func TestBusDropsWhenFull(t *testing.T) {
	b := NewBus()
	ch, _ := b.Subscribe(1)

	b.Publish(Event{Type: EventDuration, Elapsed: time.Second})
	b.Publish(Event{Type: EventDuration, Elapsed: 2 * time.Second})

	assert.EqualValues(t, 1, b.Dropped())
	assert.Equal(t, time.Second, (<-ch).Elapsed)
}

func TestBusUnsubscribe(t *testing.T) {
	b := NewBus()
	ch, unsubscribe := b.Subscribe(1)

	unsubscribe()
	unsubscribe()
	_, ok := <-ch
	assert.False(t, ok)

	b.Publish(Event{Type: EventError})
	assert.Zero(t, b.Dropped())
}

func TestBusClose(t *testing.T) {
	b := NewBus()
	ch, unsubscribe := b.Subscribe(1)

	b.Close()
	_, ok := <-ch
	assert.False(t, ok)
	unsubscribe()

	late, _ := b.Subscribe(1)
	_, ok = <-late
	require.False(t, ok)
	b.Publish(Event{Type: EventError})
}
