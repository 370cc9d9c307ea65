package eventbus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishSubscribe(t *testing.T) {
	b := New[int]()
	defer b.Close()

	s1 := b.Subscribe()
	s2 := b.Subscribe()

	b.Publish(42)

	select {
	case v := <-s1:
		assert.Equal(t, 42, v)
	case <-time.After(time.Second):
		t.Fatal("subscriber 1 did not receive the event")
	}
	select {
	case v := <-s2:
		assert.Equal(t, 42, v)
	case <-time.After(time.Second):
		t.Fatal("subscriber 2 did not receive the event")
	}
}

func TestPublish_FullSubscriberDoesNotBlock(t *testing.T) {
	b := New[int]()
	defer b.Close()

	slow := b.Subscribe()
	for i := 0; i < 32; i++ {
		b.Publish(i) // overflows the buffer, extra events are dropped
	}

	received := 0
	for {
		select {
		case <-slow:
			received++
			continue
		default:
		}
		break
	}
	assert.Equal(t, 16, received, "buffered events only, the rest dropped")
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	b := New[string]()
	defer b.Close()

	sub := b.Subscribe()
	b.Unsubscribe(sub)

	_, open := <-sub
	assert.False(t, open)

	// Publishing after unsubscribe must not panic.
	b.Publish("x")
}

func TestClose(t *testing.T) {
	b := New[string]()
	sub := b.Subscribe()
	b.Close()

	_, open := <-sub
	require.False(t, open)

	// Subscribing after close yields a closed channel.
	late := b.Subscribe()
	_, open = <-late
	assert.False(t, open)

	b.Publish("dropped") // no-op
	b.Close()            // idempotent
}
