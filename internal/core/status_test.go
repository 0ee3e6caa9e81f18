package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusStreamReplayAndUnsubscribe(t *testing.T) {
	s := NewStatusStream()

	_, ok := s.Last()
	assert.False(t, ok)

	s.Publish(true)
	ch, cancel := s.Subscribe()
	assert.True(t, <-ch)

	s.Publish(false)
	assert.False(t, <-ch)

	cancel()
	cancel()
	_, open := <-ch
	assert.False(t, open)

	v, ok := s.Last()
	assert.True(t, ok)
	assert.False(t, v)
}

func TestStatusStreamSlowSubscriberKeepsLatest(t *testing.T) {
	s := NewStatusStream()
	ch, cancel := s.Subscribe()
	defer cancel()

	for i := 0; i < subscriberBuffer+5; i++ {
		s.Publish(i%2 == 0)
	}

	var last bool
	for i := 0; i < subscriberBuffer; i++ {
		last = <-ch
	}
	assert.Equal(t, (subscriberBuffer+4)%2 == 0, last)
	assert.Len(t, ch, 0)
}

func TestStatusStreamClose(t *testing.T) {
	s := NewStatusStream()
	ch, _ := s.Subscribe()
	s.Close()

	_, open := <-ch
	assert.False(t, open)

	late, _ := s.Subscribe()
	_, open = <-late
	assert.False(t, open)
}
