package connmon

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	mu      sync.Mutex
	signal  func(string)
	err     error
	stopped int
}

func (s *fakeSource) Start(signal func(string)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.signal = signal
	return nil
}

func (s *fakeSource) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped++
}

func (s *fakeSource) fire(reason string) {
	s.mu.Lock()
	fn := s.signal
	s.mu.Unlock()
	fn(reason)
}

func TestBurstCoalescesIntoOneReconcile(t *testing.T) {
	var count atomic.Int32
	src := &fakeSource{}
	w := NewWatcher(80*time.Millisecond, func() { count.Add(1) }, src)
	require.NoError(t, w.Start())
	defer w.Stop()

	for i := 0; i < 5; i++ {
		src.fire("connectivity")
		time.Sleep(5 * time.Millisecond)
	}

	require.Eventually(t, func() bool { return count.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, int32(1), count.Load())

	w.Trigger("airplane-mode")
	require.Eventually(t, func() bool { return count.Load() == 2 }, time.Second, 5*time.Millisecond)
}

func TestNoSignalNoReconcile(t *testing.T) {
	var count atomic.Int32
	w := NewWatcher(10*time.Millisecond, func() { count.Add(1) })
	require.NoError(t, w.Start())

	time.Sleep(50 * time.Millisecond)
	w.Stop()
	assert.Zero(t, count.Load())
}

func TestStopDropsPendingReconcile(t *testing.T) {
	var count atomic.Int32
	w := NewWatcher(100*time.Millisecond, func() { count.Add(1) })
	require.NoError(t, w.Start())

	w.Trigger("connectivity")
	w.Stop()
	w.Stop()

	time.Sleep(200 * time.Millisecond)
	assert.Zero(t, count.Load())

	w.Trigger("ignored while stopped")
	time.Sleep(150 * time.Millisecond)
	assert.Zero(t, count.Load())
}

func TestStartIsIdempotentAndSurvivesFailedSource(t *testing.T) {
	var count atomic.Int32
	broken := &fakeSource{err: errors.New("no system bus")}
	w := NewWatcher(10*time.Millisecond, func() { count.Add(1) }, broken)

	require.NoError(t, w.Start())
	require.NoError(t, w.Start())

	w.LinkChanged(false)
	require.Eventually(t, func() bool { return count.Load() == 1 }, time.Second, 5*time.Millisecond)

	w.Stop()
	assert.Equal(t, 1, broken.stopped)
}
