package notify

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/user/vpn-bridge/internal/logger"
)

// LogBackend records notifications in memory and writes them to the log.
// It is used when no desktop notification service is reachable.
type LogBackend struct {
	mu       sync.Mutex
	channels map[string]Channel
	shown    map[int]Notification
}

// NewLogBackend creates an empty backend.
func NewLogBackend() *LogBackend {
	return &LogBackend{
		channels: make(map[string]Channel),
		shown:    make(map[int]Notification),
	}
}

func (b *LogBackend) EnsureChannel(ch Channel) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.channels[ch.ID] = ch
	return nil
}

func (b *LogBackend) Post(n Notification) error {
	b.mu.Lock()
	b.shown[n.Slot] = n
	b.mu.Unlock()

	logger.WithFields(logrus.Fields{
		"slot":    n.Slot,
		"channel": n.ChannelID,
	}).Infof("Notification: %s: %s", n.Title, n.Body)
	return nil
}

func (b *LogBackend) Cancel(slot int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.shown, slot)
	return nil
}

func (b *LogBackend) Visible(slot int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.shown[slot]
	return ok
}

// Shown returns the notification currently in slot.
func (b *LogBackend) Shown(slot int) (Notification, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	n, ok := b.shown[slot]
	return n, ok
}

// Channel returns the registered channel with id.
func (b *LogBackend) Channel(id string) (Channel, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch, ok := b.channels[id]
	return ch, ok
}
