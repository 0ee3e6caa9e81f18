package notify

import (
	"fmt"
	"sync"

	"github.com/godbus/dbus/v5"

	"github.com/user/vpn-bridge/internal/logger"
)

const (
	notifyDest      = "org.freedesktop.Notifications"
	notifyPath      = dbus.ObjectPath("/org/freedesktop/Notifications")
	notifyInterface = "org.freedesktop.Notifications"
)

// urgency hint values
const (
	urgencyLow    byte = 0
	urgencyNormal byte = 1
)

// DBusBackend posts through the freedesktop notification service on the
// session bus. Slots map to replaces_id; NotificationClosed signals clear
// visibility.
type DBusBackend struct {
	conn    *dbus.Conn
	obj     dbus.BusObject
	appName string
	icon    string
	signals chan *dbus.Signal
	done    chan struct{}
	closing sync.Once

	mu       sync.Mutex
	channels map[string]Channel
	ids      map[int]uint32
}

// NewDBusBackend connects to the session bus.
func NewDBusBackend(appName string) (*DBusBackend, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("connect session bus: %w", err)
	}

	if err := conn.AddMatchSignal(
		dbus.WithMatchObjectPath(notifyPath),
		dbus.WithMatchInterface(notifyInterface),
		dbus.WithMatchMember("NotificationClosed"),
	); err != nil {
		conn.Close()
		return nil, fmt.Errorf("subscribe NotificationClosed: %w", err)
	}

	b := &DBusBackend{
		conn:     conn,
		obj:      conn.Object(notifyDest, notifyPath),
		appName:  appName,
		icon:     "network-vpn",
		signals:  make(chan *dbus.Signal, 16),
		done:     make(chan struct{}),
		channels: make(map[string]Channel),
		ids:      make(map[int]uint32),
	}
	conn.Signal(b.signals)

	go b.run()

	return b, nil
}

// Close stops signal delivery, waits for the signal goroutine and
// disconnects from the bus. Later calls return nil.
func (b *DBusBackend) Close() error {
	var err error
	b.closing.Do(func() {
		b.conn.RemoveSignal(b.signals)
		close(b.signals)
		<-b.done
		err = b.conn.Close()
	})
	return err
}

func (b *DBusBackend) run() {
	defer close(b.done)
	defer logger.Recover("notify-signals")
	b.watch()
}

func (b *DBusBackend) EnsureChannel(ch Channel) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.channels[ch.ID] = ch
	return nil
}

func (b *DBusBackend) Post(n Notification) error {
	b.mu.Lock()
	ch, ok := b.channels[n.ChannelID]
	replaces := b.ids[n.Slot]
	b.mu.Unlock()
	if !ok {
		return fmt.Errorf("unknown channel %q", n.ChannelID)
	}

	hints := buildHints(ch, n)
	timeout := int32(-1)
	if n.Ongoing {
		timeout = 0
	}

	var id uint32
	err := b.obj.Call(notifyInterface+".Notify", 0,
		b.appName, replaces, b.icon, n.Title, n.Body,
		[]string{}, hints, timeout,
	).Store(&id)
	if err != nil {
		return fmt.Errorf("notify slot %d: %w", n.Slot, err)
	}

	b.mu.Lock()
	b.ids[n.Slot] = id
	b.mu.Unlock()
	return nil
}

func buildHints(ch Channel, n Notification) map[string]dbus.Variant {
	urgency := urgencyNormal
	if ch.Importance == ImportanceLow {
		urgency = urgencyLow
	}
	hints := map[string]dbus.Variant{
		"urgency":        dbus.MakeVariant(urgency),
		"category":       dbus.MakeVariant("network"),
		"x-channel-id":   dbus.MakeVariant(ch.ID),
		"x-channel-name": dbus.MakeVariant(ch.Name),
	}
	if n.Silent || ch.Silent {
		hints["suppress-sound"] = dbus.MakeVariant(true)
	}
	if n.Ongoing {
		hints["resident"] = dbus.MakeVariant(true)
	}
	if n.AutoCancel {
		hints["transient"] = dbus.MakeVariant(true)
	}
	return hints
}

func (b *DBusBackend) Cancel(slot int) error {
	b.mu.Lock()
	id, ok := b.ids[slot]
	delete(b.ids, slot)
	b.mu.Unlock()
	if !ok {
		return nil
	}

	if call := b.obj.Call(notifyInterface+".CloseNotification", 0, id); call.Err != nil {
		return fmt.Errorf("close notification %d: %w", id, call.Err)
	}
	return nil
}

func (b *DBusBackend) Visible(slot int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.ids[slot]
	return ok
}

func (b *DBusBackend) watch() {
	for sig := range b.signals {
		if sig.Name != notifyInterface+".NotificationClosed" || len(sig.Body) < 1 {
			continue
		}
		id, ok := sig.Body[0].(uint32)
		if !ok {
			continue
		}
		b.forget(id)
	}
}

// forget drops the slot that showed id.
func (b *DBusBackend) forget(id uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for slot, shown := range b.ids {
		if shown == id {
			delete(b.ids, slot)
			logger.Debug("Notification slot %d closed", slot)
		}
	}
}
