package consent

import (
	"context"
	"fmt"
	"os"

	"github.com/godbus/dbus/v5"
	"github.com/google/uuid"

	"github.com/user/vpn-bridge/internal/logger"
)

const (
	polkitDest      = "org.freedesktop.PolicyKit1"
	polkitPath      = dbus.ObjectPath("/org/freedesktop/PolicyKit1/Authority")
	polkitInterface = "org.freedesktop.PolicyKit1.Authority"

	flagAllowUserInteraction uint32 = 1
)

type polkitSubject struct {
	Kind    string
	Details map[string]dbus.Variant
}

type polkitResult struct {
	IsAuthorized bool
	IsChallenge  bool
	Details      map[string]string
}

// Polkit checks an action against the polkit authority on the system bus.
type Polkit struct {
	conn    *dbus.Conn
	obj     dbus.BusObject
	action  string
	signals chan *dbus.Signal
	changes chan struct{}
}

// NewPolkit connects to the system bus and subscribes to authority changes.
func NewPolkit(action string) (*Polkit, error) {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, fmt.Errorf("connect system bus: %w", err)
	}

	if err := conn.AddMatchSignal(
		dbus.WithMatchObjectPath(polkitPath),
		dbus.WithMatchInterface(polkitInterface),
		dbus.WithMatchMember("Changed"),
	); err != nil {
		conn.Close()
		return nil, fmt.Errorf("subscribe polkit Changed: %w", err)
	}

	p := &Polkit{
		conn:    conn,
		obj:     conn.Object(polkitDest, polkitPath),
		action:  action,
		signals: make(chan *dbus.Signal, 8),
		changes: make(chan struct{}, 1),
	}
	conn.Signal(p.signals)

	go func() {
		defer logger.Recover("polkit-signals")
		defer close(p.changes)
		for sig := range p.signals {
			if sig.Name != polkitInterface+".Changed" {
				continue
			}
			select {
			case p.changes <- struct{}{}:
			default:
			}
		}
	}()

	return p, nil
}

// Close disconnects from the bus.
func (p *Polkit) Close() error {
	return p.conn.Close()
}

// Changes fires after the authority reports a change.
func (p *Polkit) Changes() <-chan struct{} {
	return p.changes
}

// Check asks polkit whether this process may perform the action. An
// interactive check may show an authentication dialog and is cancelled
// on the polkit side when ctx ends.
func (p *Polkit) Check(ctx context.Context, interactive bool) (Result, error) {
	subject := polkitSubject{
		Kind: "unix-process",
		Details: map[string]dbus.Variant{
			"pid":        dbus.MakeVariant(uint32(os.Getpid())),
			"start-time": dbus.MakeVariant(uint64(0)),
		},
	}

	var flags uint32
	if interactive {
		flags = flagAllowUserInteraction
	}
	cancelID := uuid.NewString()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			p.obj.Call(polkitInterface+".CancelCheckAuthorization", 0, cancelID)
		case <-done:
		}
	}()

	var result polkitResult
	err := p.obj.CallWithContext(ctx, polkitInterface+".CheckAuthorization", 0,
		subject, p.action, map[string]string{}, flags, cancelID,
	).Store(&result)
	if err != nil {
		return Result{}, fmt.Errorf("check authorization for %s: %w", p.action, err)
	}

	return Result{Authorized: result.IsAuthorized, Challenge: result.IsChallenge}, nil
}
