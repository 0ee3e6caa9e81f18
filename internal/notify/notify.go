// Package notify renders session state and ad-hoc messages into desktop
// notifications posted to fixed slots.
package notify

import (
	"fmt"
)

// Slot ids. Posting to a slot replaces whatever it showed before.
const (
	SlotInactive = 1
	SlotActive   = 2
	SlotCustom   = 3
)

// Channel ids.
const (
	ChannelActive   = "vpn_active_channel"
	ChannelInactive = "vpn_inactive_channel"
	ChannelCustom   = "vpn_custom_channel"
)

// Importance of a channel.
type Importance int

const (
	ImportanceLow Importance = iota
	ImportanceDefault
)

// Channel groups notifications sharing presentation settings.
type Channel struct {
	ID         string
	Name       string
	Importance Importance
	Silent     bool
	ShowBadge  bool
}

// Notification is a single post request.
type Notification struct {
	Slot       int
	ChannelID  string
	Title      string
	Body       string
	Silent     bool
	Ongoing    bool
	AutoCancel bool
}

// Backend is the OS notification surface.
type Backend interface {
	// EnsureChannel registers ch. Registering an existing channel updates it.
	EnsureChannel(ch Channel) error
	Post(n Notification) error
	Cancel(slot int) error
	Visible(slot int) bool
}

// Texts overrides the default notification texts. Empty fields keep the
// defaults.
type Texts struct {
	ActiveTitle   string
	ActiveBody    string
	InactiveTitle string
	InactiveBody  string
}

const (
	defaultActiveTitle   = "VPN Active"
	defaultActiveBody    = "Your VPN is running in the background."
	defaultInactiveTitle = "VPN disconnected"
	defaultInactiveBody  = "Your VPN connection has been stopped."
	defaultCustomTitle   = "Notice"
	defaultCustomBody    = "Message"
)

// Presenter posts session notifications. It keeps no state of its own.
type Presenter struct {
	backend Backend
	texts   Texts
}

// NewPresenter creates a presenter over backend.
func NewPresenter(backend Backend, texts Texts) *Presenter {
	texts.ActiveTitle = orDefault(texts.ActiveTitle, defaultActiveTitle)
	texts.ActiveBody = orDefault(texts.ActiveBody, defaultActiveBody)
	texts.InactiveTitle = orDefault(texts.InactiveTitle, defaultInactiveTitle)
	texts.InactiveBody = orDefault(texts.InactiveBody, defaultInactiveBody)
	return &Presenter{backend: backend, texts: texts}
}

// PresentActive shows the ongoing "connected" notification and removes any
// inactive one.
func (p *Presenter) PresentActive() error {
	if err := p.backend.EnsureChannel(Channel{
		ID:         ChannelActive,
		Name:       "VPN Status",
		Importance: ImportanceLow,
		Silent:     true,
	}); err != nil {
		return fmt.Errorf("ensure channel %s: %w", ChannelActive, err)
	}

	if err := p.backend.Cancel(SlotInactive); err != nil {
		return fmt.Errorf("cancel inactive notification: %w", err)
	}

	return p.backend.Post(Notification{
		Slot:      SlotActive,
		ChannelID: ChannelActive,
		Title:     p.texts.ActiveTitle,
		Body:      p.texts.ActiveBody,
		Silent:    true,
		Ongoing:   true,
	})
}

// DismissActive removes the ongoing "connected" notification.
func (p *Presenter) DismissActive() error {
	if err := p.backend.Cancel(SlotActive); err != nil {
		return fmt.Errorf("cancel active notification: %w", err)
	}
	return nil
}

// PresentInactive shows the "disconnected" notification. Empty title or body
// fall back to the configured defaults. The active slot is left alone.
func (p *Presenter) PresentInactive(title, body string) error {
	if err := p.backend.EnsureChannel(Channel{
		ID:         ChannelInactive,
		Name:       "Foreground Inactive",
		Importance: ImportanceDefault,
		ShowBadge:  true,
	}); err != nil {
		return fmt.Errorf("ensure channel %s: %w", ChannelInactive, err)
	}

	return p.backend.Post(Notification{
		Slot:      SlotInactive,
		ChannelID: ChannelInactive,
		Title:     orDefault(title, p.texts.InactiveTitle),
		Body:      orDefault(body, p.texts.InactiveBody),
	})
}

// PresentCustom shows an ad-hoc message in the custom slot.
func (p *Presenter) PresentCustom(title, body string, silent bool) error {
	importance := ImportanceDefault
	if silent {
		importance = ImportanceLow
	}
	if err := p.backend.EnsureChannel(Channel{
		ID:         ChannelCustom,
		Name:       "Notifications",
		Importance: importance,
		Silent:     silent,
		ShowBadge:  true,
	}); err != nil {
		return fmt.Errorf("ensure channel %s: %w", ChannelCustom, err)
	}

	return p.backend.Post(Notification{
		Slot:       SlotCustom,
		ChannelID:  ChannelCustom,
		Title:      orDefault(title, defaultCustomTitle),
		Body:       orDefault(body, defaultCustomBody),
		Silent:     silent,
		AutoCancel: true,
	})
}

// ActiveVisible reports whether the active notification is still shown.
func (p *Presenter) ActiveVisible() bool {
	return p.backend.Visible(SlotActive)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
