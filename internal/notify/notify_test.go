package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresentActiveCancelsInactive(t *testing.T) {
	b := NewLogBackend()
	p := NewPresenter(b, Texts{})

	require.NoError(t, p.PresentInactive("", ""))
	require.True(t, b.Visible(SlotInactive))

	require.NoError(t, p.PresentActive())
	assert.False(t, b.Visible(SlotInactive))
	assert.True(t, b.Visible(SlotActive))
	assert.True(t, p.ActiveVisible())

	n, ok := b.Shown(SlotActive)
	require.True(t, ok)
	assert.Equal(t, "VPN Active", n.Title)
	assert.Equal(t, "Your VPN is running in the background.", n.Body)
	assert.True(t, n.Ongoing)
	assert.True(t, n.Silent)
}

func TestPresentInactiveLeavesActive(t *testing.T) {
	b := NewLogBackend()
	p := NewPresenter(b, Texts{})

	require.NoError(t, p.PresentActive())
	require.NoError(t, p.PresentInactive("", ""))

	assert.True(t, b.Visible(SlotActive))
	n, ok := b.Shown(SlotInactive)
	require.True(t, ok)
	assert.Equal(t, "VPN disconnected", n.Title)
	assert.Equal(t, "Your VPN connection has been stopped.", n.Body)
	assert.False(t, n.Ongoing)
}

func TestDismissActiveLeavesInactive(t *testing.T) {
	b := NewLogBackend()
	p := NewPresenter(b, Texts{})

	require.NoError(t, p.PresentActive())
	require.NoError(t, p.DismissActive())
	require.NoError(t, p.PresentInactive("", ""))

	assert.False(t, p.ActiveVisible())
	assert.True(t, b.Visible(SlotInactive))

	require.NoError(t, p.DismissActive(), "dismissing an empty slot")
}

func TestPresentInactiveOverrides(t *testing.T) {
	b := NewLogBackend()
	p := NewPresenter(b, Texts{InactiveTitle: "Offline"})

	require.NoError(t, p.PresentInactive("", "custom body"))
	n, _ := b.Shown(SlotInactive)
	assert.Equal(t, "Offline", n.Title)
	assert.Equal(t, "custom body", n.Body)

	require.NoError(t, p.PresentInactive("Stopped", ""))
	n, _ = b.Shown(SlotInactive)
	assert.Equal(t, "Stopped", n.Title)
	assert.Equal(t, "Your VPN connection has been stopped.", n.Body)
}

func TestPresentCustom(t *testing.T) {
	tests := []struct {
		name       string
		title      string
		body       string
		silent     bool
		wantTitle  string
		wantBody   string
		importance Importance
	}{
		{"loud", "Update", "New version", false, "Update", "New version", ImportanceDefault},
		{"silent", "Sync", "Done", true, "Sync", "Done", ImportanceLow},
		{"defaults", "", "", false, "Notice", "Message", ImportanceDefault},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewLogBackend()
			p := NewPresenter(b, Texts{})

			require.NoError(t, p.PresentCustom(tt.title, tt.body, tt.silent))

			n, ok := b.Shown(SlotCustom)
			require.True(t, ok)
			assert.Equal(t, tt.wantTitle, n.Title)
			assert.Equal(t, tt.wantBody, n.Body)
			assert.Equal(t, tt.silent, n.Silent)
			assert.True(t, n.AutoCancel)

			ch, ok := b.Channel(ChannelCustom)
			require.True(t, ok)
			assert.Equal(t, "Notifications", ch.Name)
			assert.Equal(t, tt.importance, ch.Importance)
		})
	}
}

func TestChannelsAreRegistered(t *testing.T) {
	b := NewLogBackend()
	p := NewPresenter(b, Texts{})

	require.NoError(t, p.PresentActive())
	require.NoError(t, p.PresentActive())
	require.NoError(t, p.PresentInactive("", ""))

	active, ok := b.Channel(ChannelActive)
	require.True(t, ok)
	assert.Equal(t, "VPN Status", active.Name)
	assert.Equal(t, ImportanceLow, active.Importance)
	assert.True(t, active.Silent)
	assert.False(t, active.ShowBadge)

	inactive, ok := b.Channel(ChannelInactive)
	require.True(t, ok)
	assert.Equal(t, "Foreground Inactive", inactive.Name)
	assert.Equal(t, ImportanceDefault, inactive.Importance)
}

func TestActiveVisibleAfterDismiss(t *testing.T) {
	b := NewLogBackend()
	p := NewPresenter(b, Texts{})

	require.NoError(t, p.PresentActive())
	require.NoError(t, b.Cancel(SlotActive))
	assert.False(t, p.ActiveVisible())
}

func TestBuildHints(t *testing.T) {
	hints := buildHints(
		Channel{ID: ChannelActive, Name: "VPN Status", Importance: ImportanceLow, Silent: true},
		Notification{Slot: SlotActive, Ongoing: true},
	)
	assert.Equal(t, urgencyLow, hints["urgency"].Value())
	assert.Equal(t, true, hints["suppress-sound"].Value())
	assert.Equal(t, true, hints["resident"].Value())

	hints = buildHints(
		Channel{ID: ChannelInactive, Importance: ImportanceDefault},
		Notification{Slot: SlotInactive},
	)
	assert.Equal(t, urgencyNormal, hints["urgency"].Value())
	assert.NotContains(t, hints, "suppress-sound")
	assert.NotContains(t, hints, "resident")
}
