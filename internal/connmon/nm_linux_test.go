//go:build linux

package connmon

import (
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	props := func(iface string, keys ...string) *dbus.Signal {
		changed := map[string]dbus.Variant{}
		for _, k := range keys {
			changed[k] = dbus.MakeVariant(true)
		}
		return &dbus.Signal{
			Name: propertiesSignal,
			Body: []interface{}{iface, changed, []string{}},
		}
	}

	tests := []struct {
		name string
		sig  *dbus.Signal
		want string
	}{
		{"state changed", &dbus.Signal{Name: stateSignal, Body: []interface{}{uint32(70)}}, "connectivity"},
		{"wireless switch", props(nmInterface, "WirelessEnabled"), "airplane-mode"},
		{"wwan and connectivity", props(nmInterface, "Connectivity", "WwanEnabled"), "airplane-mode"},
		{"primary connection", props(nmInterface, "PrimaryConnection"), "connectivity"},
		{"unrelated property", props(nmInterface, "Version"), ""},
		{"other interface", props("org.freedesktop.NetworkManager.Device", "State"), ""},
		{"short body", &dbus.Signal{Name: propertiesSignal}, ""},
		{"other signal", &dbus.Signal{Name: "org.freedesktop.DBus.NameOwnerChanged"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classify(tt.sig))
		})
	}
}
