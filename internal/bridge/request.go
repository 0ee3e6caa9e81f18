// Package bridge decodes channel requests and dispatches them to the session
// manager, the notification presenter and the app catalog.
package bridge

import (
	"encoding/json"
	"fmt"
)

// Channel names shared with the UI.
const (
	ChannelVPNMethod     = "com.vpnmanager.anton/vpn_method"
	ChannelVPNEvents     = "com.vpnmanager.anton/vpn_events"
	ChannelPackageMethod = "com.vpnmanager.anton/package_method"
	ChannelPackageEvents = "com.vpnmanager.anton/package_events"
)

// Method names.
const (
	MethodStartVPN              = "startVpn"
	MethodStopVPN               = "stopVpn"
	MethodGetStatus             = "getStatus"
	MethodSetDisallowedPackages = "setDisallowedPackages"
	MethodCustomNotification    = "customNotification"
	MethodGetInstalledApps      = "getInstalledApps"
)

// Request is one decoded channel call.
type Request interface {
	Channel() string
	isRequest()
}

// StartVPN starts the session. A nil list keeps the stored exclusions.
type StartVPN struct {
	DisallowedPackages []string `json:"disallowedPackages"`
}

type StopVPN struct{}

type GetStatus struct{}

// SetDisallowedPackages replaces the exclusions used by the next start.
type SetDisallowedPackages struct {
	Packages []string `json:"packages"`
}

// CustomNotification posts an ad-hoc message.
type CustomNotification struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Silent  bool   `json:"silent"`
}

type GetInstalledApps struct{}

func (StartVPN) Channel() string              { return ChannelVPNMethod }
func (StopVPN) Channel() string               { return ChannelVPNMethod }
func (GetStatus) Channel() string             { return ChannelVPNMethod }
func (SetDisallowedPackages) Channel() string { return ChannelVPNMethod }
func (CustomNotification) Channel() string    { return ChannelVPNMethod }
func (GetInstalledApps) Channel() string      { return ChannelPackageMethod }

func (StartVPN) isRequest()              {}
func (StopVPN) isRequest()               {}
func (GetStatus) isRequest()             {}
func (SetDisallowedPackages) isRequest() {}
func (CustomNotification) isRequest()    {}
func (GetInstalledApps) isRequest()      {}

// Decode parses the arguments of method. Unknown methods return
// ErrNotImplemented.
func Decode(method string, args json.RawMessage) (Request, error) {
	switch method {
	case MethodStartVPN:
		var r StartVPN
		if err := unmarshal(method, args, &r); err != nil {
			return nil, err
		}
		return r, nil
	case MethodStopVPN:
		return StopVPN{}, nil
	case MethodGetStatus:
		return GetStatus{}, nil
	case MethodSetDisallowedPackages:
		var r SetDisallowedPackages
		if err := unmarshal(method, args, &r); err != nil {
			return nil, err
		}
		return r, nil
	case MethodCustomNotification:
		var r CustomNotification
		if err := unmarshal(method, args, &r); err != nil {
			return nil, err
		}
		return r, nil
	case MethodGetInstalledApps:
		return GetInstalledApps{}, nil
	default:
		return nil, fmt.Errorf("%s: %w", method, ErrNotImplemented)
	}
}

func unmarshal(method string, args json.RawMessage, v any) error {
	if len(args) == 0 || string(args) == "null" {
		return nil
	}
	if err := json.Unmarshal(args, v); err != nil {
		return &ArgumentError{Method: method, Err: err}
	}
	return nil
}
