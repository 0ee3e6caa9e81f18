package ui

// view is what the tray shows for one status reading.
type view struct {
	state         string // icon state
	status        string
	tooltip       string
	canConnect    bool
	canDisconnect bool
}

func present(running bool, err error) view {
	switch {
	case err != nil:
		return view{
			state:   "error",
			status:  "Status: bridge unreachable",
			tooltip: "VPN Bridge: bridge unreachable",
		}
	case running:
		return view{
			state:         "connected",
			status:        "Status: connected",
			tooltip:       "VPN Bridge: connected",
			canDisconnect: true,
		}
	default:
		return view{
			state:      "disconnected",
			status:     "Status: disconnected",
			tooltip:    "VPN Bridge: disconnected",
			canConnect: true,
		}
	}
}
