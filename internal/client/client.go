// Package client calls a running bridge over HTTP.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/user/vpn-bridge/internal/apps"
	"github.com/user/vpn-bridge/internal/bridge"
)

// RemoteError is a failure reported by the bridge.
type RemoteError struct {
	Status  int
	Code    string
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Code, e.Status, e.Message)
}

type callRequest struct {
	Method    string `json:"method"`
	Arguments any    `json:"arguments,omitempty"`
}

type callResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Client talks to one bridge.
type Client struct {
	http *resty.Client
}

// New creates a client for the bridge listening on addr, either host:port or
// a full URL.
func New(addr string) *Client {
	base := addr
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	return &Client{
		http: resty.New().
			SetBaseURL(strings.TrimSuffix(base, "/")).
			SetTimeout(10 * time.Second).
			SetHeader("Accept", "application/json"),
	}
}

// Call runs method on channel and returns the raw result.
func (c *Client) Call(ctx context.Context, channel, method string, args any) (json.RawMessage, error) {
	var out callResponse
	res, err := c.http.R().
		SetContext(ctx).
		SetBody(callRequest{Method: method, Arguments: args}).
		SetResult(&out).
		SetError(&out).
		Post("/v1/channels/" + channel)
	if err != nil {
		return nil, fmt.Errorf("failed to call %s: %w", method, err)
	}

	if res.IsError() || out.Error != nil {
		remote := &RemoteError{Status: res.StatusCode(), Code: bridge.CodeInternal, Message: res.Status()}
		if out.Error != nil {
			remote.Code = out.Error.Code
			remote.Message = out.Error.Message
		}
		return nil, remote
	}
	return out.Result, nil
}

func (c *Client) callBool(ctx context.Context, method string, args any) (bool, error) {
	raw, err := c.Call(ctx, bridge.ChannelVPNMethod, method, args)
	if err != nil {
		return false, err
	}
	var v bool
	if err := json.Unmarshal(raw, &v); err != nil {
		return false, fmt.Errorf("unexpected %s result %s: %w", method, raw, err)
	}
	return v, nil
}

// Start starts the VPN. A nil list keeps the bridge's stored exclusions.
func (c *Client) Start(ctx context.Context, disallowed []string) (bool, error) {
	var args any
	if disallowed != nil {
		args = bridge.StartVPN{DisallowedPackages: disallowed}
	}
	return c.callBool(ctx, bridge.MethodStartVPN, args)
}

// Stop stops the VPN.
func (c *Client) Stop(ctx context.Context) (bool, error) {
	return c.callBool(ctx, bridge.MethodStopVPN, nil)
}

// Status returns the recomputed VPN status.
func (c *Client) Status(ctx context.Context) (bool, error) {
	return c.callBool(ctx, bridge.MethodGetStatus, nil)
}

// InstalledApps lists the applications the bridge can exclude.
func (c *Client) InstalledApps(ctx context.Context) ([]apps.App, error) {
	raw, err := c.Call(ctx, bridge.ChannelPackageMethod, bridge.MethodGetInstalledApps, nil)
	if err != nil {
		return nil, err
	}
	var list []apps.App
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("decoding app list: %w", err)
	}
	return list, nil
}

// Healthy reports whether the bridge answers its health probe.
func (c *Client) Healthy(ctx context.Context) bool {
	res, err := c.http.R().SetContext(ctx).Get("/healthz")
	return err == nil && res.StatusCode() == http.StatusOK
}
