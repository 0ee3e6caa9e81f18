package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/vpn-bridge/internal/apps"
)

type fakeVPN struct {
	mu         sync.Mutex
	started    [][]string
	stops      int
	stored     []string
	status     bool
	startErr   error
	subscribed chan bool
}

func (f *fakeVPN) Start(ctx context.Context, disallowed []string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = append(f.started, disallowed)
	if f.startErr != nil {
		return false, f.startErr
	}
	f.status = true
	return true, nil
}

func (f *fakeVPN) Stop(ctx context.Context) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	f.status = false
	return true
}

func (f *fakeVPN) Status() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

func (f *fakeVPN) SetDisallowedPackages(packages []string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stored = packages
	return true
}

func (f *fakeVPN) Subscribe() (<-chan bool, func()) {
	return f.subscribed, func() {}
}

type fakeNotifier struct {
	title, body string
	silent      bool
	err         error
}

func (n *fakeNotifier) PresentCustom(title, body string, silent bool) error {
	n.title, n.body, n.silent = title, body, silent
	return n.err
}

type fakeCatalog struct {
	list []apps.App
	err  error
}

func (c fakeCatalog) List() ([]apps.App, error) { return c.list, c.err }

func newDispatcher() (*Dispatcher, *fakeVPN, *fakeNotifier, *Hub[apps.Event]) {
	vpn := &fakeVPN{subscribed: make(chan bool, 4)}
	n := &fakeNotifier{}
	hub := NewHub[apps.Event]()
	catalog := fakeCatalog{list: []apps.App{{AppName: "Browser", PackageName: "browser"}}}
	return NewDispatcher(vpn, n, catalog, hub), vpn, n, hub
}

func TestDecode(t *testing.T) {
	tests := []struct {
		method string
		args   string
		want   Request
	}{
		{MethodStartVPN, `{"disallowedPackages":["a","b"]}`, StartVPN{DisallowedPackages: []string{"a", "b"}}},
		{MethodStartVPN, ``, StartVPN{}},
		{MethodStopVPN, `{}`, StopVPN{}},
		{MethodGetStatus, `null`, GetStatus{}},
		{MethodSetDisallowedPackages, `{"packages":["x"]}`, SetDisallowedPackages{Packages: []string{"x"}}},
		{MethodCustomNotification, `{"title":"T","content":"C","silent":true}`, CustomNotification{Title: "T", Content: "C", Silent: true}},
		{MethodGetInstalledApps, `{}`, GetInstalledApps{}},
	}
	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			got, err := Decode(tt.method, json.RawMessage(tt.args))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	_, err := Decode("reboot", nil)
	assert.ErrorIs(t, err, ErrNotImplemented)
	assert.Equal(t, CodeNotImplemented, Code(err))

	_, err = Decode(MethodSetDisallowedPackages, json.RawMessage(`{"packages":"nope"}`))
	var argErr *ArgumentError
	require.ErrorAs(t, err, &argErr)
	assert.Equal(t, MethodSetDisallowedPackages, argErr.Method)
	assert.Equal(t, CodeBadArguments, Code(err))

	assert.Equal(t, CodeInternal, Code(errors.New("boom")))
}

func TestCallVPNMethods(t *testing.T) {
	d, vpn, n, _ := newDispatcher()
	ctx := context.Background()

	res, err := d.Call(ctx, ChannelVPNMethod, MethodStartVPN, json.RawMessage(`{"disallowedPackages":["browser"]}`))
	require.NoError(t, err)
	assert.Equal(t, true, res)
	assert.Equal(t, [][]string{{"browser"}}, vpn.started)

	res, err = d.Call(ctx, ChannelVPNMethod, MethodGetStatus, nil)
	require.NoError(t, err)
	assert.Equal(t, true, res)

	res, err = d.Call(ctx, ChannelVPNMethod, MethodStopVPN, nil)
	require.NoError(t, err)
	assert.Equal(t, true, res)
	assert.Equal(t, 1, vpn.stops)

	res, err = d.Call(ctx, ChannelVPNMethod, MethodSetDisallowedPackages, nil)
	require.NoError(t, err)
	assert.Equal(t, true, res)
	assert.NotNil(t, vpn.stored)
	assert.Empty(t, vpn.stored)

	n.err = errors.New("no notification daemon")
	res, err = d.Call(ctx, ChannelVPNMethod, MethodCustomNotification, json.RawMessage(`{"title":"Hi"}`))
	require.NoError(t, err)
	assert.Equal(t, true, res)
	assert.Equal(t, "Hi", n.title)
	assert.Empty(t, n.body)
}

func TestCallStartFailure(t *testing.T) {
	d, vpn, _, _ := newDispatcher()
	vpn.startErr = errors.New("establish failed")

	_, err := d.Call(context.Background(), ChannelVPNMethod, MethodStartVPN, nil)
	require.Error(t, err)
	assert.Equal(t, CodeInternal, Code(err))
	assert.Equal(t, [][]string{nil}, vpn.started)
}

func TestCallRouting(t *testing.T) {
	d, _, _, _ := newDispatcher()
	ctx := context.Background()

	res, err := d.Call(ctx, ChannelPackageMethod, MethodGetInstalledApps, nil)
	require.NoError(t, err)
	assert.Len(t, res, 1)

	_, err = d.Call(ctx, ChannelPackageMethod, MethodStartVPN, nil)
	assert.ErrorIs(t, err, ErrNotImplemented)

	_, err = d.Call(ctx, ChannelVPNMethod, "openSettings", nil)
	assert.ErrorIs(t, err, ErrNotImplemented)

	_, err = d.Call(ctx, "com.example/other", MethodGetStatus, nil)
	assert.ErrorIs(t, err, ErrUnknownChannel)
}

func TestSubscribePackageEvents(t *testing.T) {
	d, _, _, hub := newDispatcher()

	events, stop, err := d.Subscribe(ChannelPackageEvents)
	require.NoError(t, err)
	defer stop()

	hub.Publish(apps.Event{Type: apps.EventRemoved, PackageName: "browser"})
	select {
	case v := <-events:
		assert.Equal(t, apps.Event{Type: apps.EventRemoved, PackageName: "browser"}, v)
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
	}

	_, _, err = d.Subscribe("nope")
	assert.ErrorIs(t, err, ErrUnknownChannel)
}

func TestSubscribeVPNEventsStop(t *testing.T) {
	d, vpn, _, _ := newDispatcher()

	events, stop, err := d.Subscribe(ChannelVPNEvents)
	require.NoError(t, err)

	vpn.subscribed <- true
	assert.Equal(t, true, <-events)

	stop()
	stop()
	require.Eventually(t, func() bool {
		select {
		case _, ok := <-events:
			return !ok
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond)
}

func TestHubUnsubscribeAndClose(t *testing.T) {
	hub := NewHub[int]()
	a, cancelA := hub.Subscribe()
	b, _ := hub.Subscribe()

	cancelA()
	cancelA()
	_, ok := <-a
	assert.False(t, ok)

	hub.Publish(1)
	assert.Equal(t, 1, <-b)

	hub.Close()
	_, ok = <-b
	assert.False(t, ok)

	c, _ := hub.Subscribe()
	_, ok = <-c
	assert.False(t, ok)
}
