// Package consent tracks the user's permission to run a VPN session.
package consent

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/user/vpn-bridge/internal/logger"
)

// ErrNoAuthority is returned by Request when no authorization service is
// reachable and the process is not privileged.
var ErrNoAuthority = errors.New("no authorization service available")

// checkTimeout bounds the non-interactive checks made by Prepared.
const checkTimeout = 2 * time.Second

// Result of an authorization check.
type Result struct {
	Authorized bool
	// Challenge is set when the user could obtain authorization by
	// authenticating.
	Challenge bool
}

// Authority answers authorization checks for this process.
type Authority interface {
	Check(ctx context.Context, interactive bool) (Result, error)
	// Changes fires whenever authorization rules or grants change.
	Changes() <-chan struct{}
}

// Consent implements the consent collaborator of the session manager.
type Consent struct {
	authority  Authority
	privileged func() bool

	mu      sync.Mutex
	granted bool
	revoked bool
}

// New creates a consent tracker. privileged may be nil; authority may be nil
// when no authorization service is reachable.
func New(authority Authority, privileged func() bool) *Consent {
	return &Consent{authority: authority, privileged: privileged}
}

// Prepared reports whether starting would proceed without a prompt.
func (c *Consent) Prepared() bool {
	c.mu.Lock()
	revoked, granted := c.revoked, c.granted
	c.mu.Unlock()

	if revoked {
		return false
	}
	if granted || c.isPrivileged() {
		return true
	}
	if c.authority == nil {
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
	defer cancel()
	r, err := c.authority.Check(ctx, false)
	if err != nil {
		logger.Debug("Authorization check failed: %v", err)
		return false
	}
	if r.Authorized {
		c.mu.Lock()
		c.granted = true
		c.mu.Unlock()
	}
	return r.Authorized
}

// Request asks the user for permission and blocks until they answer.
func (c *Consent) Request(ctx context.Context) (bool, error) {
	if c.authority == nil {
		if c.isPrivileged() {
			c.grant()
			return true, nil
		}
		return false, ErrNoAuthority
	}

	r, err := c.authority.Check(ctx, true)
	if err != nil {
		return false, err
	}
	if r.Authorized {
		c.grant()
	}
	return r.Authorized, nil
}

// Revoke withdraws any grant. Prepared reports false until the next
// successful Request.
func (c *Consent) Revoke() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.granted = false
	c.revoked = true
}

// Watch re-checks authorization whenever the authority reports a change.
// A definitive denial revokes consent and calls onRevoked. It returns when
// ctx is done.
func (c *Consent) Watch(ctx context.Context, onRevoked func()) {
	if c.authority == nil {
		return
	}
	changes := c.authority.Changes()
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-changes:
			if !ok {
				return
			}
			if c.recheck(ctx) {
				logger.Warning("VPN authorization withdrawn")
				onRevoked()
			}
		}
	}
}

// recheck reports whether a held grant has just been withdrawn.
func (c *Consent) recheck(ctx context.Context) bool {
	checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()
	r, err := c.authority.Check(checkCtx, false)
	if err != nil {
		logger.Debug("Authorization re-check failed: %v", err)
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if r.Authorized || r.Challenge {
		return false
	}
	held := !c.revoked && (c.granted || c.isPrivileged())
	c.granted = false
	c.revoked = true
	return held
}

func (c *Consent) grant() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.granted = true
	c.revoked = false
}

func (c *Consent) isPrivileged() bool {
	return c.privileged != nil && c.privileged()
}
