package mailbench

import (
	"context"
	"errors"
	"sync"

	"github.com/mailbench/client-go/internal/api"
)

// Role is an account role.
type Role string

// Account roles known to the backend.
const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Session is the client's authentication state. When Authenticated is
// false no other field carries meaning and no dependent component trusts
// it.
type Session struct {
	Authenticated bool
	Username      string
	Role          Role
}

// sessionStore owns the Session. The state machine has exactly two
// states, anonymous and authenticated; there is no visible
// "authenticating" state, so callers treat in-flight requests as still
// anonymous.
type sessionStore struct {
	mu      sync.RWMutex
	current Session
}

func (s *sessionStore) get() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

func (s *sessionStore) set(sess Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = sess
}

func (s *sessionStore) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = Session{}
}

// Session returns the current authentication state.
func (c *Client) Session() Session {
	return c.session.get()
}

// CheckIdentity resolves the current identity with the backend. On
// success the session becomes authenticated and config, inbox and quota
// are refreshed together before CheckIdentity returns. Failures of any
// kind (transport, parse, anonymous response) resolve to an anonymous
// session; no error escapes.
func (c *Client) CheckIdentity(ctx context.Context) Session {
	if err := c.checkClosed(); err != nil {
		return c.session.get()
	}

	identity, err := c.apiClient.Me(ctx)
	if err != nil || !identity.Authenticated {
		c.session.clear()
		return Session{}
	}

	sess := Session{
		Authenticated: true,
		Username:      identity.Username,
		Role:          Role(identity.Role),
	}
	c.session.set(sess)
	c.refreshAll(ctx)
	return sess
}

// Login authenticates with the backend. On success the session is
// replaced and config, inbox and quota are refreshed together before
// Login returns. A rejection (non-2xx) yields ErrInvalidCredentials and
// the session stays anonymous.
func (c *Client) Login(ctx context.Context, username, password string) error {
	if err := c.checkClosed(); err != nil {
		return err
	}

	identity, err := c.apiClient.Login(ctx, username, password)
	if err != nil {
		var apiErr *api.APIError
		if errors.As(err, &apiErr) {
			return ErrInvalidCredentials
		}
		return wrapError(err)
	}

	c.session.set(Session{
		Authenticated: true,
		Username:      identity.Username,
		Role:          Role(identity.Role),
	})
	c.refreshAll(ctx)
	return nil
}

// Register creates an account from a signup key and logs in. On failure
// the server-provided error message is surfaced when present, otherwise
// ErrRegistrationFailed; the session stays anonymous.
func (c *Client) Register(ctx context.Context, key, username, password string) error {
	if err := c.checkClosed(); err != nil {
		return err
	}

	identity, err := c.apiClient.Register(ctx, key, username, password)
	if err != nil {
		var apiErr *api.APIError
		if errors.As(err, &apiErr) && apiErr.Message == "" {
			return ErrRegistrationFailed
		}
		return wrapError(err)
	}

	c.session.set(Session{
		Authenticated: true,
		Username:      identity.Username,
		Role:          Role(identity.Role),
	})
	c.refreshAll(ctx)
	return nil
}

// Logout ends the session. The backend call is best-effort: session,
// inbox cache, edit overlay, selection, summary, quota and the
// admin-scoped caches are cleared unconditionally, whatever the backend
// answers. A closed client skips only the network call.
func (c *Client) Logout(ctx context.Context) {
	if c.checkClosed() == nil {
		_ = c.apiClient.Logout(ctx)
	}

	c.session.clear()
	c.emails.clear()
	c.summary.clear()
	c.keys.clear()
	c.users.clear()
}
