package mailbench

import (
	"context"
	"sync"
	"time"
)

// SignupKey is one signup token. Provisional marks a freshly minted key
// that has not yet been confirmed by a listing; it carries the local mint
// time until the backend's record replaces it.
type SignupKey struct {
	Token       string
	Revoked     bool
	CreatedAt   time.Time
	UsedBy      string
	Provisional bool
}

// UserRecord is one account row from the admin user listing.
type UserRecord struct {
	ID       int
	Username string
	Role     Role
}

// Admin provides administrative operations: signup-key lifecycle and
// user management. Every method checks the session role before sending
// anything; a non-admin session gets ErrAdminRequired and no request is
// made.
type Admin interface {
	// ListSignupKeys fetches the signup keys and replaces the cached list.
	ListSignupKeys(ctx context.Context) ([]SignupKey, error)

	// GenerateSignupKeys mints count new keys. Count is clamped to
	// [1, 1000]. The new keys are prepended to the cached list as
	// provisional entries until the next listing.
	GenerateSignupKeys(ctx context.Context, count int) ([]string, error)

	// RevokeSignupKey revokes a key, then refreshes the list regardless
	// of the revocation outcome.
	RevokeSignupKey(ctx context.Context, token string) error

	// ListUsers fetches all accounts and replaces the cached list.
	ListUsers(ctx context.Context) ([]UserRecord, error)

	// ResetUserPassword sets a new password for an account. An empty
	// password is rejected locally with ErrEmptyPassword.
	ResetUserPassword(ctx context.Context, username, password string) error

	// DeleteUser removes an account and refreshes the user list on
	// success.
	DeleteUser(ctx context.Context, username string) error

	// SignupKeys returns the cached signup-key list.
	SignupKeys() []SignupKey

	// Users returns the cached user list.
	Users() []UserRecord
}

// keyStore caches the signup-key list for admin sessions.
type keyStore struct {
	mu   sync.Mutex
	keys []SignupKey
}

func (s *keyStore) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys = nil
}

// userStore caches the account list for admin sessions.
type userStore struct {
	mu    sync.Mutex
	users []UserRecord
}

func (s *userStore) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = nil
}

// Admin returns the administrative interface. The returned value shares
// the client's session; role checks happen per call, so it stays valid
// across logins.
func (c *Client) Admin() Admin {
	return &adminImpl{client: c}
}

type adminImpl struct {
	client *Client
}

// checkAdmin gates every admin operation. It never sends a request.
func (a *adminImpl) checkAdmin() error {
	if err := a.client.checkClosed(); err != nil {
		return err
	}
	sess := a.client.session.get()
	if !sess.Authenticated {
		return ErrNotAuthenticated
	}
	if sess.Role != RoleAdmin {
		return ErrAdminRequired
	}
	return nil
}

// Key timestamps arrive as naive ISO 8601 with fractional seconds and no
// offset ("2026-08-30T12:34:56.789012"); some deployments use a space
// separator or full RFC 3339. Unparseable values degrade to the zero time.
func parseKeyTime(s string) time.Time {
	for _, layout := range []string{
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		time.RFC3339,
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func (a *adminImpl) ListSignupKeys(ctx context.Context) ([]SignupKey, error) {
	if err := a.checkAdmin(); err != nil {
		return nil, err
	}

	raw, err := a.client.apiClient.ListSignupKeys(ctx)
	if err != nil {
		return nil, wrapError(err)
	}

	keys := make([]SignupKey, 0, len(raw))
	for _, k := range raw {
		keys = append(keys, SignupKey{
			Token:     k.Token,
			Revoked:   k.Revoked,
			CreatedAt: parseKeyTime(k.CreatedAt),
			UsedBy:    k.UsedBy,
		})
	}

	a.client.keys.mu.Lock()
	a.client.keys.keys = keys
	a.client.keys.mu.Unlock()

	return a.SignupKeys(), nil
}

func (a *adminImpl) GenerateSignupKeys(ctx context.Context, count int) ([]string, error) {
	if err := a.checkAdmin(); err != nil {
		return nil, err
	}

	if count < 1 {
		count = 1
	}
	if count > 1000 {
		count = 1000
	}

	tokens, err := a.client.apiClient.CreateSignupKeys(ctx, count)
	if err != nil {
		return nil, wrapError(err)
	}

	now := time.Now()
	fresh := make([]SignupKey, 0, len(tokens))
	for _, t := range tokens {
		fresh = append(fresh, SignupKey{
			Token:       t,
			CreatedAt:   now,
			Provisional: true,
		})
	}

	a.client.keys.mu.Lock()
	a.client.keys.keys = append(fresh, a.client.keys.keys...)
	a.client.keys.mu.Unlock()

	return tokens, nil
}

func (a *adminImpl) RevokeSignupKey(ctx context.Context, token string) error {
	if err := a.checkAdmin(); err != nil {
		return err
	}

	revokeErr := a.client.apiClient.RevokeSignupKey(ctx, token)

	// Refresh even when revocation failed so the cache reflects whatever
	// the backend actually did.
	if _, listErr := a.ListSignupKeys(ctx); revokeErr == nil && listErr != nil {
		return listErr
	}
	return wrapError(revokeErr)
}

func (a *adminImpl) ListUsers(ctx context.Context) ([]UserRecord, error) {
	if err := a.checkAdmin(); err != nil {
		return nil, err
	}

	raw, err := a.client.apiClient.ListUsers(ctx)
	if err != nil {
		return nil, wrapError(err)
	}

	users := make([]UserRecord, 0, len(raw))
	for _, u := range raw {
		users = append(users, UserRecord{
			ID:       u.ID,
			Username: u.Username,
			Role:     Role(u.Role),
		})
	}

	a.client.users.mu.Lock()
	a.client.users.users = users
	a.client.users.mu.Unlock()

	return a.Users(), nil
}

func (a *adminImpl) ResetUserPassword(ctx context.Context, username, password string) error {
	if err := a.checkAdmin(); err != nil {
		return err
	}
	if password == "" {
		return ErrEmptyPassword
	}

	if err := a.client.apiClient.ResetUserPassword(ctx, username, password); err != nil {
		return wrapError(err)
	}
	return nil
}

func (a *adminImpl) DeleteUser(ctx context.Context, username string) error {
	if err := a.checkAdmin(); err != nil {
		return err
	}

	if err := a.client.apiClient.DeleteUser(ctx, username); err != nil {
		return wrapError(err)
	}

	_, err := a.ListUsers(ctx)
	return err
}

func (a *adminImpl) SignupKeys() []SignupKey {
	a.client.keys.mu.Lock()
	defer a.client.keys.mu.Unlock()
	out := make([]SignupKey, len(a.client.keys.keys))
	copy(out, a.client.keys.keys)
	return out
}

func (a *adminImpl) Users() []UserRecord {
	a.client.users.mu.Lock()
	defer a.client.users.mu.Unlock()
	out := make([]UserRecord, len(a.client.users.users))
	copy(out, a.client.users.users)
	return out
}
