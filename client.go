package mailbench

import (
	"context"
	"sync"

	"github.com/mailbench/client-go/internal/api"
)

// Client is the mailbench workbench client. It owns every piece of
// per-session state: the authentication session, the inbox cache with its
// edit overlay, the defense-pipeline configuration, the displayed summary
// and quota, and the admin-scoped caches. Each piece lives in its own
// container guarded by its own mutex; all mutations originate from direct
// method calls, never from background goroutines.
type Client struct {
	apiClient *api.Client

	mu     sync.RWMutex
	closed bool

	session *sessionStore
	emails  *emailStore
	config  *configStore
	summary *summaryStore
	keys    *keyStore
	users   *userStore
}

// New creates a new workbench client. No network traffic is generated;
// the session starts anonymous until CheckIdentity, Login or Register
// resolves it.
func New(opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		baseURL: defaultBaseURL,
		timeout: defaultTimeout,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	apiOpts := []api.Option{
		api.WithBaseURL(cfg.baseURL),
	}
	if cfg.timeout > 0 {
		apiOpts = append(apiOpts, api.WithTimeout(cfg.timeout))
	}
	if cfg.retries > 0 {
		apiOpts = append(apiOpts, api.WithRetries(cfg.retries))
	}
	if len(cfg.retryOn) > 0 {
		apiOpts = append(apiOpts, api.WithRetryOn(cfg.retryOn))
	}

	apiClient, err := api.New(apiOpts...)
	if err != nil {
		return nil, err
	}

	if cfg.httpClient != nil {
		apiClient.SetHTTPClient(cfg.httpClient)
	}

	if cfg.sessionToken != "" {
		if err := apiClient.SetSessionToken(cfg.sessionToken); err != nil {
			return nil, err
		}
	}

	return &Client{
		apiClient: apiClient,
		session:   &sessionStore{},
		emails:    newEmailStore(),
		config:    &configStore{},
		summary:   &summaryStore{},
		keys:      &keyStore{},
		users:     &userStore{},
	}, nil
}

// checkClosed returns ErrClientClosed if the client has been closed.
func (c *Client) checkClosed() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrClientClosed
	}
	return nil
}

// SessionToken returns the current backend session token, or "" when no
// session is held. Callers may persist it and resume the session later
// via WithSessionToken.
func (c *Client) SessionToken() string {
	return c.apiClient.SessionToken()
}

// refreshAll refreshes config, inbox and quota together and waits for all
// three before returning. Individual failures are swallowed: each fetch
// degrades to its safe default (previous config retained, empty inbox,
// zero quota) per the error policy.
func (c *Client) refreshAll(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		_ = c.FetchConfig(ctx)
	}()
	go func() {
		defer wg.Done()
		_ = c.FetchInbox(ctx)
	}()
	go func() {
		defer wg.Done()
		_ = c.RefreshQuota(ctx)
	}()
	wg.Wait()
}

// Close closes the client. Subsequent operations fail with ErrClientClosed.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}
