package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// Me returns the backend's view of the current session.
func (c *Client) Me(ctx context.Context) (*Identity, error) {
	var result Identity
	if err := c.do(ctx, http.MethodGet, "/api/me", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Login authenticates with username/password credentials. The backend
// sets the session cookie on success.
func (c *Client) Login(ctx context.Context, username, password string) (*Identity, error) {
	req := map[string]string{"username": username, "password": password}
	var result Identity
	if err := c.do(ctx, http.MethodPost, "/api/login", req, &result); err != nil {
		return nil, err
	}
	result.Authenticated = true
	return &result, nil
}

// Register creates an account from a signup key and logs the session in.
func (c *Client) Register(ctx context.Context, key, username, password string) (*Identity, error) {
	req := map[string]string{"key": key, "username": username, "password": password}
	var result Identity
	if err := c.do(ctx, http.MethodPost, "/api/register", req, &result); err != nil {
		return nil, err
	}
	result.Authenticated = true
	return &result, nil
}

// Logout ends the backend session.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/logout", nil, nil)
}

// GetQuota returns the remaining summarization allowance.
func (c *Client) GetQuota(ctx context.Context) (*Quota, error) {
	var result Quota
	if err := c.do(ctx, http.MethodGet, "/api/quota", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetConfig fetches the effective defense-pipeline configuration.
func (c *Client) GetConfig(ctx context.Context) (*Config, error) {
	var result Config
	if err := c.do(ctx, http.MethodGet, "/api/config", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// UpdateConfig pushes a full configuration. The echoed config in the
// result is canonical.
func (c *Client) UpdateConfig(ctx context.Context, cfg *Config) (*ConfigUpdateResult, error) {
	var result ConfigUpdateResult
	if err := c.do(ctx, http.MethodPost, "/api/config", cfg, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetEmails lists the inbox, optionally including the intentionally
// malicious test messages. The backend returns either a bare array or an
// object with an "emails" field; both shapes are accepted.
func (c *Client) GetEmails(ctx context.Context, includeMalicious bool) ([]Email, error) {
	path := fmt.Sprintf("/api/emails?include_malicious=%t", includeMalicious)

	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, path, nil, &raw); err != nil {
		return nil, err
	}

	var list []Email
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}

	var wrapped struct {
		Emails []Email `json:"emails"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, fmt.Errorf("decode email list: %w", err)
	}
	return wrapped.Emails, nil
}

// GetEmail fetches a single message by ID.
func (c *Client) GetEmail(ctx context.Context, id int) (*Email, error) {
	var result Email
	path := fmt.Sprintf("/api/emails/%d", id)
	if err := c.do(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Summarize submits the document batch for summarization.
func (c *Client) Summarize(ctx context.Context, documents []string) (*SummarizeResult, error) {
	req := map[string][]string{"documents": documents}
	var result SummarizeResult
	if err := c.do(ctx, http.MethodPost, "/api/summarize", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListSignupKeys lists all signup keys. Admin only.
func (c *Client) ListSignupKeys(ctx context.Context) ([]SignupKey, error) {
	var result []SignupKey
	if err := c.do(ctx, http.MethodGet, "/api/signup-keys", nil, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// CreateSignupKeys mints count new signup tokens. Admin only.
func (c *Client) CreateSignupKeys(ctx context.Context, count int) ([]string, error) {
	req := map[string]int{"count": count}
	var result struct {
		Tokens []string `json:"tokens"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/signup-keys", req, &result); err != nil {
		return nil, err
	}
	return result.Tokens, nil
}

// RevokeSignupKey revokes a signup token. Admin only.
func (c *Client) RevokeSignupKey(ctx context.Context, token string) error {
	req := map[string]string{"token": token}
	return c.do(ctx, http.MethodPost, "/api/signup-keys/revoke", req, nil)
}

// ListUsers lists all accounts. Admin only.
func (c *Client) ListUsers(ctx context.Context) ([]User, error) {
	var result []User
	if err := c.do(ctx, http.MethodGet, "/api/admin/users", nil, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// ResetUserPassword sets a new password for an account. Admin only.
func (c *Client) ResetUserPassword(ctx context.Context, username, password string) error {
	req := map[string]string{"username": username, "password": password}
	return c.do(ctx, http.MethodPost, "/api/admin/users/reset-password", req, nil)
}

// DeleteUser removes an account. Admin only.
func (c *Client) DeleteUser(ctx context.Context, username string) error {
	req := map[string]string{"username": username}
	return c.do(ctx, http.MethodPost, "/api/admin/users/delete", req, nil)
}

// GetTokenStats returns cumulative token usage per model.
func (c *Client) GetTokenStats(ctx context.Context) (map[string]TokenUsage, error) {
	var result map[string]TokenUsage
	if err := c.do(ctx, http.MethodGet, "/api/token_stats", nil, &result); err != nil {
		return nil, err
	}
	return result, nil
}
