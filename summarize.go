package mailbench

import (
	"context"
	"fmt"
	"sync"

	"github.com/mailbench/client-go/internal/api"
)

// Quota reports the remaining summarization allowance for the session.
type Quota = api.Quota

// TokenUsage accumulates prompt and completion token counts per model.
type TokenUsage = api.TokenUsage

// summaryStore holds the displayed summary and the quota. The loading
// flag covers the single in-flight summarization; concurrent attempts
// are rejected rather than queued.
type summaryStore struct {
	mu         sync.Mutex
	summary    string
	hasSummary bool
	loading    bool
	quota      Quota
}

func (s *summaryStore) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summary = ""
	s.hasSummary = false
	s.loading = false
	s.quota = Quota{}
}

// Summarize submits the cached inbox for summarization and stores the
// result. Each document is the effective body of one cached email, in
// cache order, framed with its sender and subject. On success the quota
// is refreshed once after the summary is stored. Quota exhaustion comes
// back as a *QuotaExceededError and leaves any displayed summary
// untouched.
func (c *Client) Summarize(ctx context.Context) error {
	if err := c.checkClosed(); err != nil {
		return err
	}
	if !c.session.get().Authenticated {
		return ErrNotAuthenticated
	}

	c.summary.mu.Lock()
	if c.summary.loading {
		c.summary.mu.Unlock()
		return ErrSummarizeInProgress
	}
	c.summary.loading = true
	c.summary.mu.Unlock()

	defer func() {
		c.summary.mu.Lock()
		c.summary.loading = false
		c.summary.mu.Unlock()
	}()

	documents := c.buildDocuments()

	result, err := c.apiClient.Summarize(ctx, documents)
	if err != nil {
		return wrapError(err)
	}

	text := result.Summary
	if text == "" {
		text = result.Result
	}

	c.summary.mu.Lock()
	c.summary.summary = text
	c.summary.hasSummary = true
	c.summary.mu.Unlock()

	// The backend decrements the allowance server-side; one refresh
	// picks it up. Refresh failure keeps the previous quota value.
	_ = c.RefreshQuota(ctx)
	return nil
}

// buildDocuments renders each cached email into the document form the
// summarization pipeline expects, overlay bodies included.
func (c *Client) buildDocuments() []string {
	c.emails.mu.Lock()
	defer c.emails.mu.Unlock()

	documents := make([]string, 0, len(c.emails.emails))
	for _, e := range c.emails.emails {
		body := e.Body
		if edited, ok := c.emails.overlay[e.ID]; ok {
			body = edited
		}
		documents = append(documents, fmt.Sprintf("SENDER: %s\nSUBJECT: %s\n\n%s", e.Sender, e.Subject, body))
	}
	return documents
}

// Summary returns the displayed summary and whether one is present.
func (c *Client) Summary() (string, bool) {
	c.summary.mu.Lock()
	defer c.summary.mu.Unlock()
	return c.summary.summary, c.summary.hasSummary
}

// ClearSummary drops the displayed summary.
func (c *Client) ClearSummary() {
	c.summary.mu.Lock()
	defer c.summary.mu.Unlock()
	c.summary.summary = ""
	c.summary.hasSummary = false
}

// Summarizing reports whether a summarization is in flight.
func (c *Client) Summarizing() bool {
	c.summary.mu.Lock()
	defer c.summary.mu.Unlock()
	return c.summary.loading
}

// RefreshQuota fetches the remaining summarization allowance. On failure
// the previous value is retained.
func (c *Client) RefreshQuota(ctx context.Context) error {
	if err := c.checkClosed(); err != nil {
		return err
	}

	quota, err := c.apiClient.GetQuota(ctx)
	if err != nil {
		return wrapError(err)
	}

	c.summary.mu.Lock()
	c.summary.quota = *quota
	c.summary.mu.Unlock()
	return nil
}

// Quota returns the last fetched quota. The zero value means no quota
// has been fetched yet.
func (c *Client) Quota() Quota {
	c.summary.mu.Lock()
	defer c.summary.mu.Unlock()
	return c.summary.quota
}

// TokenStats returns cumulative token usage per model, straight from the
// backend; nothing is cached.
func (c *Client) TokenStats(ctx context.Context) (map[string]TokenUsage, error) {
	if err := c.checkClosed(); err != nil {
		return nil, err
	}
	stats, err := c.apiClient.GetTokenStats(ctx)
	if err != nil {
		return nil, wrapError(err)
	}
	return stats, nil
}
