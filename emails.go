package mailbench

import (
	"context"
	"sync"

	"github.com/mailbench/client-go/internal/api"
)

// Email is a single message from the simulated inbox. The backend owns
// the content; the client holds a read-only cached copy per fetch. Local
// edits live in the overlay, never in the cached Email.
type Email = api.Email

// emailStore owns the fetched inbox, the edit overlay, the current
// selection and the edit-mode draft. The overlay maps email ID to an
// edited body; entries are created only by SaveEdit and survive any
// number of refetches. Fetches are sequenced: a response that resolves
// after a newer fetch began is discarded, so rapid toggling of the
// malicious-inclusion flag cannot leave stale inbox state on screen.
type emailStore struct {
	mu               sync.Mutex
	emails           []Email
	overlay          map[int]string
	selectedID       int
	hasSelection     bool
	editing          bool
	draft            string
	includeMalicious bool
	fetchSeq         uint64
}

func newEmailStore() *emailStore {
	return &emailStore{overlay: make(map[int]string)}
}

// begin registers a new fetch and returns its sequence number together
// with the malicious-inclusion flag to use.
func (s *emailStore) begin() (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetchSeq++
	return s.fetchSeq, s.includeMalicious
}

// apply installs a fetched inbox. It reports false and changes nothing
// when a newer fetch has started since seq was issued. On success the
// list is replaced wholesale; a selection whose ID disappeared is
// cleared along with any edit in progress. The overlay is untouched.
func (s *emailStore) apply(seq uint64, emails []Email) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.fetchSeq {
		return false
	}
	s.emails = emails
	if s.hasSelection {
		if _, ok := s.find(s.selectedID); !ok {
			s.hasSelection = false
			s.selectedID = 0
			s.editing = false
			s.draft = ""
		}
	}
	return true
}

// find returns the cached email with the given ID. Caller holds s.mu.
func (s *emailStore) find(id int) (Email, bool) {
	for _, e := range s.emails {
		if e.ID == id {
			return e, true
		}
	}
	return Email{}, false
}

func (s *emailStore) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emails = nil
	s.overlay = make(map[int]string)
	s.hasSelection = false
	s.selectedID = 0
	s.editing = false
	s.draft = ""
	s.includeMalicious = false
}

// FetchInbox fetches the inbox under the current malicious-inclusion
// flag and replaces the cached list wholesale. If the selected email's
// ID is absent from the new list the selection is cleared. The edit
// overlay is never touched by a fetch. Responses that lose the race
// against a newer fetch are discarded.
func (c *Client) FetchInbox(ctx context.Context) error {
	if err := c.checkClosed(); err != nil {
		return err
	}
	if !c.session.get().Authenticated {
		return ErrNotAuthenticated
	}

	seq, include := c.emails.begin()
	emails, err := c.apiClient.GetEmails(ctx, include)
	if err != nil {
		return wrapError(err)
	}
	c.emails.apply(seq, emails)
	return nil
}

// ToggleMaliciousInclusion flips the malicious-inclusion view filter and
// refetches the inbox. A failed refetch flips the flag back so it never
// disagrees with the displayed inbox.
func (c *Client) ToggleMaliciousInclusion(ctx context.Context) error {
	if err := c.checkClosed(); err != nil {
		return err
	}
	if !c.session.get().Authenticated {
		return ErrNotAuthenticated
	}

	c.emails.mu.Lock()
	c.emails.includeMalicious = !c.emails.includeMalicious
	c.emails.mu.Unlock()

	if err := c.FetchInbox(ctx); err != nil {
		c.emails.mu.Lock()
		c.emails.includeMalicious = !c.emails.includeMalicious
		c.emails.mu.Unlock()
		return err
	}
	return nil
}

// IncludesMalicious reports the malicious-inclusion view filter.
func (c *Client) IncludesMalicious() bool {
	c.emails.mu.Lock()
	defer c.emails.mu.Unlock()
	return c.emails.includeMalicious
}

// Emails returns a copy of the cached inbox in fetch order.
func (c *Client) Emails() []Email {
	c.emails.mu.Lock()
	defer c.emails.mu.Unlock()
	out := make([]Email, len(c.emails.emails))
	copy(out, c.emails.emails)
	return out
}

// GetEmail fetches a single message by ID directly from the backend
// without disturbing the cached inbox.
func (c *Client) GetEmail(ctx context.Context, id int) (*Email, error) {
	if err := c.checkClosed(); err != nil {
		return nil, err
	}
	email, err := c.apiClient.GetEmail(ctx, id)
	if err != nil {
		return nil, wrapError(err)
	}
	return email, nil
}

// Select makes the cached email with the given ID the current selection.
// Any edit in progress is cancelled and its draft discarded, without
// confirmation.
func (c *Client) Select(id int) error {
	c.emails.mu.Lock()
	defer c.emails.mu.Unlock()
	if _, ok := c.emails.find(id); !ok {
		return ErrEmailNotFound
	}
	c.emails.selectedID = id
	c.emails.hasSelection = true
	c.emails.editing = false
	c.emails.draft = ""
	return nil
}

// ClearSelection drops the selection, cancelling any edit in progress.
func (c *Client) ClearSelection() {
	c.emails.mu.Lock()
	defer c.emails.mu.Unlock()
	c.emails.hasSelection = false
	c.emails.selectedID = 0
	c.emails.editing = false
	c.emails.draft = ""
}

// Selected returns the currently selected email, if any.
func (c *Client) Selected() (Email, bool) {
	c.emails.mu.Lock()
	defer c.emails.mu.Unlock()
	if !c.emails.hasSelection {
		return Email{}, false
	}
	return c.emails.find(c.emails.selectedID)
}

// EffectiveBody returns the body used for display and summarization: the
// overlay entry for the email's ID when present, else the fetched body.
// Pure; no side effects.
func (c *Client) EffectiveBody(email Email) string {
	c.emails.mu.Lock()
	defer c.emails.mu.Unlock()
	if body, ok := c.emails.overlay[email.ID]; ok {
		return body
	}
	return email.Body
}

// IsEdited reports whether the email with the given ID has an overlay
// entry.
func (c *Client) IsEdited(id int) bool {
	c.emails.mu.Lock()
	defer c.emails.mu.Unlock()
	_, ok := c.emails.overlay[id]
	return ok
}

// BeginEdit enters edit mode on the current selection, seeding the draft
// with the selection's effective body.
func (c *Client) BeginEdit() error {
	c.emails.mu.Lock()
	defer c.emails.mu.Unlock()
	if !c.emails.hasSelection {
		return ErrNoSelection
	}
	email, ok := c.emails.find(c.emails.selectedID)
	if !ok {
		return ErrNoSelection
	}
	if body, edited := c.emails.overlay[email.ID]; edited {
		c.emails.draft = body
	} else {
		c.emails.draft = email.Body
	}
	c.emails.editing = true
	return nil
}

// SetDraft replaces the draft content. Only valid in edit mode.
func (c *Client) SetDraft(body string) error {
	c.emails.mu.Lock()
	defer c.emails.mu.Unlock()
	if !c.emails.editing {
		return ErrNotEditing
	}
	c.emails.draft = body
	return nil
}

// Draft returns the current draft content.
func (c *Client) Draft() string {
	c.emails.mu.Lock()
	defer c.emails.mu.Unlock()
	return c.emails.draft
}

// Editing reports whether an edit is in progress.
func (c *Client) Editing() bool {
	c.emails.mu.Lock()
	defer c.emails.mu.Unlock()
	return c.emails.editing
}

// SaveEdit commits the draft into the overlay under the selection's ID
// and leaves edit mode. The edit is purely local; the backend sees it
// only when a summarization request reads effective bodies.
func (c *Client) SaveEdit() error {
	c.emails.mu.Lock()
	defer c.emails.mu.Unlock()
	if !c.emails.editing {
		return ErrNotEditing
	}
	if !c.emails.hasSelection {
		return ErrNoSelection
	}
	c.emails.overlay[c.emails.selectedID] = c.emails.draft
	c.emails.editing = false
	c.emails.draft = ""
	return nil
}

// CancelEdit leaves edit mode and discards the draft. The overlay is
// unchanged.
func (c *Client) CancelEdit() {
	c.emails.mu.Lock()
	defer c.emails.mu.Unlock()
	c.emails.editing = false
	c.emails.draft = ""
}
