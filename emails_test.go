package mailbench

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
)

func inboxBackend(emails ...[]Email) (*testBackend, *int) {
	backend := newTestBackend()
	calls := new(int)
	backend.handle("/api/emails", func(w http.ResponseWriter, r *http.Request) {
		i := *calls
		if i >= len(emails) {
			i = len(emails) - 1
		}
		*calls++
		writeJSON(w, emails[i])
	})
	return backend, calls
}

func TestFetchInbox_RequiresAuth(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, newTestBackend())

	err := client.FetchInbox(context.Background())
	if !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("FetchInbox() error = %v, want ErrNotAuthenticated", err)
	}
}

func TestFetchInbox_ReplacesWholesale(t *testing.T) {
	t.Parallel()

	backend, _ := inboxBackend(
		[]Email{{ID: 1, Subject: "first"}, {ID: 2, Subject: "second"}},
		[]Email{{ID: 2, Subject: "second"}, {ID: 3, Subject: "third"}},
	)
	client := newTestClient(t, backend)
	loginAs(client, "alice", RoleUser)

	ctx := context.Background()
	if err := client.FetchInbox(ctx); err != nil {
		t.Fatalf("FetchInbox() error = %v", err)
	}
	if got := client.Emails(); len(got) != 2 || got[0].ID != 1 {
		t.Fatalf("Emails() = %+v, want IDs 1,2", got)
	}

	if err := client.FetchInbox(ctx); err != nil {
		t.Fatalf("FetchInbox() error = %v", err)
	}
	got := client.Emails()
	if len(got) != 2 || got[0].ID != 2 || got[1].ID != 3 {
		t.Errorf("Emails() after refetch = %+v, want IDs 2,3", got)
	}
}

func TestFetchInbox_SelectionClearedWhenIDDisappears(t *testing.T) {
	t.Parallel()

	backend, _ := inboxBackend(
		[]Email{{ID: 1}, {ID: 2}},
		[]Email{{ID: 2}},
	)
	client := newTestClient(t, backend)
	loginAs(client, "alice", RoleUser)

	ctx := context.Background()
	if err := client.FetchInbox(ctx); err != nil {
		t.Fatalf("FetchInbox() error = %v", err)
	}
	if err := client.Select(1); err != nil {
		t.Fatalf("Select() error = %v", err)
	}

	if err := client.FetchInbox(ctx); err != nil {
		t.Fatalf("FetchInbox() error = %v", err)
	}
	if _, ok := client.Selected(); ok {
		t.Error("selection should be cleared when its ID vanishes from a refetch")
	}
}

func TestFetchInbox_SelectionSurvivesWhenIDPresent(t *testing.T) {
	t.Parallel()

	backend, _ := inboxBackend(
		[]Email{{ID: 1}, {ID: 2}},
		[]Email{{ID: 2, Subject: "updated"}, {ID: 3}},
	)
	client := newTestClient(t, backend)
	loginAs(client, "alice", RoleUser)

	ctx := context.Background()
	if err := client.FetchInbox(ctx); err != nil {
		t.Fatalf("FetchInbox() error = %v", err)
	}
	if err := client.Select(2); err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if err := client.FetchInbox(ctx); err != nil {
		t.Fatalf("FetchInbox() error = %v", err)
	}

	selected, ok := client.Selected()
	if !ok || selected.ID != 2 || selected.Subject != "updated" {
		t.Errorf("Selected() = %+v, %v; want refreshed email 2", selected, ok)
	}
}

func TestStaleFetchDiscarded(t *testing.T) {
	t.Parallel()

	store := newEmailStore()

	seqOld, _ := store.begin()
	seqNew, _ := store.begin()

	if !store.apply(seqNew, []Email{{ID: 10}}) {
		t.Fatal("apply(newest) = false, want true")
	}
	if store.apply(seqOld, []Email{{ID: 99}}) {
		t.Error("apply(stale) = true, want discarded")
	}
	if len(store.emails) != 1 || store.emails[0].ID != 10 {
		t.Errorf("store.emails = %+v, want the newest fetch only", store.emails)
	}
}

func TestOverlay_SurvivesRefetch(t *testing.T) {
	t.Parallel()

	backend, _ := inboxBackend(
		[]Email{{ID: 1, Body: "original"}},
		[]Email{{ID: 1, Body: "original v2"}},
	)
	client := newTestClient(t, backend)
	loginAs(client, "alice", RoleUser)

	ctx := context.Background()
	if err := client.FetchInbox(ctx); err != nil {
		t.Fatalf("FetchInbox() error = %v", err)
	}
	if err := client.Select(1); err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if err := client.BeginEdit(); err != nil {
		t.Fatalf("BeginEdit() error = %v", err)
	}
	if err := client.SetDraft("edited locally"); err != nil {
		t.Fatalf("SetDraft() error = %v", err)
	}
	if err := client.SaveEdit(); err != nil {
		t.Fatalf("SaveEdit() error = %v", err)
	}

	if err := client.FetchInbox(ctx); err != nil {
		t.Fatalf("FetchInbox() error = %v", err)
	}

	email := client.Emails()[0]
	if email.Body != "original v2" {
		t.Errorf("cached body = %q, want backend copy untouched by the edit", email.Body)
	}
	if got := client.EffectiveBody(email); got != "edited locally" {
		t.Errorf("EffectiveBody() = %q, want the overlay to win over the refetched body", got)
	}
	if !client.IsEdited(1) {
		t.Error("IsEdited(1) = false after SaveEdit")
	}
}

func TestEdit_Lifecycle(t *testing.T) {
	t.Parallel()

	backend, _ := inboxBackend([]Email{{ID: 1, Body: "original"}})
	client := newTestClient(t, backend)
	loginAs(client, "alice", RoleUser)

	ctx := context.Background()
	if err := client.FetchInbox(ctx); err != nil {
		t.Fatalf("FetchInbox() error = %v", err)
	}

	if err := client.BeginEdit(); !errors.Is(err, ErrNoSelection) {
		t.Errorf("BeginEdit() without selection error = %v, want ErrNoSelection", err)
	}
	if err := client.SetDraft("x"); !errors.Is(err, ErrNotEditing) {
		t.Errorf("SetDraft() outside edit mode error = %v, want ErrNotEditing", err)
	}
	if err := client.SaveEdit(); !errors.Is(err, ErrNotEditing) {
		t.Errorf("SaveEdit() outside edit mode error = %v, want ErrNotEditing", err)
	}

	if err := client.Select(1); err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if err := client.BeginEdit(); err != nil {
		t.Fatalf("BeginEdit() error = %v", err)
	}
	if got := client.Draft(); got != "original" {
		t.Errorf("Draft() = %q, want seeded from effective body", got)
	}

	// Cancel discards the draft without touching the overlay.
	if err := client.SetDraft("scratch"); err != nil {
		t.Fatalf("SetDraft() error = %v", err)
	}
	client.CancelEdit()
	if client.Editing() {
		t.Error("Editing() = true after CancelEdit")
	}
	if client.IsEdited(1) {
		t.Error("CancelEdit should not create an overlay entry")
	}

	// A second edit starts from the original again.
	if err := client.BeginEdit(); err != nil {
		t.Fatalf("BeginEdit() error = %v", err)
	}
	if got := client.Draft(); got != "original" {
		t.Errorf("Draft() after cancel = %q, want %q", got, "original")
	}
}

func TestSelect_CancelsEditInProgress(t *testing.T) {
	t.Parallel()

	backend, _ := inboxBackend([]Email{{ID: 1, Body: "a"}, {ID: 2, Body: "b"}})
	client := newTestClient(t, backend)
	loginAs(client, "alice", RoleUser)

	if err := client.FetchInbox(context.Background()); err != nil {
		t.Fatalf("FetchInbox() error = %v", err)
	}
	if err := client.Select(1); err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if err := client.BeginEdit(); err != nil {
		t.Fatalf("BeginEdit() error = %v", err)
	}
	if err := client.SetDraft("half-finished"); err != nil {
		t.Fatalf("SetDraft() error = %v", err)
	}

	if err := client.Select(2); err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if client.Editing() {
		t.Error("switching selection should cancel the edit")
	}
	if client.IsEdited(1) {
		t.Error("cancelled edit must not leave an overlay entry")
	}
}

func TestSelect_UnknownID(t *testing.T) {
	t.Parallel()

	backend, _ := inboxBackend([]Email{{ID: 1}})
	client := newTestClient(t, backend)
	loginAs(client, "alice", RoleUser)

	if err := client.FetchInbox(context.Background()); err != nil {
		t.Fatalf("FetchInbox() error = %v", err)
	}
	if err := client.Select(42); !errors.Is(err, ErrEmailNotFound) {
		t.Errorf("Select(42) error = %v, want ErrEmailNotFound", err)
	}
}

func TestToggleMaliciousInclusion(t *testing.T) {
	t.Parallel()

	var lastQuery string
	backend := newTestBackend()
	backend.handle("/api/emails", func(w http.ResponseWriter, r *http.Request) {
		lastQuery = r.URL.Query().Get("include_malicious")
		writeJSON(w, []Email{})
	})
	client := newTestClient(t, backend)
	loginAs(client, "alice", RoleUser)

	ctx := context.Background()
	if err := client.FetchInbox(ctx); err != nil {
		t.Fatalf("FetchInbox() error = %v", err)
	}
	if lastQuery != "false" {
		t.Errorf("include_malicious = %q, want %q", lastQuery, "false")
	}

	if err := client.ToggleMaliciousInclusion(ctx); err != nil {
		t.Fatalf("ToggleMaliciousInclusion() error = %v", err)
	}
	if lastQuery != "true" {
		t.Errorf("include_malicious after toggle = %q, want %q", lastQuery, "true")
	}
	if !client.IncludesMalicious() {
		t.Error("IncludesMalicious() = false after toggle")
	}
}

func TestToggleMaliciousInclusion_RevertsOnFailedFetch(t *testing.T) {
	t.Parallel()

	var (
		mu   sync.Mutex
		fail bool
	)
	backend := newTestBackend()
	backend.handle("/api/emails", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		f := fail
		mu.Unlock()
		if f {
			w.WriteHeader(http.StatusInternalServerError)
			writeJSON(w, map[string]string{"error": "boom"})
			return
		}
		writeJSON(w, []Email{})
	})
	client := newTestClient(t, backend)
	loginAs(client, "alice", RoleUser)

	ctx := context.Background()
	if err := client.FetchInbox(ctx); err != nil {
		t.Fatalf("FetchInbox() error = %v", err)
	}

	mu.Lock()
	fail = true
	mu.Unlock()

	if err := client.ToggleMaliciousInclusion(ctx); err == nil {
		t.Fatal("ToggleMaliciousInclusion() error = nil, want error")
	}
	if client.IncludesMalicious() {
		t.Error("flag should revert when the refetch fails")
	}
}

func TestToggleMaliciousInclusion_RequiresAuth(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, newTestBackend())

	err := client.ToggleMaliciousInclusion(context.Background())
	if !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("ToggleMaliciousInclusion() error = %v, want ErrNotAuthenticated", err)
	}
	if client.IncludesMalicious() {
		t.Error("flag should not flip when the auth check fails")
	}
}
