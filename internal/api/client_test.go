package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := New(WithBaseURL(server.URL), WithRetries(0))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return client
}

func TestDo_ErrorResponses(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		status     int
		body       string
		wantErr    error
		wantMsg    string
		wantQuota  bool
		quotaLimit int
	}{
		{
			name:    "401 maps to ErrAuthRequired",
			status:  http.StatusUnauthorized,
			body:    `{"error": "invalid_credentials"}`,
			wantErr: ErrAuthRequired,
			wantMsg: "invalid_credentials",
		},
		{
			name:    "403 maps to ErrForbidden",
			status:  http.StatusForbidden,
			body:    `{"error": "admin required"}`,
			wantErr: ErrForbidden,
			wantMsg: "admin required",
		},
		{
			name:    "404 maps to ErrNotFound",
			status:  http.StatusNotFound,
			body:    `{"error": "no such email"}`,
			wantErr: ErrNotFound,
			wantMsg: "no such email",
		},
		{
			name:       "429 quota_exceeded becomes QuotaError",
			status:     http.StatusTooManyRequests,
			body:       `{"error": "quota_exceeded", "limit": 10}`,
			wantQuota:  true,
			quotaLimit: 10,
		},
		{
			name:    "non-JSON body carried verbatim",
			status:  http.StatusBadGateway,
			body:    "upstream exploded",
			wantMsg: "upstream exploded",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))

			err := client.do(context.Background(), http.MethodGet, "/api/anything", nil, nil)
			if err == nil {
				t.Fatal("do() error = nil, want error")
			}

			if tt.wantQuota {
				var quotaErr *QuotaError
				if !errors.As(err, &quotaErr) {
					t.Fatalf("do() error = %T, want *QuotaError", err)
				}
				if quotaErr.Limit != tt.quotaLimit {
					t.Errorf("QuotaError.Limit = %d, want %d", quotaErr.Limit, tt.quotaLimit)
				}
				return
			}

			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("do() error = %T, want *APIError", err)
			}
			if apiErr.StatusCode != tt.status {
				t.Errorf("StatusCode = %d, want %d", apiErr.StatusCode, tt.status)
			}
			if apiErr.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", apiErr.Message, tt.wantMsg)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("errors.Is(%v, %v) = false", err, tt.wantErr)
			}
		})
	}
}

func TestDo_RetriesServerErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"ok": true}`))
	}))
	t.Cleanup(server.Close)

	client, err := New(WithBaseURL(server.URL), WithRetries(3))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	client.retry.BaseDelay = time.Millisecond
	client.retry.MaxDelay = time.Millisecond

	var result map[string]bool
	if err := client.do(context.Background(), http.MethodGet, "/api/thing", nil, &result); err != nil {
		t.Fatalf("do() error = %v", err)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("backend saw %d attempts, want 3", got)
	}
}

func TestDo_DoesNotRetryQuota(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": "quota_exceeded", "limit": 10}`))
	}))
	t.Cleanup(server.Close)

	client, err := New(WithBaseURL(server.URL), WithRetries(3))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	err = client.do(context.Background(), http.MethodPost, "/api/summarize", nil, nil)
	var quotaErr *QuotaError
	if !errors.As(err, &quotaErr) {
		t.Fatalf("do() error = %v, want *QuotaError", err)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("backend saw %d attempts for a quota response, want 1", got)
	}
}

func TestDo_SetsRequestHeaders(t *testing.T) {
	t.Parallel()

	var gotContentType, gotRequestID string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		gotRequestID = r.Header.Get("X-Request-ID")
		_, _ = w.Write([]byte(`{}`))
	}))

	if err := client.do(context.Background(), http.MethodPost, "/api/x", map[string]string{"a": "b"}, nil); err != nil {
		t.Fatalf("do() error = %v", err)
	}
	if gotContentType != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", gotContentType)
	}
	if gotRequestID == "" {
		t.Error("X-Request-ID header missing")
	}
}

func TestSessionToken_RoundTrip(t *testing.T) {
	t.Parallel()

	client, err := New(WithBaseURL("http://localhost:5001"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if got := client.SessionToken(); got != "" {
		t.Errorf("SessionToken() on fresh client = %q, want empty", got)
	}

	if err := client.SetSessionToken("abc123"); err != nil {
		t.Fatalf("SetSessionToken() error = %v", err)
	}
	if got := client.SessionToken(); got != "abc123" {
		t.Errorf("SessionToken() = %q, want abc123", got)
	}
}

func TestGetEmails_AcceptsBothShapes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
		want int
	}{
		{
			name: "bare array",
			body: `[{"id": 1, "sender": "a@x", "subject": "s", "body": "b"}]`,
			want: 1,
		},
		{
			name: "wrapped object",
			body: `{"emails": [{"id": 1}, {"id": 2}]}`,
			want: 2,
		},
		{
			name: "empty array",
			body: `[]`,
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			}))

			emails, err := client.GetEmails(context.Background(), false)
			if err != nil {
				t.Fatalf("GetEmails() error = %v", err)
			}
			if len(emails) != tt.want {
				t.Errorf("GetEmails() = %d emails, want %d", len(emails), tt.want)
			}
		})
	}
}

func TestLogin_MarksAuthenticated(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req["username"] != "alice" || req["password"] != "pw" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error": "invalid_credentials"}`))
			return
		}
		_, _ = w.Write([]byte(`{"username": "alice", "role": "user"}`))
	}))

	identity, err := client.Login(context.Background(), "alice", "pw")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if !identity.Authenticated {
		t.Error("Login() should mark the identity authenticated")
	}
	if identity.Username != "alice" || identity.Role != "user" {
		t.Errorf("Login() = %+v, want alice/user", identity)
	}
}

func TestModeValidity(t *testing.T) {
	t.Parallel()

	if !PromptEngineeringSpotlighting.Valid() {
		t.Error("system+spotlighting should be valid")
	}
	if PromptEngineeringMode("aggressive").Valid() {
		t.Error("unknown prompt engineering mode should be invalid")
	}
	if !InjectionFilterAWSGuardrails.Valid() {
		t.Error("aws-bedrock-guardrails should be valid")
	}
	if InjectionFilterMode("").Valid() {
		t.Error("empty injection filter mode should be invalid")
	}
	if !DelimiterFilterEscape.Valid() {
		t.Error("escape should be valid")
	}
	if DelimiterFilterMode("strip").Valid() {
		t.Error("unknown delimiter mode should be invalid")
	}
}
