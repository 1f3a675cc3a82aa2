package mailbench

import (
	"errors"
	"fmt"

	"github.com/mailbench/client-go/internal/api"
)

// Sentinel errors for errors.Is() checks
var (
	// ErrClientClosed is returned when operations are attempted on a closed client.
	ErrClientClosed = errors.New("client has been closed")

	// ErrNotAuthenticated is returned when an operation requires a logged-in session.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrInvalidCredentials is returned when the backend rejects a login.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrRegistrationFailed is returned when registration fails without a
	// server-provided reason.
	ErrRegistrationFailed = errors.New("registration failed")

	// ErrAdminRequired is returned when a non-admin session attempts an
	// administrative operation. No request is sent in that case.
	ErrAdminRequired = errors.New("admin role required")

	// ErrEmailNotFound is returned when an email ID is not in the cached inbox.
	ErrEmailNotFound = errors.New("email not found")

	// ErrNoSelection is returned when an edit operation needs a selected email.
	ErrNoSelection = errors.New("no email selected")

	// ErrNotEditing is returned when a draft operation is attempted outside
	// edit mode.
	ErrNotEditing = errors.New("no edit in progress")

	// ErrEmptyPassword is returned by password resets given an empty
	// password. No request is sent in that case.
	ErrEmptyPassword = errors.New("password must not be empty")

	// ErrQuotaExceeded is returned when the summarization quota is exhausted.
	ErrQuotaExceeded = errors.New("summarization quota exceeded")

	// ErrSummarizeInProgress is returned when a summarization is already running.
	ErrSummarizeInProgress = errors.New("summarization already in progress")
)

// MailbenchError is implemented by all SDK errors.
type MailbenchError interface {
	error
	MailbenchError() // marker method
}

// APIError represents an HTTP error from the mailbench backend.
type APIError struct {
	StatusCode int
	Message    string
	RequestID  string
}

func (e *APIError) Error() string {
	if e.RequestID != "" {
		if e.Message != "" {
			return fmt.Sprintf("API error %d: %s (request_id: %s)", e.StatusCode, e.Message, e.RequestID)
		}
		return fmt.Sprintf("API error %d (request_id: %s)", e.StatusCode, e.RequestID)
	}
	if e.Message != "" {
		return fmt.Sprintf("API error %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("API error %d", e.StatusCode)
}

// MailbenchError implements the MailbenchError interface.
func (e *APIError) MailbenchError() {}

// Is implements errors.Is for sentinel error matching.
func (e *APIError) Is(target error) bool {
	switch e.StatusCode {
	case 401:
		return target == ErrNotAuthenticated
	case 403:
		return target == ErrAdminRequired
	case 404:
		return target == ErrEmailNotFound
	}
	return false
}

// NetworkError represents a network-level failure.
type NetworkError struct {
	Err     error
	URL     string
	Attempt int
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *NetworkError) Unwrap() error {
	return e.Err
}

// MailbenchError implements the MailbenchError interface.
func (e *NetworkError) MailbenchError() {}

// QuotaExceededError is the distinguished quota-exhaustion outcome of a
// summarization attempt. Limit is the backend-reported quota.
type QuotaExceededError struct {
	Limit int
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("summarization quota exceeded (limit %d)", e.Limit)
}

// Is implements errors.Is for sentinel error matching.
func (e *QuotaExceededError) Is(target error) bool {
	return target == ErrQuotaExceeded
}

// MailbenchError implements the MailbenchError interface.
func (e *QuotaExceededError) MailbenchError() {}

// ValidationError contains one or more config validation failures.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %v", e.Errors)
}

// MailbenchError implements the MailbenchError interface.
func (e *ValidationError) MailbenchError() {}

// wrapError converts internal API errors to public errors.
// This ensures that errors.Is() checks work with public sentinel errors.
func wrapError(err error) error {
	if err == nil {
		return nil
	}

	var quotaErr *api.QuotaError
	if errors.As(err, &quotaErr) {
		return &QuotaExceededError{Limit: quotaErr.Limit}
	}

	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		return &APIError{
			StatusCode: apiErr.StatusCode,
			Message:    apiErr.Message,
			RequestID:  apiErr.RequestID,
		}
	}

	var netErr *api.NetworkError
	if errors.As(err, &netErr) {
		return &NetworkError{
			Err:     netErr.Err,
			URL:     netErr.URL,
			Attempt: netErr.Attempt,
		}
	}

	return err
}
