// Package api provides HTTP client functionality for communicating with the
// workbench backend. It handles session-cookie authentication,
// request/response serialization, and automatic retry with exponential
// backoff for transient failures.
//
// # Sessions
//
// The backend authenticates with a session cookie set by /api/login or
// /api/register. The client keeps the cookie in its jar; [Client.SessionToken]
// and [Client.SetSessionToken] let callers persist a session across
// processes.
//
// # Retry Behavior
//
// Requests are retried up to 3 times with exponential backoff (1s, 2s,
// 4s, ...) for 408, 500, 502, 503 and 504 responses. 429 is never retried:
// the backend uses it to report quota exhaustion, which is terminal for the
// attempt. Configure the behavior with [WithRetries] and [WithRetryOn].
//
// # Error Handling
//
// HTTP errors surface as [*APIError], matchable against the sentinel errors
// with errors.Is:
//
//   - [ErrAuthRequired]: no authenticated session (401).
//   - [ErrForbidden]: session lacks the admin role (403).
//   - [ErrNotFound]: resource does not exist (404).
//
// Quota exhaustion surfaces as [*QuotaError] carrying the backend's limit,
// and transport failures as [*NetworkError].
//
// # Thread Safety
//
// The [Client] type is safe for concurrent use. Multiple goroutines may call
// methods on a single Client simultaneously.
package api
