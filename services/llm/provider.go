package llm

import (
	"errors"
	"fmt"

	"github.com/WriterGao/CoreMind/models"
)

// Message is a single role-tagged chat message
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Profile identifies the LLM backend a request targets. It is immutable per
// request and owned by the caller; APIKey arrives already decrypted and must
// never be logged or persisted by this package.
type Profile struct {
	Provider    models.Provider
	Model       string
	BaseURL     string
	APIKey      string
	Temperature float64
	MaxTokens   int
}

// ChatRequest is a full chat invocation: ordered message history plus the
// target profile
type ChatRequest struct {
	Profile  Profile
	Messages []Message
	Stream   bool
}

// Usage holds token accounting reported by the provider, when available
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Result is the provider-agnostic success output
type Result struct {
	Content string `json:"content"`
	Usage   Usage  `json:"usage"`
}

// ErrorKind classifies a normalized provider failure
type ErrorKind string

const (
	KindAuthentication    ErrorKind = "authentication"
	KindAuthorization     ErrorKind = "authorization"
	KindNotFound          ErrorKind = "not_found"
	KindRateLimited       ErrorKind = "rate_limited"
	KindNetwork           ErrorKind = "network"
	KindMalformedResponse ErrorKind = "malformed_response"
	KindUnknown           ErrorKind = "unknown"
)

// Error is a classified provider failure. Every failed call through the
// adapter yields exactly one of these; raw provider payloads are carried in
// Detail rather than dropped.
type Error struct {
	Kind       ErrorKind
	StatusCode int    // original HTTP status, 0 when none
	Hint       string // human-actionable remediation text
	Detail     string // truncated raw provider body, diagnostic only
	Cause      error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s (HTTP %d): %s", e.Kind, e.StatusCode, e.Hint)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Hint)
}

// Unwrap implements error unwrapping
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches errors by kind
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// KindOf returns the ErrorKind of err, or empty string if err is not an
// adapter error
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// newError builds an adapter error with the standard hint for its kind,
// appending provider-supplied detail to the hint when present
func newError(kind ErrorKind, statusCode int, providerMessage, detail string, cause error) *Error {
	hint := hintFor(kind)
	if providerMessage != "" {
		hint = hint + " Provider reported: " + providerMessage
	}
	return &Error{
		Kind:       kind,
		StatusCode: statusCode,
		Hint:       hint,
		Detail:     detail,
		Cause:      cause,
	}
}

func hintFor(kind ErrorKind) string {
	switch kind {
	case KindAuthentication:
		return "API key was rejected. Verify the key format (sk-...), that it is activated, and that it has permission for this model."
	case KindAuthorization:
		return "Access denied. Check the account balance and whether the key is entitled to this model."
	case KindNotFound:
		return "Endpoint or model not found. Check the model name and the base URL."
	case KindRateLimited:
		return "Rate limit hit. Back off and retry later, or check the account quota."
	case KindNetwork:
		return "Network request failed. Check connectivity, proxy settings, and the API base URL."
	case KindMalformedResponse:
		return "Provider returned a response in an unexpected shape."
	default:
		return "Provider call failed."
	}
}

// classifyStatus maps a non-2xx HTTP status to an error kind
func classifyStatus(status int) ErrorKind {
	switch status {
	case 401:
		return KindAuthentication
	case 403:
		return KindAuthorization
	case 404:
		return KindNotFound
	case 429:
		return KindRateLimited
	default:
		return KindUnknown
	}
}
