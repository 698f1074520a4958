package completion

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies a completion failure. Classification happens exactly
// once, where the provider response crosses into this package; everything
// downstream branches on Kind and never inspects message text.
type Kind int

const (
	KindUnknown Kind = iota
	KindRateLimited
	KindInvalidCredentials
	KindModelUnavailable
	KindContextTooLong
	KindTransport
)

func (k Kind) String() string {
	switch k {
	case KindRateLimited:
		return "rate_limited"
	case KindInvalidCredentials:
		return "invalid_credentials"
	case KindModelUnavailable:
		return "model_unavailable"
	case KindContextTooLong:
		return "context_too_long"
	case KindTransport:
		return "transport_error"
	default:
		return "unknown"
	}
}

// Retryable reports whether a failure of this kind may be retried.
// Credential and context-length failures are deterministic: retrying
// them only burns attempts.
func (k Kind) Retryable() bool {
	switch k {
	case KindInvalidCredentials, KindContextTooLong:
		return false
	default:
		return true
	}
}

// UserMessage returns the sentence shown to end users for this kind.
func (k Kind) UserMessage() string {
	switch k {
	case KindRateLimited:
		return "Too many requests. Please wait a moment and try again."
	case KindInvalidCredentials:
		return "API configuration error. Please contact support."
	case KindModelUnavailable:
		return "The AI model is temporarily unavailable. Please try again."
	case KindContextTooLong:
		return "Message history is too long. Please start a new conversation."
	default:
		return "An error occurred while processing your request."
	}
}

// Error is a classified completion failure. Status and Code preserve the
// provider response for logs; Err holds any wrapped transport error.
type Error struct {
	Kind   Kind
	Status int
	Code   string
	Msg    string
	Err    error
}

func (e *Error) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("completion %s: %s", e.Kind, e.Msg)
	}
	if e.Err != nil {
		return fmt.Sprintf("completion %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("completion %s (status %d)", e.Kind, e.Status)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf extracts the failure kind from err. Context cancellation is not
// a completion failure and reports KindUnknown; callers check ctx.Err()
// before classifying.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindUnknown
}

// classifyStatus maps a provider HTTP status plus API error code to a Kind.
type apiErrorBody struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

func classifyStatus(status int, code string) Kind {
	switch code {
	case "rate_limit_exceeded":
		return KindRateLimited
	case "invalid_api_key":
		return KindInvalidCredentials
	case "model_not_found", "model_decommissioned":
		return KindModelUnavailable
	case "context_length_exceeded":
		return KindContextTooLong
	}
	switch status {
	case 429:
		return KindRateLimited
	case 401, 403:
		return KindInvalidCredentials
	case 404:
		return KindModelUnavailable
	case 413:
		return KindContextTooLong
	}
	if status >= 500 {
		return KindTransport
	}
	return KindUnknown
}

// classifyTransport wraps a network-level failure.
func classifyTransport(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &Error{Kind: KindTransport, Err: err}
}
