// Package common provides shared utilities and types used across the application.
package common

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Common application errors.
var (
	// Storage errors.
	ErrNotFound          = errors.New("not found")
	ErrDatabaseCorrupted = errors.New("database corrupted")

	// Remote platform errors.
	ErrCredentialInvalid = errors.New("credential invalid")
	ErrNotProvisioned    = errors.New("account has no provisioned fields")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// TransportError is a network or HTTP-level failure talking to a remote API.
type TransportError struct {
	Err        error
	Service    string
	StatusCode int
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s transport error (status %d): %v", e.Service, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s transport error: %v", e.Service, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is reports 401 and 403 responses as ErrCredentialInvalid.
func (e *TransportError) Is(target error) bool {
	if target != ErrCredentialInvalid {
		return false
	}
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// ApplicationError is a well-formed response that signals a logical failure,
// such as a GraphQL errors array or a lookup API error payload.
type ApplicationError struct {
	Service  string
	Messages []string
}

func (e *ApplicationError) Error() string {
	if len(e.Messages) == 0 {
		return fmt.Sprintf("%s returned an error", e.Service)
	}
	return fmt.Sprintf("%s: %s", e.Service, strings.Join(e.Messages, "; "))
}

// Message returns the service's own messages without the service prefix.
func (e *ApplicationError) Message() string {
	if len(e.Messages) == 0 {
		return e.Error()
	}
	return strings.Join(e.Messages, "; ")
}

// NewApplicationError creates an ApplicationError for service.
func NewApplicationError(service string, messages ...string) error {
	return &ApplicationError{Service: service, Messages: messages}
}

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}

// IsRetryable determines if an error should trigger a retry.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, ErrRateLimit) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var retryableErr *RetryableError
	if errors.As(err, &retryableErr) {
		return retryableErr.Retryable
	}

	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		switch {
		case transportErr.StatusCode == 0:
			// Network failure, no response at all.
			return true
		case transportErr.StatusCode == http.StatusTooManyRequests:
			return true
		case transportErr.StatusCode >= http.StatusInternalServerError:
			return true
		}
	}

	return false
}
