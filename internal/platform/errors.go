package platform

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindConfig      ErrorKind = "config"
	KindAuth        ErrorKind = "auth"
	KindTransient   ErrorKind = "transient"
	KindRateLimit   ErrorKind = "rate_limit"
	KindRejected    ErrorKind = "rejected"
	KindUnsupported ErrorKind = "unsupported"
	KindNotFound    ErrorKind = "not_found"
)

// Error is the failure type every adapter returns. Kind drives retry
// decisions, Code is the provider's own error identifier when one exists.
type Error struct {
	Platform string
	Op       string
	Kind     ErrorKind
	Code     string
	Message  string
	Err      error
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s: [%s] %s", e.Platform, e.Op, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Platform, e.Op, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable is true only for failures that can succeed on a later attempt.
func (e *Error) Retryable() bool {
	return e.Kind == KindTransient || e.Kind == KindRateLimit
}

func IsRetryable(err error) bool {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Retryable()
	}
	return false
}

func KindOf(err error) ErrorKind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}

func newError(platform, op string, kind ErrorKind, msg string) *Error {
	return &Error{Platform: platform, Op: op, Kind: kind, Message: msg}
}

func wrapError(platform, op string, kind ErrorKind, err error) *Error {
	return &Error{Platform: platform, Op: op, Kind: kind, Message: err.Error(), Err: err}
}

// statusError classifies an HTTP response status into an error kind.
func statusError(platform, op string, status int, body string) *Error {
	kind := KindRejected
	switch {
	case status == 429:
		kind = KindRateLimit
	case status >= 500:
		kind = KindTransient
	case status == 401 || status == 403:
		kind = KindAuth
	case status == 404:
		kind = KindNotFound
	}

	if len(body) > 500 {
		body = body[:500]
	}
	return &Error{
		Platform: platform,
		Op:       op,
		Kind:     kind,
		Code:     fmt.Sprintf("http_%d", status),
		Message:  body,
	}
}
