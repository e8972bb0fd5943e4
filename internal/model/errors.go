package model

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies failures along the persistence boundary.
type ErrorKind string

const (
	ErrKindNone              ErrorKind = ""
	ErrKindParse             ErrorKind = "parse"
	ErrKindAccessDenied      ErrorKind = "access_denied"
	ErrKindCredentialExpired ErrorKind = "credential_expired"
	ErrKindTransport         ErrorKind = "transport"
	ErrKindApplication       ErrorKind = "application"
	ErrKindNotConfigured     ErrorKind = "not_configured"
)

// SinkError is returned by remote sinks so callers can branch on Kind.
type SinkError struct {
	Kind       ErrorKind
	StatusCode int
	Err        error
}

func (e *SinkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s (status %d): %v", e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *SinkError) Unwrap() error {
	return e.Err
}

// NewSinkError wraps err with the given kind and optional HTTP status.
func NewSinkError(kind ErrorKind, statusCode int, err error) *SinkError {
	return &SinkError{Kind: kind, StatusCode: statusCode, Err: err}
}

// KindOf returns the ErrorKind carried by err. Errors that carry no kind are
// treated as transport failures.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ErrKindNone
	}
	var se *SinkError
	if errors.As(err, &se) {
		return se.Kind
	}
	return ErrKindTransport
}

// ClassifyStatus maps a non-2xx HTTP status to an ErrorKind.
func ClassifyStatus(code int) ErrorKind {
	switch {
	case code >= 200 && code < 300:
		return ErrKindNone
	case code == http.StatusUnauthorized:
		return ErrKindCredentialExpired
	default:
		return ErrKindTransport
	}
}
