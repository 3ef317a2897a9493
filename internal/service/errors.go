package service

import (
	"context"
	"errors"
	"fmt"

	"quotepanel/internal/client/jquants"
)

// ValidationError rejects a request before any network or store work.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid request: " + e.Reason
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// UpstreamFetchError is a calendar or quotes call that failed. It aborts a
// per-day sync and is isolated to one code in a per-code sync.
type UpstreamFetchError struct {
	Op  string
	Key string
	Err error
}

func (e *UpstreamFetchError) Error() string {
	return fmt.Sprintf("upstream %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *UpstreamFetchError) Unwrap() error { return e.Err }

// ItemError reports one failed day or code in an otherwise successful run.
type ItemError struct {
	Key   string `json:"key"`
	Error string `json:"error"`
}

// upstreamErr leaves auth failures and cancellations unwrapped so callers can
// tell them apart from a failing endpoint.
func upstreamErr(op, key string, err error) error {
	if err == nil {
		return nil
	}
	var authErr *jquants.AuthError
	if errors.As(err, &authErr) || errors.Is(err, context.Canceled) {
		return err
	}
	return &UpstreamFetchError{Op: op, Key: key, Err: err}
}

func isAuthError(err error) bool {
	var authErr *jquants.AuthError
	return errors.As(err, &authErr)
}
