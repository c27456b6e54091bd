package gateway

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when the configured account is unknown to the
// provider.
var ErrNotFound = errors.New("account not found")

// Kind classifies provider failures so callers can decide whether a retry
// with a fresh session makes sense.
type Kind int

const (
	// KindNetwork covers transport failures and 5xx answers.
	KindNetwork Kind = iota
	// KindAuth covers rejected or expired credentials.
	KindAuth
	// KindQuery covers requests the provider understood and refused.
	KindQuery
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindAuth:
		return "auth"
	case KindQuery:
		return "query"
	default:
		return "unknown"
	}
}

// Error wraps a provider failure with its kind and operation name.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s error: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether a second attempt with a fresh session may succeed.
func (e *Error) Retryable() bool { return e.Kind == KindNetwork || e.Kind == KindAuth }

// IsRetryable reports whether err is a retryable gateway Error.
func IsRetryable(err error) bool {
	var gerr *Error
	if errors.As(err, &gerr) {
		return gerr.Retryable()
	}
	return false
}

// KindOf returns the kind of err, defaulting to KindNetwork for errors that
// did not originate in a gateway.
func KindOf(err error) Kind {
	var gerr *Error
	if errors.As(err, &gerr) {
		return gerr.Kind
	}
	return KindNetwork
}
