// Package fault tags errors with a Kind so callers can tell an expected denial from an
// unexpected fault without matching on error strings.
package fault

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindTransientNetwork
	KindRateLimited
	KindValidation
	KindPersistenceUnavailable
	KindNotAuthenticated
	KindNotAuthorized
	KindNotFound
	KindCacheUnavailable
	KindRateLimitStoreUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindTransientNetwork:
		return "transient_network"
	case KindRateLimited:
		return "rate_limited"
	case KindValidation:
		return "validation"
	case KindPersistenceUnavailable:
		return "persistence_unavailable"
	case KindNotAuthenticated:
		return "not_authenticated"
	case KindNotAuthorized:
		return "not_authorized"
	case KindNotFound:
		return "not_found"
	case KindCacheUnavailable:
		return "cache_unavailable"
	case KindRateLimitStoreUnavailable:
		return "rate_limit_store_unavailable"
	default:
		return "unknown"
	}
}

// Retryable reports whether the queue's retry policy should see errors of this kind
// as worth another attempt. Denials and bad input are not.
func (k Kind) Retryable() bool {
	switch k {
	case KindNotAuthenticated, KindNotAuthorized, KindValidation, KindNotFound:
		return false
	default:
		return true
	}
}

// Error is an error tagged with a Kind and the operation that produced it.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New tags err with kind. A nil err still yields a non-nil *Error so denials can be
// created without an underlying cause.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Newf is New with a formatted cause.
func Newf(kind Kind, op string, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the Kind of the outermost *Error in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindUnknown
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
