// Package apperr classifies the failures the sync core surfaces to callers.
package apperr

import (
	"errors"
	"fmt"
)

// Kind is the category of a failure.
type Kind int

const (
	// KindAuthRequired means no session was present; the operation was
	// refused locally without touching any remote store.
	KindAuthRequired Kind = iota
	// KindRemote covers every failure reported by the row store, the
	// document store or the identity provider.
	KindRemote
	// KindParse means document content could not be decoded.
	KindParse
)

func (k Kind) String() string {
	switch k {
	case KindAuthRequired:
		return "auth_required"
	case KindRemote:
		return "remote"
	case KindParse:
		return "parse"
	default:
		return "unknown"
	}
}

// Error is a classified failure of one operation.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

var (
	ErrAuthRequired = &Error{Kind: KindAuthRequired}
	ErrRemote       = &Error{Kind: KindRemote}
	ErrParse        = &Error{Kind: KindParse}
)

func (e *Error) Error() string {
	switch {
	case e.Op == "" && e.Err == nil:
		return e.Kind.String()
	case e.Err == nil:
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	case e.Op == "":
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error of the same kind. A target without an Op
// matches any operation, so errors.Is(err, ErrRemote) works for all remote
// failures.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && (t.Op == "" || t.Op == e.Op)
}

func AuthRequired(op string) *Error {
	return &Error{Kind: KindAuthRequired, Op: op}
}

func Remote(op string, err error) *Error {
	return &Error{Kind: KindRemote, Op: op, Err: err}
}

func Parse(op string, err error) *Error {
	return &Error{Kind: KindParse, Op: op, Err: err}
}

// IsKind reports whether any error in err's chain is an *Error of kind k.
func IsKind(err error, k Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == k
}
