// Package errs defines the error kinds surfaced by the SQL core.
//
// Every error returned across a package boundary wraps exactly one of the
// sentinel kinds below, so callers classify failures with errors.Is:
//
//	if errors.Is(err, errs.ErrConflict) { /* resubmit the statement */ }
package errs

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrParse reports malformed SQL text.
	ErrParse = errors.New("parse error")
	// ErrInternal reports validation failures (unknown table or column, wrong
	// arity, missing default) and internal invariant violations.
	ErrInternal = errors.New("internal error")
	// ErrConflict reports an MVCC write-write conflict.
	ErrConflict = errors.New("serialization failure, retry transaction")
	// ErrNotFound reports a lookup miss where the contract requires a result.
	ErrNotFound = errors.New("not found")
)

// Error is a kind plus a human readable message.
type Error struct {
	kind error
	msg  string
}

func (e *Error) Error() string {
	if e.msg == "" {
		return e.kind.Error()
	}
	return e.kind.Error() + ": " + e.msg
}

func (e *Error) Unwrap() error { return e.kind }

func newf(kind error, format string, args ...any) error {
	return errors.WithStack(&Error{kind: kind, msg: fmt.Sprintf(format, args...)})
}

func Parsef(format string, args ...any) error    { return newf(ErrParse, format, args...) }
func Internalf(format string, args ...any) error { return newf(ErrInternal, format, args...) }
func Conflictf(format string, args ...any) error { return newf(ErrConflict, format, args...) }
func NotFoundf(format string, args ...any) error { return newf(ErrNotFound, format, args...) }

// Kind returns the sentinel wrapped by err, or nil when err carries none.
func Kind(err error) error {
	for _, kind := range []error{ErrParse, ErrConflict, ErrNotFound, ErrInternal} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

// KindName is Kind rendered for wire protocols and logs.
func KindName(err error) string {
	switch Kind(err) {
	case ErrParse:
		return "parse"
	case ErrConflict:
		return "conflict"
	case ErrNotFound:
		return "not_found"
	case ErrInternal:
		return "internal"
	default:
		return ""
	}
}
