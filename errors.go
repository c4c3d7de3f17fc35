package merge3

import "github.com/pkg/errors"

// Kind classifies a merge3 error into one of the categories spec.md §7
// enumerates. The original register is process-wide global state; per
// spec.md §9 "Global/static state", this module replaces it with an error
// value returned from every fallible operation instead.
type Kind int

const (
	// KindInvalidInput covers fewer-than-one theirs head, octopus
	// requested without >=2 heads, a bare repository, or an ambiguous
	// best-path/best-mode when one was required.
	KindInvalidInput Kind = iota
	// KindNotFound covers "no merge base between inputs".
	KindNotFound
	// KindObjectStore covers an ODB read/write failure.
	KindObjectStore
	// KindIndex covers an index mutation failure.
	KindIndex
	// KindIO covers worktree or setup-file I/O failure.
	KindIO
	// KindMergeFailed covers a line-level merger internal failure.
	KindMergeFailed
	// KindUserAborted covers the walker callback returning non-zero.
	KindUserAborted
	// KindUnimplemented covers octopus resolution beyond the structural
	// diff (spec.md §4.6 "Octopus").
	KindUnimplemented
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "InvalidInput"
	case KindNotFound:
		return "NotFound"
	case KindObjectStore:
		return "ObjectStore"
	case KindIndex:
		return "Index"
	case KindIO:
		return "Io"
	case KindMergeFailed:
		return "MergeFailed"
	case KindUserAborted:
		return "UserAborted"
	case KindUnimplemented:
		return "Unimplemented"
	default:
		return "Unknown"
	}
}

// Error is a merge3 error carrying its Kind alongside the usual wrapped
// cause, so callers can branch on category without string-matching a
// message (errors.Is/As work against the sentinel Kind values below).
type Error struct {
	Kind Kind
	msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.msg + ": " + e.Err.Error()
	}
	return e.msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is the sentinel for e's Kind, so
// errors.Is(err, merge3.ErrInvalidInput) works against a wrapped *Error.
func (e *Error) Is(target error) bool {
	sentinel, ok := target.(*Error)
	return ok && sentinel.Err == nil && sentinel.msg == "" && sentinel.Kind == e.Kind
}

func newErr(kind Kind, msg string) *Error {
	return &Error{Kind: kind, msg: msg}
}

func wrapErr(kind Kind, err error, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, msg: msg, Err: errors.WithMessage(err, msg)}
}

// Sentinel errors for errors.Is comparisons against a Kind, independent of
// message text.
var (
	ErrInvalidInput  = &Error{Kind: KindInvalidInput}
	ErrNotFound      = &Error{Kind: KindNotFound}
	ErrObjectStore   = &Error{Kind: KindObjectStore}
	ErrIndex         = &Error{Kind: KindIndex}
	ErrIO            = &Error{Kind: KindIO}
	ErrMergeFailed   = &Error{Kind: KindMergeFailed}
	ErrUserAborted   = &Error{Kind: KindUserAborted}
	ErrUnimplemented = &Error{Kind: KindUnimplemented}
)
