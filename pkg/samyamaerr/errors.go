// Package samyamaerr defines the error taxonomy used across Samyama (§7).
// Every error surfaced across a package boundary carries a Kind so callers
// — the query engine, the network adapter, tests — can branch on "what
// category of failure is this" without parsing message text.
package samyamaerr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure into one of the taxonomy buckets from §7.
type Kind int

const (
	// KindInternal marks a bug: an integrity-invariant violation. It is
	// not recoverable and, per §7, should propagate to a panic at the
	// process boundary rather than being handled as a normal error.
	KindInternal Kind = iota
	KindParse
	KindSemantic
	KindIntegrity
	KindQuota
	KindIndex
	KindConcurrency
	KindPersistence
)

func (k Kind) String() string {
	switch k {
	case KindParse:
		return "parse"
	case KindSemantic:
		return "semantic"
	case KindIntegrity:
		return "integrity"
	case KindQuota:
		return "quota"
	case KindIndex:
		return "index"
	case KindConcurrency:
		return "concurrency"
	case KindPersistence:
		return "persistence"
	default:
		return "internal"
	}
}

// Error is the concrete error type returned across package boundaries. It
// wraps an optional cause and, for parse errors, a source position.
type Error struct {
	Kind    Kind
	Message string
	Pos     *Position // non-nil only for KindParse
	Cause   error
}

// Position locates a parse error within the original query text.
type Position struct {
	Offset int
	Line   int
	Column int
}

func (e *Error) Error() string {
	if e.Pos != nil {
		return fmt.Sprintf("%s error at %d:%d: %s", e.Kind, e.Pos.Line, e.Pos.Column, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s error: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s error: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is supports errors.Is(err, samyamaerr.Quota) style sentinel checks by
// comparing Kind, ignoring message/cause — two Errors of the same Kind are
// considered "the same" error for control-flow purposes.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == other.Kind
}

// New builds a bare Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an Error of the given kind around an underlying cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// AtPosition builds a parse error with a source position.
func AtPosition(message string, offset, line, column int) *Error {
	return &Error{
		Kind:    KindParse,
		Message: message,
		Pos:     &Position{Offset: offset, Line: line, Column: column},
	}
}

// Sentinels used with errors.Is for the common "kind without a message"
// checks; higher layers wrap these with Wrap/New when they have more
// context to add.
var (
	Quota       = New(KindQuota, "quota exceeded")
	Integrity   = New(KindIntegrity, "integrity violation")
	Concurrency = New(KindConcurrency, "concurrency error")
	Persistence = New(KindPersistence, "persistence error")
	Internal    = New(KindInternal, "internal invariant violation")
)

// KindOf extracts the Kind from err if it is (or wraps) a *Error, defaulting
// to KindInternal for anything else — an untyped error reaching this far is
// itself a sign the taxonomy was bypassed somewhere, so treating it as an
// internal-invariant failure is the safe default rather than silently
// reporting it as, say, a parse error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
