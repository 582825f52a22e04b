// Package tapeerr defines the closed set of errors returned while converting
// cassette data.
//
// Every failure is a *Error carrying a Kind. The sentinel values below match
// any error of the same kind through errors.Is, and errors.As gives access to
// the expected/actual values or the failing position:
//
//	var terr *tapeerr.Error
//	if errors.As(err, &terr) && terr.Kind == tapeerr.KindChecksum {
//		fmt.Println(terr.Expected, terr.Actual)
//	}
//
// Only KindPatternNotFound is retryable. It is raised while searching for a
// leader or sync pattern; everything else is terminal.
package tapeerr

import (
	"errors"
	"fmt"
)

// Kind identifies an error category.
type Kind uint8

const (
	// KindMagicMismatch means a block did not start with the platform magic.
	KindMagicMismatch Kind = iota + 1
	// KindChecksum means a stored checksum differs from the computed one.
	KindChecksum
	// KindFraming means an unexpected pulse, bit or byte pattern.
	KindFraming
	// KindUnsupportedFormat means an unknown platform, format or block layout.
	KindUnsupportedFormat
	// KindStreamFormat means audio with the wrong channel count or sample width.
	KindStreamFormat
	// KindPatternNotFound means a leader/sync search ran out of input.
	KindPatternNotFound
)

func (k Kind) String() string {
	switch k {
	case KindMagicMismatch:
		return "magic mismatch"
	case KindChecksum:
		return "checksum error"
	case KindFraming:
		return "framing error"
	case KindUnsupportedFormat:
		return "unsupported format"
	case KindStreamFormat:
		return "stream format error"
	case KindPatternNotFound:
		return "pattern not found"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

var (
	// ErrMagicMismatch matches any KindMagicMismatch error.
	ErrMagicMismatch = &Error{Kind: KindMagicMismatch}
	// ErrChecksum matches any KindChecksum error.
	ErrChecksum = &Error{Kind: KindChecksum}
	// ErrFraming matches any KindFraming error.
	ErrFraming = &Error{Kind: KindFraming}
	// ErrUnsupportedFormat matches any KindUnsupportedFormat error.
	ErrUnsupportedFormat = &Error{Kind: KindUnsupportedFormat}
	// ErrStreamFormat matches any KindStreamFormat error.
	ErrStreamFormat = &Error{Kind: KindStreamFormat}
	// ErrPatternNotFound matches any KindPatternNotFound error.
	ErrPatternNotFound = &Error{Kind: KindPatternNotFound}
)

// Error is the concrete error type of this module.
type Error struct {
	Kind Kind
	// Op names the operation that failed, e.g. "fm7: read block".
	Op string
	// Expected and Actual are set for checksum and magic errors.
	Expected int
	Actual   int
	// Index is the edge index (audio) or byte offset (cas) of the failure, -1
	// when unknown.
	Index int
	// Time is the timestamp in seconds of the failing edge, 0 for byte input.
	Time float64
	// Msg is a free-form detail.
	Msg string
}

func (e *Error) Error() string {
	s := e.Kind.String()
	if e.Op != "" {
		s = e.Op + ": " + s
	}

	switch e.Kind {
	case KindChecksum, KindMagicMismatch:
		s += fmt.Sprintf(" (expected 0x%02X, got 0x%02X)", e.Expected, e.Actual)
	}

	if e.Msg != "" {
		s += ": " + e.Msg
	}

	if e.Index >= 0 && e.Kind != KindUnsupportedFormat && e.Kind != KindStreamFormat {
		s += fmt.Sprintf(" at index %d", e.Index)
		if e.Time > 0 {
			s += fmt.Sprintf(" (%.6fs)", e.Time)
		}
	}

	return s
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}

	return t.Kind == e.Kind
}

// Retryable reports whether a caller may retry at an advanced offset.
func (e *Error) Retryable() bool {
	return e.Kind == KindPatternNotFound
}

// IsRetryable reports whether err (or any error it wraps) is retryable.
func IsRetryable(err error) bool {
	var t *Error
	if !errors.As(err, &t) {
		return false
	}

	return t.Retryable()
}

// Checksum returns a KindChecksum error.
func Checksum(op string, index int, expected, actual byte) *Error {
	return &Error{Kind: KindChecksum, Op: op, Index: index, Expected: int(expected), Actual: int(actual)}
}

// Magic returns a KindMagicMismatch error.
func Magic(op string, index int, expected, actual byte) *Error {
	return &Error{Kind: KindMagicMismatch, Op: op, Index: index, Expected: int(expected), Actual: int(actual)}
}

// Framing returns a KindFraming error at the given position.
func Framing(op string, index int, t float64, format string, args ...any) *Error {
	return &Error{Kind: KindFraming, Op: op, Index: index, Time: t, Msg: fmt.Sprintf(format, args...)}
}

// NotFound returns a retryable KindPatternNotFound error.
func NotFound(op string, index int, format string, args ...any) *Error {
	return &Error{Kind: KindPatternNotFound, Op: op, Index: index, Msg: fmt.Sprintf(format, args...)}
}

// Unsupported returns a KindUnsupportedFormat error.
func Unsupported(op string, format string, args ...any) *Error {
	return &Error{Kind: KindUnsupportedFormat, Op: op, Index: -1, Msg: fmt.Sprintf(format, args...)}
}

// StreamFormat returns a KindStreamFormat error.
func StreamFormat(op string, format string, args ...any) *Error {
	return &Error{Kind: KindStreamFormat, Op: op, Index: -1, Msg: fmt.Sprintf(format, args...)}
}
