package arcflate

import (
	"errors"
	"fmt"
)

// Error is returned by every codec and framer operation that fails.  Kind
// classifies the failure; Offset is the input byte offset at or near which
// the problem was detected.
type Error struct {
	Kind    ErrorKind
	Offset  uint64
	Problem string
	Err     error
}

// Error fulfills the error interface.
func (err *Error) Error() string {
	var msg string
	switch {
	case err.Problem != "" && err.Err != nil:
		msg = fmt.Sprintf("%s: %v", err.Problem, err.Err)
	case err.Problem != "":
		msg = err.Problem
	case err.Err != nil:
		msg = err.Err.Error()
	default:
		msg = err.Kind.String()
	}
	return fmt.Sprintf("%s at/near byte offset %d: %s", err.Kind, err.Offset, msg)
}

// Unwrap returns the underlying cause, if any.
func (err *Error) Unwrap() error {
	return err.Err
}

// Is reports whether target is an *Error of the same Kind.  This allows
// errors.Is(err, ErrCRC) and friends.
func (err *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return other.Kind == err.Kind && other.Problem == "" && other.Err == nil
	}
	return false
}

var _ error = (*Error)(nil)

// Sentinel values for use with errors.Is.
var (
	ErrNotArchive        error = &Error{Kind: KindIsNotArchive}
	ErrUnexpectedEnd     error = &Error{Kind: KindUnexpectedEnd}
	ErrData              error = &Error{Kind: KindDataError}
	ErrCRC               error = &Error{Kind: KindCRCError}
	ErrDataAfterEnd      error = &Error{Kind: KindDataAfterEnd}
	ErrUnsupportedMethod error = &Error{Kind: KindUnsupportedMethod}
	ErrUnsupportedBlock  error = &Error{Kind: KindUnsupportedBlock}
	ErrOutOfMemory       error = &Error{Kind: KindOutOfMemory}
	ErrAborted           error = &Error{Kind: KindAborted}
	ErrWrite             error = &Error{Kind: KindWriteError}
	ErrRead              error = &Error{Kind: KindReadError}
)

// KindOf classifies err.  A nil error is KindOK; an error chain containing
// no *Error is KindDataError.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindOK
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindDataError
}

func newError(kind ErrorKind, offset uint64, format string, v ...interface{}) *Error {
	return &Error{Kind: kind, Offset: offset, Problem: fmt.Sprintf(format, v...)}
}

func wrapError(kind ErrorKind, offset uint64, err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Kind: kind, Offset: offset, Err: err}
}
