package errors

import (
	stderrors "errors"
	"fmt"
)

type Kind string

const (
	KindConfig        Kind = "config"
	KindSearch        Kind = "search"
	KindSheet         Kind = "sheet"
	KindTranscription Kind = "transcription"
	KindStorage       Kind = "storage"
	KindInternal      Kind = "internal"
)

type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func E(kind Kind, op string, err error, message string) *Error {
	return &Error{
		Kind:    kind,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

func Config(op string, err error, message string) *Error {
	return E(KindConfig, op, err, message)
}

func Search(op string, err error, message string) *Error {
	return E(KindSearch, op, err, message)
}

func Sheet(op string, err error, message string) *Error {
	return E(KindSheet, op, err, message)
}

func Transcription(op string, err error, message string) *Error {
	return E(KindTranscription, op, err, message)
}

func Storage(op string, err error, message string) *Error {
	return E(KindStorage, op, err, message)
}

func Internal(op string, err error, message string) *Error {
	return E(KindInternal, op, err, message)
}

// KindOf returns the kind of the outermost *Error in err's chain, or
// KindInternal when there is none.
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// OpOf returns the operation recorded on the outermost *Error in err's chain.
func OpOf(err error) string {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Op
	}
	return ""
}
