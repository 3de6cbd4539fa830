// Package apperr carries the engine's error taxonomy. Every failure a
// caller is expected to react to has a Code; everything else is a plain
// wrapped error.
package apperr

import (
	"errors"
	"net/http"
)

// Code is a machine-readable error code, also used as the HTTP error body.
type Code string

const (
	CodeUnknown               Code = "UNKNOWN"
	CodeInvalid               Code = "INVALID_ARGUMENT"
	CodeAlreadyExists         Code = "ALREADY_EXISTS"
	CodeNotFound              Code = "NOT_FOUND"
	CodeNoOpMove              Code = "NO_OP_MOVE"
	CodeAllDuplicates         Code = "ALL_DUPLICATES"
	CodeNothingMatched        Code = "NOTHING_MATCHED"
	CodePeripheralUnavailable Code = "PERIPHERAL_UNAVAILABLE"
	CodeDecodeFailure         Code = "DECODE_FAILURE"
	CodeStorageFailure        Code = "STORAGE_FAILURE"
	CodeBusy                  Code = "BUSY"
)

// Error is the coded error type.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches any *Error with the same code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// Sentinels for errors.Is checks.
var (
	ErrInvalid               = New(CodeInvalid, "invalid argument")
	ErrAlreadyExists         = New(CodeAlreadyExists, "already exists")
	ErrNotFound              = New(CodeNotFound, "not found")
	ErrNoOpMove              = New(CodeNoOpMove, "source and target partition are the same")
	ErrAllDuplicates         = New(CodeAllDuplicates, "all selected students already exist in the target")
	ErrNothingMatched        = New(CodeNothingMatched, "no selected student exists in the source")
	ErrPeripheralUnavailable = New(CodePeripheralUnavailable, "card reader unavailable")
	ErrDecodeFailure         = New(CodeDecodeFailure, "malformed card line")
	ErrStorageFailure        = New(CodeStorageFailure, "storage failure")
	ErrBusy                  = New(CodeBusy, "operation already running")
)

// CodeOf returns the code of the first *Error in err's chain.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

// HTTPStatus maps a code to the status the interface layer answers with.
func HTTPStatus(code Code) int {
	switch code {
	case CodeInvalid:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeAlreadyExists, CodeNoOpMove, CodeAllDuplicates, CodeNothingMatched, CodeBusy:
		return http.StatusConflict
	case CodePeripheralUnavailable, CodeDecodeFailure:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
