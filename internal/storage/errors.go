package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
)

// ErrorCode classifies failures so callers can tell "fix your input" from "retry".
type ErrorCode string

const (
	CodeEmptyMessage       ErrorCode = "EMPTY_MESSAGE"
	CodeInvalidAttachment  ErrorCode = "INVALID_ATTACHMENT"
	CodeThreadNotFound     ErrorCode = "THREAD_NOT_FOUND"
	CodeInvalidPair        ErrorCode = "INVALID_PAIR"
	CodeInvalidIdentity    ErrorCode = "INVALID_IDENTITY"
	CodeNotParticipant     ErrorCode = "NOT_A_PARTICIPANT"
	CodeUnknownParticipant ErrorCode = "UNKNOWN_PARTICIPANT"
	CodeStorageUnavailable ErrorCode = "STORAGE_UNAVAILABLE"
)

// Error is the error type returned by every Storage operation.
type Error struct {
	Code   ErrorCode
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("storage: %s (%s)", e.Code, e.Reason)
	}
	return fmt.Sprintf("storage: %s (%s): %v", e.Code, e.Reason, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches on Code, so errors.Is(err, ErrThreadNotFound) holds for any
// THREAD_NOT_FOUND error regardless of its reason.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code
}

var (
	ErrEmptyMessage       = &Error{Code: CodeEmptyMessage, Reason: "message carries no body, audio or attachment"}
	ErrInvalidAttachment  = &Error{Code: CodeInvalidAttachment, Reason: "attachment is malformed"}
	ErrThreadNotFound     = &Error{Code: CodeThreadNotFound, Reason: "thread does not exist"}
	ErrInvalidPair        = &Error{Code: CodeInvalidPair, Reason: "a thread needs two distinct participants"}
	ErrInvalidIdentity    = &Error{Code: CodeInvalidIdentity, Reason: "participant id is empty"}
	ErrNotParticipant     = &Error{Code: CodeNotParticipant, Reason: "caller is not a participant of the thread"}
	ErrUnknownParticipant = &Error{Code: CodeUnknownParticipant, Reason: "participant does not exist"}
	ErrStorageUnavailable = &Error{Code: CodeStorageUnavailable, Reason: "storage unavailable"}
)

func newError(code ErrorCode, reason string, err error) *Error {
	return &Error{Code: code, Reason: reason, Err: err}
}

// unavailable wraps an infrastructure failure of op. Errors that are already
// classified pass through unchanged.
func unavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *Error
	if errors.As(err, &se) {
		return err
	}
	log.Error().Err(err).Str("op", op).Msg("storage call failed")
	if errors.Is(err, context.DeadlineExceeded) {
		return newError(CodeStorageUnavailable, op+": timed out", err)
	}
	return newError(CodeStorageUnavailable, op, err)
}

// CodeOf returns the code of err, or CodeStorageUnavailable for unclassified errors.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	return CodeStorageUnavailable
}

// Retryable reports whether the caller may retry the failed operation unchanged.
func Retryable(err error) bool {
	return err != nil && CodeOf(err) == CodeStorageUnavailable
}
