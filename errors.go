package main

import (
	"errors"
	"net/http"

	"denim-factory/factory"
)

type errorCode string

const (
	codeNotFound           errorCode = "not_found"
	codeInvalidArgument    errorCode = "invalid_argument"
	codeFailedPrecondition errorCode = "failed_precondition"
	codeInternal           errorCode = "internal"
)

// appError is returned by store operations. Message is safe to show to
// clients; Cause is only logged.
type appError struct {
	Code    errorCode
	Message string
	Cause   error
}

func (e *appError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *appError) Unwrap() error { return e.Cause }

// Is matches another appError by code.
func (e *appError) Is(target error) bool {
	if t, ok := target.(*appError); ok {
		return e.Code == t.Code
	}
	return false
}

func notFound(msg string) *appError {
	return &appError{Code: codeNotFound, Message: msg}
}

func invalidArgument(msg string) *appError {
	return &appError{Code: codeInvalidArgument, Message: msg}
}

func failedPrecondition(msg string) *appError {
	return &appError{Code: codeFailedPrecondition, Message: msg}
}

func internalError(msg string, cause error) *appError {
	return &appError{Code: codeInternal, Message: msg, Cause: cause}
}

// asAppError maps any error to an appError. Decision validation failures
// become invalid_argument; anything unknown is internal.
func asAppError(err error) *appError {
	var ae *appError
	if errors.As(err, &ae) {
		return ae
	}
	var ve *factory.ValidationError
	if errors.As(err, &ve) {
		return &appError{Code: codeInvalidArgument, Message: ve.Error(), Cause: err}
	}
	return internalError("internal error", err)
}

func (c errorCode) httpStatus() int {
	switch c {
	case codeNotFound:
		return http.StatusNotFound
	case codeInvalidArgument:
		return http.StatusBadRequest
	case codeFailedPrecondition:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
