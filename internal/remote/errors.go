package remote

import (
	"errors"
	"fmt"
)

// Error reports a failure while fetching or decoding a remote collection.
//
// Codes:
//   - TRANSPORT_FAILED: the request could not be made or the server answered
//     with a non-2xx status
//   - DECODE_FAILED: the server answered 2xx but the body could not be
//     decoded into the expected envelope or element type
//
// Callers distinguish the two with IsTransportError and IsDecodeError; both
// see through wrapping.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// URL is the request URL, when known.
	URL string

	// StatusCode is the HTTP status for non-2xx responses (0 otherwise).
	StatusCode int

	// Err is the underlying cause, if any.
	Err error
}

// ErrorCode categorizes remote errors.
type ErrorCode string

const (
	// ErrCodeTransportFailed indicates the fetch itself failed.
	ErrCodeTransportFailed ErrorCode = "TRANSPORT_FAILED"

	// ErrCodeDecodeFailed indicates a successful response had an unusable body.
	ErrCodeDecodeFailed ErrorCode = "DECODE_FAILED"
)

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Err != nil {
		if msg == "" {
			msg = e.Err.Error()
		} else {
			msg = msg + ": " + e.Err.Error()
		}
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s (status=%d, url=%s)", e.Code, msg, e.StatusCode, e.URL)
	}
	if e.URL != "" {
		return fmt.Sprintf("%s: %s (url=%s)", e.Code, msg, e.URL)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// IsTransportError returns true if err is a transport failure.
// Uses errors.As to handle wrapped errors.
func IsTransportError(err error) bool {
	var re *Error
	if errors.As(err, &re) {
		return re.Code == ErrCodeTransportFailed
	}
	return false
}

// IsDecodeError returns true if err is a decode failure.
// Uses errors.As to handle wrapped errors.
func IsDecodeError(err error) bool {
	var re *Error
	if errors.As(err, &re) {
		return re.Code == ErrCodeDecodeFailed
	}
	return false
}

// CodeOf returns the error's code, or "" if err is not a remote Error.
func CodeOf(err error) ErrorCode {
	var re *Error
	if errors.As(err, &re) {
		return re.Code
	}
	return ""
}

// NewTransportError creates an Error for a failed request.
func NewTransportError(url string, err error) *Error {
	return &Error{
		Code:    ErrCodeTransportFailed,
		Message: "request failed",
		URL:     url,
		Err:     err,
	}
}

// NewStatusError creates an Error for a non-2xx response.
func NewStatusError(url string, status int) *Error {
	return &Error{
		Code:       ErrCodeTransportFailed,
		Message:    fmt.Sprintf("unexpected status %d", status),
		URL:        url,
		StatusCode: status,
	}
}

// NewDecodeError creates an Error for an undecodable body.
func NewDecodeError(message string, err error) *Error {
	return &Error{
		Code:    ErrCodeDecodeFailed,
		Message: message,
		Err:     err,
	}
}
