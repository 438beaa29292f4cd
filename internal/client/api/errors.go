package api

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failed API call. Classification happens once, in this
// package; callers only decide what to do with the kind.
type Kind int

const (
	// KindUnknown covers everything that is not classified otherwise.
	KindUnknown Kind = iota
	// KindUnauthorized means the token is missing, invalid or expired.
	KindUnauthorized
	// KindValidation means the server rejected the input.
	KindValidation
	// KindNotFound means the target entity no longer exists.
	KindNotFound
	// KindNetwork means the request never got a response.
	KindNetwork
)

func (k Kind) String() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindNetwork:
		return "network"
	default:
		return "unknown"
	}
}

// Error is returned by every Client method on failure.
type Error struct {
	// Kind is the classification of the failure.
	Kind Kind
	// Op names the gateway call, e.g. "deleteCard".
	Op string
	// Status is the HTTP status code, 0 when no response was received.
	Status int
	// Message is the server's explanation, if it sent one.
	Message string
	// Err is the underlying transport or decoding error, if any.
	Err error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Op, e.Kind)
	if e.Status != 0 {
		msg += fmt.Sprintf(" (%d)", e.Status)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the classification of err. Errors that did not come from
// this package are KindUnknown.
func KindOf(err error) Kind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindUnknown
}

// IsKind reports whether err is an *Error of kind k.
func IsKind(err error, k Kind) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Kind == k
}

// NewError builds a classified error for failures detected by callers before
// any request is made, such as a card that is no longer held locally.
func NewError(op string, kind Kind, message string) *Error {
	return &Error{Op: op, Kind: kind, Message: message}
}

func classifyStatus(code int) Kind {
	switch code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return KindUnauthorized
	case http.StatusBadRequest, http.StatusConflict, http.StatusUnprocessableEntity:
		return KindValidation
	case http.StatusNotFound:
		return KindNotFound
	default:
		return KindUnknown
	}
}
