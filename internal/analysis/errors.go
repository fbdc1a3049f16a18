package analysis

import (
	"errors"
	"net/http"
)

// ErrorKind classifies a failed analysis.
type ErrorKind string

const (
	KindValidation ErrorKind = "validation" // bad or missing input; no external calls made
	KindResolution ErrorKind = "resolution" // the video could not be resolved or staged
	KindRemote     ErrorKind = "remote"     // the model or file service failed
)

// HTTPStatus maps the kind to the JSON API status code.
func (k ErrorKind) HTTPStatus() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindResolution:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadGateway
	}
}

// Error is a failed analysis. Message is the user-visible text.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

func validationError(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

// AsError extracts an *Error from err, wrapping unknown errors as remote failures.
func AsError(err error) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return &Error{Kind: KindRemote, Message: "Error processing video: " + err.Error(), Err: err}
}
