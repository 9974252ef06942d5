package api

import (
	"errors"
	"fmt"
)

var (
	ErrTransport       = errors.New("error sending request")
	ErrMarshalRequest  = errors.New("error marshaling request")
	ErrDecodeResponse  = errors.New("error decoding response")
	ErrUnknownService  = errors.New("unknown service")
	ErrMissingActionID = errors.New("action uuid is empty")
)

// RemoteError is a failure reported by the backend, either through a non-2xx
// status or through the code and status fields of the envelope.
type RemoteError struct {
	Service    Service
	Path       string
	HTTPStatus int
	Code       int
	Message    string
}

func (e *RemoteError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "request failed"
	}
	return fmt.Sprintf("%s %s: %s (http %d, code %d)", e.Service, e.Path, msg, e.HTTPStatus, e.Code)
}

// IsRemote reports whether err is a RemoteError and returns it.
func IsRemote(err error) (*RemoteError, bool) {
	var re *RemoteError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}
