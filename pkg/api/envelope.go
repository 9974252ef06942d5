package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// StatusFailed is the envelope status of a failed call.
const StatusFailed = "failed"

// Envelope wraps every backend response.
type Envelope struct {
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Status  string          `json:"status"`
	Code    int             `json:"code"`
}

// Failed reports whether the envelope itself signals an error.
func (e Envelope) Failed() bool {
	return e.Code != 0 || strings.EqualFold(e.Status, StatusFailed)
}

// decodeEnvelope turns a raw response into an Envelope or a RemoteError.
// A non-JSON error body becomes the message of the RemoteError.
func decodeEnvelope(svc Service, path string, status int, body []byte) (Envelope, error) {
	var env Envelope
	jsonErr := json.Unmarshal(body, &env)

	ok := status >= http.StatusOK && status < http.StatusMultipleChoices
	switch {
	case ok && jsonErr != nil:
		return Envelope{}, fmt.Errorf("%w: %w", ErrDecodeResponse, jsonErr)
	case !ok && jsonErr != nil:
		return Envelope{}, &RemoteError{
			Service:    svc,
			Path:       path,
			HTTPStatus: status,
			Message:    snippet(body),
		}
	case !ok || env.Failed():
		return Envelope{}, &RemoteError{
			Service:    svc,
			Path:       path,
			HTTPStatus: status,
			Code:       env.Code,
			Message:    env.Message,
		}
	}
	return env, nil
}

func snippet(body []byte) string {
	const limit = 256
	s := strings.TrimSpace(string(body))
	if len(s) > limit {
		s = s[:limit] + "..."
	}
	return s
}
