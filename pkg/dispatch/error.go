package dispatch

import (
	"errors"
	"fmt"

	"github.com/mirrorworld-universe/mirrorworld-sdk-go/pkg/chain"
)

// CodeMethodUnavailable is the code of every UnavailableError.
const CodeMethodUnavailable = "METHOD_UNAVAILABLE_ON_CURRENT_CHAIN_CONFIG"

var (
	// ErrMethodUnavailable matches every UnavailableError.
	ErrMethodUnavailable = errors.New("method unavailable on current chain config")
	ErrInvalidRequest    = errors.New("invalid request")
	// ErrNotApproved is returned when an approval ended without a token and
	// without an error of its own, i.e. no wallet surface could be shown.
	ErrNotApproved = errors.New("action not approved")
)

// UnavailableError reports a call the active chain config does not support.
type UnavailableError struct {
	Method  string
	Config  chain.Config
	Allowed chain.AllowList
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("%s: %s is not available on %s", CodeMethodUnavailable, e.Method, e.Config)
}

func (e *UnavailableError) Code() string {
	return CodeMethodUnavailable
}

func (e *UnavailableError) Is(target error) bool {
	return target == ErrMethodUnavailable
}

// AssertAvailableFor fails when cfg is not in allow. It does no I/O.
func AssertAvailableFor(method string, cfg chain.Config, allow chain.AllowList) error {
	if allow.Contains(cfg) {
		return nil
	}
	return &UnavailableError{Method: method, Config: cfg, Allowed: allow}
}
