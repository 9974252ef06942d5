package chain

import "errors"

var (
	ErrUnsupportedChain   = errors.New("unsupported chain")
	ErrUnsupportedNetwork = errors.New("unsupported network")
	ErrInvalidAddress     = errors.New("invalid address")
)
