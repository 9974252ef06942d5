package wire

import "errors"

var (
	ErrMalformedFrame     = errors.New("malformed frame")
	ErrUnknownName        = errors.New("unknown frame name")
	ErrUnsupportedVersion = errors.New("unsupported frame version")
	ErrSchemaViolation    = errors.New("frame violates schema")
	ErrEncode             = errors.New("error encoding frame")
)
