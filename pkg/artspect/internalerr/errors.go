package internalerr

import "errors"

// Sentinel errors for common cases
var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidConfig  = errors.New("invalid configuration")
	ErrMissingColumn  = errors.New("missing column")
	ErrMalformedReply = errors.New("malformed reply")
)
