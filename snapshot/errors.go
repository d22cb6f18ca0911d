package snapshot

import "errors"

// Usage errors. These indicate a caller bug and are never coerced away.
var (
	ErrOrdinalOutOfRange = errors.New("snapshot: ordinal out of range")
	ErrUnknownColumn     = errors.New("snapshot: unknown column")
	ErrTypeMismatch      = errors.New("snapshot: type mismatch")
	ErrBufferTooSmall    = errors.New("snapshot: destination buffer too small")
	ErrNoCurrentRow      = errors.New("snapshot: no current row")
	ErrClosed            = errors.New("snapshot: reader is closed")
	ErrInvalidSnapshot   = errors.New("snapshot: invalid snapshot")
)

// ErrNotSupported is returned by operations a Reader deliberately does not
// implement. It is distinct from the usage errors above so callers can
// detect unsupported paths.
var ErrNotSupported = errors.New("snapshot: operation not supported")
