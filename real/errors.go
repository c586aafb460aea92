package real

import "errors"

// Error taxonomy, named in the same package-prefixed sentinel style as
// detsim's own errors.go.
var (
	ErrLoopClosed        = errors.New("real: loop closed")
	ErrNotRegistered     = errors.New("real: address not registered with this Env")
	ErrAlreadyRegistered = errors.New("real: address already registered with this Env")
	ErrUnknownAddress    = errors.New("real: address not present in the book")
	ErrConnectionRefused = errors.New("real: connection refused")
	ErrUnknownStream     = errors.New("real: unknown stream id")
	ErrAlreadyListening  = errors.New("real: already listening")
)
