package dnswire

import "errors"

var (
	// ErrMalformed is the sentinel error for wire-format violations:
	// truncated buffers, out-of-bounds offsets, reserved label bits and
	// compression-pointer loops. All offsets in a response derive from
	// network-controlled data, so every violation is a hard failure, never
	// a silently truncated result.
	// Wrap with fmt.Errorf("context: %w", ErrMalformed) to add context.
	ErrMalformed = errors.New("malformed dns message")

	// ErrNoAnswer reports a well-formed response that carries no usable PTR
	// answer (NXDOMAIN, an error RCODE, or an empty answer section).
	ErrNoAnswer = errors.New("no ptr answer")
)
