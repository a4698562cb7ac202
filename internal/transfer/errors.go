package transfer

import "github.com/pkg/errors"

// Sentinel causes that callers inspect with errors.Is/errors.As to
// tell an expected protocol refusal (non-fatal) from an unrecoverable
// condition (Fatal), per spec.md §7's error taxonomy.
var (
	// ErrRefused marks a RequestRefuse reply to the Connect handshake
	// (see RefusedError): normal protocol flow, never fatal.
	ErrRefused = errors.New("transfer: request refused")

	// ErrProtocolViolation marks an unexpected operation for the
	// current state or an id mismatch: always fatal, on both sides
	// (spec.md §9 open question 3, resolved symmetrically).
	ErrProtocolViolation = errors.New("transfer: protocol violation")

	// ErrDeadline marks the session deadline elapsing before a
	// handshake completed.
	ErrDeadline = errors.New("transfer: no connection in time")
)

// RefusedError carries the human-readable detail a RequestRefuse reply
// included, while still satisfying errors.Is(err, ErrRefused).
type RefusedError struct {
	Detail string
}

func (e *RefusedError) Error() string { return e.Detail }
func (e *RefusedError) Is(target error) bool { return target == ErrRefused }

func newRefused(detail string) error { return &RefusedError{Detail: detail} }
