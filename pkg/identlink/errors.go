package identlink

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidState: the correlation token is unknown (never issued, already
	// consumed, or lost). Users are prompted to request a fresh link.
	ErrInvalidState = errors.New("invalid or unknown state")

	// ErrExpiredState: the token existed but its 10-minute window has passed.
	ErrExpiredState = errors.New("state expired")

	// ErrNotLinked: the provider identity has no game account linked. A
	// legitimate outcome, surfaced distinctly from hard failures.
	ErrNotLinked = errors.New("no game account linked")
)

// UpstreamError is a non-2xx or transport failure from the identity provider.
// The access credential is never included.
type UpstreamError struct {
	Operation string
	Status    int
	Err       error
}

func (e *UpstreamError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("upstream %s failed with status %d", e.Operation, e.Status)
	}
	return fmt.Sprintf("upstream %s failed: %v", e.Operation, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}
