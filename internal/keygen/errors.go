package keygen

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidConfig      = errors.New("keygen: invalid configuration")
	ErrGenerationFailed   = errors.New("keygen: generation failed")
	ErrInconsistent       = errors.New("keygen: internal consistency fault")
	ErrInvalidKeyMaterial = errors.New("keygen: key material violates an invariant")
)

// RetryError reports that a bounded retry loop ran out of attempts.
// It matches ErrGenerationFailed under errors.Is.
type RetryError struct {
	Stage    State
	Attempts int
}

func (e *RetryError) Error() string {
	return fmt.Sprintf("keygen: generation failed in %s after %d attempts", e.Stage, e.Attempts)
}

func (e *RetryError) Unwrap() error {
	return ErrGenerationFailed
}
