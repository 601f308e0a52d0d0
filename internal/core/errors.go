package core

import (
	"errors"
	"fmt"
)

// ErrInvalidState signals a sender record transition that the state
// machine forbids, such as recording a second filter for one sender.
var ErrInvalidState = errors.New("invalid sender state")

// ErrMalformedVerdict signals a model response that could not be
// turned into a usable verdict.
var ErrMalformedVerdict = errors.New("malformed verdict")

// ProviderError wraps a failure from an external mail or inference
// provider and records whether retrying could plausibly succeed.
type ProviderError struct {
	Op        string
	Transient bool
	Err       error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Temporary reports whether the failure is worth retrying. It follows
// the net.Error convention so retry policies need no provider imports.
func (e *ProviderError) Temporary() bool {
	return e.Transient
}

// IsTransient reports whether err is a retryable provider failure.
func IsTransient(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Transient
}
