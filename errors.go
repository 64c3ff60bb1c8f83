package impulse

import (
	"errors"
	"fmt"

	"github.com/akmonengine/impulse/actor"
)

var (
	// ErrInfiniteMassPair is raised when a contact between two bodies of infinite mass reaches the resolver.
	ErrInfiniteMassPair = errors.New("impulse: contact between two bodies of infinite mass")

	// ErrInvalidSettings indicates a setting outside its valid range.
	ErrInvalidSettings = errors.New("impulse: invalid settings")

	// ErrNonFiniteState indicates a body whose position, orientation or velocity is NaN or Inf.
	ErrNonFiniteState = errors.New("impulse: non-finite body state")
)

// SimulationError wraps an error with the step and body it was detected on.
type SimulationError struct {
	Step    uint64
	Handle  actor.Handle
	Wrapped error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("step %d, %v: %v", e.Step, e.Handle, e.Wrapped)
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}
