package sim

import (
	"errors"
	"fmt"

	"github.com/san-kum/marbles/internal/scene"
)

var (
	// ErrNumericInstability indicates a body whose state became NaN or Inf.
	ErrNumericInstability = errors.New("sim: numeric instability (NaN or Inf detected)")

	// ErrInvalidConfig indicates solver parameters outside their valid range.
	ErrInvalidConfig = errors.New("sim: invalid solver configuration")
)

// BodyError scopes a step failure to a single body.
type BodyError struct {
	Body    scene.ID
	Step    int
	Wrapped error
}

func (e *BodyError) Error() string {
	return fmt.Sprintf("step %d: body %v: %v", e.Step, e.Body, e.Wrapped)
}

func (e *BodyError) Unwrap() error {
	return e.Wrapped
}
