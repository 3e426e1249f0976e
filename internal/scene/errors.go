package scene

import "errors"

// Domain errors for scene edits.
var (
	// ErrNotFound indicates an id that is not present in the scene.
	ErrNotFound = errors.New("scene: id not found")

	// ErrInvalidReference indicates a constraint referring to bodies it cannot join.
	ErrInvalidReference = errors.New("scene: invalid body reference")

	// ErrInvalidParameter indicates a body or constraint field outside its valid range.
	ErrInvalidParameter = errors.New("scene: invalid parameter")

	// ErrDuplicateID indicates an insert of an id that is already taken.
	ErrDuplicateID = errors.New("scene: duplicate id")
)
