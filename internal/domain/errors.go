package domain

import (
	"errors"
	"fmt"
)

// NotFoundError reports an operation that required a note to be present
// in the graph when it was not.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("note %q not found in graph", e.ID)
}

// IsNotFound reports whether err is, or wraps, a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
