package resolve

import (
	"errors"
	"fmt"

	"github.com/roach88/osmigrate/internal/model"
)

// ErrEmptyKey is returned when a natural key has no usable value, such as
// a line item without a machine number.
var ErrEmptyKey = errors.New("empty natural key")

// Error reports that one entity could not be found or created.
type Error struct {
	Kind model.EntityKind
	Key  string
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("resolve %s %q: %v", e.Kind, e.Key, e.Err)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

func resolveErr(kind model.EntityKind, key string, err error) *Error {
	return &Error{Kind: kind, Key: key, Err: err}
}
