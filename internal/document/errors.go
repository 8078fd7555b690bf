package document

import (
	"errors"
	"fmt"
)

var (
	ErrDuplicateID   = errors.New("element id already in scene")
	ErrUnknownPreset = errors.New("unknown canvas preset")
)

// ValidationError rejects an edit before it touches the scene.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
