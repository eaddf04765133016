package scheduling

import (
	"errors"
	"fmt"
)

var (
	// ErrSlotConflict means a booking raced and lost: the slot was taken
	// between render and submit. Surfaced as 409, never retried here.
	ErrSlotConflict = errors.New("scheduling: slot is no longer available")

	// ErrNotFound means the referenced slot or template does not exist.
	ErrNotFound = errors.New("scheduling: not found")
)

// ValidationError reports a malformed template or request field. Handlers
// surface the field name so UIs can attach the message to the right input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("scheduling: invalid %s: %s", e.Field, e.Reason)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
