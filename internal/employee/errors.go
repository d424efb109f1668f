package employee

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput marks a rejected prediction request, e.g. an unknown categorical value.
	ErrInvalidInput = errors.New("invalid input")

	// ErrEmptyResult marks an aggregate requested over a view with no rows.
	ErrEmptyResult = errors.New("no rows match the filter criteria")
)

// StartupError is returned when the dataset or model artifact cannot be loaded.
// It is fatal: the service must not start serving without both.
type StartupError struct {
	Source string
	Err    error
}

func (e *StartupError) Error() string {
	return fmt.Sprintf("startup failed loading %s: %v", e.Source, e.Err)
}

func (e *StartupError) Unwrap() error {
	return e.Err
}

// IsStartupError reports whether err carries a *StartupError.
func IsStartupError(err error) bool {
	var se *StartupError
	return errors.As(err, &se)
}
