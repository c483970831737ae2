package advisor

import (
	"errors"
	"fmt"

	"github.com/LeonardoBeccarini/agrimonitor/internal/model/entities"
)

var (
	// ErrInvalidInput marks non-numeric (NaN, ±Inf) or mistyped measurements.
	ErrInvalidInput = entities.ErrInvalidInput

	// ErrMissingField is returned by Evaluate when an advisory lacks an input.
	ErrMissingField = fmt.Errorf("%w: missing field", ErrInvalidInput)
)

func missing(name string) error {
	return fmt.Errorf("%w %s", ErrMissingField, name)
}

// IsInvalidInput reports whether err comes from malformed input.
func IsInvalidInput(err error) bool { return errors.Is(err, ErrInvalidInput) }
