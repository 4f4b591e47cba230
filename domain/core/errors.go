package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Not found errors
	ErrNotFound          = errors.New("resource not found")
	ErrPinnedSetNotFound = fmt.Errorf("%w: pinned set", ErrNotFound)
	ErrEntryNotFound     = fmt.Errorf("%w: number", ErrNotFound)

	// Validation errors
	ErrInvalidInput     = errors.New("invalid input")
	ErrEmptyExpression  = fmt.Errorf("%w: expression contains no numbers", ErrInvalidInput)
	ErrNothingToPin     = fmt.Errorf("%w: working set is empty", ErrInvalidInput)
	ErrInvalidColor     = fmt.Errorf("%w: color must be #rrggbb", ErrInvalidInput)
	ErrInvalidSortMode  = fmt.Errorf("%w: unknown sort mode", ErrInvalidInput)
	ErrInvalidChartType = fmt.Errorf("%w: unknown chart type", ErrInvalidInput)
	ErrInvalidDirection = fmt.Errorf("%w: direction must be left or right", ErrInvalidInput)
	ErrIndexOutOfRange  = fmt.Errorf("%w: index out of range", ErrInvalidInput)

	// Destructive actions
	ErrConfirmationRequired = errors.New("confirmation required")
)

// Error constructors with context
func NewValidationError(field string, reason string) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidInput, field, reason)
}

// Error checking helpers
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

func IsConfirmationError(err error) bool {
	return errors.Is(err, ErrConfirmationRequired)
}
