package knapsack

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCapacity is returned when the capacity is negative or exceeds the configured limits.
	ErrInvalidCapacity = errors.New("capacity must be a non-negative integer within limits")
	// ErrInvalidWeight is returned when an item carries a negative weight.
	ErrInvalidWeight = errors.New("item weights must be non-negative")
	// ErrMismatchedInput is returned when values and weights cannot be paired positionally.
	ErrMismatchedInput = errors.New("values and weights must have the same length")
	// ErrArithmeticOverflow is returned when a value, weight or sum does not fit the configured width.
	ErrArithmeticOverflow = errors.New("arithmetic overflow")
	// ErrResourceExhausted is returned when the value table would exceed the configured size ceiling.
	ErrResourceExhausted = errors.New("value table exceeds the configured size limit")
)

// Overflow stages reported by OverflowError.
const (
	StageInput = "input"
	StageTable = "table"
	StageTotal = "total"
)

// OverflowError records where a quantity left the representable range.
// Index is the offending item position, or -1 for the final total.
type OverflowError struct {
	Stage string
	Index int
	Width int
}

func (e *OverflowError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("%s: %s exceeds %d-bit range", ErrArithmeticOverflow, e.Stage, e.Width)
	}
	return fmt.Sprintf("%s: %s item %d exceeds %d-bit range", ErrArithmeticOverflow, e.Stage, e.Index, e.Width)
}

func (e *OverflowError) Unwrap() error {
	return ErrArithmeticOverflow
}
