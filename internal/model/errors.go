package model

import (
	"errors"
	"fmt"
)

// Decoding errors.
var (
	// ErrUnexpectedObject is returned when the "object" tag of a payload does
	// not match the kind being decoded.
	ErrUnexpectedObject = errors.New("unexpected object type")

	// ErrMissingField is returned when a required field is absent.
	ErrMissingField = errors.New("missing required field")
)

func checkObject(got string, want Kind) error {
	if got != string(want) {
		return fmt.Errorf("%w: got %q, want %q", ErrUnexpectedObject, got, want)
	}
	return nil
}
