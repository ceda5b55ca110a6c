package payu

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks malformed caller input: unknown channel or status
	// code, missing POST field, foreign pos_id.
	ErrValidation = errors.New("payu: invalid request")

	// ErrInvalidSignature marks a failed signature comparison on either the
	// notification or the status response.
	ErrInvalidSignature = errors.New("payu: invalid signature")

	// ErrRequestFailed marks transport failures, non-200 responses, broken
	// XML and a non-OK acknowledgement from the gateway.
	ErrRequestFailed = errors.New("payu: request failed")
)

// MissingFieldError reports a required notification field that was absent.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s: missing field %s in POST data", ErrValidation, e.Field)
}

func (e *MissingFieldError) Is(target error) bool {
	return target == ErrValidation
}
