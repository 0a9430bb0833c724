package barcode

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownKind          = errors.New("unknown barcode kind")
	ErrWrongLength          = errors.New("wrong length")
	ErrMissingRequiredField = errors.New("missing required field")
	ErrInvalidTimestamp     = errors.New("invalid timestamp")
	ErrInvalidQuantity      = errors.New("invalid quantity")
	ErrFieldTooLong         = errors.New("field too long for its slot")
)

// DecodeError is always caused by the scanned input and is never retried.
type DecodeError struct {
	Kind  Kind
	Field string
	Value string
	Want  int
	Got   int
	Err   error
}

func (e *DecodeError) Error() string {
	switch {
	case errors.Is(e.Err, ErrWrongLength):
		return fmt.Sprintf("%s barcode must be at least %d characters, got %d", e.Kind, e.Want, e.Got)
	case errors.Is(e.Err, ErrMissingRequiredField):
		return fmt.Sprintf("%s barcode is missing required field %s", e.Kind, e.Field)
	case errors.Is(e.Err, ErrInvalidTimestamp):
		return fmt.Sprintf("%s barcode has invalid %s %q, expected YYYYMMDDHHMMSS", e.Kind, e.Field, e.Value)
	case errors.Is(e.Err, ErrInvalidQuantity):
		return fmt.Sprintf("%s barcode has non-numeric %s %q", e.Kind, e.Field, e.Value)
	default:
		return fmt.Sprintf("%s barcode: %v", e.Kind, e.Err)
	}
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
