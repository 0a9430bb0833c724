package confirmation

import (
	"errors"
	"fmt"
)

// TransientError is a network, timeout or server side failure. Retrying the
// whole Complete operation is safe because the OEM deduplicates on request id.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("confirmation submission failed temporarily: %v", e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// RejectedError is an OEM validation failure the operator has to fix.
type RejectedError struct {
	Code    string `json:"errorCode"`
	Message string `json:"message"`
}

func (e *RejectedError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("confirmation rejected: %s", e.Message)
	}
	return fmt.Sprintf("confirmation rejected (%s): %s", e.Code, e.Message)
}

func IsTransient(err error) bool {
	var t *TransientError
	return errors.As(err, &t)
}

func IsRejected(err error) bool {
	var r *RejectedError
	return errors.As(err, &r)
}
