package custom_error

import (
	"errors"
	"fmt"
)

type ValidationCode string

const (
	CodeNotPlanned          ValidationCode = "not_planned"
	CodeAlreadyScanned      ValidationCode = "already_scanned"
	CodeDuplicateBlocked    ValidationCode = "duplicate_blocked"
	CodeSkidNotBuilt        ValidationCode = "skid_not_built"
	CodeSkidAlreadyBuilt    ValidationCode = "skid_already_built"
	CodeAlreadyShipped      ValidationCode = "already_shipped"
	CodeAlreadyConfirmed    ValidationCode = "already_confirmed"
	CodeSessionNotActive    ValidationCode = "session_not_active"
	CodeIncomplete          ValidationCode = "incomplete"
	CodeDriverRequired      ValidationCode = "driver_required"
	CodeKanbanMismatch      ValidationCode = "kanban_mismatch"
	CodeNoOpenSkid          ValidationCode = "no_open_skid"
	CodeInvalidException    ValidationCode = "invalid_exception"
	CodeScansRecorded       ValidationCode = "scans_recorded"
	CodeWrongWorkflow       ValidationCode = "wrong_workflow"
	CodeMissingInput        ValidationCode = "missing_input"
	CodeOrderInUse          ValidationCode = "order_in_use"
	CodeConfirmationPending ValidationCode = "confirmation_pending"
)

// ValidationError is a business rule violation shown verbatim to the operator.
type ValidationError struct {
	Code    ValidationCode `json:"code"`
	Message string         `json:"message"`
	// Details carries variant specific context, e.g. the confirmation number
	// of an already shipped order or the list of unresolved skids.
	Details map[string]any `json:"details,omitempty"`
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Is matches any ValidationError with the same code so callers can write
// errors.Is(err, custom_error.ErrAlreadyScanned).
func (e *ValidationError) Is(target error) bool {
	var other *ValidationError
	if !errors.As(target, &other) {
		return false
	}
	return other.Code == e.Code
}

func NewValidationError(code ValidationCode, format string, args ...any) *ValidationError {
	return &ValidationError{Code: code, Message: fmt.Sprintf(format, args...)}
}

func (e *ValidationError) With(key string, value any) *ValidationError {
	if e.Details == nil {
		e.Details = map[string]any{}
	}
	e.Details[key] = value
	return e
}

// Sentinels for errors.Is comparisons.
var (
	ErrNotPlanned          = &ValidationError{Code: CodeNotPlanned}
	ErrAlreadyScanned      = &ValidationError{Code: CodeAlreadyScanned}
	ErrDuplicateBlocked    = &ValidationError{Code: CodeDuplicateBlocked}
	ErrSkidNotBuilt        = &ValidationError{Code: CodeSkidNotBuilt}
	ErrSkidAlreadyBuilt    = &ValidationError{Code: CodeSkidAlreadyBuilt}
	ErrAlreadyShipped      = &ValidationError{Code: CodeAlreadyShipped}
	ErrAlreadyConfirmed    = &ValidationError{Code: CodeAlreadyConfirmed}
	ErrSessionNotActive    = &ValidationError{Code: CodeSessionNotActive}
	ErrIncomplete          = &ValidationError{Code: CodeIncomplete}
	ErrDriverRequired      = &ValidationError{Code: CodeDriverRequired}
	ErrKanbanMismatch      = &ValidationError{Code: CodeKanbanMismatch}
	ErrNoOpenSkid          = &ValidationError{Code: CodeNoOpenSkid}
	ErrInvalidException    = &ValidationError{Code: CodeInvalidException}
	ErrScansRecorded       = &ValidationError{Code: CodeScansRecorded}
	ErrWrongWorkflow       = &ValidationError{Code: CodeWrongWorkflow}
	ErrMissingInput        = &ValidationError{Code: CodeMissingInput}
	ErrOrderInUse          = &ValidationError{Code: CodeOrderInUse}
	ErrConfirmationPending = &ValidationError{Code: CodeConfirmationPending}
)

// ConcurrencyError reports a lost race on a lock or unique constraint.
type ConcurrencyError struct {
	Resource string
	Err      error
}

func (e *ConcurrencyError) Error() string {
	return fmt.Sprintf("concurrent modification of %s: %v", e.Resource, e.Err)
}

func (e *ConcurrencyError) Unwrap() error {
	return e.Err
}

type NotFoundError struct {
	Resource string
	ID       any
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %v not found", e.Resource, e.ID)
}

func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
