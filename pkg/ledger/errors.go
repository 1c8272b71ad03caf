package ledger

import (
	"errors"
	"fmt"
)

// Domain-level error values returned by the ledger service.
var (
	ErrInsufficientTickets  = errors.New("insufficient tickets")
	ErrAccountNotFound      = errors.New("account not found")
	ErrAccountBanned        = errors.New("account banned")
	ErrForbidden            = errors.New("forbidden")
	ErrUnknownTool          = errors.New("unknown tool")
	ErrUnknownPackage       = errors.New("unknown package")
	ErrUnknownEvent         = errors.New("unknown event")
	ErrEventNotRefundable   = errors.New("event not refundable")
	ErrInvalidAccountID     = errors.New("invalid account id")
	ErrInvalidEventID       = errors.New("invalid event id")
	ErrInvalidTicketCount   = errors.New("invalid ticket count")
	ErrInvalidEventKind     = errors.New("invalid event kind")
	ErrInvalidMetadataJSON  = errors.New("invalid metadata json")
	ErrInvalidServiceConfig = errors.New("invalid service config")
	ErrInvalidBalance       = errors.New("invalid balance")
	ErrStorageConflict      = errors.New("storage conflict")
	ErrStorageUnavailable   = errors.New("storage unavailable")
)

// OperationError wraps a failure with a stable operation code.
type OperationError struct {
	operation string
	subject   string
	code      string
	err       error
}

// Error returns the formatted error message.
func (operationError OperationError) Error() string {
	return fmt.Sprintf("%s.%s.%s: %v", operationError.operation, operationError.subject, operationError.code, operationError.err)
}

// Unwrap returns the underlying error.
func (operationError OperationError) Unwrap() error {
	return operationError.err
}

// Operation returns the operation segment.
func (operationError OperationError) Operation() string {
	return operationError.operation
}

// Subject returns the subject segment.
func (operationError OperationError) Subject() string {
	return operationError.subject
}

// Code returns the stable error code segment.
func (operationError OperationError) Code() string {
	return operationError.code
}

// WrapError wraps an error with operation, subject, and code metadata.
func WrapError(operation string, subject string, code string, err error) error {
	if err == nil {
		return nil
	}
	return OperationError{
		operation: operation,
		subject:   subject,
		code:      code,
		err:       err,
	}
}
