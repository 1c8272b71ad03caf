package ledger

import (
	"errors"
	"testing"
)

func TestOperationErrorFormatting(test *testing.T) {
	test.Parallel()
	baseError := errors.New("row missing")
	wrappedError := WrapError("debit", "account", "get", baseError)
	if wrappedError == nil {
		test.Fatalf("expected wrapped error")
	}
	if wrappedError.Error() != "debit.account.get: row missing" {
		test.Fatalf("unexpected message: %q", wrappedError.Error())
	}
	if !errors.Is(wrappedError, baseError) {
		test.Fatalf("expected wrapped error to unwrap to base")
	}
	var operationError OperationError
	if !errors.As(wrappedError, &operationError) {
		test.Fatalf("expected OperationError")
	}
	if operationError.Operation() != "debit" || operationError.Subject() != "account" || operationError.Code() != "get" {
		test.Fatalf("unexpected segments: %s.%s.%s", operationError.Operation(), operationError.Subject(), operationError.Code())
	}
}

func TestWrapErrorNil(test *testing.T) {
	test.Parallel()
	if WrapError("debit", "account", "get", nil) != nil {
		test.Fatalf("expected nil wrapped error")
	}
}
