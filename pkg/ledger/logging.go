package ledger

import (
	"context"
	"time"
)

// ServiceOption configures a Service instance.
type ServiceOption func(*Service)

// OperationLogger records domain-level events emitted by Service operations.
type OperationLogger interface {
	LogOperation(ctx context.Context, entry OperationLog)
}

// OperationLog describes a state-changing ledger operation.
type OperationLog struct {
	Operation        string
	AccountID        AccountID
	ActorID          AccountID
	Kind             EventKind
	Delta            int64
	ResultingBalance TicketCount
	Reference        string
	Status           string
	Error            error
}

// WithOperationLogger wires a logger that receives callbacks for every operation.
func WithOperationLogger(logger OperationLogger) ServiceOption {
	return func(service *Service) {
		service.logger = logger
	}
}

// WithConflictRetryPolicy overrides the bounded retry applied to storage
// contention. Retries must be at least 1; backoff may be zero in tests.
func WithConflictRetryPolicy(retries int, backoff time.Duration) ServiceOption {
	return func(service *Service) {
		if retries >= 1 {
			service.conflictRetries = retries
		}
		if backoff >= 0 {
			service.conflictBackoff = backoff
		}
	}
}
