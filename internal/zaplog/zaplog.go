// Package zaplog adapts a zap logger to the ledger's operation callback.
package zaplog

import (
	"context"

	"github.com/autocreateur/ticketd/pkg/ledger"
	"go.uber.org/zap"
)

// OperationLogger writes one structured line per ledger operation.
type OperationLogger struct {
	logger *zap.Logger
}

// New wires an OperationLogger.
func New(logger *zap.Logger) *OperationLogger {
	return &OperationLogger{logger: logger}
}

// LogOperation implements ledger.OperationLogger.
func (operationLogger *OperationLogger) LogOperation(_ context.Context, entry ledger.OperationLog) {
	fields := []zap.Field{
		zap.String("operation", entry.Operation),
		zap.String("account_id", entry.AccountID.String()),
		zap.String("actor_id", entry.ActorID.String()),
		zap.String("kind", entry.Kind.String()),
		zap.Int64("delta", entry.Delta),
		zap.Int64("resulting_balance", entry.ResultingBalance.Int64()),
		zap.String("reference", entry.Reference),
		zap.String("status", entry.Status),
	}
	if entry.Error != nil {
		operationLogger.logger.Warn("ledger operation failed", append(fields, zap.Error(entry.Error))...)
		return
	}
	operationLogger.logger.Info("ledger operation", fields...)
}
