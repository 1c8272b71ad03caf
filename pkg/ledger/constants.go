package ledger

import "time"

const (
	operationBalance     = "balance"
	operationCredit      = "credit"
	operationDebit       = "debit"
	operationAdminAdjust = "admin_adjust"
	operationRefund      = "refund"
	operationListEvents  = "list_events"

	operationStatusOK    = "ok"
	operationStatusError = "error"

	defaultConflictRetries = 3
	defaultConflictBackoff = 25 * time.Millisecond
)
