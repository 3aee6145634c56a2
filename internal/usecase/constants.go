package usecase

import "time"

const (
	// DefaultTransactionTimeout is the maximum duration for a database transaction
	// This prevents long-running transactions from blocking tables
	DefaultTransactionTimeout = 10 * time.Second

	// IdempotencyKeyTTL is how long idempotency keys are cached
	IdempotencyKeyTTL = 24 * time.Hour

	// CustomerCodePrefix starts every generated customer code.
	CustomerCodePrefix = "KH"

	// searchKeyRepairBatch is the page size of the search key repair scan.
	searchKeyRepairBatch = 200
)

// Audit change classifications reported to metrics.
const (
	ClassificationCreated     = "created"
	ClassificationSubstantive = "substantive"
	ClassificationTechnical   = "technical"
	ClassificationEmpty       = "empty"
	ClassificationDeleted     = "deleted"
)

// Ledger outcomes reported to metrics.
const (
	OutcomeAppended = "appended"
	OutcomeNoOp     = "noop"
)
