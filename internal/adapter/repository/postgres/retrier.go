package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"

	"github.com/danhlc/poslite/internal/adapter/repository/retry"
)

// NewRetrier creates a retrier for deadlocks, serialization failures and
// lock timeouts.
func NewRetrier(logger zerolog.Logger) *retry.Retrier {
	return retry.New(isRetryableError, logger)
}

// isRetryableError checks if a PostgreSQL error should trigger a retry.
func isRetryableError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgErrDeadlock, pgErrSerializationFailure, pgErrLockNotAvailable:
			return true
		}
	}
	return false
}
