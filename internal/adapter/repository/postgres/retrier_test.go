package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"

	"github.com/danhlc/poslite/internal/domain"
)

func TestRetrierExhaustedDeadlockBecomesConflict(t *testing.T) {
	r := NewRetrier(zerolog.Nop()).
		WithMaxRetries(1).
		WithIntervals(time.Millisecond, time.Millisecond, time.Second)

	attempts := 0
	err := r.Retry(context.Background(), func() error {
		attempts++
		return &pgconn.PgError{Code: pgErrDeadlock}
	})

	if !errors.Is(err, domain.ErrConcurrencyConflict) {
		t.Fatalf("expected ErrConcurrencyConflict, got %v", err)
	}
	if attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", attempts)
	}
}

func TestIsRetryableError(t *testing.T) {
	for _, code := range []string{pgErrDeadlock, pgErrSerializationFailure, pgErrLockNotAvailable} {
		if !isRetryableError(&pgconn.PgError{Code: code}) {
			t.Fatalf("expected %s to be retryable", code)
		}
	}

	if isRetryableError(&pgconn.PgError{Code: pgErrUniqueViolation}) {
		t.Fatalf("unique violation must not be retryable")
	}
	if isRetryableError(errors.New("other")) {
		t.Fatalf("plain error must not be retryable")
	}
}

func TestMapError(t *testing.T) {
	dup := mapError(&pgconn.PgError{Code: pgErrUniqueViolation, ConstraintName: "customers_code_key"})
	if !errors.Is(dup, domain.ErrDuplicateCode) || !errors.Is(dup, domain.ErrConstraintViolation) {
		t.Fatalf("expected duplicate code, got %v", dup)
	}

	fk := mapError(&pgconn.PgError{Code: pgErrForeignKeyViolation, ConstraintName: "products_category_id_fkey"})
	if !errors.Is(fk, domain.ErrConstraintViolation) || errors.Is(fk, domain.ErrDuplicateCode) {
		t.Fatalf("expected constraint violation, got %v", fk)
	}

	deadlock := &pgconn.PgError{Code: pgErrDeadlock}
	if got := mapError(deadlock); got != deadlock {
		t.Fatalf("expected retryable error unchanged, got %v", got)
	}

	if mapError(nil) != nil {
		t.Fatalf("expected nil")
	}
}
