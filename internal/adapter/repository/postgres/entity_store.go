package postgres

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/danhlc/poslite/internal/adapter/repository/schema"
	"github.com/danhlc/poslite/internal/domain"
	"github.com/danhlc/poslite/internal/usecase"
)

var dialect = schema.Dialect{
	Placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
	Encode:      encodeValue,
}

// EntityStore implements usecase.EntityStore.
type EntityStore struct{}

// NewEntityStore creates a new EntityStore.
func NewEntityStore() *EntityStore {
	return &EntityStore{}
}

// Insert writes a new entity row.
func (s *EntityStore) Insert(ctx context.Context, tx usecase.Transaction, entity domain.Entity) error {
	table, err := schema.Lookup(entity)
	if err != nil {
		return err
	}

	sql, args, err := table.Insert(dialect, entity.EntityID(), entity.Fields())
	if err != nil {
		return err
	}

	if _, err := pgxTx(tx).Exec(ctx, sql, args...); err != nil {
		return mapError(err)
	}

	return nil
}

// Update writes the changed columns of an existing row.
func (s *EntityStore) Update(ctx context.Context, tx usecase.Transaction, change *domain.Change) error {
	table, err := schema.Lookup(change.Entity)
	if err != nil {
		return err
	}

	sql, args, err := table.Update(dialect, change)
	if err != nil {
		return err
	}

	tag, err := pgxTx(tx).Exec(ctx, sql, args...)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		cause := domain.ErrNotFound
		if len(change.Guard) > 0 {
			cause = domain.ErrStaleWrite
		}
		return fmt.Errorf("%s %s: %w", change.Entity.EntityName(), change.Entity.EntityID(), cause)
	}

	return nil
}

// Delete removes the row of entity. Rows still referenced by other tables
// fail with domain.ErrConstraintViolation.
func (s *EntityStore) Delete(ctx context.Context, tx usecase.Transaction, entity domain.Entity) error {
	table, err := schema.Lookup(entity)
	if err != nil {
		return err
	}

	sql, args := table.Delete(dialect, entity.EntityID())
	tag, err := pgxTx(tx).Exec(ctx, sql, args...)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s %s: %w", entity.EntityName(), entity.EntityID(), domain.ErrNotFound)
	}

	return nil
}

func encodeValue(v any) any {
	switch val := v.(type) {
	case decimal.Decimal:
		return decimalToNumeric(val)
	case time.Time:
		return timeToPgTimestamptz(val)
	case *time.Time:
		if val == nil {
			return pgtype.Timestamptz{}
		}
		return timeToPgTimestamptz(*val)
	default:
		return v
	}
}

func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	return pgtype.Numeric{Int: d.Coefficient(), Exp: d.Exponent(), Valid: true}
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid || n.Int == nil {
		return decimal.Zero
	}

	return decimal.NewFromBigInt(n.Int, n.Exp)
}

func timeToPgTimestamptz(t time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: t, Valid: true}
}
