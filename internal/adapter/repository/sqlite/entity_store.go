package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/danhlc/poslite/internal/adapter/repository/schema"
	"github.com/danhlc/poslite/internal/domain"
	"github.com/danhlc/poslite/internal/usecase"
)

var dialect = schema.Dialect{
	Placeholder: func(n int) string { return "?" + strconv.Itoa(n) },
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

	query, args, err := table.Insert(dialect, entity.EntityID(), entity.Fields())
	if err != nil {
		return err
	}

	if _, err := sqlTx(tx).ExecContext(ctx, query, args...); err != nil {
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

	query, args, err := table.Update(dialect, change)
	if err != nil {
		return err
	}

	res, err := sqlTx(tx).ExecContext(ctx, query, args...)
	if err != nil {
		return mapError(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return missingRow(change)
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

	query, args := table.Delete(dialect, entity.EntityID())
	res, err := sqlTx(tx).ExecContext(ctx, query, args...)
	if err != nil {
		return mapError(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%s %s: %w", entity.EntityName(), entity.EntityID(), domain.ErrNotFound)
	}

	return nil
}

// missingRow explains an update that matched no row.
func missingRow(change *domain.Change) error {
	cause := domain.ErrNotFound
	if len(change.Guard) > 0 {
		cause = domain.ErrStaleWrite
	}
	return fmt.Errorf("%s %s: %w", change.Entity.EntityName(), change.Entity.EntityID(), cause)
}

// Times are stored as UTC unix nanoseconds.
func encodeValue(v any) any {
	switch val := v.(type) {
	case decimal.Decimal:
		return val.String()
	case time.Time:
		return val.UnixNano()
	case *time.Time:
		if val == nil {
			return nil
		}
		return val.UnixNano()
	default:
		return v
	}
}

func fromUnixNano(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

func fromNullUnixNano(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := fromUnixNano(n.Int64)
	return &t
}
