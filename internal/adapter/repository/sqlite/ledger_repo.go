package sqlite

import (
	"context"
	"database/sql"

	"github.com/danhlc/poslite/internal/domain"
	"github.com/danhlc/poslite/internal/usecase"
)

const ledgerColumns = `entry_id, customer_id, date, ref_type, ref_id, debit, credit, balance_after, note`

const customerBalance = `SELECT COALESCE(SUM(debit - credit), 0)
FROM customer_ledger
WHERE customer_id = ?1`

const countCustomerEntries = `SELECT COUNT(*)
FROM customer_ledger
WHERE customer_id = ?1`

const appendLedgerEntry = `INSERT INTO customer_ledger (` + ledgerColumns + `)
VALUES (?1, ?2, ?3, ?4, ?5, ?6, ?7, ?8, ?9)`

const listLedgerNewestFirst = `SELECT ` + ledgerColumns + `
FROM customer_ledger
WHERE customer_id = ?1
ORDER BY seq DESC
LIMIT ?2 OFFSET ?3`

const listLedgerChronological = `SELECT ` + ledgerColumns + `
FROM customer_ledger
WHERE customer_id = ?1
ORDER BY seq`

// LedgerRepository implements usecase.LedgerRepository.
type LedgerRepository struct {
	db DBTX
}

// NewLedgerRepository creates a new LedgerRepository.
func NewLedgerRepository(db *sql.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// Balance returns the committed balance of a customer.
func (r *LedgerRepository) Balance(ctx context.Context, customerID string) (int64, error) {
	var balance int64
	err := r.db.QueryRowContext(ctx, customerBalance, customerID).Scan(&balance)
	return balance, err
}

// BalanceTx returns the balance as seen inside tx.
func (r *LedgerRepository) BalanceTx(ctx context.Context, tx usecase.Transaction, customerID string) (int64, error) {
	var balance int64
	err := sqlTx(tx).QueryRowContext(ctx, customerBalance, customerID).Scan(&balance)
	return balance, err
}

// Append inserts a ledger entry.
func (r *LedgerRepository) Append(ctx context.Context, tx usecase.Transaction, e *domain.LedgerEntry) error {
	_, err := sqlTx(tx).ExecContext(ctx, appendLedgerEntry,
		e.EntryID,
		e.CustomerID,
		e.Date.UnixNano(),
		e.RefType,
		e.RefID,
		e.Debit,
		e.Credit,
		e.BalanceAfter,
		e.Note,
	)

	return mapError(err)
}

// ListByCustomer returns entries newest first.
func (r *LedgerRepository) ListByCustomer(ctx context.Context, customerID string, limit, offset int) ([]*domain.LedgerEntry, error) {
	return r.list(ctx, listLedgerNewestFirst, customerID, limit, offset)
}

// CountByCustomer returns the number of entries of a customer.
func (r *LedgerRepository) CountByCustomer(ctx context.Context, customerID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, countCustomerEntries, customerID).Scan(&n)
	return n, err
}

// ListChronological returns every entry of a customer in creation order.
func (r *LedgerRepository) ListChronological(ctx context.Context, customerID string) ([]*domain.LedgerEntry, error) {
	return r.list(ctx, listLedgerChronological, customerID)
}

func (r *LedgerRepository) list(ctx context.Context, query string, args ...any) ([]*domain.LedgerEntry, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*domain.LedgerEntry
	for rows.Next() {
		var (
			e    domain.LedgerEntry
			date int64
		)
		if err := rows.Scan(
			&e.EntryID, &e.CustomerID, &date, &e.RefType, &e.RefID,
			&e.Debit, &e.Credit, &e.BalanceAfter, &e.Note,
		); err != nil {
			return nil, err
		}
		e.Date = fromUnixNano(date)
		entries = append(entries, &e)
	}

	return entries, rows.Err()
}
