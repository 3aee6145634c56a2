// Package sqlite implements the stores on the embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/danhlc/poslite/internal/usecase"
)

// DBTX is the query surface shared by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// TxManager implements usecase.TransactionManager. The connection string
// must set _txlock=immediate so Begin takes the write lock.
type TxManager struct {
	db *sql.DB
}

// NewTxManager creates a new TxManager.
func NewTxManager(db *sql.DB) *TxManager {
	return &TxManager{db: db}
}

// Begin starts a new transaction.
func (m *TxManager) Begin(ctx context.Context) (usecase.Transaction, error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}

	return &Tx{tx: tx}, nil
}

// Tx wraps a database/sql transaction.
type Tx struct {
	tx *sql.Tx
}

// Commit commits the transaction.
func (t *Tx) Commit(_ context.Context) error {
	return mapError(t.tx.Commit())
}

// Rollback rolls back the transaction. Rolling back a finished
// transaction is not an error.
func (t *Tx) Rollback(_ context.Context) error {
	err := t.tx.Rollback()
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return err
}

// SQLTx returns the underlying *sql.Tx.
func (t *Tx) SQLTx() *sql.Tx {
	return t.tx
}

func sqlTx(tx usecase.Transaction) *sql.Tx {
	return tx.(*Tx).SQLTx()
}
