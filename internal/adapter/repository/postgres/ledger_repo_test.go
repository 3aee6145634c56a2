package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"

	"github.com/danhlc/poslite/internal/domain"
)

var ledgerCols = []string{
	"entry_id", "customer_id", "date", "ref_type", "ref_id", "debit", "credit", "balance_after", "note",
}

func TestLedgerRepositoryBalanceTx(t *testing.T) {
	pool := newMockPool(t)
	repo := newLedgerRepository(pool)
	tx := beginMockTx(t, pool)

	pool.ExpectQuery("SUM\\(debit - credit\\)").
		WithArgs("cus-1").
		WillReturnRows(pgxmock.NewRows([]string{"balance"}).AddRow(int64(-20000)))

	balance, err := repo.BalanceTx(context.Background(), tx, "cus-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if balance != -20000 {
		t.Fatalf("expected -20000, got %d", balance)
	}

	assertExpectations(t, pool)
}

func TestLedgerRepositoryAppend(t *testing.T) {
	pool := newMockPool(t)
	repo := newLedgerRepository(pool)
	tx := beginMockTx(t, pool)

	date := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)
	note := "Điều chỉnh công nợ"
	entry := &domain.LedgerEntry{
		EntryID:      "led-1",
		CustomerID:   "cus-1",
		Date:         date,
		RefType:      domain.RefTypeAdjustment,
		Debit:        50000,
		BalanceAfter: 50000,
		Note:         &note,
	}

	pool.ExpectExec("INSERT INTO customer_ledger").
		WithArgs("led-1", "cus-1", timeToPgTimestamptz(date), "ADJ", (*string)(nil), int64(50000), int64(0), int64(50000), &note).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	if err := repo.Append(context.Background(), tx, entry); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	assertExpectations(t, pool)
}

func TestLedgerRepositoryAppendUnknownCustomer(t *testing.T) {
	pool := newMockPool(t)
	repo := newLedgerRepository(pool)
	tx := beginMockTx(t, pool)

	pool.ExpectExec("INSERT INTO customer_ledger").
		WillReturnError(&pgconn.PgError{Code: pgErrForeignKeyViolation, ConstraintName: "customer_ledger_customer_id_fkey"})

	err := repo.Append(context.Background(), tx, &domain.LedgerEntry{EntryID: "led-1", CustomerID: "ghost"})
	if !errors.Is(err, domain.ErrConstraintViolation) {
		t.Fatalf("expected ErrConstraintViolation, got %v", err)
	}
}

func TestLedgerRepositoryListByCustomer(t *testing.T) {
	pool := newMockPool(t)
	repo := newLedgerRepository(pool)

	now := time.Now().UTC()
	rows := pgxmock.NewRows(ledgerCols).
		AddRow("led-2", "cus-1", now, "INVOICE", strPtr("inv-7"), int64(30000), int64(10000), int64(70000), (*string)(nil)).
		AddRow("led-1", "cus-1", now.Add(-time.Hour), "ADJ", (*string)(nil), int64(50000), int64(0), int64(50000), strPtr("opening"))
	pool.ExpectQuery("ORDER BY seq DESC").WithArgs("cus-1", 20, 0).WillReturnRows(rows)

	entries, err := repo.ListByCustomer(context.Background(), "cus-1", 20, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].EntryID != "led-2" || *entries[0].RefID != "inv-7" {
		t.Fatalf("unexpected first entry: %+v", entries[0])
	}
	if entries[1].Delta() != 50000 {
		t.Fatalf("expected delta 50000, got %d", entries[1].Delta())
	}

	assertExpectations(t, pool)
}
