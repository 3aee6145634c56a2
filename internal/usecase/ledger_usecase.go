package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/danhlc/poslite/internal/domain"
)

var noteLocale = language.MustParse("vi-VN")

// LedgerUseCase is the only reader and writer of customer balances.
type LedgerUseCase struct {
	txManager    TransactionManager
	customerRepo CustomerRepository
	ledgerRepo   LedgerRepository
	idGen        IDGenerator
	retrier      Retrier
	metrics      MetricsRecorder
	now          func() time.Time
}

// NewLedgerUseCase creates a new LedgerUseCase.
func NewLedgerUseCase(
	txManager TransactionManager,
	customerRepo CustomerRepository,
	ledgerRepo LedgerRepository,
	idGen IDGenerator,
) *LedgerUseCase {
	return &LedgerUseCase{
		txManager:    txManager,
		customerRepo: customerRepo,
		ledgerRepo:   ledgerRepo,
		idGen:        idGen,
		retrier:      directRetrier{},
		metrics:      noopMetrics{},
		now:          time.Now,
	}
}

// WithRetrier sets the retrier that re-runs conflicting transactions.
func (uc *LedgerUseCase) WithRetrier(r Retrier) *LedgerUseCase {
	uc.retrier = r
	return uc
}

// WithMetrics sets the metrics recorder.
func (uc *LedgerUseCase) WithMetrics(m MetricsRecorder) *LedgerUseCase {
	uc.metrics = m
	return uc
}

// WithClock overrides the time source.
func (uc *LedgerUseCase) WithClock(now func() time.Time) *LedgerUseCase {
	uc.now = now
	return uc
}

// RecordAdjustmentInput represents a manual balance adjustment.
type RecordAdjustmentInput struct {
	CustomerID string
	Mode       domain.AdjustMode
	Direction  domain.Direction
	Amount     int64
	Note       *string
}

// PostInvoiceInput represents the ledger effect of a sale invoice.
type PostInvoiceInput struct {
	CustomerID string
	InvoiceID  string
	Total      int64
	Payment    int64
	Note       *string
}

// LedgerResult is the outcome of a ledger write. Entry is nil for a no-op.
type LedgerResult struct {
	Entry           *domain.LedgerEntry
	PreviousBalance int64
	Balance         int64
	NoOp            bool
}

// VerificationReport is the result of replaying a customer's entries.
type VerificationReport struct {
	CustomerID string
	Entries    int
	Balance    int64
	Consistent bool
	Break      *domain.ChainBreak
}

// GetBalance returns sum(debit) - sum(credit) for the customer, 0 when it
// has no entries.
func (uc *LedgerUseCase) GetBalance(ctx context.Context, customerID string) (int64, error) {
	return uc.ledgerRepo.Balance(ctx, customerID)
}

// CustomerBalance is GetBalance for a customer that must exist, inactive
// ones included.
func (uc *LedgerUseCase) CustomerBalance(ctx context.Context, customerID string) (int64, error) {
	if _, err := uc.customerRepo.GetByID(ctx, customerID, true); err != nil {
		return 0, err
	}

	return uc.ledgerRepo.Balance(ctx, customerID)
}

// RecordAdjustment moves the balance of a customer by a manual adjustment.
// A zero delta writes nothing and returns a NoOp result.
func (uc *LedgerUseCase) RecordAdjustment(ctx context.Context, input RecordAdjustmentInput) (*LedgerResult, error) {
	// 0. Validate inputs before starting transaction
	if err := domain.ValidateAdjustment(input.Mode, input.Direction, input.Amount, input.Note); err != nil {
		return nil, err
	}

	return uc.append(ctx, input.CustomerID, domain.RefTypeAdjustment, func(balance int64) (*domain.LedgerEntry, bool) {
		delta := domain.AdjustmentDelta(balance, input.Mode, input.Direction, input.Amount)
		if delta == 0 {
			return nil, false
		}

		debit, credit := domain.SplitDelta(delta)
		note := input.Note
		if note == nil || strings.TrimSpace(*note) == "" {
			n := defaultAdjustmentNote(balance)
			note = &n
		}

		return &domain.LedgerEntry{
			RefType: domain.RefTypeAdjustment,
			Debit:   debit,
			Credit:  credit,
			Note:    note,
		}, true
	})
}

// PostInvoice records the debt created by an invoice: the total as debit
// and the payment received as credit.
func (uc *LedgerUseCase) PostInvoice(ctx context.Context, input PostInvoiceInput) (*LedgerResult, error) {
	if strings.TrimSpace(input.InvoiceID) == "" {
		return nil, fmt.Errorf("%w: invoice id is required", domain.ErrInvalidReference)
	}

	if err := domain.ValidateInvoicePosting(input.Total, input.Payment, input.Note); err != nil {
		return nil, err
	}

	invoiceID := strings.TrimSpace(input.InvoiceID)

	return uc.append(ctx, input.CustomerID, domain.RefTypeInvoice, func(int64) (*domain.LedgerEntry, bool) {
		if input.Total == 0 && input.Payment == 0 {
			return nil, false
		}

		return &domain.LedgerEntry{
			RefType: domain.RefTypeInvoice,
			RefID:   &invoiceID,
			Debit:   input.Total,
			Credit:  input.Payment,
			Note:    input.Note,
		}, true
	})
}

// append runs the lock, read, append sequence for one customer. build turns
// the current balance into the entry to write.
func (uc *LedgerUseCase) append(
	ctx context.Context,
	customerID string,
	refType string,
	build func(balance int64) (*domain.LedgerEntry, bool),
) (*LedgerResult, error) {
	var result *LedgerResult

	err := uc.retrier.Retry(ctx, func() error {
		r, err := uc.appendTx(ctx, customerID, build)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrConcurrencyConflict) {
			uc.metrics.RecordLedgerConflict()
		}
		return nil, err
	}

	if result.NoOp {
		uc.metrics.RecordLedgerEntry(refType, OutcomeNoOp)
	} else {
		uc.metrics.RecordLedgerEntry(refType, OutcomeAppended)
	}

	return result, nil
}

func (uc *LedgerUseCase) appendTx(
	ctx context.Context,
	customerID string,
	build func(balance int64) (*domain.LedgerEntry, bool),
) (*LedgerResult, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	// 1. Begin transaction
	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	// 2. Lock the customer so balance reads are linearized per customer
	customer, err := uc.customerRepo.GetByIDForUpdate(ctx, tx, customerID)
	if err != nil {
		return nil, err
	}

	if !customer.IsActive {
		return nil, domain.ErrCustomerNotFound
	}

	// 3. Read balance under the lock
	balance, err := uc.ledgerRepo.BalanceTx(ctx, tx, customerID)
	if err != nil {
		return nil, err
	}

	entry, ok := build(balance)
	if !ok {
		return &LedgerResult{PreviousBalance: balance, Balance: balance, NoOp: true}, nil
	}

	// 4. Append entry
	entry.EntryID = uc.idGen.Generate()
	entry.CustomerID = customerID
	entry.Date = uc.now().UTC()
	entry.BalanceAfter = balance + entry.Delta()

	if err := uc.ledgerRepo.Append(ctx, tx, entry); err != nil {
		return nil, err
	}

	// 5. Commit transaction
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return &LedgerResult{Entry: entry, PreviousBalance: balance, Balance: entry.BalanceAfter}, nil
}

// ListEntries returns one page of the ledger history of a customer, newest
// first, and the total number of entries.
func (uc *LedgerUseCase) ListEntries(ctx context.Context, customerID string, limit, offset int) ([]*domain.LedgerEntry, int, error) {
	limit, offset, _ = domain.ValidatePagination(limit, offset)

	if _, err := uc.customerRepo.GetByID(ctx, customerID, true); err != nil {
		return nil, 0, err
	}

	total, err := uc.ledgerRepo.CountByCustomer(ctx, customerID)
	if err != nil {
		return nil, 0, err
	}

	entries, err := uc.ledgerRepo.ListByCustomer(ctx, customerID, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}

// VerifyCustomer replays every entry of a customer in creation order and
// reports the first BalanceAfter snapshot that breaks the chain.
func (uc *LedgerUseCase) VerifyCustomer(ctx context.Context, customerID string) (*VerificationReport, error) {
	if _, err := uc.customerRepo.GetByID(ctx, customerID, true); err != nil {
		return nil, err
	}

	entries, err := uc.ledgerRepo.ListChronological(ctx, customerID)
	if err != nil {
		return nil, err
	}

	balance, broken := domain.VerifyChain(entries)

	return &VerificationReport{
		CustomerID: customerID,
		Entries:    len(entries),
		Balance:    balance,
		Consistent: broken == nil,
		Break:      broken,
	}, nil
}

// defaultAdjustmentNote quotes the prior balance with Vietnamese grouping,
// e.g. "Điều chỉnh công nợ (số dư cũ: 50.000)".
func defaultAdjustmentNote(balance int64) string {
	p := message.NewPrinter(noteLocale)
	return p.Sprintf("Điều chỉnh công nợ (số dư cũ: %d)", balance)
}
