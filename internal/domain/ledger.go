package domain

import "time"

// Reference types of ledger entries.
const (
	RefTypeAdjustment = "ADJ"
	RefTypeInvoice    = "INVOICE"
)

// LedgerEntry is one immutable debit or credit against a customer.
// Debit raises the debt owed to the shop, Credit lowers it.
type LedgerEntry struct {
	EntryID      string
	CustomerID   string
	Date         time.Time
	RefType      string
	RefID        *string
	Debit        int64
	Credit       int64
	BalanceAfter int64
	Note         *string
}

// Delta returns the signed effect of the entry on the balance.
func (e *LedgerEntry) Delta() int64 {
	return e.Debit - e.Credit
}

// AdjustMode selects how an adjustment amount is applied.
type AdjustMode string

const (
	// AdjustModeSet drives the balance to exactly the amount.
	AdjustModeSet AdjustMode = "set"
	// AdjustModeDelta moves the balance by the amount in Direction.
	AdjustModeDelta AdjustMode = "delta"
)

// Direction of a delta adjustment.
type Direction string

const (
	DirectionIncrease Direction = "increase"
	DirectionDecrease Direction = "decrease"
)

// AdjustmentDelta returns the signed change that moves balance according to
// mode, direction and amount. Inputs must already be validated.
func AdjustmentDelta(balance int64, mode AdjustMode, direction Direction, amount int64) int64 {
	if mode == AdjustModeSet {
		return amount - balance
	}
	if direction == DirectionDecrease {
		return -amount
	}
	return amount
}

// SplitDelta returns the debit and credit columns for a signed delta.
func SplitDelta(delta int64) (debit, credit int64) {
	if delta > 0 {
		return delta, 0
	}
	return 0, -delta
}

// ChainBreak describes the first entry whose BalanceAfter does not follow
// from its predecessor.
type ChainBreak struct {
	Entry    *LedgerEntry
	Position int
	Expected int64
}

// VerifyChain replays entries in creation order. It returns the running sum
// and the first break, if any.
func VerifyChain(entries []*LedgerEntry) (int64, *ChainBreak) {
	var (
		running int64
		first   *ChainBreak
	)
	for i, e := range entries {
		running += e.Delta()
		if first == nil && e.BalanceAfter != running {
			first = &ChainBreak{Entry: e, Position: i, Expected: running}
		}
	}
	return running, first
}
