package dto

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/danhlc/poslite/internal/domain"
	"github.com/danhlc/poslite/internal/usecase"
)

func TestCustomersWithBalanceFromDomain(t *testing.T) {
	phone := "0901234567"
	rows := []*domain.CustomerWithBalance{
		{
			Customer: &domain.Customer{ID: "c1", Code: "KH01", Name: "Nguyễn Văn An", Phone: &phone, Audit: domain.Audit{IsActive: true, CreatedBy: "thu"}},
			Balance:  150000,
		},
	}

	got := CustomersWithBalanceFromDomain(rows)

	if len(got) != 1 {
		t.Fatalf("expected 1 row, got %d", len(got))
	}
	if got[0].Balance == nil || *got[0].Balance != 150000 {
		t.Fatalf("expected balance 150000, got %v", got[0].Balance)
	}
	if got[0].CreatedBy != "thu" || !got[0].IsActive {
		t.Fatalf("expected audit fields to be copied, got %+v", got[0].AuditResponse)
	}
}

func TestCustomerFromDomain_OmitsBalance(t *testing.T) {
	resp := CustomerFromDomain(&domain.Customer{ID: "c1", Code: "KH01", Name: "An"})

	raw, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if _, ok := fields["balance"]; ok {
		t.Fatalf("expected balance to be omitted, got %s", raw)
	}
	if _, ok := fields["is_active"]; !ok {
		t.Fatalf("expected embedded audit fields at top level, got %s", raw)
	}
}

func TestProductFromDomain_PriceAsString(t *testing.T) {
	resp := ProductFromDomain(&domain.Product{ID: "p1", Code: "SP01", Name: "Nước suối", Price: decimal.RequireFromString("12500.50")})

	raw, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if fields["price"] != "12500.5" {
		t.Fatalf("expected price \"12500.5\", got %v", fields["price"])
	}
}

func TestLedgerResultFromUseCase(t *testing.T) {
	t.Run("no-op has no entry", func(t *testing.T) {
		resp := LedgerResultFromUseCase(&usecase.LedgerResult{PreviousBalance: 100, Balance: 100, NoOp: true})
		if resp.Entry != nil || !resp.NoOp {
			t.Fatalf("expected no-op without entry, got %+v", resp)
		}
	})

	t.Run("appended entry", func(t *testing.T) {
		entry := &domain.LedgerEntry{EntryID: "e1", CustomerID: "c1", Date: time.Now(), RefType: domain.RefTypeAdjustment, Debit: 50, BalanceAfter: 150}
		resp := LedgerResultFromUseCase(&usecase.LedgerResult{Entry: entry, PreviousBalance: 100, Balance: 150})
		if resp.Entry == nil || resp.Entry.EntryID != "e1" || resp.Balance != 150 {
			t.Fatalf("unexpected response %+v", resp)
		}
	})
}

func TestVerificationFromUseCase(t *testing.T) {
	broken := &domain.LedgerEntry{EntryID: "e2"}
	resp := VerificationFromUseCase(&usecase.VerificationReport{
		CustomerID: "c1",
		Entries:    3,
		Balance:    70,
		Break:      &domain.ChainBreak{Entry: broken, Position: 1, Expected: 40},
	})

	if resp.Consistent {
		t.Fatalf("expected inconsistent report")
	}
	if resp.BreakAt == nil || *resp.BreakAt != 1 || resp.BreakEntry != "e2" || *resp.Expected != 40 {
		t.Fatalf("unexpected break details %+v", resp)
	}
}
