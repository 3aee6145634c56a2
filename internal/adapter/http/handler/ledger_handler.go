package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/danhlc/poslite/internal/adapter/http/dto"
	"github.com/danhlc/poslite/internal/domain"
	"github.com/danhlc/poslite/internal/usecase"
)

// LedgerService defines the behavior needed by LedgerHandler.
type LedgerService interface {
	CustomerBalance(ctx context.Context, customerID string) (int64, error)
	ListEntries(ctx context.Context, customerID string, limit, offset int) ([]*domain.LedgerEntry, int, error)
	RecordAdjustment(ctx context.Context, input usecase.RecordAdjustmentInput) (*usecase.LedgerResult, error)
	PostInvoice(ctx context.Context, input usecase.PostInvoiceInput) (*usecase.LedgerResult, error)
	VerifyCustomer(ctx context.Context, customerID string) (*usecase.VerificationReport, error)
}

// LedgerHandler handles customer debt requests.
type LedgerHandler struct {
	ledgerUC LedgerService
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(ledgerUC LedgerService) *LedgerHandler {
	return &LedgerHandler{ledgerUC: ledgerUC}
}

// GetBalance returns the current balance of a customer. Unknown customers
// answer 404.
func (h *LedgerHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	balance, err := h.ledgerUC.CustomerBalance(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, "failed to get balance", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.BalanceResponse{CustomerID: id, Balance: balance})
}

// ListEntries returns the ledger of a customer, newest first.
func (h *LedgerHandler) ListEntries(w http.ResponseWriter, r *http.Request) {
	limit := parseIntQuery(r, "limit", 20)
	offset := parseIntQuery(r, "offset", 0)

	entries, total, err := h.ledgerUC.ListEntries(r.Context(), chi.URLParam(r, "id"), limit, offset)
	if err != nil {
		writeDomainError(w, r, "failed to list ledger entries", err)
		return
	}

	limit, offset, _ = domain.ValidatePagination(limit, offset)
	writeJSON(w, http.StatusOK, dto.ListResponse[*dto.LedgerEntryResponse]{
		Items:  dto.LedgerEntriesFromDomain(entries),
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}

// RecordAdjustment applies a manual adjustment. A zero delta answers 200
// with no_op set; an appended entry answers 201.
func (h *LedgerHandler) RecordAdjustment(w http.ResponseWriter, r *http.Request) {
	var req dto.AdjustmentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	result, err := h.ledgerUC.RecordAdjustment(r.Context(), req.ToUseCaseInput(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, r, "failed to record adjustment", err)
		return
	}

	writeLedgerResult(w, result)
}

// PostInvoice records the debt created by a sale invoice.
func (h *LedgerHandler) PostInvoice(w http.ResponseWriter, r *http.Request) {
	var req dto.InvoicePostingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	result, err := h.ledgerUC.PostInvoice(r.Context(), req.ToUseCaseInput(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, r, "failed to post invoice", err)
		return
	}

	writeLedgerResult(w, result)
}

// Verify replays the ledger of a customer and reports the first break.
func (h *LedgerHandler) Verify(w http.ResponseWriter, r *http.Request) {
	report, err := h.ledgerUC.VerifyCustomer(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, "failed to verify ledger", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.VerificationFromUseCase(report))
}

func writeLedgerResult(w http.ResponseWriter, result *usecase.LedgerResult) {
	status := http.StatusCreated
	if result.NoOp {
		status = http.StatusOK
	}
	writeJSON(w, status, dto.LedgerResultFromUseCase(result))
}
