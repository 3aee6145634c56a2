package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/danhlc/poslite/internal/adapter/http/dto"
	"github.com/danhlc/poslite/internal/domain"
	"github.com/danhlc/poslite/internal/usecase"
)

// CustomerService defines the behavior needed by CustomerHandler.
type CustomerService interface {
	Create(ctx context.Context, input usecase.CustomerInput) (*domain.Customer, error)
	Update(ctx context.Context, id string, input usecase.CustomerInput) (*domain.Customer, error)
	SetActive(ctx context.Context, id string, active bool) (*domain.Customer, error)
	Get(ctx context.Context, id string, includeInactive bool) (*domain.Customer, error)
	Search(ctx context.Context, filter domain.CustomerFilter) ([]*domain.CustomerWithBalance, int, error)
	DeleteMany(ctx context.Context, ids []string) (*usecase.DeleteReport, error)
}

// CustomerHandler handles customer-related HTTP requests.
type CustomerHandler struct {
	customerUC CustomerService
}

// NewCustomerHandler creates a new CustomerHandler.
func NewCustomerHandler(customerUC CustomerService) *CustomerHandler {
	return &CustomerHandler{customerUC: customerUC}
}

// Create creates a new customer.
func (h *CustomerHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CustomerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	customer, err := h.customerUC.Create(r.Context(), req.ToUseCaseInput())
	if err != nil {
		writeDomainError(w, r, "failed to create customer", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.CustomerFromDomain(customer))
}

// Get retrieves a customer by ID, including inactive ones.
func (h *CustomerHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	customer, err := h.customerUC.Get(r.Context(), id, true)
	if err != nil {
		writeDomainError(w, r, "failed to get customer", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.CustomerFromDomain(customer))
}

// Update replaces the editable fields of a customer.
func (h *CustomerHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req dto.CustomerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	customer, err := h.customerUC.Update(r.Context(), id, req.ToUseCaseInput())
	if err != nil {
		writeDomainError(w, r, "failed to update customer", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.CustomerFromDomain(customer))
}

// Activate marks a customer active.
func (h *CustomerHandler) Activate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, true)
}

// Deactivate marks a customer inactive. Its ledger stays readable.
func (h *CustomerHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, false)
}

func (h *CustomerHandler) setActive(w http.ResponseWriter, r *http.Request, active bool) {
	customer, err := h.customerUC.SetActive(r.Context(), chi.URLParam(r, "id"), active)
	if err != nil {
		writeDomainError(w, r, "failed to change customer status", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.CustomerFromDomain(customer))
}

// Search lists customers matching q with their balances.
func (h *CustomerHandler) Search(w http.ResponseWriter, r *http.Request) {
	filter := domain.CustomerFilter{
		Query:  r.URL.Query().Get("q"),
		Status: domain.ParseStatusFilter(r.URL.Query().Get("status")),
		Limit:  parseIntQuery(r, "limit", 20),
		Offset: parseIntQuery(r, "offset", 0),
	}

	rows, total, err := h.customerUC.Search(r.Context(), filter)
	if err != nil {
		writeDomainError(w, r, "failed to search customers", err)
		return
	}

	limit, offset, _ := domain.ValidatePagination(filter.Limit, filter.Offset)
	writeJSON(w, http.StatusOK, dto.ListResponse[*dto.CustomerResponse]{
		Items:  dto.CustomersWithBalanceFromDomain(rows),
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}

// BulkDelete deletes the selected customers. Customers with ledger entries
// are reported as blocked.
func (h *CustomerHandler) BulkDelete(w http.ResponseWriter, r *http.Request) {
	var req dto.BulkDeleteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	report, err := h.customerUC.DeleteMany(r.Context(), req.IDs)
	if err != nil {
		writeDomainError(w, r, "failed to delete customers", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.DeleteReportFromUseCase(report))
}
