package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/danhlc/poslite/internal/adapter/http/dto"
	"github.com/danhlc/poslite/internal/domain"
	"github.com/danhlc/poslite/internal/usecase"
)

// CatalogService defines the behavior needed by CatalogHandler.
type CatalogService interface {
	CreateCategory(ctx context.Context, input usecase.CategoryInput) (*domain.Category, error)
	UpdateCategory(ctx context.Context, id string, input usecase.CategoryInput) (*domain.Category, error)
	SearchCategories(ctx context.Context, filter domain.CatalogFilter) ([]*domain.Category, int, error)
	CreateProduct(ctx context.Context, input usecase.ProductInput) (*domain.Product, error)
	UpdateProduct(ctx context.Context, id string, input usecase.ProductInput) (*domain.Product, error)
	SearchProducts(ctx context.Context, filter domain.CatalogFilter) ([]*domain.Product, int, error)
	DeleteCategories(ctx context.Context, ids []string) (*usecase.DeleteReport, error)
	DeleteProducts(ctx context.Context, ids []string) (*usecase.DeleteReport, error)
}

// CatalogHandler handles category and product requests.
type CatalogHandler struct {
	catalogUC CatalogService
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(catalogUC CatalogService) *CatalogHandler {
	return &CatalogHandler{catalogUC: catalogUC}
}

// CreateCategory creates a new category.
func (h *CatalogHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req dto.CategoryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	category, err := h.catalogUC.CreateCategory(r.Context(), req.ToUseCaseInput())
	if err != nil {
		writeDomainError(w, r, "failed to create category", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.CategoryFromDomain(category))
}

// UpdateCategory replaces the editable fields of a category.
func (h *CatalogHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	var req dto.CategoryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	category, err := h.catalogUC.UpdateCategory(r.Context(), chi.URLParam(r, "id"), req.ToUseCaseInput())
	if err != nil {
		writeDomainError(w, r, "failed to update category", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.CategoryFromDomain(category))
}

// SearchCategories lists categories matching q.
func (h *CatalogHandler) SearchCategories(w http.ResponseWriter, r *http.Request) {
	filter := catalogFilter(r)

	categories, total, err := h.catalogUC.SearchCategories(r.Context(), filter)
	if err != nil {
		writeDomainError(w, r, "failed to search categories", err)
		return
	}

	limit, offset, _ := domain.ValidatePagination(filter.Limit, filter.Offset)
	writeJSON(w, http.StatusOK, dto.ListResponse[*dto.CategoryResponse]{
		Items:  dto.CategoriesFromDomain(categories),
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}

// CreateProduct creates a new product.
func (h *CatalogHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req dto.ProductRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	product, err := h.catalogUC.CreateProduct(r.Context(), req.ToUseCaseInput())
	if err != nil {
		writeDomainError(w, r, "failed to create product", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.ProductFromDomain(product))
}

// UpdateProduct replaces the editable fields of a product.
func (h *CatalogHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	var req dto.ProductRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	product, err := h.catalogUC.UpdateProduct(r.Context(), chi.URLParam(r, "id"), req.ToUseCaseInput())
	if err != nil {
		writeDomainError(w, r, "failed to update product", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ProductFromDomain(product))
}

// SearchProducts lists products matching q, optionally within one category.
func (h *CatalogHandler) SearchProducts(w http.ResponseWriter, r *http.Request) {
	filter := catalogFilter(r)
	filter.CategoryID = optionalQuery(r, "category_id")

	products, total, err := h.catalogUC.SearchProducts(r.Context(), filter)
	if err != nil {
		writeDomainError(w, r, "failed to search products", err)
		return
	}

	limit, offset, _ := domain.ValidatePagination(filter.Limit, filter.Offset)
	writeJSON(w, http.StatusOK, dto.ListResponse[*dto.ProductResponse]{
		Items:  dto.ProductsFromDomain(products),
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}

// BulkDeleteCategories deletes the selected categories. Categories that
// products link to are reported as blocked.
func (h *CatalogHandler) BulkDeleteCategories(w http.ResponseWriter, r *http.Request) {
	h.bulkDelete(w, r, "failed to delete categories", h.catalogUC.DeleteCategories)
}

// BulkDeleteProducts deletes the selected products.
func (h *CatalogHandler) BulkDeleteProducts(w http.ResponseWriter, r *http.Request) {
	h.bulkDelete(w, r, "failed to delete products", h.catalogUC.DeleteProducts)
}

func (h *CatalogHandler) bulkDelete(
	w http.ResponseWriter,
	r *http.Request,
	msg string,
	del func(ctx context.Context, ids []string) (*usecase.DeleteReport, error),
) {
	var req dto.BulkDeleteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	report, err := del(r.Context(), req.IDs)
	if err != nil {
		writeDomainError(w, r, msg, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.DeleteReportFromUseCase(report))
}

func catalogFilter(r *http.Request) domain.CatalogFilter {
	return domain.CatalogFilter{
		Query:  r.URL.Query().Get("q"),
		Status: domain.ParseStatusFilter(r.URL.Query().Get("status")),
		Limit:  parseIntQuery(r, "limit", 20),
		Offset: parseIntQuery(r, "offset", 0),
	}
}
