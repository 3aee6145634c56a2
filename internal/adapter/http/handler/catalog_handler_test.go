package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/danhlc/poslite/internal/domain"
	"github.com/danhlc/poslite/internal/usecase"
)

type catalogServiceStub struct {
	createCategoryFn   func(ctx context.Context, input usecase.CategoryInput) (*domain.Category, error)
	updateCategoryFn   func(ctx context.Context, id string, input usecase.CategoryInput) (*domain.Category, error)
	searchCategoriesFn func(ctx context.Context, filter domain.CatalogFilter) ([]*domain.Category, int, error)
	createProductFn    func(ctx context.Context, input usecase.ProductInput) (*domain.Product, error)
	updateProductFn    func(ctx context.Context, id string, input usecase.ProductInput) (*domain.Product, error)
	searchProductsFn   func(ctx context.Context, filter domain.CatalogFilter) ([]*domain.Product, int, error)
	deleteCategoriesFn func(ctx context.Context, ids []string) (*usecase.DeleteReport, error)
	deleteProductsFn   func(ctx context.Context, ids []string) (*usecase.DeleteReport, error)
}

func (s *catalogServiceStub) CreateCategory(ctx context.Context, input usecase.CategoryInput) (*domain.Category, error) {
	return s.createCategoryFn(ctx, input)
}

func (s *catalogServiceStub) UpdateCategory(ctx context.Context, id string, input usecase.CategoryInput) (*domain.Category, error) {
	return s.updateCategoryFn(ctx, id, input)
}

func (s *catalogServiceStub) SearchCategories(ctx context.Context, filter domain.CatalogFilter) ([]*domain.Category, int, error) {
	return s.searchCategoriesFn(ctx, filter)
}

func (s *catalogServiceStub) CreateProduct(ctx context.Context, input usecase.ProductInput) (*domain.Product, error) {
	return s.createProductFn(ctx, input)
}

func (s *catalogServiceStub) UpdateProduct(ctx context.Context, id string, input usecase.ProductInput) (*domain.Product, error) {
	return s.updateProductFn(ctx, id, input)
}

func (s *catalogServiceStub) SearchProducts(ctx context.Context, filter domain.CatalogFilter) ([]*domain.Product, int, error) {
	return s.searchProductsFn(ctx, filter)
}

func (s *catalogServiceStub) DeleteCategories(ctx context.Context, ids []string) (*usecase.DeleteReport, error) {
	return s.deleteCategoriesFn(ctx, ids)
}

func (s *catalogServiceStub) DeleteProducts(ctx context.Context, ids []string) (*usecase.DeleteReport, error) {
	return s.deleteProductsFn(ctx, ids)
}

func TestCatalogHandler_CreateProduct(t *testing.T) {
	var captured usecase.ProductInput
	handler := NewCatalogHandler(&catalogServiceStub{
		createProductFn: func(ctx context.Context, input usecase.ProductInput) (*domain.Product, error) {
			captured = input
			return &domain.Product{ID: "p1", Code: input.Code, Name: input.Name, Price: input.Price}, nil
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/products", bytes.NewBufferString(`{"code":"SP01","name":"Mì gói","unit":"gói","price":"4500"}`))
	rec := httptest.NewRecorder()

	handler.CreateProduct(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if !captured.Price.Equal(decimal.NewFromInt(4500)) || captured.Unit != "gói" {
		t.Fatalf("unexpected input %+v", captured)
	}
}

func TestCatalogHandler_CreateProduct_RejectsUnknownFields(t *testing.T) {
	handler := NewCatalogHandler(&catalogServiceStub{
		createProductFn: func(ctx context.Context, input usecase.ProductInput) (*domain.Product, error) {
			t.Fatal("CreateProduct should not be called")
			return nil, nil
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/products", bytes.NewBufferString(`{"code":"SP01","name":"Mì","created_by":"mallory"}`))
	rec := httptest.NewRecorder()

	handler.CreateProduct(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestCatalogHandler_SearchProducts_CategoryFilter(t *testing.T) {
	var captured domain.CatalogFilter
	handler := NewCatalogHandler(&catalogServiceStub{
		searchProductsFn: func(ctx context.Context, filter domain.CatalogFilter) ([]*domain.Product, int, error) {
			captured = filter
			return []*domain.Product{}, 0, nil
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/products?q=mi&category_id=cat-1", nil)
	rec := httptest.NewRecorder()

	handler.SearchProducts(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if captured.CategoryID == nil || *captured.CategoryID != "cat-1" || captured.Query != "mi" {
		t.Fatalf("unexpected filter %+v", captured)
	}
}

func TestCatalogHandler_UpdateCategory_DuplicateName(t *testing.T) {
	handler := NewCatalogHandler(&catalogServiceStub{
		updateCategoryFn: func(ctx context.Context, id string, input usecase.CategoryInput) (*domain.Category, error) {
			if id != "cat-1" {
				t.Fatalf("expected id cat-1, got %s", id)
			}
			return nil, domain.ErrConstraintViolation
		},
	})

	req := withURLParam(httptest.NewRequest(http.MethodPut, "/categories/cat-1", bytes.NewBufferString(`{"name":"Đồ uống"}`)), "id", "cat-1")
	rec := httptest.NewRecorder()

	handler.UpdateCategory(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestCatalogHandler_CreateCategory_InvalidName(t *testing.T) {
	handler := NewCatalogHandler(&catalogServiceStub{
		createCategoryFn: func(ctx context.Context, input usecase.CategoryInput) (*domain.Category, error) {
			return nil, domain.ErrInvalidName
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/categories", bytes.NewBufferString(`{"name":""}`))
	rec := httptest.NewRecorder()

	handler.CreateCategory(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestCatalogHandler_BulkDeleteCategories(t *testing.T) {
	handler := NewCatalogHandler(&catalogServiceStub{
		deleteCategoriesFn: func(ctx context.Context, ids []string) (*usecase.DeleteReport, error) {
			return &usecase.DeleteReport{
				Blocked: []usecase.BlockedDelete{{ID: ids[0], Name: "Bia", Reason: usecase.BlockedByProducts}},
			}, nil
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/categories/bulk-delete", bytes.NewBufferString(`{"ids":["cat-1"]}`))
	rec := httptest.NewRecorder()

	handler.BulkDeleteCategories(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"reason":"has_products"`) {
		t.Fatalf("expected blocked category in body, got %s", rec.Body.String())
	}
}

func TestCatalogHandler_BulkDeleteProductsRejectsBadBody(t *testing.T) {
	handler := NewCatalogHandler(&catalogServiceStub{})

	req := httptest.NewRequest(http.MethodPost, "/products/bulk-delete", bytes.NewBufferString(`{"ids":`))
	rec := httptest.NewRecorder()

	handler.BulkDeleteProducts(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestCatalogHandler_BulkDeleteProductsTooMany(t *testing.T) {
	handler := NewCatalogHandler(&catalogServiceStub{
		deleteProductsFn: func(ctx context.Context, ids []string) (*usecase.DeleteReport, error) {
			return nil, domain.ErrInvalidSelection
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/products/bulk-delete", bytes.NewBufferString(`{"ids":["p1"]}`))
	rec := httptest.NewRecorder()

	handler.BulkDeleteProducts(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
