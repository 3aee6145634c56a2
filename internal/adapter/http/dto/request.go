package dto

import (
	"github.com/shopspring/decimal"

	"github.com/danhlc/poslite/internal/domain"
	"github.com/danhlc/poslite/internal/usecase"
)

// CustomerRequest represents a request to create or update a customer.
// An empty code on create asks the server to generate one.
type CustomerRequest struct {
	Code     string  `json:"code"`
	Name     string  `json:"name"`
	Phone    *string `json:"phone,omitempty"`
	Address  *string `json:"address,omitempty"`
	IsActive *bool   `json:"is_active,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *CustomerRequest) ToUseCaseInput() usecase.CustomerInput {
	return usecase.CustomerInput{
		Code:     r.Code,
		Name:     r.Name,
		Phone:    r.Phone,
		Address:  r.Address,
		IsActive: r.IsActive,
	}
}

// CategoryRequest represents a request to create or update a category.
type CategoryRequest struct {
	Name     string `json:"name"`
	IsActive *bool  `json:"is_active,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *CategoryRequest) ToUseCaseInput() usecase.CategoryInput {
	return usecase.CategoryInput{
		Name:     r.Name,
		IsActive: r.IsActive,
	}
}

// ProductRequest represents a request to create or update a product.
type ProductRequest struct {
	Code       string          `json:"code"`
	Name       string          `json:"name"`
	Unit       string          `json:"unit"`
	CategoryID *string         `json:"category_id,omitempty"`
	Price      decimal.Decimal `json:"price"`
	IsActive   *bool           `json:"is_active,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *ProductRequest) ToUseCaseInput() usecase.ProductInput {
	return usecase.ProductInput{
		Code:       r.Code,
		Name:       r.Name,
		Unit:       r.Unit,
		CategoryID: r.CategoryID,
		Price:      r.Price,
		IsActive:   r.IsActive,
	}
}

// AdjustmentRequest represents a manual debt adjustment. Direction is only
// read in delta mode.
type AdjustmentRequest struct {
	Mode      string  `json:"mode"`
	Direction string  `json:"direction,omitempty"`
	Amount    int64   `json:"amount"`
	Note      *string `json:"note,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *AdjustmentRequest) ToUseCaseInput(customerID string) usecase.RecordAdjustmentInput {
	return usecase.RecordAdjustmentInput{
		CustomerID: customerID,
		Mode:       domain.AdjustMode(r.Mode),
		Direction:  domain.Direction(r.Direction),
		Amount:     r.Amount,
		Note:       r.Note,
	}
}

// InvoicePostingRequest represents the ledger posting of a sale invoice.
type InvoicePostingRequest struct {
	InvoiceID string  `json:"invoice_id"`
	Total     int64   `json:"total"`
	Payment   int64   `json:"payment"`
	Note      *string `json:"note,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *InvoicePostingRequest) ToUseCaseInput(customerID string) usecase.PostInvoiceInput {
	return usecase.PostInvoiceInput{
		CustomerID: customerID,
		InvoiceID:  r.InvoiceID,
		Total:      r.Total,
		Payment:    r.Payment,
		Note:       r.Note,
	}
}

// BulkDeleteRequest selects records to delete.
type BulkDeleteRequest struct {
	IDs []string `json:"ids"`
}
