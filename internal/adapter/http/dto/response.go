package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/danhlc/poslite/internal/domain"
	"github.com/danhlc/poslite/internal/usecase"
)

// AuditResponse carries the bookkeeping columns of a record.
type AuditResponse struct {
	IsActive  bool       `json:"is_active"`
	CreatedBy string     `json:"created_by"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedBy *string    `json:"updated_by,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

func auditFromDomain(a domain.Audit) AuditResponse {
	return AuditResponse{
		IsActive:  a.IsActive,
		CreatedBy: a.CreatedBy,
		CreatedAt: a.CreatedAt,
		UpdatedBy: a.UpdatedBy,
		UpdatedAt: a.UpdatedAt,
	}
}

// CustomerResponse represents a customer in API responses. Balance is only
// set on search rows.
type CustomerResponse struct {
	ID      string  `json:"id"`
	Code    string  `json:"code"`
	Name    string  `json:"name"`
	Phone   *string `json:"phone,omitempty"`
	Address *string `json:"address,omitempty"`
	Balance *int64  `json:"balance,omitempty"`
	AuditResponse
}

// CustomerFromDomain converts a domain customer to a response.
func CustomerFromDomain(c *domain.Customer) *CustomerResponse {
	return &CustomerResponse{
		ID:            c.ID,
		Code:          c.Code,
		Name:          c.Name,
		Phone:         c.Phone,
		Address:       c.Address,
		AuditResponse: auditFromDomain(c.Audit),
	}
}

// CustomersWithBalanceFromDomain converts search rows to responses.
func CustomersWithBalanceFromDomain(rows []*domain.CustomerWithBalance) []*CustomerResponse {
	result := make([]*CustomerResponse, len(rows))
	for i, row := range rows {
		resp := CustomerFromDomain(row.Customer)
		balance := row.Balance
		resp.Balance = &balance
		result[i] = resp
	}
	return result
}

// CategoryResponse represents a category in API responses.
type CategoryResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	AuditResponse
}

// CategoryFromDomain converts a domain category to a response.
func CategoryFromDomain(c *domain.Category) *CategoryResponse {
	return &CategoryResponse{
		ID:            c.ID,
		Name:          c.Name,
		AuditResponse: auditFromDomain(c.Audit),
	}
}

// CategoriesFromDomain converts domain categories to responses.
func CategoriesFromDomain(categories []*domain.Category) []*CategoryResponse {
	result := make([]*CategoryResponse, len(categories))
	for i, c := range categories {
		result[i] = CategoryFromDomain(c)
	}
	return result
}

// ProductResponse represents a product in API responses.
type ProductResponse struct {
	ID         string          `json:"id"`
	Code       string          `json:"code"`
	Name       string          `json:"name"`
	Unit       string          `json:"unit"`
	CategoryID *string         `json:"category_id,omitempty"`
	Price      decimal.Decimal `json:"price"`
	AuditResponse
}

// ProductFromDomain converts a domain product to a response.
func ProductFromDomain(p *domain.Product) *ProductResponse {
	return &ProductResponse{
		ID:            p.ID,
		Code:          p.Code,
		Name:          p.Name,
		Unit:          p.Unit,
		CategoryID:    p.CategoryID,
		Price:         p.Price,
		AuditResponse: auditFromDomain(p.Audit),
	}
}

// ProductsFromDomain converts domain products to responses.
func ProductsFromDomain(products []*domain.Product) []*ProductResponse {
	result := make([]*ProductResponse, len(products))
	for i, p := range products {
		result[i] = ProductFromDomain(p)
	}
	return result
}

// LedgerEntryResponse represents a ledger entry in API responses.
type LedgerEntryResponse struct {
	EntryID      string    `json:"entry_id"`
	CustomerID   string    `json:"customer_id"`
	Date         time.Time `json:"date"`
	RefType      string    `json:"ref_type"`
	RefID        *string   `json:"ref_id,omitempty"`
	Debit        int64     `json:"debit"`
	Credit       int64     `json:"credit"`
	BalanceAfter int64     `json:"balance_after"`
	Note         *string   `json:"note,omitempty"`
}

// LedgerEntryFromDomain converts a domain entry to a response.
func LedgerEntryFromDomain(e *domain.LedgerEntry) *LedgerEntryResponse {
	return &LedgerEntryResponse{
		EntryID:      e.EntryID,
		CustomerID:   e.CustomerID,
		Date:         e.Date,
		RefType:      e.RefType,
		RefID:        e.RefID,
		Debit:        e.Debit,
		Credit:       e.Credit,
		BalanceAfter: e.BalanceAfter,
		Note:         e.Note,
	}
}

// LedgerEntriesFromDomain converts domain entries to responses.
func LedgerEntriesFromDomain(entries []*domain.LedgerEntry) []*LedgerEntryResponse {
	result := make([]*LedgerEntryResponse, len(entries))
	for i, e := range entries {
		result[i] = LedgerEntryFromDomain(e)
	}
	return result
}

// BalanceResponse represents the current balance of a customer.
type BalanceResponse struct {
	CustomerID string `json:"customer_id"`
	Balance    int64  `json:"balance"`
}

// LedgerResultResponse represents the outcome of a ledger write.
type LedgerResultResponse struct {
	Entry           *LedgerEntryResponse `json:"entry,omitempty"`
	PreviousBalance int64                `json:"previous_balance"`
	Balance         int64                `json:"balance"`
	NoOp            bool                 `json:"no_op"`
}

// LedgerResultFromUseCase converts a ledger write result to a response.
func LedgerResultFromUseCase(r *usecase.LedgerResult) *LedgerResultResponse {
	resp := &LedgerResultResponse{
		PreviousBalance: r.PreviousBalance,
		Balance:         r.Balance,
		NoOp:            r.NoOp,
	}
	if r.Entry != nil {
		resp.Entry = LedgerEntryFromDomain(r.Entry)
	}
	return resp
}

// VerificationResponse represents the result of a ledger chain check.
type VerificationResponse struct {
	CustomerID string `json:"customer_id"`
	Entries    int    `json:"entries"`
	Balance    int64  `json:"balance"`
	Consistent bool   `json:"consistent"`
	BreakAt    *int   `json:"break_at,omitempty"`
	BreakEntry string `json:"break_entry_id,omitempty"`
	Expected   *int64 `json:"expected_balance_after,omitempty"`
}

// VerificationFromUseCase converts a verification report to a response.
func VerificationFromUseCase(r *usecase.VerificationReport) *VerificationResponse {
	resp := &VerificationResponse{
		CustomerID: r.CustomerID,
		Entries:    r.Entries,
		Balance:    r.Balance,
		Consistent: r.Consistent,
	}
	if r.Break != nil {
		pos, expected := r.Break.Position, r.Break.Expected
		resp.BreakAt = &pos
		resp.BreakEntry = r.Break.Entry.EntryID
		resp.Expected = &expected
	}
	return resp
}

// BlockedDeleteResponse is a selected record a bulk delete kept.
type BlockedDeleteResponse struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// DeleteReportResponse represents the outcome of a bulk delete.
type DeleteReportResponse struct {
	Deleted []string                `json:"deleted"`
	Blocked []BlockedDeleteResponse `json:"blocked"`
	Missing []string                `json:"missing"`
}

// DeleteReportFromUseCase converts a bulk delete report to a response.
// Empty lists encode as [] rather than null.
func DeleteReportFromUseCase(r *usecase.DeleteReport) *DeleteReportResponse {
	resp := &DeleteReportResponse{
		Deleted: append([]string{}, r.Deleted...),
		Blocked: make([]BlockedDeleteResponse, 0, len(r.Blocked)),
		Missing: append([]string{}, r.Missing...),
	}
	for _, b := range r.Blocked {
		resp.Blocked = append(resp.Blocked, BlockedDeleteResponse{ID: b.ID, Name: b.Name, Reason: b.Reason})
	}
	return resp
}

// NormalizeResponse carries a normalized search key.
type NormalizeResponse struct {
	Text       string `json:"text"`
	Normalized string `json:"normalized"`
}

// ListResponse wraps one page of results.
type ListResponse[T any] struct {
	Items  []T `json:"items"`
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}
