package domain

import "github.com/shopspring/decimal"

// Entity names of catalog records.
const (
	EntityCategory = "category"
	EntityProduct  = "product"
)

// Product field names not shared with Customer.
const (
	FieldUnit       = "Unit"
	FieldCategoryID = "CategoryID"
	FieldPrice      = "Price"
)

// Category groups products on the sale screen.
type Category struct {
	ID         string
	Name       string
	NameSearch string
	Audit
}

func (c *Category) EntityName() string { return EntityCategory }
func (c *Category) EntityID() string   { return c.ID }
func (c *Category) AuditInfo() *Audit  { return &c.Audit }

func (c *Category) Fields() map[string]any {
	m := map[string]any{
		FieldName:       c.Name,
		FieldNameSearch: c.NameSearch,
	}
	c.Audit.fields(m)
	return m
}

func (c *Category) SearchKeys() []SearchKey {
	return []SearchKey{
		{SourceField: FieldName, KeyField: FieldNameSearch, Source: &c.Name, Key: &c.NameSearch},
	}
}

// Product is a sellable item.
type Product struct {
	ID         string
	Code       string
	Name       string
	Unit       string
	CategoryID *string
	Price      decimal.Decimal
	NameSearch string
	CodeSearch string
	Audit
}

func (p *Product) EntityName() string { return EntityProduct }
func (p *Product) EntityID() string   { return p.ID }
func (p *Product) AuditInfo() *Audit  { return &p.Audit }

func (p *Product) Fields() map[string]any {
	m := map[string]any{
		FieldCode:       p.Code,
		FieldName:       p.Name,
		FieldUnit:       p.Unit,
		FieldCategoryID: p.CategoryID,
		FieldPrice:      p.Price,
		FieldNameSearch: p.NameSearch,
		FieldCodeSearch: p.CodeSearch,
	}
	p.Audit.fields(m)
	return m
}

func (p *Product) SearchKeys() []SearchKey {
	return []SearchKey{
		{SourceField: FieldName, KeyField: FieldNameSearch, Source: &p.Name, Key: &p.NameSearch},
		{SourceField: FieldCode, KeyField: FieldCodeSearch, Source: &p.Code, Key: &p.CodeSearch},
	}
}

// CatalogFilter selects categories or products by search text.
type CatalogFilter struct {
	Query      string
	Status     StatusFilter
	CategoryID *string
	Limit      int
	Offset     int
}
