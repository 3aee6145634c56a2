package domain

// Customer is a shop customer that can carry debt.
type Customer struct {
	ID         string
	Code       string
	Name       string
	Phone      *string
	Address    *string
	NameSearch string
	CodeSearch string
	// AddressSearch is empty when Address is nil.
	AddressSearch string
	Audit
}

// Customer field names.
const (
	FieldCode       = "Code"
	FieldName       = "Name"
	FieldPhone      = "Phone"
	FieldAddress    = "Address"
	FieldNameSearch = "NameSearch"
	FieldCodeSearch = "CodeSearch"

	FieldAddressSearch = "AddressSearch"
)

// EntityCustomer is the entity name of Customer.
const EntityCustomer = "customer"

func (c *Customer) EntityName() string { return EntityCustomer }
func (c *Customer) EntityID() string   { return c.ID }
func (c *Customer) AuditInfo() *Audit  { return &c.Audit }

func (c *Customer) Fields() map[string]any {
	m := map[string]any{
		FieldCode:       c.Code,
		FieldName:       c.Name,
		FieldPhone:      c.Phone,
		FieldAddress:    c.Address,
		FieldNameSearch: c.NameSearch,
		FieldCodeSearch: c.CodeSearch,

		FieldAddressSearch: c.AddressSearch,
	}
	c.Audit.fields(m)
	return m
}

func (c *Customer) SearchKeys() []SearchKey {
	var address string
	if c.Address != nil {
		address = *c.Address
	}

	return []SearchKey{
		{SourceField: FieldName, KeyField: FieldNameSearch, Source: &c.Name, Key: &c.NameSearch},
		{SourceField: FieldCode, KeyField: FieldCodeSearch, Source: &c.Code, Key: &c.CodeSearch},
		{SourceField: FieldAddress, KeyField: FieldAddressSearch, Source: &address, Key: &c.AddressSearch},
	}
}

// CustomerFilter selects customers for search screens.
type CustomerFilter struct {
	Query  string
	Status StatusFilter
	Limit  int
	Offset int
}

// CustomerWithBalance is a search row with its current balance.
type CustomerWithBalance struct {
	*Customer
	Balance int64
}
