// Package schema maps entity fields to table columns and builds the
// partial INSERT/UPDATE and DELETE statements shared by the SQL stores.
package schema

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/danhlc/poslite/internal/domain"
)

// Table describes how one entity is stored.
type Table struct {
	Name     string
	IDColumn string
	// Columns maps entity field names to column names.
	Columns map[string]string
}

var auditColumns = map[string]string{
	domain.FieldIsActive:  "is_active",
	domain.FieldCreatedBy: "created_by",
	domain.FieldCreatedAt: "created_at",
	domain.FieldUpdatedBy: "updated_by",
	domain.FieldUpdatedAt: "updated_at",
}

func withAudit(cols map[string]string) map[string]string {
	for f, c := range auditColumns {
		cols[f] = c
	}
	return cols
}

// Tables of every stored entity, keyed by entity name.
var Tables = map[string]Table{
	domain.EntityCustomer: {
		Name:     "customers",
		IDColumn: "customer_id",
		Columns: withAudit(map[string]string{
			domain.FieldCode:       "code",
			domain.FieldName:       "name",
			domain.FieldPhone:      "phone",
			domain.FieldAddress:    "address",
			domain.FieldNameSearch: "name_search",
			domain.FieldCodeSearch: "code_search",

			domain.FieldAddressSearch: "address_search",
		}),
	},
	domain.EntityCategory: {
		Name:     "categories",
		IDColumn: "category_id",
		Columns: withAudit(map[string]string{
			domain.FieldName:       "name",
			domain.FieldNameSearch: "name_search",
		}),
	},
	domain.EntityProduct: {
		Name:     "products",
		IDColumn: "product_id",
		Columns: withAudit(map[string]string{
			domain.FieldCode:       "code",
			domain.FieldName:       "name",
			domain.FieldUnit:       "unit",
			domain.FieldCategoryID: "category_id",
			domain.FieldPrice:      "price",
			domain.FieldNameSearch: "name_search",
			domain.FieldCodeSearch: "code_search",
		}),
	},
}

// Lookup returns the table of an entity.
func Lookup(entity domain.Entity) (Table, error) {
	t, ok := Tables[entity.EntityName()]
	if !ok {
		return Table{}, fmt.Errorf("schema: no table for entity %q", entity.EntityName())
	}
	return t, nil
}

// Dialect adapts statements to one SQL engine.
type Dialect struct {
	// Placeholder returns the n-th (1-based) bind parameter.
	Placeholder func(n int) string
	// Encode converts a field value to a driver value.
	Encode func(v any) any
}

// Insert builds an INSERT of every mapped field of fields plus the ID.
func (t Table) Insert(d Dialect, id string, fields map[string]any) (string, []any, error) {
	names, err := t.sortedFields(fields)
	if err != nil {
		return "", nil, err
	}

	cols := []string{t.IDColumn}
	holders := []string{d.Placeholder(1)}
	args := []any{id}
	for _, f := range names {
		cols = append(cols, t.Columns[f])
		args = append(args, d.Encode(fields[f]))
		holders = append(holders, d.Placeholder(len(args)))
	}

	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		t.Name, strings.Join(cols, ", "), strings.Join(holders, ", "))
	return sql, args, nil
}

// Update builds an UPDATE writing only the fields of change.
func (t Table) Update(d Dialect, change *domain.Change) (string, []any, error) {
	values := make(map[string]any, len(change.Fields))
	for f, fc := range change.Fields {
		values[f] = fc.New
	}

	names, err := t.sortedFields(values)
	if err != nil {
		return "", nil, err
	}
	if len(names) == 0 {
		return "", nil, fmt.Errorf("schema: empty update for %s %s", change.Entity.EntityName(), change.Entity.EntityID())
	}

	sets := make([]string, 0, len(names))
	args := make([]any, 0, len(names)+1)
	for _, f := range names {
		args = append(args, d.Encode(values[f]))
		sets = append(sets, t.Columns[f]+" = "+d.Placeholder(len(args)))
	}
	args = append(args, change.Entity.EntityID())
	where := []string{t.IDColumn + " = " + d.Placeholder(len(args))}

	guards, err := t.sortedFields(change.Guard)
	if err != nil {
		return "", nil, err
	}
	for _, f := range guards {
		v := change.Guard[f]
		if isNull(v) {
			where = append(where, t.Columns[f]+" IS NULL")
			continue
		}
		args = append(args, d.Encode(v))
		where = append(where, t.Columns[f]+" = "+d.Placeholder(len(args)))
	}

	sql := fmt.Sprintf("UPDATE %s SET %s WHERE %s",
		t.Name, strings.Join(sets, ", "), strings.Join(where, " AND "))
	return sql, args, nil
}

// Delete builds a DELETE of one row by ID.
func (t Table) Delete(d Dialect, id string) (string, []any) {
	return fmt.Sprintf("DELETE FROM %s WHERE %s = %s", t.Name, t.IDColumn, d.Placeholder(1)), []any{id}
}

func isNull(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case *string:
		return val == nil
	case *time.Time:
		return val == nil
	default:
		return false
	}
}

func (t Table) sortedFields(fields map[string]any) ([]string, error) {
	names := make([]string, 0, len(fields))
	for f := range fields {
		if _, ok := t.Columns[f]; !ok {
			return nil, fmt.Errorf("schema: table %s has no column for field %q", t.Name, f)
		}
		names = append(names, f)
	}
	sort.Strings(names)
	return names, nil
}
