package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/danhlc/poslite/internal/domain"
	"github.com/danhlc/poslite/internal/textsearch"
	"github.com/danhlc/poslite/internal/usecase"
)

const customerColumns = `customer_id, code, name, phone, address, name_search, code_search,
	address_search, is_active, created_by, created_at, updated_by, updated_at`

const getCustomerByID = `SELECT ` + customerColumns + `
FROM customers
WHERE customer_id = ?1 AND (is_active = 1 OR ?2)`

// The write lock is already held: transactions begin IMMEDIATE.
const getCustomerForUpdate = `SELECT ` + customerColumns + `
FROM customers
WHERE customer_id = ?1`

const customerCodeExists = `SELECT EXISTS (
	SELECT 1 FROM customers WHERE code = ?1 AND customer_id <> ?2
)`

const statusWhere = `(?2 = 'all' OR (?2 = 'active' AND is_active = 1) OR (?2 = 'inactive' AND is_active = 0))`

const customerSearchWhere = `
WHERE (name_search LIKE ?1 ESCAPE '\' OR code_search LIKE ?1 ESCAPE '\'
	OR address_search LIKE ?1 ESCAPE '\' OR phone LIKE ?1 ESCAPE '\')
  AND ` + statusWhere

const countCustomers = `SELECT COUNT(*) FROM customers` + customerSearchWhere

const searchCustomers = `SELECT ` + customerColumns + `,
	(SELECT COALESCE(SUM(l.debit - l.credit), 0) FROM customer_ledger l WHERE l.customer_id = customers.customer_id)
FROM customers` + customerSearchWhere + `
ORDER BY name, customer_id
LIMIT ?3 OFFSET ?4`

const listCustomerPage = `SELECT ` + customerColumns + `
FROM customers
WHERE customer_id > ?1
ORDER BY customer_id
LIMIT ?2`

const customersWithLedgerEntries = `SELECT DISTINCT customer_id
FROM customer_ledger
WHERE customer_id IN (SELECT value FROM json_each(?1))`

// CustomerRepository implements usecase.CustomerRepository.
type CustomerRepository struct {
	db DBTX
}

// NewCustomerRepository creates a new CustomerRepository.
func NewCustomerRepository(db *sql.DB) *CustomerRepository {
	return &CustomerRepository{db: db}
}

// GetByID retrieves a customer by ID.
func (r *CustomerRepository) GetByID(ctx context.Context, id string, includeInactive bool) (*domain.Customer, error) {
	return r.get(ctx, r.db, getCustomerByID, id, includeInactive)
}

// GetByIDForUpdate retrieves a customer inside tx.
func (r *CustomerRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Customer, error) {
	return r.get(ctx, sqlTx(tx), getCustomerForUpdate, id)
}

func (r *CustomerRepository) get(ctx context.Context, db DBTX, query string, args ...any) (*domain.Customer, error) {
	var c domain.Customer
	var ts auditTimes
	if err := db.QueryRowContext(ctx, query, args...).Scan(customerDest(&c, &ts)...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrCustomerNotFound
		}
		return nil, err
	}
	ts.apply(&c.Audit)

	return &c, nil
}

// ExistsByCode reports whether another customer uses code.
func (r *CustomerRepository) ExistsByCode(ctx context.Context, code, excludeID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, customerCodeExists, code, excludeID).Scan(&exists)
	return exists, err
}

// Search returns one page of matching customers with their balances and
// the total match count.
func (r *CustomerRepository) Search(ctx context.Context, filter domain.CustomerFilter) ([]*domain.CustomerWithBalance, int, error) {
	pattern := textsearch.LikePattern(filter.Query)
	status := string(filter.Status)

	var total int
	if err := r.db.QueryRowContext(ctx, countCustomers, pattern, status).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.QueryContext(ctx, searchCustomers, pattern, status, filter.Limit, filter.Offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []*domain.CustomerWithBalance
	for rows.Next() {
		var (
			c       domain.Customer
			ts      auditTimes
			balance int64
		)
		if err := rows.Scan(append(customerDest(&c, &ts), &balance)...); err != nil {
			return nil, 0, err
		}
		ts.apply(&c.Audit)
		result = append(result, &domain.CustomerWithBalance{Customer: &c, Balance: balance})
	}

	return result, total, rows.Err()
}

// ListPage returns up to limit customers with IDs after afterID.
func (r *CustomerRepository) ListPage(ctx context.Context, afterID string, limit int) ([]*domain.Customer, error) {
	rows, err := r.db.QueryContext(ctx, listCustomerPage, afterID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*domain.Customer
	for rows.Next() {
		var c domain.Customer
		var ts auditTimes
		if err := rows.Scan(customerDest(&c, &ts)...); err != nil {
			return nil, err
		}
		ts.apply(&c.Audit)
		result = append(result, &c)
	}

	return result, rows.Err()
}

// WithLedgerEntries returns the subset of ids that have ledger entries.
func (r *CustomerRepository) WithLedgerEntries(ctx context.Context, ids []string) ([]string, error) {
	return queryIDs(ctx, r.db, customersWithLedgerEntries, ids)
}

// queryIDs runs a query taking ids as one JSON array parameter and returns
// the single text column of each row.
func queryIDs(ctx context.Context, db DBTX, query string, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	arg, err := json.Marshal(ids)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, query, string(arg))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}

	return out, rows.Err()
}

func customerDest(c *domain.Customer, ts *auditTimes) []any {
	return []any{
		&c.ID, &c.Code, &c.Name, &c.Phone, &c.Address, &c.NameSearch, &c.CodeSearch,
		&c.AddressSearch, &c.IsActive, &c.CreatedBy, &ts.createdAt, &c.UpdatedBy, &ts.updatedAt,
	}
}

// auditTimes receives the integer time columns of the audit block.
type auditTimes struct {
	createdAt int64
	updatedAt sql.NullInt64
}

func (ts auditTimes) apply(a *domain.Audit) {
	a.CreatedAt = fromUnixNano(ts.createdAt)
	a.UpdatedAt = fromNullUnixNano(ts.updatedAt)
}
