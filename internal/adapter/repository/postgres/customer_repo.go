package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/danhlc/poslite/internal/domain"
	"github.com/danhlc/poslite/internal/textsearch"
	"github.com/danhlc/poslite/internal/usecase"
)

const customerColumns = `customer_id, code, name, phone, address, name_search, code_search,
	address_search, is_active, created_by, created_at, updated_by, updated_at`

const getCustomerByID = `SELECT ` + customerColumns + `
FROM customers
WHERE customer_id = $1 AND (is_active OR $2)`

const getCustomerForUpdate = `SELECT ` + customerColumns + `
FROM customers
WHERE customer_id = $1
FOR UPDATE`

const customerCodeExists = `SELECT EXISTS (
	SELECT 1 FROM customers WHERE code = $1 AND customer_id <> $2
)`

const customerSearchWhere = `
WHERE (c.name_search LIKE $1 ESCAPE '\' OR c.code_search LIKE $1 ESCAPE '\'
	OR c.address_search LIKE $1 ESCAPE '\' OR c.phone LIKE $1 ESCAPE '\')
  AND ($2 = 'all' OR ($2 = 'active' AND c.is_active) OR ($2 = 'inactive' AND NOT c.is_active))`

const countCustomers = `SELECT COUNT(*) FROM customers c` + customerSearchWhere

const searchCustomers = `SELECT c.customer_id, c.code, c.name, c.phone, c.address, c.name_search, c.code_search,
	c.address_search, c.is_active, c.created_by, c.created_at, c.updated_by, c.updated_at,
	(SELECT COALESCE(SUM(l.debit - l.credit), 0)::BIGINT FROM customer_ledger l WHERE l.customer_id = c.customer_id)
FROM customers c` + customerSearchWhere + `
ORDER BY c.name, c.customer_id
LIMIT $3 OFFSET $4`

const listCustomerPage = `SELECT ` + customerColumns + `
FROM customers
WHERE customer_id > $1
ORDER BY customer_id
LIMIT $2`

const customersWithLedgerEntries = `SELECT DISTINCT customer_id
FROM customer_ledger
WHERE customer_id = ANY($1)`

// CustomerRepository implements usecase.CustomerRepository.
type CustomerRepository struct {
	db DBTX
}

// NewCustomerRepository creates a new CustomerRepository.
func NewCustomerRepository(pool *pgxpool.Pool) *CustomerRepository {
	return newCustomerRepository(pool)
}

func newCustomerRepository(db DBTX) *CustomerRepository {
	return &CustomerRepository{db: db}
}

// GetByID retrieves a customer by ID.
func (r *CustomerRepository) GetByID(ctx context.Context, id string, includeInactive bool) (*domain.Customer, error) {
	c, err := scanCustomer(r.db.QueryRow(ctx, getCustomerByID, id, includeInactive))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCustomerNotFound
		}
		return nil, err
	}

	return c, nil
}

// GetByIDForUpdate retrieves a customer and locks its row until tx ends.
func (r *CustomerRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Customer, error) {
	c, err := scanCustomer(pgxTx(tx).QueryRow(ctx, getCustomerForUpdate, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCustomerNotFound
		}
		return nil, err
	}

	return c, nil
}

// ExistsByCode reports whether another customer uses code.
func (r *CustomerRepository) ExistsByCode(ctx context.Context, code, excludeID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, customerCodeExists, code, excludeID).Scan(&exists)
	return exists, err
}

// Search returns one page of matching customers with their balances and
// the total match count.
func (r *CustomerRepository) Search(ctx context.Context, filter domain.CustomerFilter) ([]*domain.CustomerWithBalance, int, error) {
	pattern := textsearch.LikePattern(filter.Query)
	status := string(filter.Status)

	var total int
	if err := r.db.QueryRow(ctx, countCustomers, pattern, status).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.Query(ctx, searchCustomers, pattern, status, filter.Limit, filter.Offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []*domain.CustomerWithBalance
	for rows.Next() {
		var (
			c       domain.Customer
			balance int64
		)
		if err := rows.Scan(customerDest(&c, &balance)...); err != nil {
			return nil, 0, err
		}
		result = append(result, &domain.CustomerWithBalance{Customer: &c, Balance: balance})
	}

	return result, total, rows.Err()
}

// ListPage returns up to limit customers with IDs after afterID.
func (r *CustomerRepository) ListPage(ctx context.Context, afterID string, limit int) ([]*domain.Customer, error) {
	rows, err := r.db.Query(ctx, listCustomerPage, afterID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*domain.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, c)
	}

	return result, rows.Err()
}

// WithLedgerEntries returns the subset of ids that have ledger entries.
func (r *CustomerRepository) WithLedgerEntries(ctx context.Context, ids []string) ([]string, error) {
	return queryIDs(ctx, r.db, customersWithLedgerEntries, ids)
}

// queryIDs runs a query taking ids as one text array parameter and returns
// the single text column of each row.
func queryIDs(ctx context.Context, db DBTX, sql string, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := db.Query(ctx, sql, ids)
	if err != nil {
		return nil, err
	}

	return pgx.CollectRows(rows, pgx.RowTo[string])
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCustomer(row rowScanner) (*domain.Customer, error) {
	var c domain.Customer
	if err := row.Scan(customerDest(&c)...); err != nil {
		return nil, err
	}
	return &c, nil
}

func customerDest(c *domain.Customer, extra ...any) []any {
	dest := []any{
		&c.ID, &c.Code, &c.Name, &c.Phone, &c.Address, &c.NameSearch, &c.CodeSearch,
		&c.AddressSearch, &c.IsActive, &c.CreatedBy, &c.CreatedAt, &c.UpdatedBy, &c.UpdatedAt,
	}
	return append(dest, extra...)
}
