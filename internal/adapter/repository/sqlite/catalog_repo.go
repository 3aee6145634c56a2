package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/danhlc/poslite/internal/domain"
	"github.com/danhlc/poslite/internal/textsearch"
)

const categoryColumns = `category_id, name, name_search, is_active, created_by, created_at, updated_by, updated_at`

const getCategoryByID = `SELECT ` + categoryColumns + `
FROM categories
WHERE category_id = ?1 AND (is_active = 1 OR ?2)`

// lower() folds ASCII only, matching the unique index.
const categoryNameExists = `SELECT EXISTS (
	SELECT 1 FROM categories WHERE lower(name) = lower(?1) AND category_id <> ?2
)`

const categorySearchWhere = `
WHERE name_search LIKE ?1 ESCAPE '\' AND ` + statusWhere

const countCategories = `SELECT COUNT(*) FROM categories` + categorySearchWhere

const searchCategories = `SELECT ` + categoryColumns + `
FROM categories` + categorySearchWhere + `
ORDER BY name, category_id
LIMIT ?3 OFFSET ?4`

const categoriesWithProducts = `SELECT DISTINCT category_id
FROM products
WHERE category_id IN (SELECT value FROM json_each(?1))`

const listCategoryPage = `SELECT ` + categoryColumns + `
FROM categories
WHERE category_id > ?1
ORDER BY category_id
LIMIT ?2`

// CategoryRepository implements usecase.CategoryRepository.
type CategoryRepository struct {
	db DBTX
}

// NewCategoryRepository creates a new CategoryRepository.
func NewCategoryRepository(db *sql.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// GetByID retrieves a category by ID.
func (r *CategoryRepository) GetByID(ctx context.Context, id string, includeInactive bool) (*domain.Category, error) {
	c, err := scanCategory(r.db.QueryRowContext(ctx, getCategoryByID, id, includeInactive))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrCategoryNotFound
		}
		return nil, err
	}

	return c, nil
}

// ExistsByName reports whether another category has the same name,
// ignoring ASCII case.
func (r *CategoryRepository) ExistsByName(ctx context.Context, name, excludeID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, categoryNameExists, name, excludeID).Scan(&exists)
	return exists, err
}

// Search returns one page of matching categories and the total count.
func (r *CategoryRepository) Search(ctx context.Context, filter domain.CatalogFilter) ([]*domain.Category, int, error) {
	pattern := textsearch.LikePattern(filter.Query)
	status := string(filter.Status)

	var total int
	if err := r.db.QueryRowContext(ctx, countCategories, pattern, status).Scan(&total); err != nil {
		return nil, 0, err
	}

	result, err := r.query(ctx, searchCategories, pattern, status, filter.Limit, filter.Offset)
	return result, total, err
}

// ListPage returns up to limit categories with IDs after afterID.
func (r *CategoryRepository) ListPage(ctx context.Context, afterID string, limit int) ([]*domain.Category, error) {
	return r.query(ctx, listCategoryPage, afterID, limit)
}

// WithProducts returns the subset of ids that products link to.
func (r *CategoryRepository) WithProducts(ctx context.Context, ids []string) ([]string, error) {
	return queryIDs(ctx, r.db, categoriesWithProducts, ids)
}

func (r *CategoryRepository) query(ctx context.Context, query string, args ...any) ([]*domain.Category, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*domain.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, c)
	}

	return result, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCategory(row rowScanner) (*domain.Category, error) {
	var (
		c  domain.Category
		ts auditTimes
	)
	err := row.Scan(
		&c.ID, &c.Name, &c.NameSearch,
		&c.IsActive, &c.CreatedBy, &ts.createdAt, &c.UpdatedBy, &ts.updatedAt,
	)
	if err != nil {
		return nil, err
	}
	ts.apply(&c.Audit)
	return &c, nil
}

const productColumns = `product_id, code, name, unit, category_id, price, name_search, code_search,
	is_active, created_by, created_at, updated_by, updated_at`

const getProductByID = `SELECT ` + productColumns + `
FROM products
WHERE product_id = ?1 AND (is_active = 1 OR ?2)`

const productCodeExists = `SELECT EXISTS (
	SELECT 1 FROM products WHERE code = ?1 AND product_id <> ?2
)`

const productSearchWhere = `
WHERE (name_search LIKE ?1 ESCAPE '\' OR code_search LIKE ?1 ESCAPE '\')
  AND ` + statusWhere + `
  AND (?3 IS NULL OR category_id = ?3)`

const countProducts = `SELECT COUNT(*) FROM products` + productSearchWhere

const searchProducts = `SELECT ` + productColumns + `
FROM products` + productSearchWhere + `
ORDER BY name, product_id
LIMIT ?4 OFFSET ?5`

const listProductPage = `SELECT ` + productColumns + `
FROM products
WHERE product_id > ?1
ORDER BY product_id
LIMIT ?2`

// ProductRepository implements usecase.ProductRepository.
type ProductRepository struct {
	db DBTX
}

// NewProductRepository creates a new ProductRepository.
func NewProductRepository(db *sql.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// GetByID retrieves a product by ID.
func (r *ProductRepository) GetByID(ctx context.Context, id string, includeInactive bool) (*domain.Product, error) {
	p, err := scanProduct(r.db.QueryRowContext(ctx, getProductByID, id, includeInactive))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrProductNotFound
		}
		return nil, err
	}

	return p, nil
}

// ExistsByCode reports whether another product uses code.
func (r *ProductRepository) ExistsByCode(ctx context.Context, code, excludeID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, productCodeExists, code, excludeID).Scan(&exists)
	return exists, err
}

// Search returns one page of matching products and the total count.
func (r *ProductRepository) Search(ctx context.Context, filter domain.CatalogFilter) ([]*domain.Product, int, error) {
	pattern := textsearch.LikePattern(filter.Query)
	status := string(filter.Status)

	var total int
	if err := r.db.QueryRowContext(ctx, countProducts, pattern, status, filter.CategoryID).Scan(&total); err != nil {
		return nil, 0, err
	}

	result, err := r.query(ctx, searchProducts, pattern, status, filter.CategoryID, filter.Limit, filter.Offset)
	return result, total, err
}

// ListPage returns up to limit products with IDs after afterID.
func (r *ProductRepository) ListPage(ctx context.Context, afterID string, limit int) ([]*domain.Product, error) {
	return r.query(ctx, listProductPage, afterID, limit)
}

func (r *ProductRepository) query(ctx context.Context, query string, args ...any) ([]*domain.Product, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}

	return result, rows.Err()
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	var (
		p  domain.Product
		ts auditTimes
	)
	err := row.Scan(
		&p.ID, &p.Code, &p.Name, &p.Unit, &p.CategoryID, &p.Price, &p.NameSearch, &p.CodeSearch,
		&p.IsActive, &p.CreatedBy, &ts.createdAt, &p.UpdatedBy, &ts.updatedAt,
	)
	if err != nil {
		return nil, err
	}
	ts.apply(&p.Audit)
	return &p, nil
}
