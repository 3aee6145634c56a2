package usecase

import (
	"context"
	"time"

	"github.com/danhlc/poslite/internal/domain"
)

// EntityStore persists audited entities inside a transaction.
type EntityStore interface {
	// Insert writes every field of a new entity.
	Insert(ctx context.Context, tx Transaction, entity domain.Entity) error
	// Update writes only the fields recorded in the change.
	Update(ctx context.Context, tx Transaction, change *domain.Change) error
	// Delete removes the entity row.
	Delete(ctx context.Context, tx Transaction, entity domain.Entity) error
}

// ChangeSaver stores change sets through the audited write path.
type ChangeSaver interface {
	Save(ctx context.Context, cs domain.ChangeSet) error
}

// CustomerRepository defines data access for customers.
type CustomerRepository interface {
	GetByID(ctx context.Context, id string, includeInactive bool) (*domain.Customer, error)
	// GetByIDForUpdate locks the customer row until tx ends.
	GetByIDForUpdate(ctx context.Context, tx Transaction, id string) (*domain.Customer, error)
	ExistsByCode(ctx context.Context, code, excludeID string) (bool, error)
	Search(ctx context.Context, filter domain.CustomerFilter) ([]*domain.CustomerWithBalance, int, error)
	ListPage(ctx context.Context, afterID string, limit int) ([]*domain.Customer, error)
	// WithLedgerEntries returns the subset of ids that have ledger entries.
	WithLedgerEntries(ctx context.Context, ids []string) ([]string, error)
}

// CategoryRepository defines data access for categories.
type CategoryRepository interface {
	GetByID(ctx context.Context, id string, includeInactive bool) (*domain.Category, error)
	ExistsByName(ctx context.Context, name, excludeID string) (bool, error)
	Search(ctx context.Context, filter domain.CatalogFilter) ([]*domain.Category, int, error)
	ListPage(ctx context.Context, afterID string, limit int) ([]*domain.Category, error)
	// WithProducts returns the subset of ids that products link to.
	WithProducts(ctx context.Context, ids []string) ([]string, error)
}

// ProductRepository defines data access for products.
type ProductRepository interface {
	GetByID(ctx context.Context, id string, includeInactive bool) (*domain.Product, error)
	ExistsByCode(ctx context.Context, code, excludeID string) (bool, error)
	Search(ctx context.Context, filter domain.CatalogFilter) ([]*domain.Product, int, error)
	ListPage(ctx context.Context, afterID string, limit int) ([]*domain.Product, error)
}

// LedgerRepository defines data access for customer ledger entries.
type LedgerRepository interface {
	Balance(ctx context.Context, customerID string) (int64, error)
	BalanceTx(ctx context.Context, tx Transaction, customerID string) (int64, error)
	Append(ctx context.Context, tx Transaction, entry *domain.LedgerEntry) error
	// ListByCustomer returns entries newest first.
	ListByCustomer(ctx context.Context, customerID string, limit, offset int) ([]*domain.LedgerEntry, error)
	CountByCustomer(ctx context.Context, customerID string) (int, error)
	// ListChronological returns every entry in creation order.
	ListChronological(ctx context.Context, customerID string) ([]*domain.LedgerEntry, error)
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
}

// Retrier re-runs an operation on transient store errors.
type Retrier interface {
	Retry(ctx context.Context, operation func() error) error
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// IdempotencyStore handles idempotency key storage.
type IdempotencyStore interface {
	// CheckAndSet atomically claims key with response, or with a processing
	// placeholder when response is nil. It returns the stored value when the
	// key was already claimed.
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
	// Release drops a claim whose request failed so it can be retried.
	Release(ctx context.Context, key string) error
}

// MetricsRecorder receives write-path and ledger events.
type MetricsRecorder interface {
	RecordAuditChange(entity, classification string)
	RecordLedgerEntry(refType string, outcome string)
	RecordLedgerConflict()
}

type noopMetrics struct{}

func (noopMetrics) RecordAuditChange(string, string) {}
func (noopMetrics) RecordLedgerEntry(string, string) {}
func (noopMetrics) RecordLedgerConflict()            {}

type directRetrier struct{}

func (directRetrier) Retry(_ context.Context, operation func() error) error {
	return operation()
}
