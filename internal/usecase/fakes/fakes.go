// Package fakes provides in-memory implementations of the usecase ports for
// tests. Customer row locks are emulated with one mutex per customer held
// until the owning transaction ends.
package fakes

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/danhlc/poslite/internal/domain"
	"github.com/danhlc/poslite/internal/textsearch"
	"github.com/danhlc/poslite/internal/usecase"
)

// ErrTxDone is returned when a finished transaction is used again.
var ErrTxDone = errors.New("transaction already finished")

// Store is an in-memory customer and ledger store.
type Store struct {
	mu        sync.RWMutex
	customers map[string]*domain.Customer
	entries   []*domain.LedgerEntry
	locks     map[string]*sync.Mutex

	BeginFunc  func(ctx context.Context) error
	CommitFunc func(ctx context.Context) error
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		customers: make(map[string]*domain.Customer),
		locks:     make(map[string]*sync.Mutex),
	}
}

// AddCustomer stores a copy of c.
func (s *Store) AddCustomer(c *domain.Customer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	s.customers[c.ID] = &cp
}

// AddEntry stores an already committed entry.
func (s *Store) AddEntry(e *domain.LedgerEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *e
	s.entries = append(s.entries, &cp)
}

// Entries returns the committed entries of a customer in creation order.
func (s *Store) Entries(customerID string) []*domain.LedgerEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.LedgerEntry
	for _, e := range s.entries {
		if e.CustomerID == customerID {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out
}

// Begin implements usecase.TransactionManager.
func (s *Store) Begin(ctx context.Context) (usecase.Transaction, error) {
	if s.BeginFunc != nil {
		if err := s.BeginFunc(ctx); err != nil {
			return nil, err
		}
	}
	return &Tx{store: s}, nil
}

func (s *Store) customerLock(id string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}

// Tx is an in-memory transaction. Appended entries become visible on Commit.
type Tx struct {
	store   *Store
	pending []*domain.LedgerEntry
	held    []*sync.Mutex
	done    bool
}

// Commit applies the pending entries and releases held locks.
func (t *Tx) Commit(ctx context.Context) error {
	if t.done {
		return ErrTxDone
	}

	if t.store.CommitFunc != nil {
		if err := t.store.CommitFunc(ctx); err != nil {
			t.release()
			return err
		}
	}

	t.store.mu.Lock()
	t.store.entries = append(t.store.entries, t.pending...)
	t.store.mu.Unlock()

	t.release()
	return nil
}

// Rollback discards pending entries. It is a no-op after Commit.
func (t *Tx) Rollback(context.Context) error {
	if t.done {
		return nil
	}
	t.release()
	return nil
}

func (t *Tx) release() {
	for _, l := range t.held {
		l.Unlock()
	}
	t.held = nil
	t.pending = nil
	t.done = true
}

func asTx(tx usecase.Transaction) (*Tx, error) {
	t, ok := tx.(*Tx)
	if !ok {
		return nil, fmt.Errorf("fakes: unexpected transaction type %T", tx)
	}
	if t.done {
		return nil, ErrTxDone
	}
	return t, nil
}

// CustomerRepository implements usecase.CustomerRepository over a Store.
type CustomerRepository struct {
	store *Store
}

// NewCustomerRepository creates a new CustomerRepository.
func NewCustomerRepository(store *Store) *CustomerRepository {
	return &CustomerRepository{store: store}
}

func (r *CustomerRepository) GetByID(_ context.Context, id string, includeInactive bool) (*domain.Customer, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	c, ok := r.store.customers[id]
	if !ok || (!c.IsActive && !includeInactive) {
		return nil, domain.ErrCustomerNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *CustomerRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Customer, error) {
	t, err := asTx(tx)
	if err != nil {
		return nil, err
	}

	r.store.mu.RLock()
	_, ok := r.store.customers[id]
	r.store.mu.RUnlock()
	if !ok {
		return nil, domain.ErrCustomerNotFound
	}

	l := r.store.customerLock(id)
	l.Lock()
	t.held = append(t.held, l)

	return r.GetByID(ctx, id, true)
}

func (r *CustomerRepository) ExistsByCode(_ context.Context, code, excludeID string) (bool, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	for _, c := range r.store.customers {
		if c.Code == code && c.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (r *CustomerRepository) Search(_ context.Context, filter domain.CustomerFilter) ([]*domain.CustomerWithBalance, int, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var matched []*domain.Customer
	for _, c := range r.store.customers {
		if filter.Status == domain.StatusActive && !c.IsActive {
			continue
		}
		if filter.Status == domain.StatusInactive && c.IsActive {
			continue
		}
		phoneMatch := c.Phone != nil && textsearch.Contains(*c.Phone, filter.Query)
		if !phoneMatch && !textsearch.Contains(c.NameSearch, filter.Query) &&
			!textsearch.Contains(c.CodeSearch, filter.Query) && !textsearch.Contains(c.AddressSearch, filter.Query) {
			continue
		}
		matched = append(matched, c)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Name < matched[j].Name })

	total := len(matched)
	end := min(filter.Offset+filter.Limit, total)
	var out []*domain.CustomerWithBalance
	for _, c := range matched[min(filter.Offset, total):end] {
		cp := *c
		out = append(out, &domain.CustomerWithBalance{Customer: &cp, Balance: r.store.sumLocked(c.ID)})
	}
	return out, total, nil
}

func (r *CustomerRepository) ListPage(_ context.Context, afterID string, limit int) ([]*domain.Customer, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	ids := make([]string, 0, len(r.store.customers))
	for id := range r.store.customers {
		if strings.Compare(id, afterID) > 0 {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	var out []*domain.Customer
	for _, id := range ids[:min(limit, len(ids))] {
		cp := *r.store.customers[id]
		out = append(out, &cp)
	}
	return out, nil
}

func (r *CustomerRepository) WithLedgerEntries(_ context.Context, ids []string) ([]string, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	has := make(map[string]bool)
	for _, e := range r.store.entries {
		has[e.CustomerID] = true
	}

	var out []string
	for _, id := range ids {
		if has[id] {
			out = append(out, id)
		}
	}
	return out, nil
}

// LedgerRepository implements usecase.LedgerRepository over a Store.
type LedgerRepository struct {
	store *Store
}

// NewLedgerRepository creates a new LedgerRepository.
func NewLedgerRepository(store *Store) *LedgerRepository {
	return &LedgerRepository{store: store}
}

func (s *Store) sumLocked(customerID string) int64 {
	var sum int64
	for _, e := range s.entries {
		if e.CustomerID == customerID {
			sum += e.Delta()
		}
	}
	return sum
}

func (r *LedgerRepository) Balance(_ context.Context, customerID string) (int64, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return r.store.sumLocked(customerID), nil
}

func (r *LedgerRepository) BalanceTx(ctx context.Context, tx usecase.Transaction, customerID string) (int64, error) {
	t, err := asTx(tx)
	if err != nil {
		return 0, err
	}

	sum, _ := r.Balance(ctx, customerID)
	for _, e := range t.pending {
		if e.CustomerID == customerID {
			sum += e.Delta()
		}
	}
	return sum, nil
}

func (r *LedgerRepository) Append(_ context.Context, tx usecase.Transaction, entry *domain.LedgerEntry) error {
	t, err := asTx(tx)
	if err != nil {
		return err
	}
	cp := *entry
	t.pending = append(t.pending, &cp)
	return nil
}

func (r *LedgerRepository) ListByCustomer(_ context.Context, customerID string, limit, offset int) ([]*domain.LedgerEntry, error) {
	entries := r.store.Entries(customerID)
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	if offset >= len(entries) {
		return nil, nil
	}
	return entries[offset:min(offset+limit, len(entries))], nil
}

func (r *LedgerRepository) CountByCustomer(_ context.Context, customerID string) (int, error) {
	return len(r.store.Entries(customerID)), nil
}

func (r *LedgerRepository) ListChronological(_ context.Context, customerID string) ([]*domain.LedgerEntry, error) {
	return r.store.Entries(customerID), nil
}

// SequenceIDGenerator returns "<prefix>-1", "<prefix>-2", ...
type SequenceIDGenerator struct {
	Prefix string
	n      atomic.Int64
}

func (g *SequenceIDGenerator) Generate() string {
	return fmt.Sprintf("%s-%d", g.Prefix, g.n.Add(1))
}
