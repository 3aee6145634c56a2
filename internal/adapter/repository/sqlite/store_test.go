package sqlite_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danhlc/poslite/internal/adapter/idgen"
	"github.com/danhlc/poslite/internal/adapter/repository/sqlite"
	"github.com/danhlc/poslite/internal/domain"
	sqlitedb "github.com/danhlc/poslite/internal/infrastructure/sqlite"
	"github.com/danhlc/poslite/internal/usecase"
)

type testStack struct {
	db        *sql.DB
	customers *usecase.CustomerUseCase
	catalog   *usecase.CatalogUseCase
	ledger    *usecase.LedgerUseCase
	repair    *usecase.SearchKeyUseCase
	saver     *usecase.EntityUseCase
	clock     *testClock
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestStack(t *testing.T) *testStack {
	t.Helper()
	ctx := context.Background()

	db, err := sqlitedb.Open(ctx, sqlitedb.Config{
		Path:     filepath.Join(t.TempDir(), "poslite.db"),
		MaxConns: 8,
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	clock := &testClock{now: time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)}
	logger := zerolog.Nop()
	retrier := sqlite.NewRetrier(logger).WithMaxRetries(10)
	ids := idgen.NewULIDGenerator()

	txManager := sqlite.NewTxManager(db)
	customerRepo := sqlite.NewCustomerRepository(db)
	categoryRepo := sqlite.NewCategoryRepository(db)
	productRepo := sqlite.NewProductRepository(db)
	ledgerRepo := sqlite.NewLedgerRepository(db)

	pipeline := usecase.NewAuditPipeline(logger).WithClock(clock.Now)
	saver := usecase.NewEntityUseCase(txManager, sqlite.NewEntityStore(), pipeline).WithRetrier(retrier)

	return &testStack{
		db:        db,
		customers: usecase.NewCustomerUseCase(customerRepo, saver, ids),
		catalog:   usecase.NewCatalogUseCase(categoryRepo, productRepo, saver, ids),
		ledger: usecase.NewLedgerUseCase(txManager, customerRepo, ledgerRepo, ids).
			WithRetrier(retrier).
			WithClock(clock.Now),
		repair: usecase.NewSearchKeyUseCase(customerRepo, categoryRepo, productRepo, saver, logger),
		saver:  saver,
		clock:  clock,
	}
}

func (s *testStack) createCustomer(t *testing.T, ctx context.Context, code, name string) *domain.Customer {
	t.Helper()
	c, err := s.customers.Create(ctx, usecase.CustomerInput{Code: code, Name: name})
	require.NoError(t, err)
	return c
}

func TestCustomerCreateStampsAuditAndSearchKeys(t *testing.T) {
	s := newTestStack(t)
	ctx := usecase.WithActor(context.Background(), "thu.ngan")

	created := s.createCustomer(t, ctx, "KH001", "THỨC ĂN CHÓ")

	got, err := s.customers.Get(ctx, created.ID, false)
	require.NoError(t, err)

	assert.Equal(t, "thuc an cho", got.NameSearch)
	assert.Equal(t, "kh001", got.CodeSearch)
	assert.Equal(t, "thu.ngan", got.CreatedBy)
	assert.True(t, got.CreatedAt.Equal(s.clock.Now()))
	assert.Nil(t, got.UpdatedAt)
	assert.Nil(t, got.UpdatedBy)
	assert.True(t, got.IsActive)
}

func TestCustomerUpdateStampsOnlySubstantiveChanges(t *testing.T) {
	s := newTestStack(t)
	ctx := usecase.WithActor(context.Background(), "quan.ly")
	created := s.createCustomer(t, ctx, "KH002", "Chi Lan")

	s.clock.Advance(time.Hour)
	phone := "0901234567"
	_, err := s.customers.Update(ctx, created.ID, usecase.CustomerInput{Code: "KH002", Name: "Chị Lan", Phone: &phone})
	require.NoError(t, err)

	got, err := s.customers.Get(ctx, created.ID, false)
	require.NoError(t, err)
	require.NotNil(t, got.UpdatedAt)
	assert.True(t, got.UpdatedAt.Equal(s.clock.Now()))
	assert.Equal(t, "quan.ly", *got.UpdatedBy)
	assert.Equal(t, "chi lan", got.NameSearch)
	assert.True(t, got.CreatedAt.Equal(s.clock.Now().Add(-time.Hour)), "created stamp must survive updates")
}

func TestSearchKeyRepairIsTechnicalOnly(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()
	created := s.createCustomer(t, ctx, "KH003", "Bánh Mì")

	// Simulate a row written before search keys existed.
	_, err := s.db.ExecContext(ctx, `UPDATE customers SET name_search = '' WHERE customer_id = ?`, created.ID)
	require.NoError(t, err)

	s.clock.Advance(time.Hour)
	report, err := s.repair.Repair(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Repaired[domain.EntityCustomer])

	got, err := s.customers.Get(ctx, created.ID, false)
	require.NoError(t, err)
	assert.Equal(t, "banh mi", got.NameSearch)
	assert.Nil(t, got.UpdatedAt, "repairing a search key must not stamp the record")

	report, err = s.repair.Repair(ctx)
	require.NoError(t, err)
	assert.Zero(t, report.Repaired[domain.EntityCustomer])
}

// renameDuringScan returns each page as read, after renaming the customer
// through the regular write path.
type renameDuringScan struct {
	usecase.CustomerRepository
	rename func(ctx context.Context)
}

func (r renameDuringScan) ListPage(ctx context.Context, afterID string, limit int) ([]*domain.Customer, error) {
	page, err := r.CustomerRepository.ListPage(ctx, afterID, limit)
	if err == nil && len(page) > 0 && r.rename != nil {
		r.rename(ctx)
	}
	return page, err
}

func TestSearchKeyRepairSkipsConcurrentRename(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()
	created := s.createCustomer(t, ctx, "KH004", "Bánh Mì")

	_, err := s.db.ExecContext(ctx, `UPDATE customers SET name_search = '' WHERE customer_id = ?`, created.ID)
	require.NoError(t, err)

	scan := renameDuringScan{
		CustomerRepository: sqlite.NewCustomerRepository(s.db),
		rename: func(ctx context.Context) {
			_, err := s.customers.Update(ctx, created.ID, usecase.CustomerInput{Code: "KH004", Name: "Phở Bò"})
			require.NoError(t, err)
		},
	}
	repair := usecase.NewSearchKeyUseCase(scan,
		sqlite.NewCategoryRepository(s.db), sqlite.NewProductRepository(s.db), s.saver, zerolog.Nop())

	report, err := repair.Repair(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Skipped[domain.EntityCustomer])
	assert.Zero(t, report.Repaired[domain.EntityCustomer])

	got, err := s.customers.Get(ctx, created.ID, false)
	require.NoError(t, err)
	assert.Equal(t, "Phở Bò", got.Name)
	assert.Equal(t, "pho bo", got.NameSearch, "a key derived from the old name must not overwrite the new one")
}

func TestCustomerSearchIsAccentInsensitive(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()
	lan := s.createCustomer(t, ctx, "KH010", "Nguyễn Thị Lan")
	s.createCustomer(t, ctx, "KH011", "Trần Văn Hùng")

	_, err := s.ledger.RecordAdjustment(ctx, usecase.RecordAdjustmentInput{
		CustomerID: lan.ID, Mode: domain.AdjustModeDelta, Direction: domain.DirectionIncrease, Amount: 75000,
	})
	require.NoError(t, err)

	rows, total, err := s.customers.Search(ctx, domain.CustomerFilter{Query: "NGUYEN", Limit: 20})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	assert.Equal(t, lan.ID, rows[0].ID)
	assert.Equal(t, int64(75000), rows[0].Balance)
}

func TestCustomerSearchMatchesAddress(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()
	address := "Hà Nội"
	c, err := s.customers.Create(ctx, usecase.CustomerInput{Code: "KH012", Name: "Chú Bảy", Address: &address})
	require.NoError(t, err)
	s.createCustomer(t, ctx, "KH013", "Cô Năm")

	for _, q := range []string{"ha noi", "Hà Nội", "HÀ NỘI"} {
		rows, total, err := s.customers.Search(ctx, domain.CustomerFilter{Query: q, Limit: 20})
		require.NoError(t, err)
		require.Equal(t, 1, total, "query %q", q)
		assert.Equal(t, c.ID, rows[0].ID)
		assert.Equal(t, "ha noi", rows[0].AddressSearch)
	}
}

func TestSearchKeyRepairFillsAddressKey(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()
	address := "Thừa Thiên Huế"
	c, err := s.customers.Create(ctx, usecase.CustomerInput{Code: "KH014", Name: "Dì Tư", Address: &address})
	require.NoError(t, err)

	// Rows migrated from before the address key existed start blank.
	_, err = s.db.ExecContext(ctx, `UPDATE customers SET address_search = '' WHERE customer_id = ?`, c.ID)
	require.NoError(t, err)

	_, err = s.repair.Repair(ctx)
	require.NoError(t, err)

	rows, total, err := s.customers.Search(ctx, domain.CustomerFilter{Query: "thien hue", Limit: 20})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	assert.Equal(t, c.ID, rows[0].ID)
}

func TestDuplicateCustomerCodeRejected(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()
	s.createCustomer(t, ctx, "KH020", "A")

	_, err := s.customers.Create(ctx, usecase.CustomerInput{Code: "KH020", Name: "B"})
	require.ErrorIs(t, err, domain.ErrConstraintViolation)
}

func TestAdjustmentsAndBalance(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()
	c := s.createCustomer(t, ctx, "KH030", "Cô Ba")

	balance, err := s.ledger.GetBalance(ctx, c.ID)
	require.NoError(t, err)
	assert.Zero(t, balance)

	res, err := s.ledger.RecordAdjustment(ctx, usecase.RecordAdjustmentInput{
		CustomerID: c.ID, Mode: domain.AdjustModeDelta, Direction: domain.DirectionIncrease, Amount: 100000,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(100000), res.Entry.BalanceAfter)

	res, err = s.ledger.RecordAdjustment(ctx, usecase.RecordAdjustmentInput{
		CustomerID: c.ID, Mode: domain.AdjustModeDelta, Direction: domain.DirectionDecrease, Amount: 30000,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(30000), res.Entry.Credit)

	res, err = s.ledger.RecordAdjustment(ctx, usecase.RecordAdjustmentInput{
		CustomerID: c.ID, Mode: domain.AdjustModeSet, Amount: 50000,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(20000), res.Entry.Credit)
	assert.Equal(t, int64(50000), res.Balance)
	require.NotNil(t, res.Entry.Note)
	assert.Equal(t, "Điều chỉnh công nợ (số dư cũ: 70.000)", *res.Entry.Note)

	// Setting the current balance again writes nothing.
	res, err = s.ledger.RecordAdjustment(ctx, usecase.RecordAdjustmentInput{
		CustomerID: c.ID, Mode: domain.AdjustModeSet, Amount: 50000,
	})
	require.NoError(t, err)
	assert.True(t, res.NoOp)

	entries, total, err := s.ledger.ListEntries(ctx, c.ID, 20, 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, 3, total)
	assert.Equal(t, int64(50000), entries[0].BalanceAfter, "newest first")

	page, total, err := s.ledger.ListEntries(ctx, c.ID, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, 3, total, "total is not the page length")
	assert.Equal(t, entries[1].EntryID, page[0].EntryID)

	balance, err = s.ledger.GetBalance(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(50000), balance)

	report, err := s.ledger.VerifyCustomer(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, report.Consistent)
	assert.Equal(t, 3, report.Entries)
}

func TestAdjustmentForInactiveCustomer(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()
	c := s.createCustomer(t, ctx, "KH040", "Ngưng")

	_, err := s.customers.SetActive(ctx, c.ID, false)
	require.NoError(t, err)

	_, err = s.ledger.RecordAdjustment(ctx, usecase.RecordAdjustmentInput{
		CustomerID: c.ID, Mode: domain.AdjustModeDelta, Direction: domain.DirectionIncrease, Amount: 1000,
	})
	require.ErrorIs(t, err, domain.ErrCustomerNotFound)

	entries, total, err := s.ledger.ListEntries(ctx, c.ID, 20, 0)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Zero(t, total)
}

func TestPostInvoice(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()
	c := s.createCustomer(t, ctx, "KH050", "Anh Tư")

	res, err := s.ledger.PostInvoice(ctx, usecase.PostInvoiceInput{
		CustomerID: c.ID, InvoiceID: "HD0001", Total: 250000, Payment: 100000,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(150000), res.Balance)
	require.NotNil(t, res.Entry.RefID)
	assert.Equal(t, "HD0001", *res.Entry.RefID)
	assert.Equal(t, domain.RefTypeInvoice, res.Entry.RefType)
}

func TestConcurrentAdjustmentsKeepChainConsistent(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()
	c := s.createCustomer(t, ctx, "KH060", "Đông khách")

	const workers = 50
	var wg sync.WaitGroup
	errs := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			dir := domain.DirectionIncrease
			if i%5 == 0 {
				dir = domain.DirectionDecrease
			}
			_, err := s.ledger.RecordAdjustment(ctx, usecase.RecordAdjustmentInput{
				CustomerID: c.ID, Mode: domain.AdjustModeDelta, Direction: dir, Amount: 1000,
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	// 40 increases and 10 decreases of 1000.
	balance, err := s.ledger.GetBalance(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(30000), balance)

	report, err := s.ledger.VerifyCustomer(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, workers, report.Entries)
	assert.True(t, report.Consistent, "break at %+v", report.Break)
}

func TestCatalogWritePath(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()

	category, err := s.catalog.CreateCategory(ctx, usecase.CategoryInput{Name: "Nước Ngọt"})
	require.NoError(t, err)

	_, err = s.catalog.CreateCategory(ctx, usecase.CategoryInput{Name: "nước ngọt"})
	require.ErrorIs(t, err, domain.ErrConstraintViolation)

	product, err := s.catalog.CreateProduct(ctx, usecase.ProductInput{
		Code: "SP001", Name: "Cà Phê Sữa", Unit: "ly", CategoryID: &category.ID,
		Price: decimal.RequireFromString("25000.50"),
	})
	require.NoError(t, err)
	assert.Equal(t, "ca phe sua", product.NameSearch)

	products, total, err := s.catalog.SearchProducts(ctx, domain.CatalogFilter{
		Query: "CA PHE", CategoryID: &category.ID, Limit: 20,
	})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	assert.True(t, products[0].Price.Equal(decimal.RequireFromString("25000.5")))

	categories, total, err := s.catalog.SearchCategories(ctx, domain.CatalogFilter{Query: "NUOC NGOT", Limit: 20})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	assert.Equal(t, category.ID, categories[0].ID)
}

func TestForeignKeyViolationMapped(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()

	err := s.saver.Save(ctx, domain.ChangeSet{domain.Added(&domain.Product{
		ID: "prd-x", Code: "SPX", Name: "Mồ côi", CategoryID: strPtr("no-such-category"),
		Price: decimal.Zero, Audit: domain.NewAudit(),
	})})
	require.True(t, errors.Is(err, domain.ErrConstraintViolation), "got %v", err)
}

func strPtr(s string) *string { return &s }

func TestUniqueIndexBacksCodeCheck(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()
	s.createCustomer(t, ctx, "KH070", "Đã có")

	// Bypasses the up-front ExistsByCode check of CustomerUseCase.
	err := s.saver.Save(ctx, domain.ChangeSet{domain.Added(&domain.Customer{
		ID: "cus-dup", Code: "KH070", Name: "Trùng mã", Audit: domain.NewAudit(),
	})})
	require.ErrorIs(t, err, domain.ErrDuplicateCode)
}

func TestDeleteCustomersKeepsThoseWithLedgerEntries(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()
	owing := s.createCustomer(t, ctx, "KH080", "Còn nợ")
	clean := s.createCustomer(t, ctx, "KH081", "Chưa mua")

	_, err := s.ledger.RecordAdjustment(ctx, usecase.RecordAdjustmentInput{
		CustomerID: owing.ID, Mode: domain.AdjustModeDelta, Direction: domain.DirectionIncrease, Amount: 5000,
	})
	require.NoError(t, err)

	report, err := s.customers.DeleteMany(ctx, []string{owing.ID, clean.ID, "no-such-id"})
	require.NoError(t, err)
	assert.Equal(t, []string{clean.ID}, report.Deleted)
	assert.Equal(t, []usecase.BlockedDelete{{ID: owing.ID, Name: "Còn nợ", Reason: usecase.BlockedByLedgerEntries}}, report.Blocked)
	assert.Equal(t, []string{"no-such-id"}, report.Missing)

	_, err = s.customers.Get(ctx, clean.ID, true)
	require.ErrorIs(t, err, domain.ErrCustomerNotFound)

	balance, err := s.ledger.CustomerBalance(ctx, owing.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(5000), balance)
}

func TestDeletingReferencedCustomerFailsOnForeignKey(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()
	c := s.createCustomer(t, ctx, "KH082", "Có sổ nợ")

	_, err := s.ledger.RecordAdjustment(ctx, usecase.RecordAdjustmentInput{
		CustomerID: c.ID, Mode: domain.AdjustModeDelta, Direction: domain.DirectionIncrease, Amount: 1000,
	})
	require.NoError(t, err)

	// Bypasses the up-front reference check of DeleteMany.
	err = s.saver.Save(ctx, domain.ChangeSet{domain.Deleted(c)})
	require.ErrorIs(t, err, domain.ErrConstraintViolation)

	_, err = s.customers.Get(ctx, c.ID, true)
	require.NoError(t, err)
}

func TestDeleteCatalog(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()

	linked, err := s.catalog.CreateCategory(ctx, usecase.CategoryInput{Name: "Bánh Kẹo"})
	require.NoError(t, err)
	empty, err := s.catalog.CreateCategory(ctx, usecase.CategoryInput{Name: "Hàng Cũ"})
	require.NoError(t, err)
	product, err := s.catalog.CreateProduct(ctx, usecase.ProductInput{
		Code: "SP090", Name: "Kẹo Dừa", Unit: "gói", CategoryID: &linked.ID, Price: decimal.NewFromInt(15000),
	})
	require.NoError(t, err)

	report, err := s.catalog.DeleteCategories(ctx, []string{linked.ID, empty.ID})
	require.NoError(t, err)
	assert.Equal(t, []string{empty.ID}, report.Deleted)
	require.Len(t, report.Blocked, 1)
	assert.Equal(t, usecase.BlockedByProducts, report.Blocked[0].Reason)

	report, err = s.catalog.DeleteProducts(ctx, []string{product.ID})
	require.NoError(t, err)
	assert.Equal(t, []string{product.ID}, report.Deleted)

	// With its product gone the category can go too.
	report, err = s.catalog.DeleteCategories(ctx, []string{linked.ID})
	require.NoError(t, err)
	assert.Equal(t, []string{linked.ID}, report.Deleted)

	_, total, err := s.catalog.SearchCategories(ctx, domain.CatalogFilter{Limit: 20})
	require.NoError(t, err)
	assert.Zero(t, total)
}
