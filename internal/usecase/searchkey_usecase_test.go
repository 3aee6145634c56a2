package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/danhlc/poslite/internal/domain"
	"github.com/danhlc/poslite/internal/usecase"
	"github.com/danhlc/poslite/internal/usecase/mocks"
)

func TestSearchKeyUseCase_RepairIsTechnicalOnly(t *testing.T) {
	ctrl := gomock.NewController(t)
	customers := mocks.NewMockCustomerRepository(ctrl)
	categories := mocks.NewMockCategoryRepository(ctrl)
	products := mocks.NewMockProductRepository(ctrl)
	txMgr := mocks.NewMockTransactionManager(ctrl)
	tx := mocks.NewMockTransaction(ctrl)
	store := mocks.NewMockEntityStore(ctrl)

	stale := storedCustomer()
	stale.NameSearch = "THỨC ĂN CHÓ"
	fresh := storedCustomer()
	fresh.ID = "cus-2"

	staleCategory := &domain.Category{ID: "cat-1", Name: "Bia", NameSearch: "", Audit: domain.NewAudit()}

	customers.EXPECT().ListPage(gomock.Any(), "", gomock.Any()).Return([]*domain.Customer{stale, fresh}, nil)
	categories.EXPECT().ListPage(gomock.Any(), "", gomock.Any()).Return([]*domain.Category{staleCategory}, nil)
	products.EXPECT().ListPage(gomock.Any(), "", gomock.Any()).Return(nil, nil)

	var updated []*domain.Change
	txMgr.EXPECT().Begin(gomock.Any()).Return(tx, nil).Times(2)
	store.EXPECT().Update(gomock.Any(), tx, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ usecase.Transaction, change *domain.Change) error {
			updated = append(updated, change)
			return nil
		}).Times(2)
	tx.EXPECT().Commit(gomock.Any()).Return(nil).Times(2)
	tx.EXPECT().Rollback(gomock.Any()).Return(nil).AnyTimes()

	saver := usecase.NewEntityUseCase(txMgr, store, newPipeline())
	uc := usecase.NewSearchKeyUseCase(customers, categories, products, saver, zerolog.Nop())

	report, err := uc.Repair(usecase.WithActor(context.Background(), "repair-job"))
	require.NoError(t, err)

	assert.Equal(t, 2, report.Scanned[domain.EntityCustomer])
	assert.Equal(t, 1, report.Repaired[domain.EntityCustomer])
	assert.Equal(t, 1, report.Repaired[domain.EntityCategory])
	assert.Equal(t, 0, report.Scanned[domain.EntityProduct])

	require.Len(t, updated, 2)
	assert.Equal(t, []string{domain.FieldNameSearch}, updated[0].FieldNames())
	assert.Equal(t, map[string]any{domain.FieldName: "Thức ăn chó"}, updated[0].Guard,
		"the rewrite only applies while the name it was derived from is unchanged")
	assert.Equal(t, "thuc an cho", stale.NameSearch)
	assert.Equal(t, editedAt, *stale.UpdatedAt, "repair must not stamp UpdatedAt")
	assert.Equal(t, "thu", *stale.UpdatedBy)
	assert.Nil(t, staleCategory.UpdatedAt)
}

func TestSearchKeyUseCase_RepairSkipsRecordsChangedSinceScan(t *testing.T) {
	ctrl := gomock.NewController(t)
	customers := mocks.NewMockCustomerRepository(ctrl)
	categories := mocks.NewMockCategoryRepository(ctrl)
	products := mocks.NewMockProductRepository(ctrl)
	saver := mocks.NewMockChangeSaver(ctrl)

	renamed := storedCustomer()
	renamed.NameSearch = ""
	stale := storedCustomer()
	stale.ID = "cus-2"
	stale.NameSearch = ""

	customers.EXPECT().ListPage(gomock.Any(), "", gomock.Any()).Return([]*domain.Customer{renamed, stale}, nil)
	categories.EXPECT().ListPage(gomock.Any(), "", gomock.Any()).Return(nil, nil)
	products.EXPECT().ListPage(gomock.Any(), "", gomock.Any()).Return(nil, nil)

	gomock.InOrder(
		saver.EXPECT().Save(gomock.Any(), gomock.Any()).Return(fmt.Errorf("save customer cus-1: %w", domain.ErrStaleWrite)),
		saver.EXPECT().Save(gomock.Any(), gomock.Any()).Return(nil),
	)

	uc := usecase.NewSearchKeyUseCase(customers, categories, products, saver, zerolog.Nop())

	report, err := uc.Repair(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Repaired[domain.EntityCustomer])
	assert.Equal(t, 1, report.Skipped[domain.EntityCustomer])
}

func TestSearchKeyUseCase_RepairStopsOnStoreError(t *testing.T) {
	ctrl := gomock.NewController(t)
	customers := mocks.NewMockCustomerRepository(ctrl)
	saver := mocks.NewMockChangeSaver(ctrl)

	stale := storedCustomer()
	stale.NameSearch = ""
	customers.EXPECT().ListPage(gomock.Any(), "", gomock.Any()).Return([]*domain.Customer{stale}, nil)
	saver.EXPECT().Save(gomock.Any(), gomock.Any()).Return(errors.New("disk full"))

	uc := usecase.NewSearchKeyUseCase(customers, mocks.NewMockCategoryRepository(ctrl), mocks.NewMockProductRepository(ctrl), saver, zerolog.Nop())

	_, err := uc.Repair(context.Background())
	require.EqualError(t, err, "disk full")
}
