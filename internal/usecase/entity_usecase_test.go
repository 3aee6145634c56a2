package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/danhlc/poslite/internal/domain"
	"github.com/danhlc/poslite/internal/usecase"
	"github.com/danhlc/poslite/internal/usecase/mocks"
)

func TestEntityUseCase_SaveInsertsAndUpdates(t *testing.T) {
	ctrl := gomock.NewController(t)
	txMgr := mocks.NewMockTransactionManager(ctrl)
	tx := mocks.NewMockTransaction(ctrl)
	store := mocks.NewMockEntityStore(ctrl)

	added := &domain.Customer{ID: "cus-2", Code: "KH0002", Name: "Bình", Audit: domain.NewAudit()}
	renamed := storedCustomer()
	before := renamed.Fields()
	renamed.Name = "Chó Mèo"
	untouched := storedCustomer()

	cs := domain.ChangeSet{
		domain.Added(added),
		domain.Modified(before, renamed),
		domain.Modified(untouched.Fields(), untouched),
	}

	gomock.InOrder(
		txMgr.EXPECT().Begin(gomock.Any()).Return(tx, nil),
		store.EXPECT().Insert(gomock.Any(), tx, added).Return(nil),
		store.EXPECT().Update(gomock.Any(), tx, cs[1]).DoAndReturn(
			func(_ context.Context, _ usecase.Transaction, change *domain.Change) error {
				assert.True(t, change.Has(domain.FieldNameSearch))
				assert.True(t, change.Has(domain.FieldUpdatedAt))
				return nil
			}),
		tx.EXPECT().Commit(gomock.Any()).Return(nil),
	)
	tx.EXPECT().Rollback(gomock.Any()).Return(nil).AnyTimes()

	uc := usecase.NewEntityUseCase(txMgr, store, newPipeline())

	require.NoError(t, uc.Save(usecase.WithActor(context.Background(), "lan"), cs))
	assert.Equal(t, "lan", added.CreatedBy)
	assert.Equal(t, "cho meo", renamed.NameSearch)
}

func TestEntityUseCase_SaveEmptyChangeSet(t *testing.T) {
	ctrl := gomock.NewController(t)
	uc := usecase.NewEntityUseCase(mocks.NewMockTransactionManager(ctrl), mocks.NewMockEntityStore(ctrl), newPipeline())

	require.NoError(t, uc.Save(context.Background(), nil))
}

func TestEntityUseCase_StoreErrorRollsBack(t *testing.T) {
	ctrl := gomock.NewController(t)
	txMgr := mocks.NewMockTransactionManager(ctrl)
	tx := mocks.NewMockTransaction(ctrl)
	store := mocks.NewMockEntityStore(ctrl)

	c := &domain.Customer{ID: "cus-3", Code: "KH0001", Name: "Trùng", Audit: domain.NewAudit()}

	txMgr.EXPECT().Begin(gomock.Any()).Return(tx, nil)
	store.EXPECT().Insert(gomock.Any(), tx, c).Return(domain.ErrDuplicateCode)
	tx.EXPECT().Rollback(gomock.Any()).Return(nil)

	uc := usecase.NewEntityUseCase(txMgr, store, newPipeline())

	err := uc.Save(context.Background(), domain.ChangeSet{domain.Added(c)})
	if !errors.Is(err, domain.ErrConstraintViolation) {
		t.Fatalf("expected ErrConstraintViolation, got %v", err)
	}
}

func TestEntityUseCase_SaveRunsInsideRetrier(t *testing.T) {
	ctrl := gomock.NewController(t)
	txMgr := mocks.NewMockTransactionManager(ctrl)
	tx := mocks.NewMockTransaction(ctrl)
	store := mocks.NewMockEntityStore(ctrl)
	retrier := mocks.NewMockRetrier(ctrl)

	c := &domain.Category{ID: "cat-1", Name: "Bia", Audit: domain.NewAudit()}
	transient := errors.New("deadlock detected")

	retrier.EXPECT().Retry(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, op func() error) error {
			if err := op(); !errors.Is(err, transient) {
				return err
			}
			return op()
		})

	txMgr.EXPECT().Begin(gomock.Any()).Return(tx, nil).Times(2)
	gomock.InOrder(
		store.EXPECT().Insert(gomock.Any(), tx, c).Return(transient),
		store.EXPECT().Insert(gomock.Any(), tx, c).Return(nil),
	)
	tx.EXPECT().Commit(gomock.Any()).Return(nil)
	tx.EXPECT().Rollback(gomock.Any()).Return(nil).Times(2)

	uc := usecase.NewEntityUseCase(txMgr, store, newPipeline()).WithRetrier(retrier)

	require.NoError(t, uc.Save(context.Background(), domain.ChangeSet{domain.Added(c)}))
	assert.Equal(t, "bia", c.NameSearch)
}
