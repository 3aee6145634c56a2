package usecase

import (
	"context"
	"fmt"

	"github.com/danhlc/poslite/internal/domain"
)

// EntityUseCase is the generic write path: every audited entity is stored
// through Save.
type EntityUseCase struct {
	txManager TransactionManager
	store     EntityStore
	pipeline  *AuditPipeline
	retrier   Retrier
}

// NewEntityUseCase creates a new EntityUseCase.
func NewEntityUseCase(txManager TransactionManager, store EntityStore, pipeline *AuditPipeline) *EntityUseCase {
	return &EntityUseCase{
		txManager: txManager,
		store:     store,
		pipeline:  pipeline,
		retrier:   directRetrier{},
	}
}

// WithRetrier sets the retrier used for transient store errors.
func (uc *EntityUseCase) WithRetrier(r Retrier) *EntityUseCase {
	uc.retrier = r
	return uc
}

// Save runs the audit pipeline over cs and stores it in one transaction.
func (uc *EntityUseCase) Save(ctx context.Context, cs domain.ChangeSet) error {
	if len(cs) == 0 {
		return nil
	}

	return uc.retrier.Retry(ctx, func() error {
		return uc.save(ctx, cs)
	})
}

func (uc *EntityUseCase) save(ctx context.Context, cs domain.ChangeSet) error {
	ctx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := uc.pipeline.Process(ctx, cs); err != nil {
		return err
	}

	for _, change := range cs {
		switch change.Kind {
		case domain.ChangeAdded:
			err = uc.store.Insert(ctx, tx, change.Entity)
		case domain.ChangeModified:
			if len(change.Fields) == 0 {
				continue
			}
			err = uc.store.Update(ctx, tx, change)
		case domain.ChangeDeleted:
			err = uc.store.Delete(ctx, tx, change.Entity)
		}
		if err != nil {
			return fmt.Errorf("save %s %s: %w", change.Entity.EntityName(), change.Entity.EntityID(), err)
		}
	}

	return tx.Commit(ctx)
}
