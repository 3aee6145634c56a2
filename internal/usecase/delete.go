package usecase

import (
	"context"
	"errors"

	"github.com/danhlc/poslite/internal/domain"
)

// Reasons a record is kept by a bulk delete.
const (
	BlockedByLedgerEntries = "has_ledger_entries"
	BlockedByProducts      = "has_products"
)

// BlockedDelete is a selected record that was kept.
type BlockedDelete struct {
	ID     string
	Name   string
	Reason string
}

// DeleteReport is the outcome of a bulk delete. Missing lists selected IDs
// that matched no record.
type DeleteReport struct {
	Deleted []string
	Blocked []BlockedDelete
	Missing []string
}

// bulkDelete removes every selected record that nothing references, in one
// transaction. blockers returns the referenced subset of its ids and may be
// nil when nothing can reference the records.
func bulkDelete[T domain.Entity](
	ctx context.Context,
	saver ChangeSaver,
	ids []string,
	get func(ctx context.Context, id string) (T, error),
	name func(T) string,
	blockers func(ctx context.Context, ids []string) ([]string, error),
	reason string,
) (*DeleteReport, error) {
	ids, err := domain.ValidateSelection(ids)
	if err != nil {
		return nil, err
	}

	report := &DeleteReport{}
	found := make([]T, 0, len(ids))
	for _, id := range ids {
		entity, err := get(ctx, id)
		if errors.Is(err, domain.ErrNotFound) {
			report.Missing = append(report.Missing, id)
			continue
		}
		if err != nil {
			return nil, err
		}
		found = append(found, entity)
	}

	blocked := make(map[string]bool)
	if blockers != nil && len(found) > 0 {
		foundIDs := make([]string, len(found))
		for i, e := range found {
			foundIDs[i] = e.EntityID()
		}
		referenced, err := blockers(ctx, foundIDs)
		if err != nil {
			return nil, err
		}
		for _, id := range referenced {
			blocked[id] = true
		}
	}

	var cs domain.ChangeSet
	for _, e := range found {
		if blocked[e.EntityID()] {
			report.Blocked = append(report.Blocked, BlockedDelete{ID: e.EntityID(), Name: name(e), Reason: reason})
			continue
		}
		cs = append(cs, domain.Deleted(e))
		report.Deleted = append(report.Deleted, e.EntityID())
	}

	// A reference added after the check fails the whole batch on the
	// foreign key with domain.ErrConstraintViolation.
	if err := saver.Save(ctx, cs); err != nil {
		return nil, err
	}

	return report, nil
}
