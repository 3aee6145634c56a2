package usecase

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/danhlc/poslite/internal/domain"
	"github.com/danhlc/poslite/internal/textsearch"
)

// SearchKeyUseCase re-derives stale search keys, for example after the
// normalization rules change. Rewrites are technical-only changes and leave
// UpdatedAt/UpdatedBy untouched.
type SearchKeyUseCase struct {
	customerRepo CustomerRepository
	categoryRepo CategoryRepository
	productRepo  ProductRepository
	saver        ChangeSaver
	logger       zerolog.Logger
}

// NewSearchKeyUseCase creates a new SearchKeyUseCase.
func NewSearchKeyUseCase(
	customerRepo CustomerRepository,
	categoryRepo CategoryRepository,
	productRepo ProductRepository,
	saver ChangeSaver,
	logger zerolog.Logger,
) *SearchKeyUseCase {
	return &SearchKeyUseCase{
		customerRepo: customerRepo,
		categoryRepo: categoryRepo,
		productRepo:  productRepo,
		saver:        saver,
		logger:       logger,
	}
}

// RepairReport counts scanned, rewritten and skipped records per entity
// name. A record is skipped when it changed between the scan and its rewrite.
type RepairReport struct {
	Scanned  map[string]int
	Repaired map[string]int
	Skipped  map[string]int
}

// Repair scans customers, categories and products and rewrites every stale
// search key.
func (uc *SearchKeyUseCase) Repair(ctx context.Context) (*RepairReport, error) {
	report := &RepairReport{
		Scanned:  make(map[string]int),
		Repaired: make(map[string]int),
		Skipped:  make(map[string]int),
	}

	err := repairAll(ctx, uc, report, domain.EntityCustomer, uc.customerRepo.ListPage)
	if err != nil {
		return report, err
	}

	err = repairAll(ctx, uc, report, domain.EntityCategory, uc.categoryRepo.ListPage)
	if err != nil {
		return report, err
	}

	err = repairAll(ctx, uc, report, domain.EntityProduct, uc.productRepo.ListPage)
	if err != nil {
		return report, err
	}

	return report, nil
}

func repairAll[T domain.Searchable](
	ctx context.Context,
	uc *SearchKeyUseCase,
	report *RepairReport,
	entityName string,
	list func(ctx context.Context, afterID string, limit int) ([]T, error),
) error {
	afterID := ""

	for {
		page, err := list(ctx, afterID, searchKeyRepairBatch)
		if err != nil {
			return err
		}
		if len(page) == 0 {
			return nil
		}

		repaired, skipped := 0, 0
		for _, entity := range page {
			change := staleKeyChange(entity)
			if change == nil {
				continue
			}

			// Each rewrite commits alone so a record edited since the page
			// was read is skipped without failing the batch.
			err := uc.saver.Save(ctx, domain.ChangeSet{change})
			if errors.Is(err, domain.ErrStaleWrite) {
				skipped++
				uc.logger.Warn().
					Str("entity", entityName).
					Str("id", entity.EntityID()).
					Msg("record changed during search key repair, skipped")
				continue
			}
			if err != nil {
				return err
			}
			repaired++
		}

		report.Scanned[entityName] += len(page)
		report.Repaired[entityName] += repaired
		report.Skipped[entityName] += skipped

		uc.logger.Info().
			Str("entity", entityName).
			Int("scanned", len(page)).
			Int("repaired", repaired).
			Int("skipped", skipped).
			Msg("search key repair batch done")

		if len(page) < searchKeyRepairBatch {
			return nil
		}
		afterID = page[len(page)-1].EntityID()
	}
}

// staleKeyChange returns a change holding only the search keys of entity
// that differ from their normalized source, or nil. The change is guarded
// on the source values it was derived from.
func staleKeyChange(entity domain.Searchable) *domain.Change {
	before := entity.Fields()

	var sources []string
	for _, key := range entity.SearchKeys() {
		if want := textsearch.Normalize(*key.Source); *key.Key != want {
			*key.Key = want
			sources = append(sources, key.SourceField)
		}
	}
	if len(sources) == 0 {
		return nil
	}

	change := domain.Modified(before, entity)
	for _, field := range sources {
		change.Expect(field, before[field])
	}
	return change
}
