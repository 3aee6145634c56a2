package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/danhlc/poslite/internal/domain"
)

// ProductCodePrefix starts every generated product code.
const ProductCodePrefix = "SP"

// ErrNegativePrice is returned when a product price is below zero.
var ErrNegativePrice = errors.New("price cannot be negative")

// CatalogUseCase handles categories and products.
type CatalogUseCase struct {
	categoryRepo CategoryRepository
	productRepo  ProductRepository
	saver        ChangeSaver
	idGen        IDGenerator
}

// NewCatalogUseCase creates a new CatalogUseCase.
func NewCatalogUseCase(
	categoryRepo CategoryRepository,
	productRepo ProductRepository,
	saver ChangeSaver,
	idGen IDGenerator,
) *CatalogUseCase {
	return &CatalogUseCase{
		categoryRepo: categoryRepo,
		productRepo:  productRepo,
		saver:        saver,
		idGen:        idGen,
	}
}

// CategoryInput represents the editable fields of a category.
type CategoryInput struct {
	Name     string
	IsActive *bool
}

// ProductInput represents the editable fields of a product. An empty Code
// on create is replaced by a generated one.
type ProductInput struct {
	Code       string
	Name       string
	Unit       string
	CategoryID *string
	Price      decimal.Decimal
	IsActive   *bool
}

// CreateCategory creates a new category.
func (uc *CatalogUseCase) CreateCategory(ctx context.Context, input CategoryInput) (*domain.Category, error) {
	input.Name = strings.TrimSpace(input.Name)
	if err := uc.validateCategory(ctx, input, ""); err != nil {
		return nil, err
	}

	category := &domain.Category{
		ID:    uc.idGen.Generate(),
		Name:  input.Name,
		Audit: domain.NewAudit(),
	}
	if input.IsActive != nil {
		category.IsActive = *input.IsActive
	}

	if err := uc.saver.Save(ctx, domain.ChangeSet{domain.Added(category)}); err != nil {
		return nil, err
	}

	return category, nil
}

// UpdateCategory replaces the editable fields of a category.
func (uc *CatalogUseCase) UpdateCategory(ctx context.Context, id string, input CategoryInput) (*domain.Category, error) {
	input.Name = strings.TrimSpace(input.Name)

	category, err := uc.categoryRepo.GetByID(ctx, id, true)
	if err != nil {
		return nil, err
	}

	if err := uc.validateCategory(ctx, input, id); err != nil {
		return nil, err
	}

	before := category.Fields()
	category.Name = input.Name
	if input.IsActive != nil {
		category.IsActive = *input.IsActive
	}

	if err := uc.saver.Save(ctx, domain.ChangeSet{domain.Modified(before, category)}); err != nil {
		return nil, err
	}

	return category, nil
}

// SearchCategories returns one page of categories and the total match count.
func (uc *CatalogUseCase) SearchCategories(ctx context.Context, filter domain.CatalogFilter) ([]*domain.Category, int, error) {
	filter.Limit, filter.Offset, _ = domain.ValidatePagination(filter.Limit, filter.Offset)
	filter.Status = domain.ParseStatusFilter(string(filter.Status))

	return uc.categoryRepo.Search(ctx, filter)
}

// DeleteCategories deletes the selected categories. Categories that
// products still link to are kept and reported as blocked.
func (uc *CatalogUseCase) DeleteCategories(ctx context.Context, ids []string) (*DeleteReport, error) {
	return bulkDelete(ctx, uc.saver, ids,
		func(ctx context.Context, id string) (*domain.Category, error) {
			return uc.categoryRepo.GetByID(ctx, id, true)
		},
		func(c *domain.Category) string { return c.Name },
		uc.categoryRepo.WithProducts,
		BlockedByProducts,
	)
}

// CreateProduct creates a new product.
func (uc *CatalogUseCase) CreateProduct(ctx context.Context, input ProductInput) (*domain.Product, error) {
	input = trimProductInput(input)

	if input.Code == "" {
		code, err := randomCode(ProductCodePrefix, 8)
		if err != nil {
			return nil, err
		}
		input.Code = code
	}

	if err := uc.validateProduct(ctx, input, ""); err != nil {
		return nil, err
	}

	product := &domain.Product{
		ID:         uc.idGen.Generate(),
		Code:       input.Code,
		Name:       input.Name,
		Unit:       input.Unit,
		CategoryID: input.CategoryID,
		Price:      input.Price,
		Audit:      domain.NewAudit(),
	}
	if input.IsActive != nil {
		product.IsActive = *input.IsActive
	}

	if err := uc.saver.Save(ctx, domain.ChangeSet{domain.Added(product)}); err != nil {
		return nil, err
	}

	return product, nil
}

// UpdateProduct replaces the editable fields of a product.
func (uc *CatalogUseCase) UpdateProduct(ctx context.Context, id string, input ProductInput) (*domain.Product, error) {
	input = trimProductInput(input)

	product, err := uc.productRepo.GetByID(ctx, id, true)
	if err != nil {
		return nil, err
	}

	if err := uc.validateProduct(ctx, input, id); err != nil {
		return nil, err
	}

	before := product.Fields()
	product.Code = input.Code
	product.Name = input.Name
	product.Unit = input.Unit
	product.CategoryID = input.CategoryID
	product.Price = input.Price
	if input.IsActive != nil {
		product.IsActive = *input.IsActive
	}

	if err := uc.saver.Save(ctx, domain.ChangeSet{domain.Modified(before, product)}); err != nil {
		return nil, err
	}

	return product, nil
}

// SearchProducts returns one page of products and the total match count.
func (uc *CatalogUseCase) SearchProducts(ctx context.Context, filter domain.CatalogFilter) ([]*domain.Product, int, error) {
	filter.Limit, filter.Offset, _ = domain.ValidatePagination(filter.Limit, filter.Offset)
	filter.Status = domain.ParseStatusFilter(string(filter.Status))

	return uc.productRepo.Search(ctx, filter)
}

// DeleteProducts deletes the selected products. Invoice postings only
// reference invoices, so no product is ever blocked.
func (uc *CatalogUseCase) DeleteProducts(ctx context.Context, ids []string) (*DeleteReport, error) {
	return bulkDelete(ctx, uc.saver, ids,
		func(ctx context.Context, id string) (*domain.Product, error) {
			return uc.productRepo.GetByID(ctx, id, true)
		},
		func(p *domain.Product) string { return p.Name },
		nil,
		"",
	)
}

func (uc *CatalogUseCase) validateCategory(ctx context.Context, input CategoryInput, excludeID string) error {
	if err := domain.ValidateName(input.Name); err != nil {
		return err
	}

	exists, err := uc.categoryRepo.ExistsByName(ctx, input.Name, excludeID)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: category %s", domain.ErrDuplicateName, input.Name)
	}

	return nil
}

func (uc *CatalogUseCase) validateProduct(ctx context.Context, input ProductInput, excludeID string) error {
	if err := domain.ValidateCode(input.Code); err != nil {
		return err
	}
	if err := domain.ValidateName(input.Name); err != nil {
		return err
	}
	if len([]rune(input.Unit)) > domain.MaxUnitLength {
		return fmt.Errorf("%w: unit exceeds %d characters", domain.ErrInvalidName, domain.MaxUnitLength)
	}
	if input.Price.IsNegative() {
		return fmt.Errorf("%w: %w", domain.ErrInvalidAmount, ErrNegativePrice)
	}

	if input.CategoryID != nil {
		if _, err := uc.categoryRepo.GetByID(ctx, *input.CategoryID, false); err != nil {
			return err
		}
	}

	exists, err := uc.productRepo.ExistsByCode(ctx, input.Code, excludeID)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: product code %s", domain.ErrDuplicateCode, input.Code)
	}

	return nil
}

func trimProductInput(input ProductInput) ProductInput {
	input.Code = strings.TrimSpace(input.Code)
	input.Name = strings.TrimSpace(input.Name)
	input.Unit = strings.TrimSpace(input.Unit)
	input.CategoryID = trimOptional(input.CategoryID)
	return input
}
