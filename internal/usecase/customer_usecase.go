package usecase

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/danhlc/poslite/internal/domain"
)

const maxCodeAttempts = 5

// CustomerUseCase handles customer business logic.
type CustomerUseCase struct {
	customerRepo CustomerRepository
	saver        ChangeSaver
	idGen        IDGenerator
}

// NewCustomerUseCase creates a new CustomerUseCase.
func NewCustomerUseCase(customerRepo CustomerRepository, saver ChangeSaver, idGen IDGenerator) *CustomerUseCase {
	return &CustomerUseCase{
		customerRepo: customerRepo,
		saver:        saver,
		idGen:        idGen,
	}
}

// CustomerInput represents the editable fields of a customer. An empty Code
// on create is replaced by a generated one.
type CustomerInput struct {
	Code     string
	Name     string
	Phone    *string
	Address  *string
	IsActive *bool
}

// Create creates a new customer.
func (uc *CustomerUseCase) Create(ctx context.Context, input CustomerInput) (*domain.Customer, error) {
	input = trimCustomerInput(input)

	if input.Code == "" {
		code, err := uc.GenerateCode(ctx)
		if err != nil {
			return nil, err
		}
		input.Code = code
	}

	if err := uc.validate(ctx, input, ""); err != nil {
		return nil, err
	}

	customer := &domain.Customer{
		ID:      uc.idGen.Generate(),
		Code:    input.Code,
		Name:    input.Name,
		Phone:   input.Phone,
		Address: input.Address,
		Audit:   domain.NewAudit(),
	}
	if input.IsActive != nil {
		customer.IsActive = *input.IsActive
	}

	if err := uc.saver.Save(ctx, domain.ChangeSet{domain.Added(customer)}); err != nil {
		return nil, err
	}

	return customer, nil
}

// Update replaces the editable fields of a customer.
func (uc *CustomerUseCase) Update(ctx context.Context, id string, input CustomerInput) (*domain.Customer, error) {
	input = trimCustomerInput(input)

	customer, err := uc.customerRepo.GetByID(ctx, id, true)
	if err != nil {
		return nil, err
	}

	if err := uc.validate(ctx, input, id); err != nil {
		return nil, err
	}

	before := customer.Fields()
	customer.Code = input.Code
	customer.Name = input.Name
	customer.Phone = input.Phone
	customer.Address = input.Address
	if input.IsActive != nil {
		customer.IsActive = *input.IsActive
	}

	if err := uc.saver.Save(ctx, domain.ChangeSet{domain.Modified(before, customer)}); err != nil {
		return nil, err
	}

	return customer, nil
}

// SetActive activates or deactivates a customer. Ledger history is kept.
func (uc *CustomerUseCase) SetActive(ctx context.Context, id string, active bool) (*domain.Customer, error) {
	customer, err := uc.customerRepo.GetByID(ctx, id, true)
	if err != nil {
		return nil, err
	}

	before := customer.Fields()
	customer.IsActive = active

	if err := uc.saver.Save(ctx, domain.ChangeSet{domain.Modified(before, customer)}); err != nil {
		return nil, err
	}

	return customer, nil
}

// Get returns a customer. Inactive customers are only returned when
// includeInactive is set.
func (uc *CustomerUseCase) Get(ctx context.Context, id string, includeInactive bool) (*domain.Customer, error) {
	return uc.customerRepo.GetByID(ctx, id, includeInactive)
}

// Search returns one page of customers with their balances and the total
// number of matches.
func (uc *CustomerUseCase) Search(ctx context.Context, filter domain.CustomerFilter) ([]*domain.CustomerWithBalance, int, error) {
	filter.Limit, filter.Offset, _ = domain.ValidatePagination(filter.Limit, filter.Offset)
	filter.Status = domain.ParseStatusFilter(string(filter.Status))

	return uc.customerRepo.Search(ctx, filter)
}

// DeleteMany deletes the selected customers. Customers with ledger entries
// are kept and reported as blocked.
func (uc *CustomerUseCase) DeleteMany(ctx context.Context, ids []string) (*DeleteReport, error) {
	return bulkDelete(ctx, uc.saver, ids,
		func(ctx context.Context, id string) (*domain.Customer, error) {
			return uc.customerRepo.GetByID(ctx, id, true)
		},
		func(c *domain.Customer) string { return c.Name },
		uc.customerRepo.WithLedgerEntries,
		BlockedByLedgerEntries,
	)
}

// GenerateCode returns an unused customer code such as "KH3F9A0C".
func (uc *CustomerUseCase) GenerateCode(ctx context.Context) (string, error) {
	for i := 0; i < maxCodeAttempts; i++ {
		code, err := randomCode(CustomerCodePrefix, 3)
		if err != nil {
			return "", err
		}

		exists, err := uc.customerRepo.ExistsByCode(ctx, code, "")
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}

	return "", fmt.Errorf("%w: no free customer code after %d attempts", domain.ErrDuplicateCode, maxCodeAttempts)
}

func (uc *CustomerUseCase) validate(ctx context.Context, input CustomerInput, excludeID string) error {
	if err := domain.ValidateCode(input.Code); err != nil {
		return err
	}
	if err := domain.ValidateName(input.Name); err != nil {
		return err
	}
	if err := domain.ValidateContact(input.Phone, input.Address); err != nil {
		return err
	}

	exists, err := uc.customerRepo.ExistsByCode(ctx, input.Code, excludeID)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: customer code %s", domain.ErrDuplicateCode, input.Code)
	}

	return nil
}

func trimCustomerInput(input CustomerInput) CustomerInput {
	input.Code = strings.TrimSpace(input.Code)
	input.Name = strings.TrimSpace(input.Name)
	input.Phone = trimOptional(input.Phone)
	input.Address = trimOptional(input.Address)
	return input
}

// trimOptional maps blank strings to nil.
func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

// randomCode returns prefix followed by n random bytes in upper-case hex.
func randomCode(prefix string, n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return prefix + strings.ToUpper(hex.EncodeToString(b)), nil
}
