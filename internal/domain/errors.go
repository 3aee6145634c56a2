package domain

import (
	"errors"
	"fmt"
)

var (
	// Lookup errors
	ErrNotFound         = errors.New("not found")
	ErrCustomerNotFound = fmt.Errorf("customer %w", ErrNotFound)
	ErrCategoryNotFound = fmt.Errorf("category %w", ErrNotFound)
	ErrProductNotFound  = fmt.Errorf("product %w", ErrNotFound)

	// Ledger errors
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidMode      = errors.New("invalid adjustment mode")
	ErrInvalidDirection = errors.New("invalid adjustment direction")
	ErrNoteTooLong      = errors.New("note too long")
	ErrInvalidReference = errors.New("invalid ledger reference")

	// Store errors
	ErrConcurrencyConflict = errors.New("concurrent update conflict, retry the request")
	ErrConstraintViolation = errors.New("constraint violation")
	ErrDuplicateCode       = fmt.Errorf("%w: code already in use", ErrConstraintViolation)
	ErrDuplicateName       = fmt.Errorf("%w: name already in use", ErrConstraintViolation)
	ErrStaleWrite          = fmt.Errorf("%w: record changed since it was read", ErrConcurrencyConflict)

	// Bulk errors
	ErrInvalidSelection = errors.New("invalid selection")
)
