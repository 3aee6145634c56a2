package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Validation errors
var (
	ErrInvalidName    = errors.New("invalid name")
	ErrInvalidCode    = errors.New("invalid code")
	ErrInvalidContact = errors.New("invalid contact details")
)

// Validation constants
const (
	MaxNameLength    = 200
	MaxCodeLength    = 50
	MaxNoteLength    = 300
	MaxPhoneLength   = 30
	MaxAddressLength = 300
	MaxUnitLength    = 50
	// MaxAdjustmentAmount is the largest amount accepted by an adjustment form.
	MaxAdjustmentAmount int64 = 2147483647
	// MaxInvoiceAmount bounds invoice totals and payments.
	MaxInvoiceAmount int64 = 1_000_000_000_000
)

var codeRegex = regexp.MustCompile(`^[A-Za-z0-9_.\-]+$`)

// ValidateName validates a display name of a customer, category or product.
func ValidateName(name string) error {
	name = strings.TrimSpace(name)

	if name == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidName)
	}

	if utf8.RuneCountInString(name) > MaxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidName, MaxNameLength)
	}

	return nil
}

// ValidateCode validates a customer or product code.
func ValidateCode(code string) error {
	code = strings.TrimSpace(code)

	if code == "" {
		return fmt.Errorf("%w: code cannot be empty", ErrInvalidCode)
	}

	if len(code) > MaxCodeLength {
		return fmt.Errorf("%w: code exceeds %d characters", ErrInvalidCode, MaxCodeLength)
	}

	if !codeRegex.MatchString(code) {
		return fmt.Errorf("%w: %q may only contain letters, digits, '-', '_' and '.'", ErrInvalidCode, code)
	}

	return nil
}

// ValidateContact validates the optional phone and address of a customer.
func ValidateContact(phone, address *string) error {
	if phone != nil && utf8.RuneCountInString(*phone) > MaxPhoneLength {
		return fmt.Errorf("%w: phone exceeds %d characters", ErrInvalidContact, MaxPhoneLength)
	}

	if address != nil && utf8.RuneCountInString(*address) > MaxAddressLength {
		return fmt.Errorf("%w: address exceeds %d characters", ErrInvalidContact, MaxAddressLength)
	}

	return nil
}

// ValidateAdjustment checks the inputs of a manual balance adjustment.
// Direction is only checked in delta mode.
func ValidateAdjustment(mode AdjustMode, direction Direction, amount int64, note *string) error {
	if amount < 0 || amount > MaxAdjustmentAmount {
		return fmt.Errorf("%w: amount must be between 0 and %d", ErrInvalidAmount, MaxAdjustmentAmount)
	}

	switch mode {
	case AdjustModeSet:
	case AdjustModeDelta:
		if direction != DirectionIncrease && direction != DirectionDecrease {
			return fmt.Errorf("%w: %q", ErrInvalidDirection, direction)
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}

	return ValidateNote(note)
}

// ValidateInvoicePosting checks the amounts posted for an invoice.
func ValidateInvoicePosting(total, payment int64, note *string) error {
	if total < 0 || total > MaxInvoiceAmount {
		return fmt.Errorf("%w: total must be between 0 and %d", ErrInvalidAmount, MaxInvoiceAmount)
	}

	if payment < 0 || payment > MaxInvoiceAmount {
		return fmt.Errorf("%w: payment must be between 0 and %d", ErrInvalidAmount, MaxInvoiceAmount)
	}

	return ValidateNote(note)
}

// ValidateNote validates an optional ledger note.
func ValidateNote(note *string) error {
	if note != nil && utf8.RuneCountInString(*note) > MaxNoteLength {
		return fmt.Errorf("%w: note exceeds %d characters", ErrNoteTooLong, MaxNoteLength)
	}

	return nil
}

// ValidatePagination validates and limits pagination parameters
func ValidatePagination(limit, offset int) (int, int, error) {
	const MaxPageSize = 100
	const DefaultPageSize = 20

	if limit <= 0 {
		limit = DefaultPageSize
	}

	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	if offset < 0 {
		offset = 0
	}

	return limit, offset, nil
}

// MaxBulkSelection bounds the IDs accepted by one bulk operation.
const MaxBulkSelection = 500

// ValidateSelection trims ids, drops blanks and duplicates, and keeps the
// first-seen order.
func ValidateSelection(ids []string) ([]string, error) {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no ids selected", ErrInvalidSelection)
	}
	if len(out) > MaxBulkSelection {
		return nil, fmt.Errorf("%w: at most %d ids per request", ErrInvalidSelection, MaxBulkSelection)
	}

	return out, nil
}
