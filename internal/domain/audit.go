package domain

import "time"

// Audit field names as they appear in change sets.
const (
	FieldIsActive  = "IsActive"
	FieldCreatedAt = "CreatedAt"
	FieldCreatedBy = "CreatedBy"
	FieldUpdatedAt = "UpdatedAt"
	FieldUpdatedBy = "UpdatedBy"
)

// SystemActor is recorded when no authenticated user is available.
const SystemActor = "system"

// Audit holds the bookkeeping columns shared by every auditable record.
// Only the audit pipeline writes CreatedAt/CreatedBy/UpdatedAt/UpdatedBy.
type Audit struct {
	IsActive  bool
	CreatedBy string
	CreatedAt time.Time
	UpdatedBy *string
	UpdatedAt *time.Time
}

// NewAudit returns the audit block of a new, active record.
func NewAudit() Audit {
	return Audit{IsActive: true}
}

// IsAuditField reports whether name is one of the four audit metadata fields.
func IsAuditField(name string) bool {
	switch name {
	case FieldCreatedAt, FieldCreatedBy, FieldUpdatedAt, FieldUpdatedBy:
		return true
	}
	return false
}

func (a *Audit) fields(m map[string]any) {
	m[FieldIsActive] = a.IsActive
	m[FieldCreatedBy] = a.CreatedBy
	m[FieldCreatedAt] = a.CreatedAt
	m[FieldUpdatedBy] = a.UpdatedBy
	m[FieldUpdatedAt] = a.UpdatedAt
}

// Auditable is implemented by records carrying an Audit block.
type Auditable interface {
	Entity
	AuditInfo() *Audit
}

// SearchKey pairs a human-entered source field with its derived search key.
type SearchKey struct {
	SourceField string
	KeyField    string
	Source      *string
	Key         *string
}

// Searchable is implemented by records exposing derived search keys.
type Searchable interface {
	Entity
	SearchKeys() []SearchKey
}

// StatusFilter selects records by their active flag.
type StatusFilter string

const (
	StatusAll      StatusFilter = "all"
	StatusActive   StatusFilter = "active"
	StatusInactive StatusFilter = "inactive"
)

// ParseStatusFilter maps unknown values to StatusAll.
func ParseStatusFilter(s string) StatusFilter {
	switch StatusFilter(s) {
	case StatusActive, StatusInactive:
		return StatusFilter(s)
	default:
		return StatusAll
	}
}
