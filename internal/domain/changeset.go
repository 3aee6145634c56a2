package domain

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Entity is a persisted record addressed by kind and ID.
type Entity interface {
	EntityName() string
	EntityID() string
	// Fields returns a snapshot of the persisted fields keyed by field name.
	// The ID is not part of the snapshot.
	Fields() map[string]any
}

// ChangeKind tells whether a change inserts, updates or deletes a record.
type ChangeKind int

const (
	ChangeAdded ChangeKind = iota + 1
	ChangeModified
	ChangeDeleted
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeAdded:
		return "added"
	case ChangeModified:
		return "modified"
	case ChangeDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// FieldChange is the old and new value of one field.
type FieldChange struct {
	Old any
	New any
}

// Change is one pending write: the entity in its new state plus the fields
// that differ from the stored state.
type Change struct {
	Kind   ChangeKind
	Entity Entity
	Fields map[string]FieldChange
	// Guard holds stored field values the row must still have for an
	// update to apply. A guarded update that matches no row fails with
	// ErrStaleWrite.
	Guard map[string]any
}

// ChangeSet is the ordered list of writes committed together.
type ChangeSet []*Change

// Added returns an insert change. Every field counts as changed.
func Added(e Entity) *Change {
	fields := make(map[string]FieldChange)
	for name, v := range e.Fields() {
		fields[name] = FieldChange{New: v}
	}

	return &Change{Kind: ChangeAdded, Entity: e, Fields: fields}
}

// Modified returns an update change holding the fields of e that differ
// from the before snapshot.
func Modified(before map[string]any, e Entity) *Change {
	fields := make(map[string]FieldChange)
	for name, newValue := range e.Fields() {
		oldValue, ok := before[name]
		if ok && ValuesEqual(oldValue, newValue) {
			continue
		}
		fields[name] = FieldChange{Old: oldValue, New: newValue}
	}

	return &Change{Kind: ChangeModified, Entity: e, Fields: fields}
}

// Deleted returns a delete change. It carries no fields.
func Deleted(e Entity) *Change {
	return &Change{Kind: ChangeDeleted, Entity: e, Fields: make(map[string]FieldChange)}
}

// Expect adds a guard on the stored value of a field.
func (c *Change) Expect(name string, stored any) {
	if c.Guard == nil {
		c.Guard = make(map[string]any)
	}
	c.Guard[name] = stored
}

// Set records a field change, dropping it when old and new are equal.
func (c *Change) Set(name string, oldValue, newValue any) {
	if c.Kind == ChangeModified && ValuesEqual(oldValue, newValue) {
		delete(c.Fields, name)
		return
	}
	c.Fields[name] = FieldChange{Old: oldValue, New: newValue}
}

// Has reports whether the named field is part of the change.
func (c *Change) Has(name string) bool {
	_, ok := c.Fields[name]
	return ok
}

// FieldNames returns the changed field names in sorted order.
func (c *Change) FieldNames() []string {
	names := make([]string, 0, len(c.Fields))
	for name := range c.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValuesEqual compares two field values of the types used in entity snapshots.
func ValuesEqual(a, b any) bool {
	switch av := a.(type) {
	case *string:
		bv, ok := b.(*string)
		if !ok {
			return false
		}
		if av == nil || bv == nil {
			return av == nil && bv == nil
		}
		return *av == *bv
	case *time.Time:
		bv, ok := b.(*time.Time)
		if !ok {
			return false
		}
		if av == nil || bv == nil {
			return av == nil && bv == nil
		}
		return av.Equal(*bv)
	case time.Time:
		bv, ok := b.(time.Time)
		return ok && av.Equal(bv)
	case decimal.Decimal:
		bv, ok := b.(decimal.Decimal)
		return ok && av.Equal(bv)
	case string, bool, int, int64, float64, nil:
		return a == b
	default:
		return false
	}
}
