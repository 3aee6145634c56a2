// Package idgen provides the identifier generator shared by every store.
package idgen

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// ULIDGenerator generates ULID-based IDs. IDs from one process sort in
// generation order, which keeps keyset scans stable.
type ULIDGenerator struct {
	now func() time.Time
}

// NewULIDGenerator creates a new ULIDGenerator.
func NewULIDGenerator() *ULIDGenerator {
	return &ULIDGenerator{now: time.Now}
}

// Generate generates a new ULID.
func (g *ULIDGenerator) Generate() string {
	return ulid.MustNew(ulid.Timestamp(g.now()), ulid.DefaultEntropy()).String()
}
