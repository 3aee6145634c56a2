package idgen

import (
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
)

func TestULIDGeneratorUniqueAndOrdered(t *testing.T) {
	g := NewULIDGenerator()
	fixed := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return fixed }

	prev := ""
	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		id := g.Generate()
		if _, err := ulid.ParseStrict(id); err != nil {
			t.Fatalf("invalid ULID %q: %v", id, err)
		}
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate ID %q", id)
		}
		if id <= prev {
			t.Fatalf("expected %q to sort after %q", id, prev)
		}
		seen[id] = struct{}{}
		prev = id
	}
}
