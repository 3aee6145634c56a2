package redis

import (
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	redislib "github.com/redis/go-redis/v9"
)

// newTestStore returns a store over an in-process Redis. The server and the
// client are closed when the test ends.
func newTestStore(t *testing.T) (*IdempotencyStore, *redislib.Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redislib.NewClient(&redislib.Options{Addr: mr.Addr(), Protocol: 2})
	t.Cleanup(func() { _ = client.Close() })

	return NewIdempotencyStore(client), client, mr
}
