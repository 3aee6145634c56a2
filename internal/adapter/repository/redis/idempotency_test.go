package redis

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestIdempotencyStore_CheckAndSetExisting(t *testing.T) {
	store, client, _ := newTestStore(t)
	ctx := context.Background()

	if err := client.Set(ctx, store.prefix+"key", "cached", time.Minute).Err(); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	exists, resp, err := store.CheckAndSet(ctx, "key", nil, time.Minute)
	if err != nil {
		t.Fatalf("CheckAndSet failed: %v", err)
	}

	if !exists || string(resp) != "cached" {
		t.Fatalf("expected existing cached response, got exists=%v resp=%s", exists, resp)
	}
}

func TestIdempotencyStore_CheckAndSetLocksNewKey(t *testing.T) {
	store, client, mr := newTestStore(t)
	ctx := context.Background()

	exists, resp, err := store.CheckAndSet(ctx, "pending", nil, time.Minute)
	if err != nil || exists || resp != nil {
		t.Fatalf("unexpected result: exists=%v resp=%v err=%v", exists, resp, err)
	}

	val, err := client.Get(ctx, store.prefix+"pending").Result()
	if err != nil || val != ProcessingMarker {
		t.Fatalf("expected placeholder lock, got val=%s err=%v", val, err)
	}

	if ttl := mr.TTL(store.prefix + "pending"); ttl != time.Minute {
		t.Fatalf("expected TTL of one minute, got %v", ttl)
	}
}

func TestIdempotencyStore_OnlyOneClaimWins(t *testing.T) {
	store, _, _ := newTestStore(t)
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		winners atomic.Int32
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			exists, _, err := store.CheckAndSet(ctx, "race", nil, time.Minute)
			if err == nil && !exists {
				winners.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := winners.Load(); got != 1 {
		t.Fatalf("expected exactly one winner, got %d", got)
	}
}

func TestIdempotencyStore_UpdateAndRelease(t *testing.T) {
	store, client, mr := newTestStore(t)
	ctx := context.Background()

	if err := store.Update(ctx, "complete", []byte("done"), time.Minute); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	val, err := client.Get(ctx, store.prefix+"complete").Result()
	if err != nil || val != "done" {
		t.Fatalf("expected stored response, got val=%s err=%v", val, err)
	}

	if err := store.Release(ctx, "complete"); err != nil {
		t.Fatalf("release failed: %v", err)
	}
	if mr.Exists(store.prefix + "complete") {
		t.Fatalf("expected key to be deleted")
	}
}

func TestIdempotencyStore_KeyExpires(t *testing.T) {
	store, _, mr := newTestStore(t)
	ctx := context.Background()

	if _, _, err := store.CheckAndSet(ctx, "short", nil, time.Second); err != nil {
		t.Fatalf("CheckAndSet failed: %v", err)
	}
	mr.FastForward(2 * time.Second)

	exists, _, err := store.CheckAndSet(ctx, "short", nil, time.Second)
	if err != nil {
		t.Fatalf("CheckAndSet failed: %v", err)
	}
	if exists {
		t.Fatalf("expected expired key to be claimable again")
	}
}
