package service

import (
	"context"
	"encoding/base64"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestMemoryImportSessionStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryImportSessionStore(30 * time.Minute)

	session := &ImportSession{OwnerID: "u1", Templates: []MonthlyTemplate{{Year: 2024, Month: 1}}}
	id, err := store.Create(ctx, session)
	if err != nil {
		t.Fatalf("create session failed: %v", err)
	}
	raw, err := base64.RawURLEncoding.DecodeString(id)
	if err != nil || len(raw) != 16 {
		t.Fatalf("want 128-bit base64url token got %q (err=%v)", id, err)
	}

	got, err := store.Get(ctx, id)
	if err != nil || got == nil {
		t.Fatalf("get session failed: %v %v", got, err)
	}
	if got.OwnerID != "u1" || len(got.Templates) != 1 || got.ID != id {
		t.Fatalf("unexpected session: %+v", got)
	}
	if !got.ExpiresAt.Equal(got.CreatedAt.Add(30 * time.Minute)) {
		t.Fatalf("want expires_at created_at+30m got %v", got.ExpiresAt)
	}

	if removed, err := store.Delete(ctx, id); err != nil || !removed {
		t.Fatalf("want first delete to remove session got removed=%v err=%v", removed, err)
	}
	if got, _ := store.Get(ctx, id); got != nil {
		t.Fatalf("want nil after delete got %+v", got)
	}
	if removed, err := store.Delete(ctx, id); err != nil || removed {
		t.Fatalf("want second delete to report nothing removed got removed=%v err=%v", removed, err)
	}
}

func TestMemoryImportSessionStoreUniqueTokens(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryImportSessionStore(time.Minute)
	seen := make(map[string]struct{})
	for i := 0; i < 200; i++ {
		id, err := store.Create(ctx, &ImportSession{OwnerID: "u1"})
		if err != nil {
			t.Fatalf("create session failed: %v", err)
		}
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate token %q", id)
		}
		seen[id] = struct{}{}
	}
}

func TestMemoryImportSessionStoreExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryImportSessionStore(10 * time.Minute)
	now := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	expired, _ := store.Create(ctx, &ImportSession{OwnerID: "u1"})
	now = now.Add(5 * time.Minute)
	alive, _ := store.Create(ctx, &ImportSession{OwnerID: "u2"})

	now = now.Add(5 * time.Minute)
	if got, _ := store.Get(ctx, expired); got != nil {
		t.Fatalf("want expired session to be gone")
	}
	if got, _ := store.Get(ctx, alive); got == nil {
		t.Fatalf("want live session to remain")
	}

	removed, err := store.PurgeExpired(ctx, now.Add(10*time.Minute))
	if err != nil {
		t.Fatalf("purge failed: %v", err)
	}
	if removed != 1 {
		t.Fatalf("want 1 purged got %d", removed)
	}
}

func TestMemoryImportSessionStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryImportSessionStore(time.Minute)
	input := &ImportSession{OwnerID: "u1", Filename: "a.xlsx", Templates: []MonthlyTemplate{{ShippingNo: "SHP001"}}}
	id, _ := store.Create(ctx, input)
	input.Templates[0].ShippingNo = "changed-by-caller"

	got, _ := store.Get(ctx, id)
	got.OwnerID = "mallory"
	got.Templates[0].ShippingNo = "changed-by-reader"
	again, _ := store.Get(ctx, id)
	if again.OwnerID != "u1" {
		t.Fatalf("want stored owner unchanged got %q", again.OwnerID)
	}
	if again.Templates[0].ShippingNo != "SHP001" {
		t.Fatalf("want stored templates unchanged got %q", again.Templates[0].ShippingNo)
	}
}

func TestMemoryImportSessionStoreDeleteExpired(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryImportSessionStore(time.Minute)
	now := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	id, _ := store.Create(ctx, &ImportSession{OwnerID: "u1"})
	now = now.Add(2 * time.Minute)
	if removed, err := store.Delete(ctx, id); err != nil || removed {
		t.Fatalf("want expired session not taken got removed=%v err=%v", removed, err)
	}
}

func TestRedisImportSessionStore(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("skip redis session store test: TEST_REDIS_ADDR is empty")
	}
	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer func() { _ = client.Close() }()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Fatalf("redis ping failed: %v", err)
	}

	store := NewRedisImportSessionStore(client, "td_test", time.Minute)
	id, err := store.Create(ctx, &ImportSession{
		OwnerID:   "u1",
		Templates: []MonthlyTemplate{{Year: 2024, Month: 2, Terminal: "A", ShippingNo: "S", DockCode: "D", TruckRoute: "R"}},
	})
	if err != nil {
		t.Fatalf("create session failed: %v", err)
	}
	ttl, err := client.TTL(ctx, "td_test:import:session:"+id).Result()
	if err != nil || ttl <= 0 || ttl > time.Minute {
		t.Fatalf("want ttl within 1m got %v (err=%v)", ttl, err)
	}

	got, err := store.Get(ctx, id)
	if err != nil || got == nil {
		t.Fatalf("get session failed: %v %v", got, err)
	}
	if got.OwnerID != "u1" || len(got.Templates) != 1 || got.Templates[0].Month != 2 {
		t.Fatalf("unexpected session: %+v", got)
	}

	if removed, err := store.Delete(ctx, id); err != nil || !removed {
		t.Fatalf("want first delete to remove session got removed=%v err=%v", removed, err)
	}
	if got, _ := store.Get(ctx, id); got != nil {
		t.Fatalf("want nil after delete")
	}
	if removed, _ := store.Delete(ctx, id); removed {
		t.Fatalf("want second delete to report nothing removed")
	}
}

func TestNewImportSessionStoreFallsBackToMemory(t *testing.T) {
	for _, mode := range []string{"", "auto", "redis", "memory"} {
		if _, ok := NewImportSessionStore(mode, time.Minute).(*MemoryImportSessionStore); !ok {
			t.Fatalf("mode %q without redis want memory store", mode)
		}
	}
}
