package store

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/orderlens/order-analyzer/internal/clock/clocktest"
)

// Needs a live Redis 7 server: REDIS_TEST_ADDR=localhost:6379 go test ./internal/store
func TestRedisChecklistStore(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	now := time.Now().Truncate(time.Millisecond)
	clk := clocktest.New(now)
	rs, err := NewRedisChecklistStore(addr, clk)
	if err != nil {
		t.Fatalf("NewRedisChecklistStore: %v", err)
	}
	t.Cleanup(func() { _ = rs.Close() })
	ctx := context.Background()

	checklist := &Checklist{
		ID:        uuid.NewString(),
		Items:     []ChecklistItem{{Name: "Rice", Quantity: 1, Price: 9.99}},
		CreatedAt: now,
		// Sub-second part must survive in Redis.
		ExpiresAt: now.Truncate(time.Second).Add(time.Minute + 750*time.Millisecond),
	}
	if err := rs.CreateChecklist(ctx, checklist); err != nil {
		t.Fatalf("CreateChecklist: %v", err)
	}
	got, err := rs.GetChecklist(ctx, checklist.ID)
	if err != nil {
		t.Fatalf("GetChecklist: %v", err)
	}
	if len(got.Items) != 1 || got.Items[0] != checklist.Items[0] {
		t.Fatalf("Items=%+v", got.Items)
	}

	// PEXPIRETIME needs Redis 7.
	expireAt, err := rs.rdb.PExpireTime(ctx, checklistKeyPrefix+checklist.ID).Result()
	if err != nil {
		t.Fatalf("PExpireTime: %v", err)
	}
	if want := time.Duration(checklist.ExpiresAt.UnixMilli()) * time.Millisecond; expireAt != want {
		t.Fatalf("redis expiry=%v, want %v", expireAt, want)
	}

	// Redis still holds the key; the stored expiry decides.
	clk.Set(checklist.ExpiresAt)
	if _, err := rs.GetChecklist(ctx, checklist.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("after expiry err=%v, want ErrNotFound", err)
	}
	if _, err := rs.GetChecklist(ctx, uuid.NewString()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing err=%v, want ErrNotFound", err)
	}
}
