package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/orderlens/order-analyzer/internal/clock"
	goredis "github.com/redis/go-redis/v9"
)

const checklistKeyPrefix = "checklist:"

// RedisChecklistStore writes checklists with an absolute millisecond expiry so
// Redis drops them on its own once expiresAt passes.
type RedisChecklistStore struct {
	rdb   *goredis.Client
	clock clock.Clock
}

func NewRedisChecklistStore(addr string, clk clock.Clock) (*RedisChecklistStore, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	if clk == nil {
		clk = clock.System()
	}
	return &RedisChecklistStore{rdb: rdb, clock: clk}, nil
}

func (r *RedisChecklistStore) Close() error {
	return r.rdb.Close()
}

func (r *RedisChecklistStore) CreateChecklist(ctx context.Context, checklist *Checklist) error {
	if checklist.Items == nil {
		checklist.Items = []ChecklistItem{}
	}
	if checklist.Expired(r.clock.Now()) {
		return nil
	}
	data, err := json.Marshal(checklist)
	if err != nil {
		return fmt.Errorf("marshal checklist: %w", err)
	}
	// PEXPIREAT keeps millisecond precision; SET EXAT would round down to the second.
	key := checklistKeyPrefix + checklist.ID
	_, err = r.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Set(ctx, key, data, 0)
		pipe.PExpireAt(ctx, key, checklist.ExpiresAt)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis set checklist: %w", err)
	}
	return nil
}

func (r *RedisChecklistStore) GetChecklist(ctx context.Context, id string) (*Checklist, error) {
	data, err := r.rdb.Get(ctx, checklistKeyPrefix+id).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get checklist: %w", err)
	}

	var checklist Checklist
	if err := json.Unmarshal(data, &checklist); err != nil {
		return nil, fmt.Errorf("unmarshal checklist: %w", err)
	}
	// Redis evicts expired keys lazily; expiresAt is authoritative.
	if checklist.Expired(r.clock.Now()) {
		return nil, ErrNotFound
	}
	return &checklist, nil
}
