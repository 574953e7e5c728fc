// Package state persists the sync cursor and cumulative counters so they
// survive agent restarts. Backed by a single redis hash; all values are
// written through immediately (no caching layer — the engine is the cache).
package state

import (
	"context"
	"strconv"
	"time"

	"receiptsync/internal/model"

	"github.com/redis/go-redis/v9"
)

// Hash field names. These mirror the persisted-state contract consumed by the
// desktop shell's diagnostics screen — rename with care.
const (
	keyState = "receiptsync:state"

	fieldLastReceiptNo   = "lastSyncedReceiptNo"
	fieldLastReceiptDate = "lastSyncedReceiptDate"
	fieldLastOnServer    = "lastReceiptOnServer"
	fieldTotalSynced     = "totalSynced"
	fieldTotalFailed     = "totalFailed"
	fieldLastSyncTime    = "lastSyncTime"
)

// Store is the durable key-value state consumed by the engine.
type Store interface {
	LoadCursor(ctx context.Context) (model.Cursor, error)
	SaveCursor(ctx context.Context, c model.Cursor) error
	LoadStats(ctx context.Context) (model.SyncStats, error)
	SaveStats(ctx context.Context, s model.SyncStats) error
	// SaveLastServerReceipt records the most recent receipt number the remote
	// ledger reported, for diagnostics.
	SaveLastServerReceipt(ctx context.Context, receiptNo string) error
}

// RedisStore implements Store on a redis hash.
type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore { return &RedisStore{rdb: rdb} }

var _ Store = (*RedisStore)(nil)

func (s *RedisStore) LoadCursor(ctx context.Context) (model.Cursor, error) {
	vals, err := s.rdb.HMGet(ctx, keyState, fieldLastReceiptNo, fieldLastReceiptDate).Result()
	if err != nil {
		return model.Cursor{}, err
	}
	var c model.Cursor
	if v, ok := vals[0].(string); ok {
		c.LastSyncedReceiptNo = v
	}
	if v, ok := vals[1].(string); ok && v != "" {
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			c.LastSyncedReceiptDate = t
		}
	}
	return c, nil
}

func (s *RedisStore) SaveCursor(ctx context.Context, c model.Cursor) error {
	return s.rdb.HSet(ctx, keyState,
		fieldLastReceiptNo, c.LastSyncedReceiptNo,
		fieldLastReceiptDate, c.LastSyncedReceiptDate.UTC().Format(time.RFC3339Nano),
	).Err()
}

func (s *RedisStore) LoadStats(ctx context.Context) (model.SyncStats, error) {
	vals, err := s.rdb.HMGet(ctx, keyState, fieldTotalSynced, fieldTotalFailed, fieldLastSyncTime).Result()
	if err != nil {
		return model.SyncStats{}, err
	}
	var st model.SyncStats
	if v, ok := vals[0].(string); ok {
		st.TotalSynced, _ = strconv.ParseInt(v, 10, 64)
	}
	if v, ok := vals[1].(string); ok {
		st.TotalFailed, _ = strconv.ParseInt(v, 10, 64)
	}
	if v, ok := vals[2].(string); ok && v != "" {
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			st.LastSyncTime = t
		}
	}
	return st, nil
}

func (s *RedisStore) SaveStats(ctx context.Context, st model.SyncStats) error {
	return s.rdb.HSet(ctx, keyState,
		fieldTotalSynced, strconv.FormatInt(st.TotalSynced, 10),
		fieldTotalFailed, strconv.FormatInt(st.TotalFailed, 10),
		fieldLastSyncTime, st.LastSyncTime.UTC().Format(time.RFC3339Nano),
	).Err()
}

func (s *RedisStore) SaveLastServerReceipt(ctx context.Context, receiptNo string) error {
	return s.rdb.HSet(ctx, keyState, fieldLastOnServer, receiptNo).Err()
}
