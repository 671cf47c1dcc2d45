package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisBackend implements Backend on Redis. Each (partition key, prefix)
// pair owns a sorted set scored by revision, pointing at per-snapshot
// payload keys that expire via Redis TTL. The index set is best-effort:
// members whose payload has expired are skipped and pruned on read.
type RedisBackend struct {
	client *redis.Client
}

// NewRedisBackend connects to Redis with short, cache-appropriate timeouts
// and verifies the connection.
func NewRedisBackend(addr, password string, db int) (*RedisBackend, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  500 * time.Millisecond,
		WriteTimeout: 500 * time.Millisecond,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisBackend{client: client}, nil
}

func indexKey(partitionKey, sortKeyPrefix string) string {
	return "routeidx:" + partitionKey + "|" + sortKeyPrefix
}

func payloadKey(partitionKey, sortKey string) string {
	return "route:" + partitionKey + "|" + sortKey
}

// revisionScore extracts the numeric revision from the sort key's trailing
// segment for use as the sorted-set score.
func revisionScore(sortKey string) float64 {
	idx := strings.LastIndex(sortKey, "/")
	if idx < 0 || idx == len(sortKey)-1 {
		return 0
	}
	rev, err := strconv.ParseUint(sortKey[idx+1:], 10, 64)
	if err != nil {
		return 0
	}
	return float64(rev)
}

// sortKeyPrefixOf recovers the prefix (everything through the final slash)
// from a full sort key.
func sortKeyPrefixOf(sortKey string) string {
	idx := strings.LastIndex(sortKey, "/")
	if idx < 0 {
		return sortKey
	}
	return sortKey[:idx+1]
}

// QueryDescending implements Backend.
func (r *RedisBackend) QueryDescending(ctx context.Context, partitionKey, sortKeyPrefix string, limit int) ([]Record, error) {
	idx := indexKey(partitionKey, sortKeyPrefix)

	members, err := r.client.ZRevRange(ctx, idx, 0, int64(limit)-1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis zrevrange failed: %w", err)
	}
	if len(members) == 0 {
		return nil, nil
	}

	keys := make([]string, len(members))
	for i, sk := range members {
		keys[i] = payloadKey(partitionKey, sk)
	}
	payloads, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis mget failed: %w", err)
	}

	records := make([]Record, 0, len(members))
	var dangling []interface{}
	for i, raw := range payloads {
		if raw == nil {
			// Payload expired under the index entry.
			dangling = append(dangling, members[i])
			continue
		}
		s, ok := raw.(string)
		if !ok {
			continue
		}
		records = append(records, Record{
			PartitionKey: partitionKey,
			SortKey:      members[i],
			Payload:      []byte(s),
		})
	}

	if len(dangling) > 0 {
		// Best effort; the index self-heals on the next read if this fails.
		_ = r.client.ZRem(ctx, idx, dangling...).Err()
	}

	return records, nil
}

// Put implements Backend.
func (r *RedisBackend) Put(ctx context.Context, rec Record) error {
	ttl := time.Until(rec.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("redis put: record already expired at %v", rec.ExpiresAt)
	}

	idx := indexKey(rec.PartitionKey, sortKeyPrefixOf(rec.SortKey))

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, payloadKey(rec.PartitionKey, rec.SortKey), rec.Payload, ttl)
	pipe.ZAdd(ctx, idx, redis.Z{Score: revisionScore(rec.SortKey), Member: rec.SortKey})
	// Keep the index alive at least as long as its newest payload.
	pipe.Expire(ctx, idx, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis put failed: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (r *RedisBackend) Close() error {
	return r.client.Close()
}
