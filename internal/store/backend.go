// Package store implements the route cache store: bucket resolution, prefix
// range queries with reverse-chronological pagination, multi-snapshot
// merging, TTL computation, admission control and cache-mode resolution,
// over a pluggable durable backend.
package store

import (
	"context"
	"time"
)

// Record is one raw stored snapshot: the composite key, the encoded route
// payload, and the absolute expiry the backend reaps on.
type Record struct {
	PartitionKey string
	SortKey      string
	Payload      []byte
	ExpiresAt    time.Time
}

// Backend is the durable key-value table the store runs against. Both
// operations must honor context cancellation; the store bounds every call
// with a short timeout.
type Backend interface {
	// QueryDescending returns up to limit records under partitionKey whose
	// sort key begins with sortKeyPrefix, ordered by sort key descending
	// (newest revision first). Expired records are never returned.
	QueryDescending(ctx context.Context, partitionKey, sortKeyPrefix string, limit int) ([]Record, error)

	// Put upserts one record. Writing the same composite key twice replaces
	// the payload and expiry.
	Put(ctx context.Context, rec Record) error
}
