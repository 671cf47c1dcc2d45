package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryBackend is an in-process Backend for tests and local development.
// It honors the same ordering and expiry contract as the durable backends.
type MemoryBackend struct {
	mu      sync.RWMutex
	records map[string]map[string]Record // partition key → sort key → record
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{records: make(map[string]map[string]Record)}
}

// QueryDescending implements Backend.
func (m *MemoryBackend) QueryDescending(ctx context.Context, partitionKey, sortKeyPrefix string, limit int) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	now := time.Now()
	var matched []Record
	for sk, rec := range m.records[partitionKey] {
		if !strings.HasPrefix(sk, sortKeyPrefix) {
			continue
		}
		if !rec.ExpiresAt.IsZero() && now.After(rec.ExpiresAt) {
			continue
		}
		matched = append(matched, rec)
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].SortKey > matched[j].SortKey
	})
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

// Put implements Backend.
func (m *MemoryBackend) Put(ctx context.Context, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	partition, ok := m.records[rec.PartitionKey]
	if !ok {
		partition = make(map[string]Record)
		m.records[rec.PartitionKey] = partition
	}
	partition[rec.SortKey] = rec
	return nil
}

// Len returns the total number of stored records, expired included.
func (m *MemoryBackend) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, p := range m.records {
		n += len(p)
	}
	return n
}
