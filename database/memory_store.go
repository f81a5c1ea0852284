package database

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/dokupintar/dokubot-be/types"
)

// MemoryStore is an in-memory Storage used by tests and single-node dev
// runs. Keys are kept per tenant+partition and scanned in sorted order to
// match the durable implementation.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string]map[string][]byte),
	}
}

func bucketKey(tenant string, p Partition) string {
	return tenant + "\x00" + string(p)
}

func (s *MemoryStore) Put(ctx context.Context, tenant string, p Partition, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	bk := bucketKey(tenant, p)
	bucket, ok := s.data[bk]
	if !ok {
		bucket = make(map[string][]byte)
		s.data[bk] = bucket
	}
	cp := make([]byte, len(value))
	copy(cp, value)
	bucket[key] = cp
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, tenant string, p Partition, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bucket, ok := s.data[bucketKey(tenant, p)]
	if !ok {
		return nil, types.ErrNotFound
	}
	value, ok := bucket[key]
	if !ok {
		return nil, types.ErrNotFound
	}
	cp := make([]byte, len(value))
	copy(cp, value)
	return cp, nil
}

func (s *MemoryStore) DeleteByPrefix(ctx context.Context, tenant string, p Partition, prefix string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	bucket, ok := s.data[bucketKey(tenant, p)]
	if !ok {
		return nil
	}
	for key := range bucket {
		if strings.HasPrefix(key, prefix) {
			delete(bucket, key)
		}
	}
	return nil
}

func (s *MemoryStore) Scan(ctx context.Context, tenant string, p Partition, fn ScanFunc) error {
	s.mu.RLock()
	bucket := s.data[bucketKey(tenant, p)]
	keys := make([]string, 0, len(bucket))
	for key := range bucket {
		keys = append(keys, key)
	}
	values := make([][]byte, len(keys))
	sort.Strings(keys)
	for i, key := range keys {
		values[i] = bucket[key]
	}
	s.mu.RUnlock()

	for i, key := range keys {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !fn(key, values[i]) {
			return nil
		}
	}
	return nil
}

func (s *MemoryStore) Close(ctx context.Context) error {
	return nil
}
