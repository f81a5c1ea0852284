package database

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/dokupintar/dokubot-be/types"
)

// Partition names one of the three record kinds kept by the index store.
type Partition string

const (
	PartitionChunks  Partition = "chunks"
	PartitionVectors Partition = "vectors"
	PartitionMeta    Partition = "meta"
)

// ScanFunc receives one record per call. Return false to stop the scan.
type ScanFunc func(key string, value []byte) bool

// Storage is tenant-scoped schema-less key/value persistence for the
// retrieval index. Records from different tenants are never visible to
// each other. Values are opaque bytes: chunk and metadata records are
// JSON, vectors are little-endian float32.
type Storage interface {
	Put(ctx context.Context, tenant string, p Partition, key string, value []byte) error
	// Get returns types.ErrNotFound for absent keys.
	Get(ctx context.Context, tenant string, p Partition, key string) ([]byte, error)
	// DeleteByPrefix removes every record whose key starts with prefix,
	// supporting whole-document deletion without enumerating chunk ids.
	DeleteByPrefix(ctx context.Context, tenant string, p Partition, prefix string) error
	// Scan visits all records of the partition in key order.
	Scan(ctx context.Context, tenant string, p Partition, fn ScanFunc) error
	Close(ctx context.Context) error
}

// ChunkKeyPrefix is the key prefix shared by every chunk and vector record
// of a document. The trailing separator keeps "doc1" from matching "doc12".
func ChunkKeyPrefix(documentID string) string {
	return documentID + "-"
}

// EncodeVector serializes an embedding as little-endian float32 bytes.
func EncodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// DecodeVector is the inverse of EncodeVector. A payload that is not a
// whole number of float32s means the record was written by a different
// provider or corrupted, which callers must treat as fatal.
func DecodeVector(buf []byte) ([]float32, error) {
	if len(buf)%4 != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not a float32 vector", types.ErrDimensionMismatch, len(buf))
	}
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return vec, nil
}

// prefixSuccessor returns the smallest string greater than every string
// with the given prefix, so prefix matches become native range queries.
// ok is false when no upper bound exists (prefix is all 0xff).
func prefixSuccessor(prefix string) (string, bool) {
	b := []byte(prefix)
	for i := len(b) - 1; i >= 0; i-- {
		if b[i] < 0xff {
			b[i]++
			return string(b[:i+1]), true
		}
	}
	return "", false
}
