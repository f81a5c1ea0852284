package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dokupintar/dokubot-be/database"
	"github.com/dokupintar/dokubot-be/types"
)

func newTestIndexer(store database.Storage, provider EmbeddingProvider, cfg types.IndexConfig) *IndexService {
	chunker := NewChunker(types.ChunkerConfig{ChunkSize: 120, Overlap: 20, MinLength: 10})
	return NewIndexService(store, provider, chunker, cfg)
}

func indexableText(lines int) string {
	var b strings.Builder
	for i := 0; i < lines; i++ {
		b.WriteString("baris dokumen berisi informasi pajak kendaraan bermotor\n")
	}
	return b.String()
}

func TestBuildIndexStoresChunksAndVectors(t *testing.T) {
	store := database.NewMemoryStore()
	provider := newStubProvider()
	indexer := newTestIndexer(store, provider, types.IndexConfig{})

	meta := &types.DocumentMeta{Title: "Panduan PKB", Source: "samsat"}
	stats, err := indexer.BuildIndex(context.Background(), "t1", "doc1", indexableText(20), meta, nil)
	require.NoError(t, err)
	assert.Greater(t, stats.Chunks, 0)
	assert.Equal(t, stats.Chunks, stats.Indexed)
	assert.Zero(t, stats.Dropped)

	chunks, err := indexer.ListChunks(context.Background(), "t1", "doc1")
	require.NoError(t, err)
	require.Len(t, chunks, stats.Indexed)
	for i := 1; i < len(chunks); i++ {
		assert.GreaterOrEqual(t, chunks[i].Start, chunks[i-1].Start, "chunks are ordered by offset")
	}
	for _, ch := range chunks {
		vec, err := store.Get(context.Background(), "t1", database.PartitionVectors, ch.ID)
		require.NoError(t, err, "chunk %s has a vector", ch.ID)
		decoded, err := database.DecodeVector(vec)
		require.NoError(t, err)
		assert.Len(t, decoded, provider.Dimension())
	}

	got, err := indexer.GetMeta(context.Background(), "t1", "doc1")
	require.NoError(t, err)
	assert.Equal(t, "doc1", got.DocumentID)
	assert.Equal(t, "Panduan PKB", got.Title)
}

func TestBuildIndexReplacesPreviousState(t *testing.T) {
	store := database.NewMemoryStore()
	provider := newStubProvider()
	indexer := newTestIndexer(store, provider, types.IndexConfig{})

	_, err := indexer.BuildIndex(context.Background(), "t1", "doc1", indexableText(30), nil, nil)
	require.NoError(t, err)
	longChunks, err := indexer.ListChunks(context.Background(), "t1", "doc1")
	require.NoError(t, err)

	// Re-ingest a much shorter version: no chunk of the longer text survives.
	_, err = indexer.BuildIndex(context.Background(), "t1", "doc1", indexableText(2), nil, nil)
	require.NoError(t, err)
	shortChunks, err := indexer.ListChunks(context.Background(), "t1", "doc1")
	require.NoError(t, err)

	assert.Less(t, len(shortChunks), len(longChunks))
	maxEnd := 0
	for _, ch := range shortChunks {
		if ch.End > maxEnd {
			maxEnd = ch.End
		}
	}
	assert.LessOrEqual(t, maxEnd, len(indexableText(2)), "no stale chunk beyond the new text")
}

func TestBuildIndexHonorsMaxChunksCap(t *testing.T) {
	store := database.NewMemoryStore()
	provider := newStubProvider()
	indexer := newTestIndexer(store, provider, types.IndexConfig{MaxChunks: 3, BatchSize: 2})

	stats, err := indexer.BuildIndex(context.Background(), "t1", "doc1", indexableText(40), nil, nil)
	require.NoError(t, err)
	assert.LessOrEqual(t, stats.Indexed, 3)
	assert.Greater(t, stats.Dropped, 0)
}

func TestBuildIndexToleratesPartialBatchFailure(t *testing.T) {
	store := database.NewMemoryStore()
	provider := newStubProvider()
	provider.failFrom = 1 // first batch succeeds, the rest fail
	indexer := newTestIndexer(store, provider, types.IndexConfig{BatchSize: 2})

	stats, err := indexer.BuildIndex(context.Background(), "t1", "doc1", indexableText(20), nil, nil)
	require.NoError(t, err, "a failed batch drops its chunks but keeps the document")
	assert.Greater(t, stats.Indexed, 0)
	assert.Greater(t, stats.Dropped, 0)
}

func TestBuildIndexFailsWhenAllBatchesFail(t *testing.T) {
	store := database.NewMemoryStore()
	provider := newStubProvider()
	provider.failAll = true
	indexer := newTestIndexer(store, provider, types.IndexConfig{BatchSize: 2})

	_, err := indexer.BuildIndex(context.Background(), "t1", "doc1", indexableText(20), nil, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrProviderUnavailable))
}

func TestBuildIndexEmptyDocumentKeepsSentinel(t *testing.T) {
	store := database.NewMemoryStore()
	provider := newStubProvider()
	indexer := newTestIndexer(store, provider, types.IndexConfig{})

	stats, err := indexer.BuildIndex(context.Background(), "t1", "doc1", "   \n  ", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Chunks)
	assert.Zero(t, stats.Indexed, "the sentinel is never embedded")

	chunks, err := indexer.ListChunks(context.Background(), "t1", "doc1")
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "doc1-empty", chunks[0].ID)
	assert.Empty(t, chunks[0].Text)
}

func TestDeleteIndexClearsAllPartitions(t *testing.T) {
	store := database.NewMemoryStore()
	provider := newStubProvider()
	indexer := newTestIndexer(store, provider, types.IndexConfig{})

	_, err := indexer.BuildIndex(context.Background(), "t1", "doc1", indexableText(10),
		&types.DocumentMeta{Title: "Panduan"}, nil)
	require.NoError(t, err)

	require.NoError(t, indexer.DeleteIndex(context.Background(), "t1", "doc1"))

	chunks, err := indexer.ListChunks(context.Background(), "t1", "doc1")
	require.NoError(t, err)
	assert.Empty(t, chunks)
	_, err = indexer.GetMeta(context.Background(), "t1", "doc1")
	assert.True(t, errors.Is(err, types.ErrNotFound))

	// Deleting again is a no-op.
	assert.NoError(t, indexer.DeleteIndex(context.Background(), "t1", "doc1"))
}

func TestListDocuments(t *testing.T) {
	store := database.NewMemoryStore()
	provider := newStubProvider()
	indexer := newTestIndexer(store, provider, types.IndexConfig{})

	_, err := indexer.BuildIndex(context.Background(), "t1", "doc1", indexableText(5),
		&types.DocumentMeta{Title: "Panduan PKB"}, nil)
	require.NoError(t, err)
	_, err = indexer.BuildIndex(context.Background(), "t1", "doc2", indexableText(5),
		&types.DocumentMeta{Title: "Tarif Denda"}, nil)
	require.NoError(t, err)

	docs, err := indexer.ListDocuments(context.Background(), "t1")
	require.NoError(t, err)
	require.Len(t, docs, 2)

	titles := []string{docs[0].Title, docs[1].Title}
	assert.ElementsMatch(t, []string{"Panduan PKB", "Tarif Denda"}, titles)
}

func TestExtractHeuristics(t *testing.T) {
	store := database.NewMemoryStore()
	provider := newStubProvider()
	indexer := newTestIndexer(store, provider, types.IndexConfig{})

	text := "PANDUAN PAJAK 2023\npembayaran pkb dilakukan di samsat terdekat setiap hari kerja\n"
	_, err := indexer.BuildIndex(context.Background(), "t1", "doc1", text, nil, nil)
	require.NoError(t, err)

	meta, err := indexer.ExtractHeuristics(context.Background(), "t1", "doc1")
	require.NoError(t, err)
	assert.Equal(t, "doc1", meta.DocumentID)
	require.NotNil(t, meta.Custom)
	assert.Equal(t, "2023", meta.Custom["year"])
}
