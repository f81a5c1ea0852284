package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dokupintar/dokubot-be/database"
	"github.com/dokupintar/dokubot-be/types"
)

// stubProvider embeds texts as keyword count vectors, so similarity is
// deterministic and meaningful in tests without a model.
type stubProvider struct {
	keywords []string
	failAll  bool
	failFrom int // fail every call after this many successes, 0 disables
	calls    int
}

func newStubProvider() *stubProvider {
	return &stubProvider{
		keywords: []string{"denda", "pkb", "samsat", "kasir", "jam", "buka", "alamat", "pajak"},
	}
}

func (p *stubProvider) Embed(_ context.Context, texts []string) ([][]float32, error) {
	p.calls++
	if p.failAll || (p.failFrom > 0 && p.calls > p.failFrom) {
		return nil, types.ErrProviderUnavailable
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, len(p.keywords))
		lower := strings.ToLower(text)
		for j, kw := range p.keywords {
			vec[j] = float32(strings.Count(lower, kw))
		}
		out[i] = vec
	}
	return out, nil
}

func (p *stubProvider) Dimension() int { return len(p.keywords) }

func putIndexed(t *testing.T, store database.Storage, tenant string, ch types.Chunk, vec []float32) {
	t.Helper()
	payload, err := json.Marshal(ch)
	require.NoError(t, err)
	require.NoError(t, store.Put(context.Background(), tenant, database.PartitionChunks, ch.ID, payload))
	require.NoError(t, store.Put(context.Background(), tenant, database.PartitionVectors, ch.ID, database.EncodeVector(vec)))
}

func embedOne(t *testing.T, p *stubProvider, text string) []float32 {
	t.Helper()
	vecs, err := p.Embed(context.Background(), []string{text})
	require.NoError(t, err)
	return vecs[0]
}

func TestCosineSimilarity(t *testing.T) {
	a := []float32{1, 2, 3}
	b := []float32{3, 2, 1}

	assert.InDelta(t, 1.0, cosineSimilarity(a, a), 1e-9)
	assert.InDelta(t, cosineSimilarity(a, b), cosineSimilarity(b, a), 1e-12)
	assert.Equal(t, 0.0, cosineSimilarity([]float32{0, 0, 0}, a), "zero norm never yields NaN")
	assert.Equal(t, 0.0, cosineSimilarity(a, []float32{0, 0, 0}))
}

func TestRetrieveRanksFeeChunkFirst(t *testing.T) {
	store := database.NewMemoryStore()
	provider := newStubProvider()
	r := NewRetriever(store, provider, types.DefaultRetrieverConfig)

	fee := types.Chunk{ID: "doc1-0-40", DocumentID: "doc1", Start: 0, End: 40, Text: "Denda: Rp 15.000 untuk PKB terlambat", Important: true}
	hours := types.Chunk{ID: "doc1-400-440", DocumentID: "doc1", Start: 400, End: 440, Text: "Jam buka kantor pelayanan pukul 08.00"}
	putIndexed(t, store, "t1", fee, embedOne(t, provider, fee.Text))
	putIndexed(t, store, "t1", hours, embedOne(t, provider, hours.Text))

	results, err := r.Retrieve(context.Background(), "t1", "berapa denda pkb", 5, "")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, fee.ID, results[0].Chunk.ID)
	assert.Greater(t, results[0].Score, results[1].Score)
	for _, res := range results {
		assert.LessOrEqual(t, res.Score, 1.0)
	}
}

func TestRetrieveIsTenantScoped(t *testing.T) {
	store := database.NewMemoryStore()
	provider := newStubProvider()
	r := NewRetriever(store, provider, types.DefaultRetrieverConfig)

	mine := types.Chunk{ID: "doc1-0-20", DocumentID: "doc1", Start: 0, End: 20, Text: "Denda PKB Rp 15.000"}
	other := types.Chunk{ID: "doc9-0-20", DocumentID: "doc9", Start: 0, End: 20, Text: "Denda PKB Rp 99.000"}
	putIndexed(t, store, "t1", mine, embedOne(t, provider, mine.Text))
	putIndexed(t, store, "t2", other, embedOne(t, provider, other.Text))

	results, err := r.Retrieve(context.Background(), "t1", "denda pkb", 10, "")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "doc1", results[0].Chunk.DocumentID)
}

func TestRetrieveFiltersByDocumentID(t *testing.T) {
	store := database.NewMemoryStore()
	provider := newStubProvider()
	r := NewRetriever(store, provider, types.DefaultRetrieverConfig)

	a := types.Chunk{ID: "doc1-0-20", DocumentID: "doc1", Start: 0, End: 20, Text: "Denda PKB Rp 15.000"}
	b := types.Chunk{ID: "doc2-0-20", DocumentID: "doc2", Start: 0, End: 20, Text: "Denda PKB Rp 25.000"}
	putIndexed(t, store, "t1", a, embedOne(t, provider, a.Text))
	putIndexed(t, store, "t1", b, embedOne(t, provider, b.Text))

	results, err := r.Retrieve(context.Background(), "t1", "denda pkb", 10, "doc2")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "doc2", results[0].Chunk.DocumentID)
}

func TestRetrieveDeduplicatesPositionBuckets(t *testing.T) {
	store := database.NewMemoryStore()
	provider := newStubProvider()
	r := NewRetriever(store, provider, types.DefaultRetrieverConfig)

	// Overlapping neighbours land in the same 200-char bucket.
	first := types.Chunk{ID: "doc1-10-180", DocumentID: "doc1", Start: 10, End: 180, Text: "Denda PKB Rp 15.000"}
	second := types.Chunk{ID: "doc1-150-199", DocumentID: "doc1", Start: 150, End: 199, Text: "Denda PKB Rp 15.000 dibayar di samsat"}
	far := types.Chunk{ID: "doc1-600-650", DocumentID: "doc1", Start: 600, End: 650, Text: "Denda PKB dibayar di kasir"}
	putIndexed(t, store, "t1", first, embedOne(t, provider, first.Text))
	putIndexed(t, store, "t1", second, embedOne(t, provider, second.Text))
	putIndexed(t, store, "t1", far, embedOne(t, provider, far.Text))

	results, err := r.Retrieve(context.Background(), "t1", "denda pkb", 10, "")
	require.NoError(t, err)
	require.Len(t, results, 2, "bucket neighbours collapse to the best one")

	buckets := map[int]bool{}
	for _, res := range results {
		bucket := res.Chunk.Start / 200
		assert.False(t, buckets[bucket], "bucket %d returned twice", bucket)
		buckets[bucket] = true
	}
}

func TestRetrieveSkipsOrphanRecords(t *testing.T) {
	store := database.NewMemoryStore()
	provider := newStubProvider()
	r := NewRetriever(store, provider, types.DefaultRetrieverConfig)

	indexed := types.Chunk{ID: "doc1-0-20", DocumentID: "doc1", Start: 0, End: 20, Text: "Denda PKB Rp 15.000"}
	putIndexed(t, store, "t1", indexed, embedOne(t, provider, indexed.Text))

	// Vector without a chunk record: leftover of a partial write.
	require.NoError(t, store.Put(context.Background(), "t1", database.PartitionVectors, "doc1-999-1000",
		database.EncodeVector(embedOne(t, provider, "denda"))))
	// Chunk without a vector: never embedded.
	unembedded := types.Chunk{ID: "doc1-500-520", DocumentID: "doc1", Start: 500, End: 520, Text: "tanpa vektor"}
	payload, err := json.Marshal(unembedded)
	require.NoError(t, err)
	require.NoError(t, store.Put(context.Background(), "t1", database.PartitionChunks, unembedded.ID, payload))

	results, err := r.Retrieve(context.Background(), "t1", "denda pkb", 10, "")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, indexed.ID, results[0].Chunk.ID)
}

func TestRetrieveRejectsDimensionMismatch(t *testing.T) {
	store := database.NewMemoryStore()
	provider := newStubProvider()
	r := NewRetriever(store, provider, types.DefaultRetrieverConfig)

	ch := types.Chunk{ID: "doc1-0-20", DocumentID: "doc1", Start: 0, End: 20, Text: "Denda PKB Rp 15.000"}
	putIndexed(t, store, "t1", ch, []float32{1, 2})

	_, err := r.Retrieve(context.Background(), "t1", "denda pkb", 10, "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrDimensionMismatch))
}

func TestRetrieveFailsWhenProviderDown(t *testing.T) {
	store := database.NewMemoryStore()
	provider := newStubProvider()
	provider.failAll = true
	r := NewRetriever(store, provider, types.DefaultRetrieverConfig)

	_, err := r.Retrieve(context.Background(), "t1", "denda pkb", 10, "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrProviderUnavailable))
}

func TestEnhanceScoreClampsAtOne(t *testing.T) {
	r := NewRetriever(database.NewMemoryStore(), newStubProvider(), types.DefaultRetrieverConfig)
	q := newQueryContext("berapa denda pkb di samsat sewon")
	ch := types.Chunk{
		DocumentID: "doc1",
		Text:       "Denda PKB Rp 15.000 dan Rp 150.000 di kasir samsat sewon bantul",
		Important:  true,
	}
	score := r.enhanceScore(q, ch, 0.95)
	assert.Equal(t, 1.0, score)
}
