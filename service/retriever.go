package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"sort"
	"strings"

	"github.com/dokupintar/dokubot-be/database"
	"github.com/dokupintar/dokubot-be/types"
)

// Retriever ranks a tenant's indexed chunks against a query: one query
// embedding, a full scan of the tenant's chunk and vector partitions
// aligned by id, cosine similarity blended with heuristic boosts, then
// coarse-bucket deduplication.
type Retriever struct {
	store    database.Storage
	provider EmbeddingProvider
	cfg      types.RetrieverConfig
}

func NewRetriever(store database.Storage, provider EmbeddingProvider, cfg types.RetrieverConfig) *Retriever {
	if cfg.TopK <= 0 {
		cfg.TopK = types.DefaultRetrieverConfig.TopK
	}
	if cfg.DedupBucketChars <= 0 {
		cfg.DedupBucketChars = types.DefaultRetrieverConfig.DedupBucketChars
	}
	return &Retriever{
		store:    store,
		provider: provider,
		cfg:      cfg,
	}
}

// Retrieve returns the topK ranked chunks for the tenant. documentID
// narrows the scan to a single document when non-empty. If the embedding
// provider is down the whole retrieval fails; there is no embedding-free
// fallback at this layer.
func (r *Retriever) Retrieve(ctx context.Context, tenant, query string, topK int, documentID string) ([]types.Retrieved, error) {
	if topK <= 0 {
		topK = r.cfg.TopK
	}

	queryVecs, err := r.provider.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	if len(queryVecs) == 0 {
		return nil, fmt.Errorf("%w: empty embedding response", types.ErrProviderUnavailable)
	}
	queryVec := queryVecs[0]

	chunks := make(map[string]types.Chunk)
	err = r.store.Scan(ctx, tenant, database.PartitionChunks, func(key string, value []byte) bool {
		var ch types.Chunk
		if err := json.Unmarshal(value, &ch); err != nil {
			log.Printf("skipping unreadable chunk record %s: %v", key, err)
			return true
		}
		if documentID != "" && ch.DocumentID != documentID {
			return true
		}
		chunks[ch.ID] = ch
		return true
	})
	if err != nil {
		return nil, err
	}

	q := newQueryContext(query)
	var results []types.Retrieved
	var scanErr error
	err = r.store.Scan(ctx, tenant, database.PartitionVectors, func(key string, value []byte) bool {
		// Align by shared id: vectors without a surviving chunk record
		// (or vice versa) are leftovers of partial writes and skipped.
		ch, ok := chunks[key]
		if !ok {
			return true
		}
		vec, err := database.DecodeVector(value)
		if err != nil {
			scanErr = err
			return false
		}
		if len(vec) != len(queryVec) {
			scanErr = fmt.Errorf("%w: stored %d, query %d", types.ErrDimensionMismatch, len(vec), len(queryVec))
			return false
		}
		score := cosineSimilarity(queryVec, vec)
		results = append(results, types.Retrieved{
			Chunk: ch,
			Score: r.enhanceScore(q, ch, score),
		})
		return true
	})
	if err != nil {
		return nil, err
	}
	if scanErr != nil {
		return nil, scanErr
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	// Keep only the best chunk per coarse position bucket so overlapping
	// neighbours are not returned as independent evidence.
	picked := make([]types.Retrieved, 0, topK)
	seen := make(map[string]bool)
	for _, res := range results {
		bucket := fmt.Sprintf("%s-%d", res.Chunk.DocumentID, res.Chunk.Start/r.cfg.DedupBucketChars)
		if seen[bucket] {
			continue
		}
		seen[bucket] = true
		picked = append(picked, res)
		if len(picked) >= topK {
			break
		}
	}
	return picked, nil
}

// cosineSimilarity is 0 when either vector has zero norm, never NaN.
func cosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

type queryContext struct {
	lower  string
	tokens map[string]bool
}

func newQueryContext(query string) queryContext {
	lower := strings.ToLower(query)
	tokens := make(map[string]bool)
	for _, tok := range strings.Fields(lower) {
		tokens[strings.Trim(tok, ".,?!;:\"'()")] = true
	}
	return queryContext{lower: lower, tokens: tokens}
}

func (q queryContext) hasAny(vocab []string) []string {
	var hits []string
	for _, tok := range vocab {
		if q.tokens[tok] {
			hits = append(hits, tok)
		}
	}
	return hits
}

// boostRule is one heuristic score adjustment. Kept as a table so each
// rule is testable independently of the ranking pipeline.
type boostRule struct {
	name  string
	delta func(r *Retriever, q queryContext, ch types.Chunk, textLower string) float64
}

var boostRules = []boostRule{
	{"query-keywords", func(_ *Retriever, q queryContext, _ types.Chunk, textLower string) float64 {
		n := 0
		for tok := range q.tokens {
			if len(tok) > 2 && strings.Contains(textLower, tok) {
				n++
			}
		}
		return float64(n) * 0.1
	}},
	{"fee-vocabulary", func(r *Retriever, q queryContext, _ types.Chunk, textLower string) float64 {
		for _, tok := range q.hasAny(r.cfg.FeeVocabulary) {
			if strings.Contains(textLower, tok) {
				return 0.3
			}
		}
		return 0
	}},
	{"domain-keyword", func(r *Retriever, q queryContext, _ types.Chunk, textLower string) float64 {
		for _, tok := range q.hasAny(r.cfg.DomainKeywords) {
			if strings.Contains(textLower, tok) {
				return 0.3
			}
		}
		return 0
	}},
	{"locations", func(r *Retriever, q queryContext, _ types.Chunk, textLower string) float64 {
		n := 0
		for _, tok := range q.hasAny(r.cfg.LocationTokens) {
			if strings.Contains(textLower, tok) {
				n++
			}
		}
		return float64(n) * 0.2
	}},
	{"amount-question", func(r *Retriever, q queryContext, ch types.Chunk, _ string) float64 {
		if len(q.hasAny(r.cfg.AmountQuestions)) > 0 && moneyPattern.MatchString(ch.Text) {
			return 0.2
		}
		return 0
	}},
	{"table-likeness", func(_ *Retriever, _ queryContext, ch types.Chunk, _ string) float64 {
		if len(numberPattern.FindAllString(ch.Text, -1)) >= 2 {
			return 0.1
		}
		return 0
	}},
	{"important", func(_ *Retriever, _ queryContext, ch types.Chunk, _ string) float64 {
		if ch.Important {
			return 0.2
		}
		return 0
	}},
}

// enhanceScore blends the cosine base score with the heuristic boosts,
// clamped so no result ever exceeds 1.0.
func (r *Retriever) enhanceScore(q queryContext, ch types.Chunk, base float64) float64 {
	score := base
	textLower := strings.ToLower(ch.Text)
	for _, rule := range boostRules {
		score += rule.delta(r, q, ch, textLower)
	}
	return math.Min(score, 1.0)
}
