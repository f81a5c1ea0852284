package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"regexp"
	"sort"
	"strings"

	"github.com/dokupintar/dokubot-be/database"
	"github.com/dokupintar/dokubot-be/types"
)

var yearPattern = regexp.MustCompile(`\b(20\d{2})\b`)

// IndexService owns the write path of the retrieval index: chunk a
// document's text, embed the chunks in batches, and persist chunks,
// vectors and metadata under the tenant.
type IndexService struct {
	store    database.Storage
	provider EmbeddingProvider
	chunker  *Chunker
	cfg      types.IndexConfig
}

func NewIndexService(store database.Storage, provider EmbeddingProvider, chunker *Chunker, cfg types.IndexConfig) *IndexService {
	if cfg.MaxChunks <= 0 {
		cfg.MaxChunks = types.DefaultIndexConfig.MaxChunks
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = types.DefaultIndexConfig.BatchSize
	}
	return &IndexService{
		store:    store,
		provider: provider,
		chunker:  chunker,
		cfg:      cfg,
	}
}

// BuildIndex ingests one document under the tenant. Re-ingesting an
// existing document id replaces its previous index state entirely: the
// old records are deleted before the new ones are written, so stale
// chunks from a longer previous version cannot survive.
//
// A failed embedding batch drops only its own chunks; the document keeps
// indexing. Only when every batch fails does BuildIndex return an error.
func (s *IndexService) BuildIndex(ctx context.Context, tenant, documentID, text string, meta *types.DocumentMeta, progress types.ProgressFunc) (types.IndexStats, error) {
	var stats types.IndexStats

	if err := s.DeleteIndex(ctx, tenant, documentID); err != nil {
		return stats, err
	}

	chunks := s.chunker.Chunk(documentID, text)
	stats.Chunks = len(chunks)
	if len(chunks) > s.cfg.MaxChunks {
		stats.Dropped += len(chunks) - s.cfg.MaxChunks
		chunks = chunks[:s.cfg.MaxChunks]
	}

	// The empty-document sentinel is stored as a chunk record but never
	// embedded: a zero-length text has no meaningful vector.
	var embeddable []types.Chunk
	for _, ch := range chunks {
		if strings.TrimSpace(ch.Text) == "" {
			if err := s.putChunk(ctx, tenant, ch); err != nil {
				return stats, err
			}
			continue
		}
		embeddable = append(embeddable, ch)
	}

	total := len(embeddable)
	failedBatches := 0
	batches := 0
	for start := 0; start < total; start += s.cfg.BatchSize {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		end := start + s.cfg.BatchSize
		if end > total {
			end = total
		}
		batch := embeddable[start:end]
		batches++

		texts := make([]string, len(batch))
		for i, ch := range batch {
			texts[i] = ch.Text
		}
		vecs, err := s.provider.Embed(ctx, texts)
		if err != nil {
			if errors.Is(err, types.ErrDimensionMismatch) {
				return stats, err
			}
			log.Printf("embedding batch %d-%d of %s failed, skipping: %v", start, end, documentID, err)
			failedBatches++
			stats.Dropped += len(batch)
			continue
		}
		if len(vecs) != len(batch) {
			log.Printf("embedding batch %d-%d of %s returned %d vectors for %d chunks, skipping", start, end, documentID, len(vecs), len(batch))
			failedBatches++
			stats.Dropped += len(batch)
			continue
		}

		for i, ch := range batch {
			if err := s.putChunk(ctx, tenant, ch); err != nil {
				return stats, err
			}
			if err := s.store.Put(ctx, tenant, database.PartitionVectors, ch.ID, database.EncodeVector(vecs[i])); err != nil {
				return stats, err
			}
			stats.Indexed++
		}
		if progress != nil {
			progress(end, total)
		}
	}

	if batches > 0 && failedBatches == batches {
		return stats, fmt.Errorf("%w: all %d embedding batches for %s failed", types.ErrProviderUnavailable, batches, documentID)
	}

	if meta != nil {
		meta.DocumentID = documentID
		payload, err := json.Marshal(meta)
		if err != nil {
			return stats, err
		}
		if err := s.store.Put(ctx, tenant, database.PartitionMeta, documentID, payload); err != nil {
			return stats, err
		}
	}
	return stats, nil
}

func (s *IndexService) putChunk(ctx context.Context, tenant string, ch types.Chunk) error {
	payload, err := json.Marshal(ch)
	if err != nil {
		return err
	}
	return s.store.Put(ctx, tenant, database.PartitionChunks, ch.ID, payload)
}

// DeleteIndex removes every record of the document from all three
// partitions. Deleting an unknown document is a no-op, not an error.
func (s *IndexService) DeleteIndex(ctx context.Context, tenant, documentID string) error {
	prefix := database.ChunkKeyPrefix(documentID)
	if err := s.store.DeleteByPrefix(ctx, tenant, database.PartitionChunks, prefix); err != nil {
		return err
	}
	if err := s.store.DeleteByPrefix(ctx, tenant, database.PartitionVectors, prefix); err != nil {
		return err
	}
	return s.store.DeleteByPrefix(ctx, tenant, database.PartitionMeta, documentID)
}

// ListChunks returns the document's stored chunks ordered by Start offset.
func (s *IndexService) ListChunks(ctx context.Context, tenant, documentID string) ([]types.Chunk, error) {
	var chunks []types.Chunk
	err := s.store.Scan(ctx, tenant, database.PartitionChunks, func(key string, value []byte) bool {
		var ch types.Chunk
		if err := json.Unmarshal(value, &ch); err != nil {
			log.Printf("skipping unreadable chunk record %s: %v", key, err)
			return true
		}
		if ch.DocumentID == documentID {
			chunks = append(chunks, ch)
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(chunks, func(i, j int) bool {
		if chunks[i].Start != chunks[j].Start {
			return chunks[i].Start < chunks[j].Start
		}
		return chunks[i].End < chunks[j].End
	})
	return chunks, nil
}

// GetMeta returns the stored metadata record, types.ErrNotFound when the
// document has none.
func (s *IndexService) GetMeta(ctx context.Context, tenant, documentID string) (*types.DocumentMeta, error) {
	payload, err := s.store.Get(ctx, tenant, database.PartitionMeta, documentID)
	if err != nil {
		return nil, err
	}
	var meta types.DocumentMeta
	if err := json.Unmarshal(payload, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// ListDocuments enumerates every document with a metadata record under
// the tenant.
func (s *IndexService) ListDocuments(ctx context.Context, tenant string) ([]types.DocumentMeta, error) {
	var docs []types.DocumentMeta
	err := s.store.Scan(ctx, tenant, database.PartitionMeta, func(key string, value []byte) bool {
		var meta types.DocumentMeta
		if err := json.Unmarshal(value, &meta); err != nil {
			log.Printf("skipping unreadable meta record %s: %v", key, err)
			return true
		}
		docs = append(docs, meta)
		return true
	})
	if err != nil {
		return nil, err
	}
	return docs, nil
}

// ExtractHeuristics derives best-effort document attributes, preferring
// stored metadata and falling back to the leading chunks: a title-looking
// first line, an explicit label, a publication year.
func (s *IndexService) ExtractHeuristics(ctx context.Context, tenant, documentID string) (*types.DocumentMeta, error) {
	out := &types.DocumentMeta{DocumentID: documentID}
	if meta, err := s.GetMeta(ctx, tenant, documentID); err == nil {
		*out = *meta
	} else if !errors.Is(err, types.ErrNotFound) {
		return nil, err
	}

	chunks, err := s.ListChunks(ctx, tenant, documentID)
	if err != nil {
		return nil, err
	}
	if len(chunks) > 5 {
		chunks = chunks[:5]
	}
	for _, ch := range chunks {
		for _, line := range splitSentencesOrLines(ch.Text) {
			if out.Title == "" {
				if m := titleLinePattern.FindString(line); m != "" {
					out.Title = strings.TrimSpace(titleLinePattern.ReplaceAllString(line, ""))
				} else if len(line) >= 8 && len(line) <= 120 && isHeaderLine(line) {
					out.Title = strings.TrimSpace(line)
				}
			}
			if out.Author == "" {
				lower := strings.ToLower(line)
				if rest, ok := strings.CutPrefix(lower, "penulis:"); ok {
					out.Author = strings.TrimSpace(line[len(line)-len(rest):])
				} else if rest, ok := strings.CutPrefix(lower, "author:"); ok {
					out.Author = strings.TrimSpace(line[len(line)-len(rest):])
				}
			}
			if out.Custom == nil || out.Custom["year"] == "" {
				if m := yearPattern.FindString(line); m != "" {
					if out.Custom == nil {
						out.Custom = map[string]string{}
					}
					out.Custom["year"] = m
				}
			}
		}
	}
	return out, nil
}
