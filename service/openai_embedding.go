package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/dokupintar/dokubot-be/types"
	"github.com/sashabaranov/go-openai"
)

// OpenAIEmbedding implements EmbeddingProvider over any OpenAI-compatible
// embeddings endpoint (including local servers via baseURL).
type OpenAIEmbedding struct {
	client *openai.Client
	model  openai.EmbeddingModel

	mu        sync.Mutex
	dimension int
}

func NewOpenAIEmbedding(baseURL, apiKey, model string, dimension int) *OpenAIEmbedding {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	if model == "" {
		model = string(openai.SmallEmbedding3)
	}
	return &OpenAIEmbedding{
		client:    openai.NewClientWithConfig(config),
		model:     openai.EmbeddingModel(model),
		dimension: dimension,
	}
}

func (p *OpenAIEmbedding) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
		Input: texts,
		Model: p.model,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrProviderUnavailable, err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d inputs",
			types.ErrProviderUnavailable, len(resp.Data), len(texts))
	}

	out := make([][]float32, len(texts))
	for _, item := range resp.Data {
		if item.Index < 0 || item.Index >= len(out) {
			return nil, fmt.Errorf("%w: embedding index %d out of range",
				types.ErrProviderUnavailable, item.Index)
		}
		if err := p.checkDimension(len(item.Embedding)); err != nil {
			return nil, err
		}
		out[item.Index] = item.Embedding
	}
	return out, nil
}

// checkDimension pins the vector length on first use and rejects any
// drift afterwards: a model change mid-index would silently corrupt
// similarity math.
func (p *OpenAIEmbedding) checkDimension(got int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.dimension == 0 {
		p.dimension = got
		return nil
	}
	if got != p.dimension {
		return fmt.Errorf("%w: model %s returned %d, expected %d",
			types.ErrDimensionMismatch, p.model, got, p.dimension)
	}
	return nil
}

func (p *OpenAIEmbedding) Dimension() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dimension
}
