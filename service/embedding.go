package service

import (
	"context"
	"sync"

	"github.com/dokupintar/dokubot-be/types"
)

// EmbeddingProvider turns a batch of texts into fixed-dimension vectors,
// one per input in the same order. Implementations report
// types.ErrProviderUnavailable when the backing model cannot be reached.
type EmbeddingProvider interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	// Dimension is the vector length, 0 until the first successful call
	// when the model does not declare it up front.
	Dimension() int
}

var (
	providerOnce       sync.Once
	defaultProvider    EmbeddingProvider
	defaultProviderErr error
)

// DefaultEmbeddingProvider returns the process-wide embedding provider,
// initialized lazily on first use and cached for the process lifetime.
func DefaultEmbeddingProvider(baseURL, apiKey, model string, dimension int) (EmbeddingProvider, error) {
	providerOnce.Do(func() {
		if apiKey == "" {
			defaultProviderErr = types.ErrProviderUnavailable
			return
		}
		defaultProvider = NewOpenAIEmbedding(baseURL, apiKey, model, dimension)
	})
	return defaultProvider, defaultProviderErr
}
