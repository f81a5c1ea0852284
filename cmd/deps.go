/*
Copyright © 2025 dokupintar
*/
package cmd

import (
	"context"
	"log"

	"github.com/dokupintar/dokubot-be/config"
	"github.com/dokupintar/dokubot-be/database"
	"github.com/dokupintar/dokubot-be/service"
)

// openStorage connects the index store. MongoDB is the normal backend;
// when it is unreachable the server falls back to the in-memory store so
// local development works without infrastructure.
func openStorage(ctx context.Context, cfg *config.Config) database.Storage {
	client := database.DefaultMongoClient
	if client != nil {
		if err := client.Ping(ctx, nil); err == nil {
			store, err := database.NewMongoStore(ctx, client, cfg.Database)
			if err == nil {
				return store
			}
			log.Printf("failed to initialize mongo index store, using in-memory store: %v", err)
		} else {
			log.Printf("MongoDB unreachable, using in-memory index store: %v", err)
		}
	}
	return database.NewMemoryStore()
}

func buildIndexPipeline(ctx context.Context, cfg *config.Config) (database.Storage, *service.IndexService, error) {
	store := openStorage(ctx, cfg)
	provider, err := service.DefaultEmbeddingProvider(
		cfg.EmbeddingEndpoint,
		cfg.OpenAIAPIKey,
		cfg.EmbeddingModel,
		cfg.EmbeddingDimension,
	)
	if err != nil {
		return nil, nil, err
	}
	chunker := service.NewChunker(cfg.ChunkerTypes())
	indexer := service.NewIndexService(store, provider, chunker, cfg.IndexTypes())
	return store, indexer, nil
}
