/*
Copyright © 2025 dokupintar
*/
package cmd

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dokupintar/dokubot-be/config"
	"github.com/dokupintar/dokubot-be/service"
	"github.com/dokupintar/dokubot-be/types"
)

// ingestDocumentCmd represents the ingest-document command
var ingestDocumentCmd = &cobra.Command{
	Use:   "ingest-document",
	Short: "Parse a file and build its retrieval index",
	Long: `Extracts the text of a PDF or text file and indexes it under the
given tenant. Re-ingesting an existing document id replaces its index.`,
	Run: func(cmd *cobra.Command, args []string) {
		configPath, _ := cmd.Flags().GetString("config")
		filePath, _ := cmd.Flags().GetString("file")
		tenant, _ := cmd.Flags().GetString("tenant")
		title, _ := cmd.Flags().GetString("title")
		source, _ := cmd.Flags().GetString("source")

		if filePath == "" {
			log.Fatal("--file is required")
		}
		cfg, err := config.LoadConfig(configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}

		ctx := context.Background()
		store, indexer, err := buildIndexPipeline(ctx, cfg)
		if err != nil {
			log.Fatalf("Failed to initialize index pipeline: %v", err)
		}
		defer store.Close(ctx)

		parser := service.NewParserService(cfg.TempDir)
		if err := ingestFile(ctx, parser, indexer, tenant, filePath, title, source); err != nil {
			log.Fatalf("Failed to ingest %s: %v", filePath, err)
		}
	},
}

func init() {
	rootCmd.AddCommand(ingestDocumentCmd)

	ingestDocumentCmd.Flags().StringP("config", "c", "config/config.yaml", "config file")
	ingestDocumentCmd.Flags().StringP("file", "f", "", "Path to the file to ingest")
	ingestDocumentCmd.Flags().String("tenant", "default", "Tenant to index the document under")
	ingestDocumentCmd.Flags().String("title", "", "Document title (defaults to the file name)")
	ingestDocumentCmd.Flags().String("source", "", "Where the document came from")
}

func ingestFile(ctx context.Context, parser *service.ParserService, indexer *service.IndexService, tenant, filePath, title, source string) error {
	text, parsedMeta, err := parser.ParseFile(filePath)
	if err != nil {
		return err
	}

	base := filepath.Base(filePath)
	documentID := strings.TrimSuffix(base, filepath.Ext(base))
	if title == "" {
		title = documentID
		if parsedMeta != nil && parsedMeta.Title != "" {
			title = parsedMeta.Title
		}
	}
	meta := &types.DocumentMeta{
		Title:     title,
		Source:    source,
		CreatedAt: time.Now().Unix(),
	}
	if parsedMeta != nil {
		meta.Author = parsedMeta.Author
	}

	stats, err := indexer.BuildIndex(ctx, tenant, documentID, text, meta, func(done, total int) {
		fmt.Printf("Indexed %d/%d chunks of %s\n", done, total, documentID)
	})
	if err != nil {
		return err
	}
	fmt.Printf("Done: %s (%d chunks, %d indexed, %d dropped)\n", documentID, stats.Chunks, stats.Indexed, stats.Dropped)
	return nil
}
