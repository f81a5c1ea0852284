/*
Copyright © 2025 dokupintar
*/
package cmd

import (
	"context"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dokupintar/dokubot-be/config"
	"github.com/dokupintar/dokubot-be/service"
)

// batchIngestDocumentsCmd represents the batch-ingest-documents command
var batchIngestDocumentsCmd = &cobra.Command{
	Use:   "batch-ingest-documents",
	Short: "Index every supported file in a directory",
	Run: func(cmd *cobra.Command, args []string) {
		configPath, _ := cmd.Flags().GetString("config")
		directory, _ := cmd.Flags().GetString("directory")
		tenant, _ := cmd.Flags().GetString("tenant")
		source, _ := cmd.Flags().GetString("source")

		if directory == "" {
			log.Fatal("--directory is required")
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

		files, err := os.ReadDir(directory)
		if err != nil {
			log.Fatalf("Failed to read directory: %v", err)
		}
		for _, file := range files {
			if file.IsDir() {
				continue
			}
			switch filepath.Ext(file.Name()) {
			case ".pdf", ".txt", ".md":
			default:
				continue
			}
			filePath := filepath.Join(directory, file.Name())
			if err := ingestFile(ctx, parser, indexer, tenant, filePath, "", source); err != nil {
				log.Printf("Failed to ingest %s: %v", filePath, err)
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(batchIngestDocumentsCmd)

	batchIngestDocumentsCmd.Flags().StringP("config", "c", "config/config.yaml", "config file")
	batchIngestDocumentsCmd.Flags().String("directory", "", "Path to the directory to ingest")
	batchIngestDocumentsCmd.Flags().String("tenant", "default", "Tenant to index the documents under")
	batchIngestDocumentsCmd.Flags().String("source", "", "Where the documents came from")
}
