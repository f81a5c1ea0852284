/*
Copyright © 2025 dokupintar
*/
package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/dokupintar/dokubot-be/config"
)

// deleteDocumentCmd represents the delete-document command
var deleteDocumentCmd = &cobra.Command{
	Use:   "delete-document",
	Short: "Remove a document's retrieval index",
	Run: func(cmd *cobra.Command, args []string) {
		configPath, _ := cmd.Flags().GetString("config")
		documentID, _ := cmd.Flags().GetString("id")
		tenant, _ := cmd.Flags().GetString("tenant")

		if documentID == "" {
			log.Fatal("--id is required")
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

		if err := indexer.DeleteIndex(ctx, tenant, documentID); err != nil {
			log.Fatalf("Failed to delete document %s: %v", documentID, err)
		}
		fmt.Printf("Deleted index of %s\n", documentID)
	},
}

func init() {
	rootCmd.AddCommand(deleteDocumentCmd)

	deleteDocumentCmd.Flags().StringP("config", "c", "config/config.yaml", "config file")
	deleteDocumentCmd.Flags().String("id", "", "Document id to delete")
	deleteDocumentCmd.Flags().String("tenant", "default", "Tenant the document belongs to")
}
