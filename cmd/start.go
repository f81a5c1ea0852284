/*
Copyright © 2025 dokupintar
*/
package cmd

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/dokupintar/dokubot-be/config"
	"github.com/dokupintar/dokubot-be/database"
	"github.com/dokupintar/dokubot-be/handler"
	"github.com/dokupintar/dokubot-be/middleware"
	"github.com/dokupintar/dokubot-be/repository"
	"github.com/dokupintar/dokubot-be/service"
)

// startServerCmd represents the start command
var startServerCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the document assistant server",
	Long:  `Starts the HTTP server: document upload and indexing, local question answering, and AI chat.`,
	Run: func(cmd *cobra.Command, args []string) {
		configPath, _ := cmd.Flags().GetString("config")
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

		provider, err := service.DefaultEmbeddingProvider(
			cfg.EmbeddingEndpoint, cfg.OpenAIAPIKey, cfg.EmbeddingModel, cfg.EmbeddingDimension)
		if err != nil {
			log.Fatalf("Failed to initialize embedding provider: %v", err)
		}

		retriever := service.NewRetriever(store, provider, cfg.RetrieverTypes())
		answers := service.NewAnswerService(cfg.RetrieverTypes())
		parser := service.NewParserService(cfg.TempDir)
		fileService := service.NewFileService(cfg.UploadDir, parser, indexer)
		searchService := service.NewSearchService(cfg.SearchAPIKey, cfg.SearchEngineID)

		var aiService service.AIService
		switch cfg.AIBackend {
		case "gemini":
			geminiService, err := service.NewGeminiService(cfg.GeminiAPIKeys, cfg.Model)
			if err != nil {
				log.Fatalf("Failed to initialize Gemini service: %v", err)
			}
			geminiService.RegisterDocumentSearchTool(retriever, answers, handler.DefaultTenant)
			aiService = geminiService
		default:
			openaiService := service.NewOpenAIService(cfg.AIEndpoint, cfg.OpenAIAPIKey, cfg.Model)
			openaiService.RegisterDocumentSearchTool(retriever, answers, handler.DefaultTenant)
			if cfg.SearchEngineID != "" {
				openaiService.RegisterWebSearchTool(searchService)
			}
			aiService = openaiService
		}

		mongoClient := database.DefaultMongoClient
		if err := mongoClient.Ping(ctx, nil); err != nil {
			log.Fatalf("Failed to connect to MongoDB: %v", err)
		}
		mongoDb := mongoClient.Database(cfg.Database)
		userRepo := repository.NewUserRepo(mongoDb.Collection("users"))
		userService := service.NewUserService(userRepo)

		wsService := service.NewWebSocketService(aiService)

		// Initialize handlers
		corsHandler := handler.NewCorsHandler()
		uploadHandler := handler.NewUploadHandler(fileService)
		chatHandler := handler.NewChatHandler(aiService)
		queryHandler := handler.NewQueryHandler(retriever, answers, aiService)
		documentHandler := handler.NewDocumentHandler(indexer, fileService)
		loginHandler := handler.NewLoginHandler(userService)
		userMngHandler := handler.NewUserManageHandler(userService)

		// Setup Gin router
		router := gin.Default()
		router.Use(corsHandler.CorsMiddleware)

		router.GET("/health", gin.WrapH(wsService.Health()))
		router.GET("/ws/chat", func(c *gin.Context) {
			wsService.HandleChat(c.Writer, c.Request)
		})

		apiV1 := router.Group("/api/v1")
		apiV1.POST("/login", loginHandler.HandleLogin)

		// Protected user routes
		userRoutes := apiV1.Group("/")
		userRoutes.Use(middleware.AuthMiddleware())
		{
			userRoutes.POST("/chat", chatHandler.HandleChat)
			userRoutes.POST("/documents/query", queryHandler.HandleQuery)
			userRoutes.POST("/documents/ask-ai", queryHandler.HandleAskAI)
			userRoutes.GET("/documents", documentHandler.HandleListDocuments)
			userRoutes.GET("/documents/:id/chunks", documentHandler.HandleGetChunks)
			userRoutes.GET("/documents/:id/meta", documentHandler.HandleGetMeta)
			userRoutes.GET("/documents/:id/file", documentHandler.HandleServeDocument)
		}

		// Admin routes - require admin authentication
		adminRoutes := router.Group("/admin/api/v1")
		adminRoutes.Use(middleware.AdminAuthMiddleware())
		{
			adminRoutes.POST("/upload", uploadHandler.UploadDocumentHandler)
			adminRoutes.DELETE("/documents/:id", documentHandler.HandleDeleteDocument)
			adminRoutes.POST("/users/create", userMngHandler.HandleCreateUser)
			adminRoutes.POST("/users/batch-create", userMngHandler.HandleBatchCreateUser)
			adminRoutes.GET("/users/paginate", userMngHandler.HandlePaginateUser)
			adminRoutes.GET("/users/get", userMngHandler.HandleGetUser)
			adminRoutes.PUT("/users/update", userMngHandler.HandleUpdateUser)
			adminRoutes.DELETE("/users/delete", userMngHandler.HandleDeleteUser)
		}

		log.Printf("Starting server on port %s...\n", cfg.Port)
		if err := router.Run(":" + cfg.Port); err != nil {
			log.Fatal("Server error:", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(startServerCmd)
	startServerCmd.Flags().StringP("config", "c", "config/config.yaml", "config file")
}
