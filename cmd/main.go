package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"rag-pipeline-service/internal/ai"
	"rag-pipeline-service/internal/config"
	"rag-pipeline-service/internal/logger"
	"rag-pipeline-service/internal/telemetry"
	"rag-pipeline-service/middleware"
	"rag-pipeline-service/models"
	"rag-pipeline-service/routes"
	"rag-pipeline-service/services"
)

const serviceName = "rag-pipeline-service"

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger.Init(cfg.GinMode)

	if cfg.TracingEnabled {
		shutdown, err := telemetry.InitTracer(serviceName, cfg.OTLPEndpoint)
		if err != nil {
			slog.Error("failed to initialize tracing", "error", err)
			os.Exit(1)
		}
		defer shutdown()
	}

	// Provider adapters. A missing credential leaves the provider unwired;
	// the affected operations report that instead of the process refusing
	// to start.
	embeddingProviders := make(map[string]services.EmbeddingProvider)
	generationProviders := make(map[string]services.GenerationProvider)
	var visionOCR services.VisionOCR

	if cfg.GeminiAPIKey != "" {
		geminiClient, err := ai.NewGeminiClient(context.Background(), cfg.GeminiAPIKey, cfg.GeminiVisionModel)
		if err != nil {
			slog.Error("failed to create gemini client", "error", err)
			os.Exit(1)
		}
		defer geminiClient.Close()
		generationProviders[models.GenerationProviderGemini] = geminiClient
		visionOCR = geminiClient
		embeddingProviders[models.ProviderGoogle] = ai.NewGeminiEmbedder(cfg.GeminiAPIKey, "")
	} else {
		slog.Warn("GEMINI_API_KEY not set; gemini embedding, generation, and OCR are disabled")
	}

	if cfg.OpenAIAPIKey != "" {
		openaiClient := ai.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL)
		generationProviders[models.GenerationProviderOpenAI] = openaiClient
		embeddingProviders[models.ProviderOpenAI] = openaiClient
	}

	// Single process-lifetime instances, owned here and injected below.
	documentStore := services.NewDocumentStore(cfg.MaxDocumentBytes, cfg.TotalBytesBudget)
	vectorStore := services.NewVectorStore()
	chunker := services.NewChunker()
	// No page rasterizer is bundled: scanned-PDF extraction reports an
	// explanatory failure until one is plugged in here.
	extractor := services.NewExtractor(visionOCR, nil)
	embedder := services.NewEmbeddingService(embeddingProviders, services.EmbeddingOptions{
		BatchSize:     cfg.EmbedBatchSize,
		MaxAttempts:   cfg.EmbedMaxAttempts,
		BackoffBase:   cfg.EmbedBackoffBase,
		BatchInterval: cfg.EmbedBatchInterval,
	})
	rag := services.NewRAGService(embedder, vectorStore, generationProviders)

	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestSizeLimit(cfg.MaxDocumentBytes + 1<<20))
	if cfg.TracingEnabled {
		router.Use(middleware.Tracing(serviceName))
	}

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", middleware.RequestIDHeader}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "timestamp": time.Now()})
	})

	routes.SetupDocumentRoutes(router, documentStore, vectorStore, extractor)
	routes.SetupPipelineRoutes(router, cfg, documentStore, chunker, embedder, vectorStore)
	routes.SetupQueryRoutes(router, rag)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		slog.Info("server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}
	slog.Info("server exited")
}
