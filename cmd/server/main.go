package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/kosarica/price-service/config"
	_ "github.com/kosarica/price-service/docs"
	"github.com/kosarica/price-service/internal/database"
	"github.com/kosarica/price-service/internal/fetch"
	"github.com/kosarica/price-service/internal/handlers"
	"github.com/kosarica/price-service/internal/ingest"
	"github.com/kosarica/price-service/internal/middleware"
	"github.com/kosarica/price-service/internal/rewrite"
	"github.com/kosarica/price-service/internal/storage"
	"github.com/kosarica/price-service/internal/store"
	"github.com/rs/zerolog"
)

// @title Price Service API
// @version 1.0
// @description Multi-merchant product search and price-comparison API: catalog search, product lookup, shop registration, and admin-triggered ingestion.
// @BasePath /
func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger := initLogger(cfg.Logging)

	logger.Info().Msg("Starting Price Service...")

	// Connect to database
	dbURL := config.GetDatabaseURL()
	if dbURL == "" {
		logger.Fatal().Msg("DATABASE_URL not set")
	}

	ctx := context.Background()
	if err := database.Connect(
		ctx,
		dbURL,
		cfg.Database.MaxConnections,
		cfg.Database.MinConnections,
		cfg.Database.MaxConnLifetime,
		cfg.Database.MaxConnIdleTime,
	); err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer database.Close()

	logger.Info().Msg("Database connected")

	// Set up Gin router
	if cfg.Logging.Level == "info" || cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	setupMiddleware(router, logger)

	// Register routes
	router.GET("/health", handlers.HealthCheck)
	router.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Query Rewriter: enable the optional LLM tier if an API key is
	// configured, else search falls back to the local dictionary/pattern
	// tiers (spec §4.4).
	handlers.Rewriter = rewrite.New(rewrite.NewOpenAIRewriter(cfg.Rewrite.LLMAPIKey, cfg.Rewrite.LLMModel))

	// Public search API (spec §6)
	router.GET("/search", handlers.Search)
	router.GET("/suggestions", handlers.Suggestions)
	router.GET("/facets", handlers.Facets)
	router.GET("/product/:id", handlers.GetProduct)
	router.GET("/product/ean/:ean", handlers.GetProductByEAN)
	router.GET("/product/:id/comparison", handlers.GetProductComparison)
	router.GET("/shops", handlers.ListShops)
	router.POST("/shops", handlers.CreateShop)
	router.DELETE("/shops/:id", handlers.DeleteShop)

	// Ingestion routes (internal admin API)
	// Apply auth middleware to all /internal routes, then rate limiting
	// Note: More specific routes must come before generic ones
	internal := router.Group("/internal")
	internal.Use(middleware.InternalAuthMiddleware())
	internal.Use(middleware.ServiceRateLimitMiddleware(50, 100)) // 50 req/s, burst 100
	{
		// Health check endpoint
		internal.GET("/health", handlers.HealthCheck)

		// Admin endpoints: manual ingestion trigger and catalog stats
		// (spec §6 `POST /admin/process-feeds`, `GET /admin/stats`)
		admin := internal.Group("/admin")
		{
			admin.POST("/process-feeds", handlers.ProcessFeeds)
			admin.GET("/stats", handlers.AdminStats)
		}
	}

	// Background ingestion scheduler: a bounded-concurrency sync pass over
	// every registered merchant every Ingest.SyncInterval (spec §4.3/§5).
	ingestCtx, stopIngest := context.WithCancel(context.Background())
	defer stopIngest()
	if coord, err := newIngestCoordinator(cfg); err != nil {
		logger.Error().Err(err).Msg("ingestion scheduler disabled: failed to initialize feed cache storage")
	} else {
		go coord.RunForever(ingestCtx)
	}

	// Start server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Graceful shutdown
	go func() {
		logger.Info().Str("addr", addr).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}

	logger.Info().Msg("Server exited")
}

// newIngestCoordinator wires the Fetcher and Store into an ingest.Coordinator
// against the configured feed cache storage (spec §4.3/§5: "merchant syncs
// are independent and may run in parallel up to a configurable concurrency
// cap").
func newIngestCoordinator(cfg *config.Config) (*ingest.Coordinator, error) {
	st2, err := storage.NewLocalStorage(cfg.Storage.BasePath)
	if err != nil {
		return nil, err
	}
	fetcher := fetch.New(st2, fetch.Config{CacheTTL: cfg.Fetch.CacheTTL, Timeout: cfg.Fetch.Timeout})
	st := store.New(database.Pool())
	return ingest.New(st, fetcher, ingest.Config{
		MaxConcurrentSyncs: cfg.Ingest.MaxConcurrentSyncs,
		SyncInterval:       cfg.Ingest.SyncInterval,
	}), nil
}

func initLogger(cfg config.LoggingConfig) *zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var output io.Writer
	if cfg.Format == "json" {
		output = os.Stdout
	} else {
		output = zerolog.ConsoleWriter{Out: os.Stdout, NoColor: cfg.NoColor}
	}

	logger := zerolog.New(output).Level(level).With().Timestamp().Logger()

	return &logger
}

func setupMiddleware(router *gin.Engine, logger *zerolog.Logger) {
	router.Use(func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		end := time.Now()
		latency := end.Sub(start)

		logger.Info().
			Str("method", c.Request.Method).
			Str("path", path).
			Str("query", query).
			Int("status", c.Writer.Status()).
			Dur("latency", latency).
			Str("ip", c.ClientIP()).
			Msg("HTTP request")
	})
}
