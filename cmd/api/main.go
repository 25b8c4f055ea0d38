// Package main is the entry point for the API server.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/matchpoint-app/matchpoint/internal/api"
	"github.com/matchpoint-app/matchpoint/internal/config"
	"github.com/matchpoint-app/matchpoint/internal/embedding"
	"github.com/matchpoint-app/matchpoint/internal/health"
	"github.com/matchpoint-app/matchpoint/internal/matchmaking"
	"github.com/matchpoint-app/matchpoint/internal/middleware"
	"github.com/matchpoint-app/matchpoint/internal/player"
	"github.com/matchpoint-app/matchpoint/internal/scoring"
	"github.com/matchpoint-app/matchpoint/internal/tracing"
	"github.com/matchpoint-app/matchpoint/internal/vectorindex"
)

const serviceName = "matchpoint-api"

func main() {
	configPath := flag.String("config", "", "path to optional YAML config file")
	help := flag.Bool("help", false, "display help message")
	flag.Parse()

	if *help {
		fmt.Println("Matchpoint API Server")
		fmt.Println()
		fmt.Println("Usage: api [options]")
		fmt.Println()
		fmt.Println("Options:")
		flag.PrintDefaults()
		os.Exit(0)
	}

	cfg, errs := config.Load(*configPath)
	if len(errs) > 0 {
		for _, err := range errs {
			fmt.Fprintf(os.Stderr, "config: %v\n", err)
		}
		os.Exit(1)
	}

	logger := middleware.NewLogger(cfg.Env)
	slog.SetDefault(logger)
	logger.Info("configuration loaded", "summary", cfg.LogSummary())

	// Tracing
	provider, err := tracing.NewProvider(tracing.Config{
		ServiceName: serviceName,
		Enabled:     cfg.TracingEnabled,
		Environment: cfg.Env,
		Exporter:    cfg.TracingExporter,
		Endpoint:    cfg.TracingEndpoint,
		SampleRate:  cfg.TracingSampleRate,
		Insecure:    cfg.TracingInsecure,
	})
	if err != nil {
		logger.Error("failed to initialize tracing", "error", err)
		os.Exit(1)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(ctx); err != nil {
			logger.Warn("tracing shutdown failed", "error", err)
		}
	}()

	// Database
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	players := player.NewPostgresRepository(db, logger)

	// Optional Redis cache tier
	var redisClient *redis.Client
	var remoteStore embedding.RemoteStore
	if cfg.RedisURL != "" {
		redisOpts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Error("invalid REDIS_URL", "error", err)
			os.Exit(1)
		}
		redisClient = redis.NewClient(redisOpts)
		defer redisClient.Close()
		ttl := time.Duration(cfg.EmbedCacheTTLSeconds) * time.Second
		remoteStore = embedding.NewRedisStore(redisClient, ttl, logger)
	}

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	httpMetrics := middleware.NewMetrics()
	embedMetrics := embedding.NewMetrics()
	pipelineMetrics := matchmaking.NewMetrics()
	for _, register := range []func(prometheus.Registerer) error{
		httpMetrics.Register,
		embedMetrics.Register,
		pipelineMetrics.Register,
	} {
		if err := register(registry); err != nil {
			logger.Error("failed to register metrics", "error", err)
			os.Exit(1)
		}
	}

	// Embedding gateway and cache
	gateway, err := embedding.NewOpenAIGateway(cfg.OpenAIAPIKey,
		embedding.WithModel(cfg.OpenAIEmbedModel),
		embedding.WithLogger(logger),
	)
	if err != nil {
		logger.Error("failed to create embedding gateway", "error", err)
		os.Exit(1)
	}
	cacheOpts := []embedding.CacheOption{
		embedding.WithCapacity(cfg.EmbedCacheCapacity),
		embedding.WithMetrics(embedMetrics),
		embedding.WithCacheLogger(logger),
	}
	if remoteStore != nil {
		cacheOpts = append(cacheOpts, embedding.WithRemoteStore(remoteStore))
	}
	cache := embedding.NewCache(gateway, cacheOpts...)

	// Vector index
	index, err := vectorindex.NewPineconeIndex(cfg.PineconeIndexHost, cfg.PineconeAPIKey)
	if err != nil {
		logger.Error("failed to create vector index client", "error", err)
		os.Exit(1)
	}

	// Scoring and pipeline
	engine, err := scoring.NewEngine(scoring.DefaultWeights())
	if err != nil {
		logger.Error("failed to create scoring engine", "error", err)
		os.Exit(1)
	}
	pipeline := matchmaking.NewPipeline(cache, cfg.OpenAIEmbedModel, index, players, engine,
		matchmaking.WithTopK(cfg.SearchTopK),
		matchmaking.WithResultLimit(cfg.ResultLimit),
		matchmaking.WithScoreWorkers(cfg.ScoreWorkers),
		matchmaking.WithLogger(logger),
		matchmaking.WithPipelineMetrics(pipelineMetrics),
	)

	// Handlers and routes
	matchHandlers := api.NewMatchHandlers(pipeline, logger)
	healthConfig := api.HealthHandlersConfig{DBChecker: health.NewDBChecker(db)}
	if redisClient != nil {
		healthConfig.RedisChecker = health.NewRedisChecker(redisClient)
	}
	healthHandlers := api.NewHealthHandlers(healthConfig)

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/matches/candidates", matchHandlers.Candidates)
	mux.HandleFunc("/health", healthHandlers.Health)
	mux.HandleFunc("/health/ready", healthHandlers.Ready)
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	// Middleware chain: RequestID -> Tracing -> Logging -> HTTPMetrics
	var handler http.Handler = mux
	handler = middleware.HTTPMetrics(httpMetrics)(handler)
	handler = middleware.Logging(logger)(handler)
	if cfg.TracingEnabled {
		handler = middleware.Tracing(serviceName)(handler)
	}
	handler = middleware.RequestID(handler)

	server := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting server", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
