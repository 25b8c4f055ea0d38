// Package main is the entry point for the batch player indexer.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/matchpoint-app/matchpoint/internal/config"
	"github.com/matchpoint-app/matchpoint/internal/embedding"
	"github.com/matchpoint-app/matchpoint/internal/indexer"
	"github.com/matchpoint-app/matchpoint/internal/middleware"
	"github.com/matchpoint-app/matchpoint/internal/player"
	"github.com/matchpoint-app/matchpoint/internal/tracing"
	"github.com/matchpoint-app/matchpoint/internal/vectorindex"
)

const serviceName = "matchpoint-indexer"

func main() {
	configPath := flag.String("config", "", "path to optional YAML config file")
	reset := flag.Bool("reset", false, "delete all index records before writing")
	batchSize := flag.Int("batch-size", embedding.MaxProviderBatch, "embedding and upsert batch size")
	help := flag.Bool("help", false, "display help message")
	flag.Parse()

	if *help {
		fmt.Println("Matchpoint Player Indexer")
		fmt.Println()
		fmt.Println("Usage: indexer [options]")
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

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	players := player.NewPostgresRepository(db, logger)

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
		embedding.WithCacheLogger(logger),
	}
	if cfg.RedisURL != "" {
		redisOpts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Error("invalid REDIS_URL", "error", err)
			os.Exit(1)
		}
		client := redis.NewClient(redisOpts)
		defer client.Close()
		ttl := time.Duration(cfg.EmbedCacheTTLSeconds) * time.Second
		cacheOpts = append(cacheOpts, embedding.WithRemoteStore(
			embedding.NewRedisStore(client, ttl, logger)))
	}
	cache := embedding.NewCache(gateway, cacheOpts...)

	index, err := vectorindex.NewPineconeIndex(cfg.PineconeIndexHost, cfg.PineconeAPIKey)
	if err != nil {
		logger.Error("failed to create vector index client", "error", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	jobMetrics := indexer.NewMetrics()
	if err := jobMetrics.Register(registry); err != nil {
		logger.Error("failed to register indexer metrics", "error", err)
		os.Exit(1)
	}

	job := indexer.NewJob(players, cache, index, indexer.Config{
		Model:     cfg.OpenAIEmbedModel,
		BatchSize: *batchSize,
		Reset:     *reset,
		Logger:    logger,
		Metrics:   jobMetrics,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stats, err := job.Run(ctx)
	if err != nil {
		logger.Error("reindex failed", "error", err)
		os.Exit(1)
	}

	logger.Info("reindex finished",
		"listed", stats.Listed,
		"indexed", stats.Indexed,
		"skipped", stats.Skipped,
		"duration", stats.Duration.String())
}
