// Command server runs the concord query service: it indexes the configured
// text sources at startup, optionally consumes further lines from Kafka,
// and serves word lookups over HTTP with Redis caching, Prometheus
// metrics, and PostgreSQL-backed lookup analytics.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/concord-index/concord/internal/analytics"
	"github.com/concord-index/concord/internal/indexer"
	"github.com/concord-index/concord/internal/query"
	"github.com/concord-index/concord/pkg/config"
	"github.com/concord-index/concord/pkg/health"
	"github.com/concord-index/concord/pkg/kafka"
	"github.com/concord-index/concord/pkg/logger"
	"github.com/concord-index/concord/pkg/metrics"
	"github.com/concord-index/concord/pkg/middleware"
	"github.com/concord-index/concord/pkg/postgres"
	"github.com/concord-index/concord/pkg/redis"
	"github.com/concord-index/concord/pkg/resilience"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting concord server", "sources", len(cfg.Indexer.Sources))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownMetrics(shutdownCtx); err != nil {
				slog.Error("metrics server shutdown failed", "error", err)
			}
		}()
	}

	engine := indexer.New(cfg.Indexer, m)
	for _, src := range cfg.Indexer.Sources {
		if _, err := engine.IndexFile(src); err != nil {
			slog.Error("failed to index source", "source", src, "error", err)
			os.Exit(1)
		}
	}

	checker := health.NewChecker()
	checker.Register("index", func(ctx context.Context) health.ComponentHealth {
		if engine.DistinctWords() == 0 && len(cfg.Indexer.Sources) > 0 {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "index is empty"}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})

	var cache *query.LookupCache
	if cfg.Redis.Enabled {
		var redisClient *redis.Client
		err := resilience.Retry(ctx, "redis-connect", resilience.RetryConfig{MaxAttempts: 5}, func() error {
			var err error
			redisClient, err = redis.NewClient(cfg.Redis)
			return err
		})
		if err != nil {
			slog.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer redisClient.Close()
		cache = query.NewLookupCache(redisClient, cfg.Redis)
		checker.Register("redis", func(ctx context.Context) health.ComponentHealth {
			if err := redisClient.Ping(ctx); err != nil {
				return health.ComponentHealth{Status: health.StatusDown, Message: err.Error()}
			}
			return health.ComponentHealth{Status: health.StatusUp}
		})
		slog.Info("lookup cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
	}

	aggregator := analytics.NewAggregator()
	var store *analytics.Store
	if cfg.Postgres.Enabled {
		var pg *postgres.Client
		err := resilience.Retry(ctx, "postgres-connect", resilience.RetryConfig{MaxAttempts: 5}, func() error {
			var err error
			pg, err = postgres.New(cfg.Postgres)
			return err
		})
		if err != nil {
			slog.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer pg.Close()
		store = analytics.NewStore(pg)
		aggregator.StartSnapshotLoop(ctx, store, cfg.Analytics.SnapshotInterval)
		checker.Register("postgres", func(ctx context.Context) health.ComponentHealth {
			if err := pg.DB.PingContext(ctx); err != nil {
				return health.ComponentHealth{Status: health.StatusDown, Message: err.Error()}
			}
			return health.ComponentHealth{Status: health.StatusUp}
		})
	}

	var collector *analytics.Collector
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents)
		defer producer.Close()
		collector = analytics.NewCollector(producer, cfg.Analytics.BufferSize)
		collector.Start(ctx)

		stats := engine.Stats()
		collector.Track(analytics.IndexEvent{
			Type:      analytics.EventIndexLine,
			Source:    "startup",
			Lines:     int(stats.Lines),
			Words:     stats.Words,
			Timestamp: time.Now().UTC(),
		})

		lineHandler := indexer.HandleLineMessage(engine)
		if cache != nil {
			// Cached lookups go stale as soon as new lines land.
			indexLine := lineHandler
			lineHandler = func(ctx context.Context, key, value []byte) error {
				if err := indexLine(ctx, key, value); err != nil {
					return err
				}
				if err := cache.Invalidate(ctx); err != nil {
					slog.Warn("cache invalidation failed", "error", err)
				}
				return nil
			}
		}
		lineConsumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.LineIngest, lineHandler)
		go func() {
			if err := lineConsumer.Start(ctx); err != nil {
				slog.Error("line consumer error", "error", err)
			}
		}()
		slog.Info("kafka line ingest enabled",
			"topic", cfg.Kafka.Topics.LineIngest,
			"group", cfg.Kafka.ConsumerGroup,
		)
	}

	handler := query.New(engine, cache, collector, aggregator, store, m)
	mux := http.NewServeMux()
	handler.Register(mux)
	mux.HandleFunc("GET /healthz", checker.LiveHandler())
	mux.HandleFunc("GET /readyz", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.RequestTimeout)(chain)
	if m != nil {
		chain = middleware.Metrics(m)(chain)
	}
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		slog.Info("http server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown failed", "error", err)
	}
	if collector != nil {
		collector.Close()
	}
	slog.Info("concord server stopped")
}
