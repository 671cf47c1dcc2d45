package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/dexroute/route-cache/internal/platform/aws"
	"github.com/dexroute/route-cache/internal/platform/config"
	"github.com/dexroute/route-cache/internal/platform/observability"
	"github.com/dexroute/route-cache/internal/quote"
	"github.com/dexroute/route-cache/internal/store"
	"github.com/dexroute/route-cache/internal/strategy"
	"github.com/dexroute/route-cache/internal/warmer"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log.Println("Loading configuration...")
	cfg := config.MustLoad(os.Getenv("CONFIG_PATH"))

	logger := observability.NewLogger(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)

	metrics, err := observability.NewMetrics("route-cache-warmer", cfg.Observability.Metrics.Enabled)
	if err != nil {
		log.Fatalf("Failed to create metrics: %v", err)
	}

	tracer, err := observability.NewTracerProvider(ctx, "route-cache-warmer", cfg.Observability.Tracing.Endpoint, cfg.Observability.Tracing.Enabled)
	if err != nil {
		log.Fatalf("Failed to create tracer: %v", err)
	}
	defer tracer.Shutdown(ctx)

	backend, err := newBackend(ctx, cfg)
	if err != nil {
		logger.LogError(ctx, "failed to build cache backend", err)
		log.Fatalf("Failed to build cache backend: %v", err)
	}

	table := strategy.DefaultTable()
	st := store.New(store.Config{
		Backend:      backend,
		Table:        table,
		TTL:          cfg.Cache.TTL,
		QueryTimeout: cfg.Cache.QueryTimeout,
		Logger:       logger,
		Metrics:      metrics,
	})

	w := warmer.New(warmer.Config{
		Table:       table,
		Store:       st,
		Computer:    quote.NewHTTPComputer(cfg.Router.URL, cfg.Router.Timeout),
		Protocols:   cfg.Warmer.Protocols,
		Concurrency: cfg.Warmer.Concurrency,
		Logger:      logger,
	})

	go startHTTPServer(cfg.HTTP.Port, metrics, logger)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("starting cache warmer",
		"backend", cfg.Cache.Backend,
		"interval", cfg.Warmer.Interval.String(),
		"concurrency", cfg.Warmer.Concurrency,
	)
	go w.Run(ctx, cfg.Warmer.Interval)

	<-sigCh
	logger.Info("shutdown signal received, gracefully stopping...")
	cancel()
	logger.Info("warmer stopped")
}

func newBackend(ctx context.Context, cfg *config.Config) (store.Backend, error) {
	switch cfg.Cache.Backend {
	case "redis":
		return store.NewRedisBackend(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
	default:
		awsCfg, err := aws.LoadAWSConfig(ctx, aws.Config{Region: cfg.AWS.Region})
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
			if cfg.DynamoDB.Endpoint != "" {
				o.BaseEndpoint = awssdk.String(cfg.DynamoDB.Endpoint)
			}
		})
		return store.NewDynamoBackend(client, cfg.DynamoDB.TableName), nil
	}
}

// startHTTPServer serves health checks and the Prometheus scrape endpoint.
func startHTTPServer(port int, metrics *observability.Metrics, logger *observability.Logger) {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	mux.Handle("/metrics", metrics.Handler())

	addr := fmt.Sprintf(":%d", port)
	logger.Info("HTTP server listening", "address", addr)

	server := &http.Server{Addr: addr, Handler: mux}
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.LogError(context.Background(), "HTTP server error", err)
	}
}
