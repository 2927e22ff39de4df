// The worker binary consumes raw board records from Kafka, normalizes and
// stores them, maintains the search index and cache, and publishes domain
// events for downstream consumers.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	applicensing "github.com/openregulatory/licensure/internal/application/licensing"
	"github.com/openregulatory/licensure/internal/config"
	domain "github.com/openregulatory/licensure/internal/domain/licensing"
	"github.com/openregulatory/licensure/internal/infrastructure/database/postgres"
	"github.com/openregulatory/licensure/internal/infrastructure/database/postgres/repositories"
	"github.com/openregulatory/licensure/internal/infrastructure/database/redis"
	"github.com/openregulatory/licensure/internal/infrastructure/messaging/kafka"
	"github.com/openregulatory/licensure/internal/infrastructure/monitoring/logging"
	"github.com/openregulatory/licensure/internal/infrastructure/monitoring/prometheus"
	"github.com/openregulatory/licensure/internal/infrastructure/search/opensearch"
	httpserver "github.com/openregulatory/licensure/internal/interfaces/http"
	"github.com/openregulatory/licensure/internal/interfaces/http/handlers"
	"github.com/openregulatory/licensure/pkg/errors"
	"github.com/openregulatory/licensure/pkg/types/common"
	ltypes "github.com/openregulatory/licensure/pkg/types/licensing"
)

const eventSource = "licensure-worker"

func main() {
	configPath := flag.String("config", "", "config file path (default: environment-only)")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "worker: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(logging.LogConfig{
		Level:            cfg.Log.Level,
		Format:           cfg.Log.Format,
		OutputPaths:      cfg.Log.OutputPaths,
		ErrorOutputPaths: cfg.Log.ErrorOutputPaths,
	})
	if err != nil {
		return err
	}
	logger = logger.Named("worker")
	logging.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer pool.Close()

	licenseRepo := repositories.NewLicenseRepository(pool.Pool(), logger)
	resolver := buildResolver(cfg.Compact)

	var licenseOpts []applicensing.Option
	checkers := []handlers.ComponentChecker{checker{"postgres", pool.HealthCheck}}

	redisClient, err := redis.NewClient(cfg.Redis, logger)
	if err != nil {
		logger.Warn("redis unavailable, ingesting without cache invalidation", logging.Err(err))
	} else {
		defer redisClient.Close()
		licenseOpts = append(licenseOpts, applicensing.WithCache(redis.NewCache(redisClient, logger)))
		checkers = append(checkers, checker{"redis", redisClient.Ping})
	}

	osClient, err := opensearch.NewClient(cfg.OpenSearch, logger)
	if err != nil {
		logger.Warn("opensearch unavailable, ingesting without indexing", logging.Err(err))
	} else {
		index := opensearch.NewLicenseIndex(osClient, resolver, cfg.Compact.Name, logger)
		if err := index.EnsureIndex(ctx); err != nil {
			return err
		}
		licenseOpts = append(licenseOpts, applicensing.WithSearchIndex(index))
		checkers = append(checkers, checker{"opensearch", osClient.Ping})
	}

	if err := kafka.EnsureTopics(cfg.Kafka, logger); err != nil {
		return err
	}

	producer, err := kafka.NewProducer(cfg.Kafka, logger)
	if err != nil {
		return err
	}
	defer producer.Close()
	licenseOpts = append(licenseOpts,
		applicensing.WithEventPublisher(kafka.NewEventPublisher(producer, eventSource, logger)))

	licenseService := applicensing.NewService(licenseRepo, resolver, logger, licenseOpts...)

	collector := prometheus.NewCollector()
	metrics := prometheus.NewAppMetrics(collector)

	consumer, err := kafka.NewConsumer(cfg.Kafka, cfg.Worker,
		[]string{kafka.TopicLicenseRecordsRaw}, producer, logger)
	if err != nil {
		return err
	}
	consumer.Subscribe(kafka.TopicLicenseRecordsRaw, ingestHandler(licenseService, metrics, logger))

	if err := consumer.Start(ctx); err != nil {
		return err
	}

	// Health and metrics only; the worker exposes no API routes.
	router := httpserver.NewRouter(httpserver.RouterConfig{
		HealthHandler:  handlers.NewHealthHandler(logger, checkers...),
		MetricsHandler: collector.Handler(),
		Server:         cfg.Server,
		Logger:         logger,
	})
	server := httpserver.NewServer(cfg.Server, router, logger)
	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	if err := consumer.Close(); err != nil {
		logger.Warn("consumer close failed", logging.Err(err))
	}
	return server.Shutdown(context.Background())
}

// ingestHandler decodes one raw-records message and runs it through the
// ingest pipeline.  Decode failures are terminal: retrying cannot fix a
// malformed payload, so the error routes the message straight through the
// consumer's retry budget to the dead-letter topic.
func ingestHandler(svc applicensing.Service, metrics *prometheus.AppMetrics, logger logging.Logger) common.MessageHandler {
	return func(ctx context.Context, msg *common.Message) error {
		raws, err := decodeRawRecords(msg.Value)
		if err != nil {
			metrics.RecordsIngestedTotal.WithLabelValues("unknown", "decode_error").Inc()
			return err
		}

		start := time.Now()
		result, err := svc.Ingest(ctx, raws)
		if err != nil {
			metrics.ObserveIngest("batch", "error", time.Since(start))
			return err
		}

		metrics.ObserveIngest("batch", "ok", time.Since(start))
		if result.Rejected > 0 {
			metrics.RecordsIngestedTotal.WithLabelValues("batch", "rejected").Add(float64(result.Rejected))
		}
		logger.Info("ingested raw records batch",
			logging.Int("received", result.Received),
			logging.Int("stored", result.Stored),
			logging.Int("rejected", result.Rejected),
			logging.Int64("offset", msg.Offset))
		return nil
	}
}

// decodeRawRecords accepts either a JSON array of records or a single
// record object.
func decodeRawRecords(value []byte) ([]ltypes.RawRecord, error) {
	trimmed := bytes.TrimSpace(value)
	if len(trimmed) == 0 {
		return nil, errors.New(errors.ErrCodeIngestDecodeFailed, "empty message payload")
	}

	if trimmed[0] == '[' {
		var raws []ltypes.RawRecord
		if err := json.Unmarshal(trimmed, &raws); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeIngestDecodeFailed, "decoding record array")
		}
		return raws, nil
	}

	var raw ltypes.RawRecord
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeIngestDecodeFailed, "decoding record")
	}
	return []ltypes.RawRecord{raw}, nil
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	return config.LoadFromEnv()
}

func buildResolver(cfg config.CompactConfig) domain.NameResolver {
	if len(cfg.Jurisdictions) > 0 || len(cfg.LicenseTypes) > 0 {
		return domain.NewTableResolver(cfg.Jurisdictions, cfg.LicenseTypes)
	}
	return domain.DefaultResolver()
}

type checker struct {
	name  string
	check func(context.Context) error
}

func (c checker) Name() string                    { return c.name }
func (c checker) Check(ctx context.Context) error { return c.check(ctx) }
