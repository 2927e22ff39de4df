// The apiserver binary serves the REST API: license and provider reads,
// licensee search, and the health and metrics endpoints.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	applicensing "github.com/openregulatory/licensure/internal/application/licensing"
	appprovider "github.com/openregulatory/licensure/internal/application/provider"
	"github.com/openregulatory/licensure/internal/config"
	domain "github.com/openregulatory/licensure/internal/domain/licensing"
	"github.com/openregulatory/licensure/internal/infrastructure/database/postgres"
	"github.com/openregulatory/licensure/internal/infrastructure/database/postgres/repositories"
	"github.com/openregulatory/licensure/internal/infrastructure/database/redis"
	"github.com/openregulatory/licensure/internal/infrastructure/monitoring/logging"
	"github.com/openregulatory/licensure/internal/infrastructure/monitoring/prometheus"
	"github.com/openregulatory/licensure/internal/infrastructure/search/opensearch"
	httpserver "github.com/openregulatory/licensure/internal/interfaces/http"
	"github.com/openregulatory/licensure/internal/interfaces/http/handlers"
	"github.com/openregulatory/licensure/internal/interfaces/http/middleware"
)

const rateLimitPerMinute = 300

func main() {
	configPath := flag.String("config", "", "config file path (default: environment-only)")
	migrationsDir := flag.String("migrations", "", "run migrations from this directory before serving")
	flag.Parse()

	if err := run(*configPath, *migrationsDir); err != nil {
		fmt.Fprintf(os.Stderr, "apiserver: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, migrationsDir string) error {
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
	logger = logger.Named("apiserver")
	logging.SetDefault(logger)

	if migrationsDir != "" {
		if err := postgres.NewMigrator(cfg.Database, logger).Up(migrationsDir); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer pool.Close()

	licenseRepo := repositories.NewLicenseRepository(pool.Pool(), logger)
	providerRepo := repositories.NewProviderRepository(pool.Pool(), licenseRepo, logger)
	resolver := buildResolver(cfg.Compact)

	checkers := []handlers.ComponentChecker{checker{"postgres", pool.HealthCheck}}
	var licenseOpts []applicensing.Option

	redisClient, err := redis.NewClient(cfg.Redis, logger)
	if err != nil {
		logger.Warn("redis unavailable, serving without cache", logging.Err(err))
	} else {
		defer redisClient.Close()
		licenseOpts = append(licenseOpts, applicensing.WithCache(redis.NewCache(redisClient, logger)))
		checkers = append(checkers, checker{"redis", redisClient.Ping})
	}

	osClient, err := opensearch.NewClient(cfg.OpenSearch, logger)
	if err != nil {
		logger.Warn("opensearch unavailable, search disabled", logging.Err(err))
	} else {
		index := opensearch.NewLicenseIndex(osClient, resolver, cfg.Compact.Name, logger)
		licenseOpts = append(licenseOpts, applicensing.WithSearchIndex(index))
		checkers = append(checkers, checker{"opensearch", osClient.Ping})
	}

	licenseService := applicensing.NewService(licenseRepo, resolver, logger, licenseOpts...)
	providerService := appprovider.NewService(providerRepo, resolver, logger)

	collector := prometheus.NewCollector()
	metrics := prometheus.NewAppMetrics(collector)

	router := httpserver.NewRouter(httpserver.RouterConfig{
		LicenseHandler:  handlers.NewLicenseHandler(licenseService, logger),
		ProviderHandler: handlers.NewProviderHandler(providerService, logger),
		HealthHandler:   handlers.NewHealthHandler(logger, checkers...),
		MetricsHandler:  collector.Handler(),
		RequestObserver: metrics,
		RateLimiter:     middleware.NewRateLimiter(rateLimitPerMinute, time.Minute),
		Server:          cfg.Server,
		Logger:          logger,
	})

	server := httpserver.NewServer(cfg.Server, router, logger)
	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	return server.Shutdown(context.Background())
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	return config.LoadFromEnv()
}

// buildResolver prefers the deployment's configured display tables, falling
// back to the built-in compact tables.
func buildResolver(cfg config.CompactConfig) domain.NameResolver {
	if len(cfg.Jurisdictions) > 0 || len(cfg.LicenseTypes) > 0 {
		return domain.NewTableResolver(cfg.Jurisdictions, cfg.LicenseTypes)
	}
	return domain.DefaultResolver()
}

// checker adapts a ping func to the health handler contract.
type checker struct {
	name  string
	check func(context.Context) error
}

func (c checker) Name() string                    { return c.name }
func (c checker) Check(ctx context.Context) error { return c.check(ctx) }
