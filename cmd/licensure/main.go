// The licensure binary is the operator CLI: license status lookups, timeline
// inspection, and search-index maintenance.
package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	applicensing "github.com/openregulatory/licensure/internal/application/licensing"
	"github.com/openregulatory/licensure/internal/config"
	domain "github.com/openregulatory/licensure/internal/domain/licensing"
	"github.com/openregulatory/licensure/internal/infrastructure/database/postgres"
	"github.com/openregulatory/licensure/internal/infrastructure/database/postgres/repositories"
	"github.com/openregulatory/licensure/internal/infrastructure/database/redis"
	"github.com/openregulatory/licensure/internal/infrastructure/monitoring/logging"
	"github.com/openregulatory/licensure/internal/infrastructure/search/opensearch"
	"github.com/openregulatory/licensure/internal/interfaces/cli"
)

const reindexLockTTL = 10 * time.Minute

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// CLI logs go to stderr so stdout stays parseable.
	logger, err := logging.NewLogger(logging.LogConfig{
		Level:            cfg.Log.Level,
		Format:           "console",
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	})
	if err != nil {
		return err
	}

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer pool.Close()

	licenseRepo := repositories.NewLicenseRepository(pool.Pool(), logger)
	resolver := buildResolver(cfg.Compact)

	var licenseOpts []applicensing.Option
	var reindexOpts []applicensing.ReindexOption

	redisClient, err := redis.NewClient(cfg.Redis, logger)
	if err != nil {
		logger.Warn("redis unavailable, running uncached", logging.Err(err))
	} else {
		defer redisClient.Close()
		cache := redis.NewCache(redisClient, logger)
		licenseOpts = append(licenseOpts, applicensing.WithCache(cache))
		reindexOpts = append(reindexOpts,
			applicensing.WithReindexLock(redis.NewLock(redisClient, "reindex", reindexLockTTL)),
			applicensing.WithCacheInvalidation(prefixInvalidator{cache}))
	}

	var index domain.SearchIndex
	osClient, err := opensearch.NewClient(cfg.OpenSearch, logger)
	if err != nil {
		logger.Warn("opensearch unavailable, search and reindex disabled", logging.Err(err))
	} else {
		licIndex := opensearch.NewLicenseIndex(osClient, resolver, cfg.Compact.Name, logger)
		index = licIndex
		licenseOpts = append(licenseOpts, applicensing.WithSearchIndex(licIndex))
	}

	deps := &cli.Dependencies{
		Licenses: applicensing.NewService(licenseRepo, resolver, logger, licenseOpts...),
		Logger:   logger,
	}
	if index != nil {
		deps.Reindexer = applicensing.NewReindexer(licenseRepo, index,
			cfg.Compact.Name, jurisdictionKeys(cfg.Compact), logger, reindexOpts...)
	}

	return cli.NewRootCommand(deps).ExecuteContext(ctx)
}

// prefixInvalidator adapts redis.Cache's (count, error) DeleteByPrefix to the
// application's PrefixInvalidator interface, which only reports the error.
type prefixInvalidator struct {
	cache redis.Cache
}

func (p prefixInvalidator) DeleteByPrefix(ctx context.Context, prefix string) error {
	_, err := p.cache.DeleteByPrefix(ctx, prefix)
	return err
}

func loadConfig() (*config.Config, error) {
	// Infrastructure wiring happens before cobra parses any flags, so
	// the config file path comes from the environment.
	if path := os.Getenv("LICENSURE_CONFIG"); path != "" {
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

// jurisdictionKeys returns the configured member jurisdictions in stable
// order, falling back to the built-in tables.
func jurisdictionKeys(cfg config.CompactConfig) []string {
	table := cfg.Jurisdictions
	if len(table) == 0 {
		table = domain.DefaultResolver().Jurisdictions
	}
	keys := make([]string, 0, len(table))
	for k := range table {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
