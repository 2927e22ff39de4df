package licensing

import (
	"context"
	"time"

	domain "github.com/openregulatory/licensure/internal/domain/licensing"
	"github.com/openregulatory/licensure/internal/infrastructure/monitoring/logging"
	"github.com/openregulatory/licensure/pkg/errors"
	"github.com/openregulatory/licensure/pkg/types/common"
)

// reindexPageSize is the repository page size used while walking the store.
const reindexPageSize = 200

// Locker serializes reindex runs across replicas.  Satisfied by the redis
// distributed lock.
type Locker interface {
	Acquire(ctx context.Context) error
	Release(ctx context.Context) error
}

// PrefixInvalidator drops every cache entry under a key prefix once the
// index has been rebuilt.
type PrefixInvalidator interface {
	DeleteByPrefix(ctx context.Context, prefix string) error
}

// ReindexStats summarizes one rebuild pass.
type ReindexStats struct {
	Scanned int           `json:"scanned"`
	Indexed int           `json:"indexed"`
	Failed  int           `json:"failed"`
	Elapsed time.Duration `json:"elapsed"`
}

// Reindexer rebuilds the search index from the store, one jurisdiction at a
// time.  Used by the CLI after mapping changes or index loss.
type Reindexer struct {
	repo          domain.Repository
	index         domain.SearchIndex
	locker        Locker
	invalidator   PrefixInvalidator
	compact       string
	jurisdictions []string
	logger        logging.Logger
}

// ReindexOption customizes the Reindexer.
type ReindexOption func(*Reindexer)

// WithReindexLock serializes runs through the given lock.
func WithReindexLock(l Locker) ReindexOption {
	return func(r *Reindexer) { r.locker = l }
}

// WithCacheInvalidation drops cached licenses after the rebuild.
func WithCacheInvalidation(inv PrefixInvalidator) ReindexOption {
	return func(r *Reindexer) { r.invalidator = inv }
}

// NewReindexer builds a Reindexer covering the given compact jurisdictions.
func NewReindexer(repo domain.Repository, index domain.SearchIndex, compact string, jurisdictions []string, logger logging.Logger, opts ...ReindexOption) *Reindexer {
	r := &Reindexer{
		repo:          repo,
		index:         index,
		compact:       compact,
		jurisdictions: jurisdictions,
		logger:        logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run walks every jurisdiction and re-indexes each stored license.  A
// license that fails to index is counted and skipped; the walk continues so
// one bad document cannot abort the rebuild.
func (r *Reindexer) Run(ctx context.Context) (*ReindexStats, error) {
	if r.locker != nil {
		if err := r.locker.Acquire(ctx); err != nil {
			return nil, err
		}
		defer func() {
			if err := r.locker.Release(ctx); err != nil {
				r.logger.Warn("reindex lock release failed", logging.Err(err))
			}
		}()
	}

	if ensurer, ok := r.index.(interface{ EnsureIndex(context.Context) error }); ok {
		if err := ensurer.EnsureIndex(ctx); err != nil {
			return nil, err
		}
	}

	start := time.Now()
	stats := &ReindexStats{}

	for _, jurisdiction := range r.jurisdictions {
		if err := r.reindexJurisdiction(ctx, jurisdiction, stats); err != nil {
			return stats, err
		}
	}
	stats.Elapsed = time.Since(start)

	if r.invalidator != nil {
		if err := r.invalidator.DeleteByPrefix(ctx, "license:"); err != nil {
			r.logger.Warn("cache invalidation after reindex failed", logging.Err(err))
		}
	}

	r.logger.Info("reindex complete",
		logging.Int("scanned", stats.Scanned),
		logging.Int("indexed", stats.Indexed),
		logging.Int("failed", stats.Failed),
		logging.Duration("elapsed", stats.Elapsed))
	return stats, nil
}

func (r *Reindexer) reindexJurisdiction(ctx context.Context, jurisdiction string, stats *ReindexStats) error {
	for page := 1; ; page++ {
		lics, total, err := r.repo.FindByJurisdiction(ctx, r.compact, jurisdiction,
			common.Pagination{Page: page, PageSize: reindexPageSize})
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeDatabaseError, "walking licenses for reindex")
		}
		if len(lics) == 0 {
			return nil
		}

		for _, lic := range lics {
			stats.Scanned++
			if err := r.index.Index(ctx, lic); err != nil {
				stats.Failed++
				r.logger.Error("reindex of license failed",
					logging.String("license_id", lic.ID), logging.Err(err))
				continue
			}
			stats.Indexed++
		}

		if int64(page*reindexPageSize) >= total {
			return nil
		}
	}
}
