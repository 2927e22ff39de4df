package cli

import (
	"context"

	applicensing "github.com/openregulatory/licensure/internal/application/licensing"
	"github.com/openregulatory/licensure/internal/infrastructure/monitoring/logging"
)

// ReindexRunner rebuilds the search index.  Satisfied by
// applicensing.Reindexer; the indirection keeps command tests free of
// storage wiring.
type ReindexRunner interface {
	Run(ctx context.Context) (*applicensing.ReindexStats, error)
}

// Dependencies carries the services the subcommands operate on.  main wires
// them after infrastructure startup.
type Dependencies struct {
	Licenses  applicensing.Service
	Reindexer ReindexRunner
	Logger    logging.Logger
}
