// Package opensearch maintains the licensee search index and serves the
// staff search queries over it.
package opensearch

import (
	"context"
	"crypto/tls"
	"net/http"

	"github.com/opensearch-project/opensearch-go/v2"

	"github.com/openregulatory/licensure/internal/config"
	"github.com/openregulatory/licensure/internal/infrastructure/monitoring/logging"
	"github.com/openregulatory/licensure/pkg/errors"
)

// Client wraps the OpenSearch connection.
type Client struct {
	client *opensearch.Client
	logger logging.Logger
}

// NewClient connects to the cluster and verifies it with a ping.
func NewClient(cfg config.OpenSearchConfig, log logging.Logger) (*Client, error) {
	if len(cfg.Addresses) == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "opensearch addresses are required")
	}

	transport := &http.Transport{}
	if cfg.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	osClient, err := opensearch.NewClient(opensearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.User,
		Password:  cfg.Password,
		Transport: transport,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSearchError, "creating opensearch client")
	}

	c := &Client{client: osClient, logger: log}
	if err := c.Ping(context.Background()); err != nil {
		return nil, err
	}

	log.Info("connected to opensearch", logging.Int("nodes", len(cfg.Addresses)))
	return c, nil
}

// newClientWithBackend wires a pre-built opensearch client; used by tests
// with a stub transport.
func newClientWithBackend(osClient *opensearch.Client, log logging.Logger) *Client {
	return &Client{client: osClient, logger: log}
}

// Ping checks cluster reachability for health endpoints.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.client.Ping(c.client.Ping.WithContext(ctx))
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSearchError, "opensearch ping failed")
	}
	defer resp.Body.Close()

	if resp.IsError() {
		return errors.Newf(errors.ErrCodeSearchError, "opensearch ping returned status %d", resp.StatusCode)
	}
	return nil
}
