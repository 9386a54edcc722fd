package baseline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/runbattle/internal/config"
	"github.com/yourusername/runbattle/internal/models"
)

// CachedClient wraps Client with baseline caching. It implements
// race.BaselineFetcher.
type CachedClient struct {
	client *Client
	cache  *baselineCache
	logger *logrus.Logger
}

func NewCachedClient(cfg *config.BaselineConfig, logger *logrus.Logger) *CachedClient {
	return &CachedClient{
		client: NewClient(cfg, logger),
		cache:  newBaselineCache(time.Duration(cfg.CacheTTLSeconds) * time.Second),
		logger: logger,
	}
}

// FetchBaseline retrieves a baseline, serving repeat lookups from cache.
func (c *CachedClient) FetchBaseline(ctx context.Context, runID uuid.UUID) (*models.GhostBaseline, error) {
	if cached := c.cache.Get(runID); cached != nil {
		c.logger.WithField("run_id", runID).Debug("Cache hit for baseline")
		return cached, nil
	}

	baseline, err := c.client.FetchBaseline(ctx, runID)
	if err != nil {
		return nil, err
	}

	c.cache.Set(runID, baseline)
	return baseline, nil
}

// ClearCache drops all cached baselines.
func (c *CachedClient) ClearCache() {
	c.cache.Clear()
}
