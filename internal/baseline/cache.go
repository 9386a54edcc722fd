package baseline

import (
	"time"

	"github.com/google/uuid"
	cache "github.com/patrickmn/go-cache"

	"github.com/yourusername/runbattle/internal/models"
)

// baselineCache is an in-memory TTL cache for fetched baselines. A
// baseline never changes once recorded, so the TTL only bounds memory.
type baselineCache struct {
	cache *cache.Cache
}

func newBaselineCache(ttl time.Duration) *baselineCache {
	return &baselineCache{
		cache: cache.New(ttl, ttl*2),
	}
}

func (bc *baselineCache) Get(runID uuid.UUID) *models.GhostBaseline {
	if cached, found := bc.cache.Get(runID.String()); found {
		if baseline, ok := cached.(*models.GhostBaseline); ok {
			return baseline
		}
	}
	return nil
}

func (bc *baselineCache) Set(runID uuid.UUID, baseline *models.GhostBaseline) {
	bc.cache.SetDefault(runID.String(), baseline)
}

func (bc *baselineCache) Clear() {
	bc.cache.Flush()
}
