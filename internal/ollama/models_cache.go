package ollama

import (
	"sync"
	"time"

	"github.com/set-night/omegachat/internal/domain"
)

type ModelsCache struct {
	mu       sync.RWMutex
	models   []domain.ModelInfo
	cachedAt time.Time
	ttl      time.Duration
}

func NewModelsCache(ttl time.Duration) *ModelsCache {
	return &ModelsCache{ttl: ttl}
}

// Get returns a copy of the cached list, or nil when it is empty or stale.
func (c *ModelsCache) Get() []domain.ModelInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.models == nil || time.Since(c.cachedAt) > c.ttl {
		return nil
	}
	return append([]domain.ModelInfo(nil), c.models...)
}

func (c *ModelsCache) Set(models []domain.ModelInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.models = models
	c.cachedAt = time.Now()
}

func (c *ModelsCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.models = nil
}
