package cache

import (
	"context"
	"time"

	"github.com/ai-charchat-go/internal/config"
	"github.com/ai-charchat-go/internal/middleware"
	"github.com/ai-charchat-go/internal/models"
	"github.com/ai-charchat-go/internal/services/api"
	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
)

// Characters resolves characters by id, keeping recently fetched ones.
type Characters interface {
	Get(ctx context.Context, id models.ID) (*models.Character, error)
	Put(character *models.Character)
	Invalidate(id models.ID)
	Clear()
}

type entry struct {
	character models.Character
	fetchedAt time.Time
}

// CharacterCache fronts api.Service.GetCharacter. Failed lookups are not
// cached.
type CharacterCache struct {
	enabled bool
	api     api.Service
	cache   *cache.Cache
	metrics *middleware.Metrics
	logger  *logrus.Logger
	maxSize int
}

// NewCharacterCache creates a character cache. A disabled cache passes every
// lookup through to the API.
func NewCharacterCache(cfg *config.Config, svc api.Service, metrics *middleware.Metrics, logger *logrus.Logger) *CharacterCache {
	c := &CharacterCache{
		enabled: cfg.Cache.Enabled,
		api:     svc,
		metrics: metrics,
		logger:  logger,
		maxSize: cfg.Cache.MaxSize,
	}
	if c.enabled {
		c.cache = cache.New(cfg.Cache.TTL, cfg.Cache.TTL*2)
	}
	return c
}

// Get returns a copy of the cached character or fetches it.
func (c *CharacterCache) Get(ctx context.Context, id models.ID) (*models.Character, error) {
	if c.enabled {
		if val, found := c.cache.Get(id.String()); found {
			e := val.(*entry)
			c.logger.WithFields(logrus.Fields{
				"character_id": id,
				"age":          time.Since(e.fetchedAt),
			}).Debug("Cache hit")
			if c.metrics != nil {
				c.metrics.RecordCacheHit()
			}
			character := e.character
			return &character, nil
		}
		if c.metrics != nil {
			c.metrics.RecordCacheMiss()
		}
	}

	character, err := c.api.GetCharacter(ctx, id)
	if err != nil {
		return nil, err
	}
	c.Put(character)
	return character, nil
}

// Put stores character, e.g. after a create or update.
func (c *CharacterCache) Put(character *models.Character) {
	if !c.enabled || character == nil || character.ID == "" {
		return
	}

	if c.maxSize > 0 && c.cache.ItemCount() >= c.maxSize {
		c.logger.Warn("Cache size limit reached, clearing old entries")
		c.cache.DeleteExpired()
		if c.cache.ItemCount() >= c.maxSize {
			c.cache.Flush()
		}
	}

	c.cache.SetDefault(character.ID.String(), &entry{character: *character, fetchedAt: time.Now()})
}

// Invalidate drops id, e.g. after a delete.
func (c *CharacterCache) Invalidate(id models.ID) {
	if !c.enabled {
		return
	}
	c.cache.Delete(id.String())
}

// Clear removes all cached entries
func (c *CharacterCache) Clear() {
	if !c.enabled {
		return
	}
	c.cache.Flush()
	c.logger.Info("Cache cleared")
}

var _ Characters = (*CharacterCache)(nil)
