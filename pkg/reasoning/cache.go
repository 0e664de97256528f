package reasoning

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/clinical-reasoning-server/internal/domain"
)

// OpinionCache is a two-tier cache for reasoning collaborator responses:
// an in-process LRU in front of an optional shared Redis tier. Keys cover
// the full encounter payload and the council seat, so a cache hit replays
// exactly the opinion that seat would have received.
type OpinionCache struct {
	logger     *logrus.Logger
	memory     *lru.Cache
	redis      *redis.Client
	defaultTTL time.Duration
}

// NewOpinionCache creates the cache. redisClient may be nil for a purely
// in-process cache.
func NewOpinionCache(size int, redisClient *redis.Client, ttl time.Duration, logger *logrus.Logger) (*OpinionCache, error) {
	if size <= 0 {
		size = 256
	}
	memory, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("failed to create memory cache: %w", err)
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &OpinionCache{
		logger:     logger,
		memory:     memory,
		redis:      redisClient,
		defaultTTL: ttl,
	}, nil
}

// NewRedisClient builds the shared cache tier from configuration and
// verifies connectivity before use.
func NewRedisClient(cfg *domain.CacheConfig) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	opts.PoolSize = cfg.PoolSize
	opts.PoolTimeout = cfg.PoolTimeout
	opts.MaxRetries = cfg.MaxRetries

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

type cachedOpinion struct {
	Opinion   *domain.DiagnosticOpinion `json:"opinion"`
	CachedAt  time.Time                 `json:"cached_at"`
	ExpiresAt time.Time                 `json:"expires_at"`
}

// Get returns a cached opinion for the encounter and seat, checking the
// memory tier before Redis. Redis errors degrade to a miss.
func (c *OpinionCache) Get(ctx context.Context, encounter *domain.EncounterCase, seat int) (*domain.DiagnosticOpinion, bool) {
	key := c.cacheKey(encounter, seat)

	if val, ok := c.memory.Get(key); ok {
		cached := val.(*cachedOpinion)
		if time.Now().Before(cached.ExpiresAt) {
			return cached.Opinion, true
		}
		c.memory.Remove(key)
	}

	if c.redis == nil {
		return nil, false
	}

	val, err := c.redis.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		c.logger.WithError(err).Debug("Opinion cache read failed, treating as miss")
		return nil, false
	}

	var cached cachedOpinion
	if err := json.Unmarshal([]byte(val), &cached); err != nil {
		c.redis.Del(ctx, key)
		return nil, false
	}
	if time.Now().After(cached.ExpiresAt) {
		c.redis.Del(ctx, key)
		return nil, false
	}

	c.memory.Add(key, &cached)
	return cached.Opinion, true
}

// Set stores an opinion in both tiers.
func (c *OpinionCache) Set(ctx context.Context, encounter *domain.EncounterCase, seat int, opinion *domain.DiagnosticOpinion) {
	key := c.cacheKey(encounter, seat)
	cached := &cachedOpinion{
		Opinion:   opinion,
		CachedAt:  time.Now(),
		ExpiresAt: time.Now().Add(c.defaultTTL),
	}

	c.memory.Add(key, cached)

	if c.redis == nil {
		return
	}
	data, err := json.Marshal(cached)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, key, data, c.defaultTTL).Err(); err != nil {
		c.logger.WithError(err).Debug("Opinion cache write failed")
	}
}

func (c *OpinionCache) cacheKey(encounter *domain.EncounterCase, seat int) string {
	payload, _ := json.Marshal(encounter)
	sum := sha256.Sum256(payload)
	return fmt.Sprintf("reasoning:opinion:%x:%d", sum[:16], seat)
}

// CachingGenerator wraps another generator with the opinion cache. Caching
// only applies to remote backends; the local generator is already cheap and
// deterministic.
type CachingGenerator struct {
	inner domain.OpinionGenerator
	cache *OpinionCache
}

// NewCachingGenerator wraps a generator with the cache
func NewCachingGenerator(inner domain.OpinionGenerator, cache *OpinionCache) *CachingGenerator {
	return &CachingGenerator{inner: inner, cache: cache}
}

// Name identifies the wrapped backend.
func (g *CachingGenerator) Name() string {
	return g.inner.Name() + "+cache"
}

// GenerateOpinion serves from cache when possible, otherwise delegates and
// stores the fresh opinion.
func (g *CachingGenerator) GenerateOpinion(ctx context.Context, encounter *domain.EncounterCase, seat int) (*domain.DiagnosticOpinion, error) {
	if opinion, ok := g.cache.Get(ctx, encounter, seat); ok {
		return opinion, nil
	}
	opinion, err := g.inner.GenerateOpinion(ctx, encounter, seat)
	if err != nil {
		return nil, err
	}
	g.cache.Set(ctx, encounter, seat, opinion)
	return opinion, nil
}
