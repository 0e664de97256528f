package reasoning

import (
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/clinical-reasoning-server/internal/domain"
	"github.com/clinical-reasoning-server/internal/knowledge"
)

// NewGenerator builds the opinion generator selected by configuration. The
// http backend is wrapped with the opinion cache; when the shared cache is
// enabled a Redis tier is attached, otherwise the in-process LRU stands
// alone. The local backend is cheap and deterministic and runs uncached.
func NewGenerator(cfg *domain.Config, tables *knowledge.Tables, logger *logrus.Logger) (domain.OpinionGenerator, error) {
	switch cfg.Reasoning.Backend {
	case "local":
		return NewLocalGenerator(tables, logger), nil

	case "http":
		generator := NewHTTPGenerator(&cfg.Reasoning, logger)

		var redisClient *redis.Client
		if cfg.Cache.Enabled {
			client, err := NewRedisClient(&cfg.Cache)
			if err != nil {
				return nil, domain.NewPipelineError(domain.ErrConfiguration, "reasoning", "failed to connect shared opinion cache").WithCause(err)
			}
			redisClient = client
		}

		cache, err := NewOpinionCache(cfg.Reasoning.CacheSize, redisClient, cfg.Cache.DefaultTTL, logger)
		if err != nil {
			return nil, domain.NewPipelineError(domain.ErrConfiguration, "reasoning", "failed to create opinion cache").WithCause(err)
		}
		return NewCachingGenerator(generator, cache), nil

	default:
		return nil, domain.NewPipelineError(domain.ErrConfiguration, "reasoning", fmt.Sprintf("unknown backend %q", cfg.Reasoning.Backend))
	}
}
