package bootstrap

import (
	"context"
	"crypto/tls"
	"strings"

	"github.com/redis/go-redis/v9"

	appconfig "github.com/wolfman30/nagrik-sahayak/internal/config"
	"github.com/wolfman30/nagrik-sahayak/internal/drafts"
	"github.com/wolfman30/nagrik-sahayak/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// BuildDraftStore keeps drafts in Redis when a client is available and in
// process memory otherwise. The memory store only works for a single replica.
func BuildDraftStore(redisClient *redis.Client, cfg *appconfig.Config, logger *logging.Logger) drafts.Store {
	if logger == nil {
		logger = logging.Default()
	}
	ttl := drafts.DefaultTTL
	if cfg != nil && cfg.DraftTTL > 0 {
		ttl = cfg.DraftTTL
	}
	if redisClient == nil || (cfg != nil && cfg.UseMemoryStores) {
		logger.Warn("draft sessions kept in memory; run a single replica", "ttl", ttl)
		return drafts.NewMemoryStore(ttl)
	}
	return drafts.NewRedisStore(redisClient, ttl)
}
