package bootstrap

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	appconfig "github.com/flowiq/scheduling-platform/internal/config"
	"github.com/flowiq/scheduling-platform/internal/tenancy"
	"github.com/flowiq/scheduling-platform/pkg/logging"
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
		return nil
	}
	return client
}

// BuildDBPool opens the Postgres connection pool backing slot and template
// storage.
func BuildDBPool(ctx context.Context, cfg *appconfig.Config) (*pgxpool.Pool, error) {
	if cfg == nil || strings.TrimSpace(cfg.DatabaseURL) == "" {
		return nil, fmt.Errorf("bootstrap: DATABASE_URL is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: open db pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("bootstrap: ping db: %w", err)
	}
	return pool, nil
}

// BuildTenantRegistry loads the tenant registry from TENANT_REGISTRY_JSON,
// falling back to the built-in clinic set.
func BuildTenantRegistry(cfg *appconfig.Config, logger *logging.Logger) (*tenancy.Registry, error) {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg == nil || strings.TrimSpace(cfg.TenantRegistryJSON) == "" {
		logger.Info("tenant registry: using built-in clinics")
		defaultID := "flowiq-default"
		if cfg != nil && cfg.DefaultTenantID != "" {
			defaultID = cfg.DefaultTenantID
		}
		return tenancy.DefaultRegistry(defaultID), nil
	}
	registry, err := tenancy.LoadRegistryJSON(cfg.TenantRegistryJSON)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: load tenant registry: %w", err)
	}
	logger.Info("tenant registry loaded", "source", "TENANT_REGISTRY_JSON")
	return registry, nil
}
