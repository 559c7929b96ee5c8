package bootstrap

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/AlibekovAA/examination-system/internal/common/config"
	"github.com/AlibekovAA/examination-system/internal/common/constants"
	"github.com/AlibekovAA/examination-system/internal/common/db"
	"github.com/AlibekovAA/examination-system/internal/common/logger"
)

type App struct {
	Log    *logger.Logger
	Config config.Config
	Pool   *pgxpool.Pool
	Redis  *redis.Client
}

// NewApp loads configuration and opens every shared connection. Any failure
// aborts startup.
func NewApp(ctx context.Context, serviceName string) (*App, error) {
	log, err := logger.New(os.Getenv("LOG_DIR"), serviceName, os.Getenv("LOG_LEVEL"))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		_ = log.Close()
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	pool, err := db.NewPool(ctx, log, cfg.DatabaseURL)
	if err != nil {
		_ = log.Close()
		return nil, err
	}

	if err := db.EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		_ = log.Close()
		return nil, err
	}
	db.StartPoolMetrics(ctx, pool, constants.DBPoolMetricsInterval)

	rdb, err := newRedisClient(ctx, cfg.Redis)
	if err != nil {
		pool.Close()
		_ = log.Close()
		return nil, err
	}
	log.Infof("redis client connected: addr=%s db=%d", cfg.Redis.Addr, cfg.Redis.DB)

	return &App{
		Log:    log,
		Config: cfg,
		Pool:   pool,
		Redis:  rdb,
	}, nil
}

func (a *App) Close() error {
	a.Pool.Close()
	if err := a.Redis.Close(); err != nil {
		a.Log.Errorf("failed to close redis client: %v", err)
	}
	return a.Log.Close()
}

func newRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}
	return rdb, nil
}
