// Package postgres implements internal/store.Store against PostgreSQL
// via pgx/v5, mirroring the teacher's internal/infrastructure
// postgres adapter: a pgxpool.Pool wrapped with the narrow methods
// the core actually needs.
package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/replane-dev/replane-sub002/internal/config"
)

// Adapter implements store.Store against a pgxpool.Pool.
type Adapter struct {
	pool *pgxpool.Pool
	log  *slog.Logger

	publishCleanupFrequency int
	consumerIdleTTL         time.Duration
	publishCount            uint64
}

// Open creates a connection pool per cfg and pings it before
// returning, failing fast on misconfiguration rather than on the
// first query.
func Open(ctx context.Context, cfg config.DatabaseConfig, hub config.EventHubConfig, log *slog.Logger) (*Adapter, error) {
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.Username, cfg.Password, cfg.Host, cfg.Port, cfg.Database, cfg.SSLMode)

	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing database dsn: %w", err)
	}
	poolCfg.MaxConns = cfg.MaxConnections
	poolCfg.MinConns = cfg.MinConnections
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime

	connectCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	if log == nil {
		log = slog.Default()
	}
	log.Info("connected to postgres", "host", cfg.Host, "database", cfg.Database, "max_conns", cfg.MaxConnections)

	return &Adapter{
		pool:                    pool,
		log:                     log,
		publishCleanupFrequency: hub.PublishCleanupFrequency,
		consumerIdleTTL:         hub.ConsumerIdleTTL,
	}, nil
}

// Close releases the pool.
func (a *Adapter) Close() {
	a.pool.Close()
}
