package bootstrap

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/GoSim-25-26J-441/grant-registry-backend/config"
	httpapi "github.com/GoSim-25-26J-441/grant-registry-backend/internal/api/http"
	"github.com/GoSim-25-26J-441/grant-registry-backend/internal/grants/repository"
	"github.com/GoSim-25-26J-441/grant-registry-backend/internal/storage/postgres"
)

// Backends holds the registry store and the connections behind it.
type Backends struct {
	Store  repository.Store
	Pool   *pgxpool.Pool
	SQL    *sql.DB
	Redis  *redis.Client
	Events *repository.RedisEventBus
}

// OpenBackends connects to whatever STORE_DRIVER and EVENTS_ENABLED need.
// The postgres schema is applied before the store is handed out.
func OpenBackends(ctx context.Context, cfg *config.Config) (*Backends, error) {
	b := &Backends{}

	if cfg.NeedsRedis() {
		client, err := OpenRedis(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		b.Redis = client
		if cfg.Registry.EventsEnabled {
			b.Events = repository.NewRedisEventBus(client)
		}
	}

	switch cfg.Registry.StoreDriver {
	case config.StoreMemory:
		b.Store = repository.NewMemoryStore()

	case config.StoreRedis:
		b.Store = repository.NewRedisStore(b.Redis)

	case config.StorePostgres:
		pool, err := OpenDB(ctx, DBOptions{
			DSN:      postgres.DSN(&cfg.Database),
			MaxConns: int32(cfg.Database.MaxConns),
			MinConns: int32(cfg.Database.MinConns),
		})
		if err != nil {
			b.Close()
			return nil, err
		}
		b.Pool = pool
		b.SQL = postgres.FromPool(pool)

		if err := postgres.Migrate(ctx, b.SQL); err != nil {
			b.Close()
			return nil, fmt.Errorf("apply schema: %w", err)
		}
		b.Store = repository.NewPostgresStore(b.SQL)

	default:
		b.Close()
		return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.Registry.StoreDriver)
	}

	return b, nil
}

// HealthChecks lists a ping check for every open connection.
func (b *Backends) HealthChecks() []httpapi.Check {
	var checks []httpapi.Check
	if b.Pool != nil {
		checks = append(checks, httpapi.Check{Name: "db", Ping: b.Pool.Ping})
	}
	if b.Redis != nil {
		client := b.Redis
		checks = append(checks, httpapi.Check{Name: "redis", Ping: func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		}})
	}
	return checks
}

func (b *Backends) Close() {
	if b.SQL != nil {
		b.SQL.Close()
	}
	if b.Pool != nil {
		b.Pool.Close()
	}
	if b.Redis != nil {
		b.Redis.Close()
	}
}
