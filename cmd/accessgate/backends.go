package main

import (
	"context"
	"fmt"
	"log/slog"

	mongodriver "go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/dmitrymomot/accessgate/pkg/config"
	"github.com/dmitrymomot/accessgate/pkg/httpserver"
	"github.com/dmitrymomot/accessgate/pkg/logger"
	"github.com/dmitrymomot/accessgate/pkg/mongo"
	"github.com/dmitrymomot/accessgate/pkg/pg"
	"github.com/dmitrymomot/accessgate/pkg/quota"
	"github.com/dmitrymomot/accessgate/pkg/quota/mongostore"
	"github.com/dmitrymomot/accessgate/pkg/quota/pgstore"
	"github.com/dmitrymomot/accessgate/pkg/quota/redisstore"
	"github.com/dmitrymomot/accessgate/pkg/redis"
	"github.com/dmitrymomot/accessgate/svc/subscription"
)

const (
	backendMemory   = "memory"
	backendRedis    = "redis"
	backendPostgres = "postgres"
	backendMongo    = "mongo"
)

// backends opens the configured stores and remembers how to probe and close
// them.
type backends struct {
	log     *slog.Logger
	mongoDB *mongodriver.Database
	checks  []httpserver.Check
	closers []func() error
}

// close releases backends in reverse order of opening and logs every failure
// in one record.
func (b *backends) close() {
	errs := make([]error, 0, len(b.closers))
	for i := len(b.closers) - 1; i >= 0; i-- {
		errs = append(errs, b.closers[i]())
	}
	if attr := logger.Errors(errs...); !attr.Equal(slog.Attr{}) {
		b.log.Error("closing backends", attr)
	}
}

func (b *backends) registry(ctx context.Context, kind string) (subscription.Catalog, subscription.Store, error) {
	switch kind {
	case backendMemory:
		return subscription.NewMemoryCatalog(), subscription.NewMemoryStore(), nil
	case backendMongo:
		db, err := b.mongo(ctx)
		if err != nil {
			return nil, nil, err
		}
		return subscription.NewMongoCatalog(db), subscription.NewMongoStore(db), nil
	default:
		return nil, nil, fmt.Errorf("unknown REGISTRY_BACKEND %q", kind)
	}
}

func (b *backends) usage(ctx context.Context, kind string) (quota.UsageStore, error) {
	switch kind {
	case backendMemory:
		return quota.NewMemoryStore(), nil

	case backendRedis:
		var cfg redis.Config
		if err := config.Load(&cfg); err != nil {
			return nil, err
		}
		client, err := redis.Connect(ctx, cfg)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, client.Close)
		b.checks = append(b.checks, httpserver.Check{Name: backendRedis, Probe: redis.Healthcheck(client)})
		return redisstore.New(client, redisstore.WithKeyPrefix(cfg.KeyPrefix)), nil

	case backendPostgres:
		var cfg pg.Config
		if err := config.Load(&cfg); err != nil {
			return nil, err
		}
		pool, err := pg.Connect(ctx, cfg)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, func() error { pool.Close(); return nil })
		if err := pg.Migrate(ctx, pool, pgstore.Migrations, pgstore.MigrationsDir, cfg, b.log.With(logger.Component("migrate"))); err != nil {
			return nil, err
		}
		b.checks = append(b.checks, httpserver.Check{Name: backendPostgres, Probe: pg.Healthcheck(pool)})
		return pgstore.New(pool), nil

	case backendMongo:
		db, err := b.mongo(ctx)
		if err != nil {
			return nil, err
		}
		return mongostore.New(db), nil

	default:
		return nil, fmt.Errorf("unknown USAGE_BACKEND %q", kind)
	}
}

// mongo connects once and shares the database between the registry and the
// usage store.
func (b *backends) mongo(ctx context.Context) (*mongodriver.Database, error) {
	if b.mongoDB != nil {
		return b.mongoDB, nil
	}
	var cfg mongo.Config
	if err := config.Load(&cfg); err != nil {
		return nil, err
	}
	db, err := mongo.NewWithDatabase(ctx, cfg, "")
	if err != nil {
		return nil, err
	}
	client := db.Client()
	b.closers = append(b.closers, func() error { return client.Disconnect(context.Background()) })
	b.checks = append(b.checks, httpserver.Check{Name: backendMongo, Probe: mongo.Healthcheck(client)})
	b.mongoDB = db
	return db, nil
}
