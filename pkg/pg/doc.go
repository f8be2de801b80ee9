// Package pg connects the gateway to PostgreSQL through a pgx/v5 pool and
// applies embedded goose migrations.
//
// It is used when usage counters are kept in PostgreSQL (USAGE_BACKEND=postgres).
//
//	var cfg pg.Config
//	config.MustLoad(&cfg)
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, pgstore.Migrations, pgstore.MigrationsDir, cfg, log); err != nil {
//		return err
//	}
//
// Healthcheck returns a probe for httpserver.ReadinessHandler.
package pg
