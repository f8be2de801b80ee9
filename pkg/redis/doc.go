// Package redis connects to the Redis server backing the redis usage store.
//
// Connect retries the initial ping using Config, which is populated from
// REDIS_* environment variables. Healthcheck plugs the client into the
// server's readiness probe.
//
//	var cfg redis.Config
//	config.MustLoad(&cfg)
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
//	usage := redisstore.New(client, redisstore.WithKeyPrefix(cfg.KeyPrefix))
//
// Errors are sentinels joined with the driver error, so errors.Is works on
// both.
package redis
