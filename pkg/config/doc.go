// Package config loads typed configuration from environment variables.
//
// It wraps github.com/joho/godotenv for .env files and
// github.com/caarlos0/env/v11 for struct parsing. Every component of the
// gateway declares its own struct with env tags (quota.Config, redis.Config,
// mongo.Config, httpserver.Config) and loads it with Load or MustLoad:
//
//	var cfg redis.Config
//	config.MustLoad(&cfg)
//
// Each struct type is parsed once per process and served from a cache
// afterwards. ResetCache clears it between tests.
//
// Errors are sentinels (ErrParsingConfig, ErrInvalidConfigType, ErrNilPointer,
// ErrLoadingEnvFile) that can be matched with errors.Is.
package config
