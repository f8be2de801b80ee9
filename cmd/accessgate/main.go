package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmitrymomot/accessgate/pkg/clientip"
	"github.com/dmitrymomot/accessgate/pkg/config"
	"github.com/dmitrymomot/accessgate/pkg/environment"
	"github.com/dmitrymomot/accessgate/pkg/httpserver"
	"github.com/dmitrymomot/accessgate/pkg/logger"
	"github.com/dmitrymomot/accessgate/pkg/quota"
	"github.com/dmitrymomot/accessgate/pkg/requestid"
	"github.com/dmitrymomot/accessgate/svc/access"
	"github.com/dmitrymomot/accessgate/svc/subscription"
)

type appConfig struct {
	Env              string        `env:"APP_ENV" envDefault:"development"`
	AppName          string        `env:"APP_NAME" envDefault:"accessgate"`
	UsageBackend     string        `env:"USAGE_BACKEND" envDefault:"memory"`    // memory, redis, postgres or mongo
	RegistryBackend  string        `env:"REGISTRY_BACKEND" envDefault:"memory"` // memory or mongo
	SeedFile         string        `env:"SEED_FILE"`
	Tokens           []string      `env:"ACCESS_TOKENS" envSeparator:"," envDefault:"admin-token:admin1:admin,user-token:user1:customer"` // token:user_id:role
	ReadinessTimeout time.Duration `env:"READINESS_TIMEOUT" envDefault:"2s"`
	LogLevel         string        `env:"LOG_LEVEL"`  // overrides the APP_ENV default when set
	LogFormat        string        `env:"LOG_FORMAT"` // json or text
}

// version is stamped at build time with -ldflags "-X main.version=...".
var version = "dev"

// loggerOptions turns the logging part of cfg into logger options. LOG_LEVEL
// and LOG_FORMAT are applied after APP_ENV so they win.
func loggerOptions(cfg appConfig) ([]logger.Option, error) {
	opts := []logger.Option{
		logger.WithEnvironment(cfg.Env, cfg.AppName),
		logger.WithAttr(slog.String("version", version)),
	}
	if cfg.LogLevel != "" {
		var lvl slog.Level
		if err := lvl.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
			return nil, fmt.Errorf("LOG_LEVEL: %w", err)
		}
		opts = append(opts, logger.WithLevel(lvl))
	}
	if cfg.LogFormat != "" {
		f, err := logger.ParseFormat(cfg.LogFormat)
		if err != nil {
			return nil, fmt.Errorf("LOG_FORMAT: %w", err)
		}
		opts = append(opts, logger.WithFormat(f))
	}
	return opts, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		slog.Error("accessgate stopped", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	var cfg appConfig
	if err := config.Load(&cfg); err != nil {
		return err
	}

	logOpts, err := loggerOptions(cfg)
	if err != nil {
		return err
	}
	log := logger.New(append(logOpts,
		logger.WithContextExtractors(
			requestid.LoggerExtractor(),
			clientip.LoggerExtractor(),
			access.LoggerExtractor(),
		),
	)...)
	logger.SetAsDefault(log)

	var quotaCfg quota.Config
	if err := config.Load(&quotaCfg); err != nil {
		return err
	}
	var httpCfg httpserver.Config
	if err := config.Load(&httpCfg); err != nil {
		return err
	}

	deps := &backends{log: log}
	defer deps.close()

	catalog, subs, err := deps.registry(ctx, cfg.RegistryBackend)
	if err != nil {
		return err
	}
	usage, err := deps.usage(ctx, cfg.UsageBackend)
	if err != nil {
		return err
	}

	if cfg.SeedFile != "" {
		seed, err := subscription.LoadSeedFile(cfg.SeedFile)
		if err != nil {
			return err
		}
		if err := seed.Apply(ctx, catalog, subs, subscription.WithSeedLogger(log)); err != nil {
			return err
		}
		log.InfoContext(ctx, "seed applied",
			slog.String("file", cfg.SeedFile),
			slog.Int("plans", len(seed.Plans)),
			slog.Int("subscriptions", len(seed.Subscriptions)),
		)
	} else if environment.Parse(cfg.Env).IsProduction() && cfg.RegistryBackend == backendMemory {
		return errors.New("SEED_FILE is required for the memory registry in production")
	}

	engine, err := quota.NewEngineFromConfig(quotaCfg,
		subscription.NewRegistry(subs, catalog, subscription.WithRegistryLogger(log.With(logger.Component("registry")))),
		usage,
		quota.WithLogger(log.With(logger.Component("quota"))),
	)
	if err != nil {
		return err
	}

	tokens, err := access.ParseStaticTokens(cfg.Tokens)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	facade := access.NewFacade(engine,
		access.WithLogger(log.With(logger.Component("access"))),
		access.WithMetrics(access.NewMetrics(reg)),
	)

	r := chi.NewRouter()
	r.Use(requestid.Middleware, clientip.Middleware)
	r.Get("/healthz", httpserver.LivenessHandler())
	r.Get("/readyz", httpserver.ReadinessHandler(log, cfg.ReadinessTimeout, deps.checks...))
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	r.Mount("/", access.Router(facade, tokens, log))

	log.InfoContext(ctx, "starting accessgate",
		logger.Backend(cfg.UsageBackend),
		slog.String("registry", cfg.RegistryBackend),
		slog.Duration("window", engine.Window()),
	)

	httpLog := log.With(logger.Component("http"))
	srv := httpserver.NewFromConfig(httpCfg,
		httpserver.WithLogger(httpLog),
		httpserver.OnListen(func(addr net.Addr) {
			httpLog.Info("accessgate ready", slog.String("addr", addr.String()))
		}),
		httpserver.OnDrained(func(took time.Duration) {
			httpLog.Info("in-flight requests drained", logger.Duration(took))
		}),
	)
	if err := srv.Run(ctx, r); err != nil {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}
