// Package logger builds the gateway's *slog.Logger and names the attributes
// every component logs with.
//
// New takes functional options: WithEnvironment picks text at DEBUG for
// development and JSON at INFO for staging and production, and
// WithContextExtractors injects request-scoped values (request id, principal)
// into each record through LogHandlerDecorator.
//
//	log := logger.New(
//		logger.WithEnvironment(cfg.Env, cfg.AppName),
//		logger.WithContextExtractors(requestid.LoggerExtractor()),
//	)
//	logger.SetAsDefault(log)
//
//	log.InfoContext(ctx, "usage counter reset",
//		logger.UserID(userID),
//		logger.API(apiName),
//	)
//
// Attribute helpers (UserID, API, PlanID, Reason, Error and others) return an
// empty slog.Attr for nil or empty input, so callers never need a guard.
package logger
