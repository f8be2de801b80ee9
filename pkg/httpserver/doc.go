// Package httpserver runs the gateway's HTTP listener.
//
// Server wraps net/http with functional options (WithAddr, the timeout
// options, WithLogger, OnListen and OnDrained) and a Run method that blocks until
// the context is cancelled, then drains in-flight requests within the shutdown
// timeout. NewFromConfig builds a Server from HTTP_* environment variables.
//
//	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
//	defer stop()
//
//	srv := httpserver.NewFromConfig(cfg, httpserver.WithLogger(log))
//	if err := srv.Run(ctx, router); err != nil {
//		log.Error("server stopped", logger.Error(err))
//	}
//
// LivenessHandler and ReadinessHandler back the /healthz and /readyz probes;
// readiness runs one Check per configured backend.
//
// Run wraps listen errors with ErrStart and Shutdown wraps drain errors with
// ErrShutdown.
package httpserver
