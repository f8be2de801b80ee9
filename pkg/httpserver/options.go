package httpserver

import (
	"fmt"
	"log/slog"
	"net"
	"time"
)

// Option configures the HTTP server.
type Option func(*config)

func positive(name string, d time.Duration) {
	if d <= 0 {
		panic(fmt.Sprintf("httpserver: %s must be positive, got %s", name, d))
	}
}

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	if addr == "" {
		panic("httpserver: empty listen address")
	}
	return func(c *config) { c.addr = addr }
}

// WithReadHeaderTimeout bounds how long a client may take to send request
// headers. Token-bearing gateway calls are tiny, so this is the slowloris
// guard.
func WithReadHeaderTimeout(d time.Duration) Option {
	positive("read header timeout", d)
	return func(c *config) { c.readHeaderTimeout = d }
}

// WithReadTimeout bounds reading the whole request.
func WithReadTimeout(d time.Duration) Option {
	positive("read timeout", d)
	return func(c *config) { c.readTimeout = d }
}

// WithWriteTimeout bounds writing the response.
func WithWriteTimeout(d time.Duration) Option {
	positive("write timeout", d)
	return func(c *config) { c.writeTimeout = d }
}

// WithIdleTimeout bounds keep-alive idle time.
func WithIdleTimeout(d time.Duration) Option {
	positive("idle timeout", d)
	return func(c *config) { c.idleTimeout = d }
}

// WithShutdownTimeout bounds the drain of in-flight requests.
func WithShutdownTimeout(d time.Duration) Option {
	positive("shutdown timeout", d)
	return func(c *config) { c.shutdownTimeout = d }
}

// WithLogger sets the server logger. Nil discards output.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) { c.logger = l }
}

// OnListen runs fn once the listener is bound, with the resolved address.
// Useful when the configured port is 0.
func OnListen(fn func(addr net.Addr)) Option {
	if fn == nil {
		panic("httpserver: nil listen callback")
	}
	return func(c *config) { c.onListen = append(c.onListen, fn) }
}

// OnDrained runs fn after graceful shutdown finishes, with the time the
// drain took.
func OnDrained(fn func(took time.Duration)) Option {
	if fn == nil {
		panic("httpserver: nil drained callback")
	}
	return func(c *config) { c.onDrained = append(c.onDrained, fn) }
}
