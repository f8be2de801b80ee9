// Package requestid tags every gateway request with a correlation id.
//
// Middleware reuses a client-supplied X-Request-ID when it is made of letters,
// digits, '-' and '_' (at most 128 bytes) and otherwise generates a UUID. The id
// is echoed in the response header and stored in the request context, where
// LoggerExtractor picks it up for structured logs.
package requestid
