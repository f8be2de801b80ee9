// Package access is the gateway's outward face: it runs the quota engine in
// front of a downstream call and translates decisions into HTTP.
//
// Facade stamps the current time, records the outcome in Prometheus metrics
// and logs denials. Invoke runs the downstream capability only when the
// decision allows it. StatusCode maps each denial reason to a fixed status:
//
//	no_subscription   402 Payment Required
//	permission_denied 403 Forbidden
//	limit_exceeded    429 Too Many Requests
//	store_unavailable 503 Service Unavailable
//
// Router exposes the demo downstream API at /cloudapi/{service} plus usage
// inspection and reset endpoints. Callers authenticate with a bearer token
// resolved by a PrincipalResolver; StaticTokens is a fixed token table.
package access
