package access

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dmitrymomot/accessgate/pkg/rbac"
)

// Principal is the authenticated caller.
type Principal struct {
	UserID string
	Role   rbac.Role
}

// PrincipalResolver maps a bearer token to a Principal.
type PrincipalResolver interface {
	Resolve(ctx context.Context, token string) (Principal, error)
}

// StaticTokens is a fixed token table.
type StaticTokens map[string]Principal

var _ PrincipalResolver = StaticTokens(nil)

// Resolve returns ErrUnknownToken for tokens not in the table.
func (t StaticTokens) Resolve(_ context.Context, token string) (Principal, error) {
	p, ok := t[token]
	if !ok {
		return Principal{}, ErrUnknownToken
	}
	return p, nil
}

// ParseStaticTokens builds a table from "token:user_id:role" entries.
// Roles must be valid rbac roles and tokens unique.
func ParseStaticTokens(entries []string) (StaticTokens, error) {
	out := make(StaticTokens, len(entries))
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.Split(entry, ":")
		if len(parts) != 3 || parts[0] == "" || parts[1] == "" {
			return nil, fmt.Errorf("%w: want token:user_id:role", ErrInvalidToken)
		}
		role, err := rbac.ParseRole(parts[2])
		if err != nil {
			return nil, fmt.Errorf("%w: role %q: %w", ErrInvalidToken, parts[2], err)
		}
		if _, dup := out[parts[0]]; dup {
			return nil, fmt.Errorf("%w: duplicate token for user %q", ErrInvalidToken, parts[1])
		}
		out[parts[0]] = Principal{UserID: parts[1], Role: role}
	}
	return out, nil
}

// bearerToken reads the Authorization header. The "Bearer " prefix is
// optional.
func bearerToken(r *http.Request) string {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		h = strings.TrimSpace(h[7:])
	}
	return h
}

type principalCtxKey struct{}

// WithPrincipal stores p in ctx along with its role.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	ctx = rbac.WithRole(ctx, p.Role)
	return context.WithValue(ctx, principalCtxKey{}, p)
}

// PrincipalFromContext returns the caller set by the authentication middleware.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalCtxKey{}).(Principal)
	return p, ok
}

// LoggerExtractor adds the caller's id as "principal" to log records.
func LoggerExtractor() func(ctx context.Context) (slog.Attr, bool) {
	return func(ctx context.Context) (slog.Attr, bool) {
		if p, ok := PrincipalFromContext(ctx); ok {
			return slog.String("principal", p.UserID), true
		}
		return slog.Attr{}, false
	}
}
