package access

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/accessgate/pkg/logger"
	"github.com/dmitrymomot/accessgate/pkg/quota"
	"github.com/dmitrymomot/accessgate/pkg/rbac"
)

// Rate limit response headers.
const (
	HeaderLimit      = "X-RateLimit-Limit"
	HeaderRemaining  = "X-RateLimit-Remaining"
	HeaderReset      = "X-RateLimit-Reset"
	HeaderRetryAfter = "Retry-After"
)

// ServiceResult is what the demo downstream API returns.
type ServiceResult struct {
	Service string `json:"service"`
	Status  string `json:"status"`
}

// UsageView is the usage endpoint's representation of a counter.
type UsageView struct {
	UserID      string    `json:"user_id"`
	APIName     string    `json:"api_name"`
	Count       int64     `json:"count"`
	WindowStart time.Time `json:"window_start"`
	ResetAt     time.Time `json:"reset_at"`
}

type handlers struct {
	facade *Facade
	log    *slog.Logger
}

// Router serves the metered demo API and the usage endpoints. Every route
// requires a bearer token known to principals.
//
//	GET    /cloudapi/{service}
//	GET    /usage/{userID}/{api}
//	DELETE /usage/{userID}/{api}
func Router(facade *Facade, principals PrincipalResolver, log *slog.Logger) chi.Router {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	h := &handlers{facade: facade, log: log}

	r := chi.NewRouter()
	r.Use(authenticate(principals))
	r.Get("/cloudapi/{service}", h.invokeService)
	r.Get("/usage/{userID}/{api}", h.getUsage)
	r.Delete("/usage/{userID}/{api}", h.resetUsage)
	return r
}

func authenticate(principals PrincipalResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				w.Header().Set("WWW-Authenticate", "Bearer")
				writeError(w, http.StatusUnauthorized, "missing_token")
				return
			}
			p, err := principals.Resolve(r.Context(), token)
			if err != nil {
				w.Header().Set("WWW-Authenticate", "Bearer")
				writeError(w, http.StatusUnauthorized, "invalid_token")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

func (h *handlers) invokeService(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFromContext(r.Context())
	if err := rbac.Can(p.Role, rbac.InvokeAPI); err != nil {
		h.forbid(w, r, p, rbac.InvokeAPI, err)
		return
	}

	service := chi.URLParam(r, "service")
	res, d, err := h.facade.Invoke(r.Context(), p.UserID, service, func(context.Context) (any, error) {
		return ServiceResult{Service: service, Status: "OK"}, nil
	})
	setRateLimitHeaders(w, d, h.facade.now())

	if errors.Is(err, ErrDenied) {
		writeError(w, StatusCode(d.Reason), d.Reason.String())
		return
	}
	if err != nil {
		h.log.ErrorContext(r.Context(), "downstream call failed",
			logger.API(service),
			logger.Error(err),
		)
		writeError(w, http.StatusBadGateway, "downstream_error")
		return
	}
	writeData(w, http.StatusOK, res)
}

func (h *handlers) getUsage(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFromContext(r.Context())
	userID, api := chi.URLParam(r, "userID"), chi.URLParam(r, "api")

	capability := rbac.ReadAnyUsage
	if p.UserID == userID {
		capability = rbac.ReadOwnUsage
	}
	if err := rbac.Can(p.Role, capability); err != nil {
		h.forbid(w, r, p, capability, err)
		return
	}

	c, err := h.facade.Usage(r.Context(), userID, api)
	if !h.usageOK(w, r, err) {
		return
	}
	writeData(w, http.StatusOK, UsageView{
		UserID:      c.UserID,
		APIName:     c.APIName,
		Count:       c.Count,
		WindowStart: c.WindowStart,
		ResetAt:     c.ResetAt(h.facade.Window()),
	})
}

func (h *handlers) resetUsage(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFromContext(r.Context())
	if err := rbac.Can(p.Role, rbac.ResetUsage); err != nil {
		h.forbid(w, r, p, rbac.ResetUsage, err)
		return
	}

	err := h.facade.ResetUsage(r.Context(), chi.URLParam(r, "userID"), chi.URLParam(r, "api"))
	if !h.usageOK(w, r, err) {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) forbid(w http.ResponseWriter, r *http.Request, p Principal, c rbac.Capability, err error) {
	h.log.WarnContext(r.Context(), "capability denied",
		logger.UserID(p.UserID),
		logger.Role(p.Role),
		slog.String("capability", string(c)),
		logger.Error(err),
	)
	writeError(w, http.StatusForbidden, "forbidden")
}

// usageOK writes the error response for err and reports whether err was nil.
func (h *handlers) usageOK(w http.ResponseWriter, r *http.Request, err error) bool {
	switch {
	case err == nil:
		return true
	case errors.Is(err, quota.ErrCounterNotFound):
		writeError(w, http.StatusNotFound, "usage_not_found")
	default:
		h.log.ErrorContext(r.Context(), "usage store failed", logger.Error(err))
		w.Header().Set(HeaderRetryAfter, "1")
		writeError(w, http.StatusServiceUnavailable, quota.ReasonStoreUnavailable.String())
	}
	return false
}

func setRateLimitHeaders(w http.ResponseWriter, d quota.Decision, now time.Time) {
	switch d.Reason {
	case quota.ReasonStoreUnavailable:
		w.Header().Set(HeaderRetryAfter, "1")
		return
	case quota.ReasonNoSubscription, quota.ReasonPermissionDenied:
		return
	}
	if d.ResetAt.IsZero() {
		return
	}

	if !d.Unbounded() {
		w.Header().Set(HeaderLimit, strconv.FormatInt(d.Limit, 10))
		w.Header().Set(HeaderRemaining, strconv.FormatInt(d.Remaining, 10))
	}
	w.Header().Set(HeaderReset, strconv.FormatInt(d.ResetAt.Unix(), 10))

	if d.Reason == quota.ReasonLimitExceeded {
		secs := math.Ceil(d.ResetAt.Sub(now).Seconds())
		w.Header().Set(HeaderRetryAfter, strconv.FormatInt(int64(max(secs, 1)), 10))
	}
}
