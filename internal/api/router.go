package api

import (
	"net"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/wonny/tradepress/internal/api/handlers"
	"github.com/wonny/tradepress/pkg/logger"
	"github.com/wonny/tradepress/pkg/metrics"
	"github.com/wonny/tradepress/pkg/redis"
)

// Handlers groups the endpoint handlers mounted by NewRouter
type Handlers struct {
	Health       *handlers.HealthHandler
	Directives   *handlers.DirectiveHandler
	Scoring      *handlers.ScoringHandler
	Capabilities *handlers.CapabilityHandler
}

// RouterOptions carries the cross-cutting pieces of the router
type RouterOptions struct {
	Logger         *logger.Logger
	Metrics        *metrics.Recorder  // nil disables /metrics
	RateLimiter    *redis.RateLimiter // nil disables rate limiting
	RateLimit      redis.RateLimitConfig
	TrustedProxies []*net.IPNet // peers allowed to set X-Forwarded-For
}

// NewRouter creates and configures the HTTP router
// ⭐ SSOT: 라우팅 설정은 이 함수에서만
func NewRouter(h Handlers, opts RouterOptions) http.Handler {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", h.Health.Check).Methods("GET")

	if opts.Metrics != nil {
		r.Handle("/metrics", opts.Metrics.Handler()).Methods("GET")
	}

	api := r.PathPrefix("/api").Subrouter()

	// Directive endpoints
	api.HandleFunc("/directives", h.Directives.List).Methods("GET")
	api.HandleFunc("/directives/evaluate", h.Directives.EvaluateAll).Methods("POST")
	api.HandleFunc("/directives/{code}", h.Directives.Get).Methods("GET")
	api.HandleFunc("/directives/{code}/evaluate", h.Directives.Evaluate).Methods("POST")
	api.HandleFunc("/directives/{code}/history", h.Directives.History).Methods("GET")

	// Scoring endpoints
	api.HandleFunc("/scoring/rank", h.Scoring.Rank).Methods("POST")
	api.HandleFunc("/scoring/latest", h.Scoring.Latest).Methods("GET")

	// Capability endpoints
	api.HandleFunc("/capabilities", h.Capabilities.Matrix).Methods("GET")
	api.HandleFunc("/capabilities/status", h.Capabilities.Status).Methods("GET")
	api.HandleFunc("/capabilities/data-types/{type}", h.Capabilities.DataType).Methods("GET")
	api.HandleFunc("/capabilities/platforms/{platform}/supports/{type}", h.Capabilities.Supports).Methods("GET")
	api.HandleFunc("/capabilities/cache", h.Capabilities.Invalidate).Methods("DELETE")
	api.HandleFunc("/capabilities/refresh", h.Capabilities.Refresh).Methods("POST")

	if opts.RateLimiter != nil {
		api.Use(rateLimitMiddleware(opts.RateLimiter, opts.RateLimit, opts.TrustedProxies, opts.Logger))
	}

	// Apply middleware
	r.Use(loggingMiddleware(opts.Logger, opts.Metrics))
	r.Use(recoveryMiddleware(opts.Logger))

	return r
}
