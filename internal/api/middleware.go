package api

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/detailongo/dotg-team/internal/config"
	"github.com/detailongo/dotg-team/internal/logging"
	"github.com/detailongo/dotg-team/internal/metrics"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

// HTTPAuth applies API-key auth and rate limiting to routed HTTP requests.
// It runs inside the router so the matched route template selects the
// permission.
type HTTPAuth struct {
	enabled     bool
	authEnabled bool
	clients     *apiClients
	limiter     *rateLimiter
}

func NewHTTPAuth(cfg config.APIConfig) *HTTPAuth {
	return &HTTPAuth{
		enabled:     cfg.Enabled && cfg.HTTP.Enabled,
		authEnabled: cfg.Auth.Enabled,
		clients:     newAPIClients(cfg.Auth),
		limiter:     newRateLimiter(&cfg),
	}
}

func (a *HTTPAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := routeName(r)
		if !a.enabled || publicRoutes[route] {
			next.ServeHTTP(w, r)
			return
		}

		key := strings.TrimSpace(r.Header.Get(a.clients.keyHeader))
		if a.authEnabled {
			client, err := a.clients.authenticate(key, strings.TrimSpace(r.Header.Get(a.clients.extraHeader)))
			if err != nil {
				writeError(w, http.StatusUnauthorized, err.Error())
				return
			}
			if err := allowed(client, routePermission(r.Method, route)); err != nil {
				writeError(w, http.StatusForbidden, err.Error())
				return
			}
			if client.Name != "" {
				loggerFor(r, nil).UpdateContext(func(c zerolog.Context) zerolog.Context {
					return c.Str("api_client", client.Name)
				})
			}
		}

		if !a.limiter.allow(limitKey(key, remoteHost(r))) {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// loggingMiddleware attaches a request-scoped logger and echoes the
// request id.
func loggingMiddleware(base *zerolog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, requestID := logging.WithRequestID(r.Context(), base, strings.TrimSpace(r.Header.Get(requestIDMetadataKey)))
		w.Header().Set(requestIDMetadataKey, requestID)
		r = r.WithContext(ctx)

		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		logging.FromContext(ctx, base).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

// countRoute runs inside the router so the matched route template is
// available as the metric label.
func countRoute(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		metrics.IncHTTP(routeName(r))
		next.ServeHTTP(w, r)
	})
}

func routeName(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}

func loggerFor(r *http.Request, fallback *zerolog.Logger) *zerolog.Logger {
	return logging.FromContext(r.Context(), fallback)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
