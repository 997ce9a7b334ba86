package api

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"

	"github.com/detailongo/dotg-team/internal/config"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

// permission is a capability listed in an API key's permissions.
type permission string

const (
	permReadAvailability permission = "read:availability"
	permReadQuotes       permission = "read:quotes"
	permReadSessions     permission = "read:sessions"
	permWriteSessions    permission = "write:sessions"
	permWriteEvents      permission = "write:events"
	permReadOrders       permission = "read:orders"
	permWriteOrders      permission = "write:orders"
)

// grpcPermissions lists what each booking RPC needs. Health and reflection
// are not listed and only need a valid key.
var grpcPermissions = map[string]permission{
	"/" + bookingServiceName + "/Availability": permReadAvailability,
	"/" + bookingServiceName + "/Quote":        permReadQuotes,
	"/" + bookingServiceName + "/GetSession":   permReadSessions,
}

// routePermissions is keyed by "METHOD template" as registered on the
// router. Every /api/v1 route must appear here.
var routePermissions = map[string]permission{
	"POST /api/v1/sessions":               permWriteSessions,
	"GET /api/v1/sessions/{id}":           permReadSessions,
	"DELETE /api/v1/sessions/{id}":        permWriteSessions,
	"POST /api/v1/sessions/{id}/actions":  permWriteSessions,
	"PATCH /api/v1/sessions/{id}/draft":   permWriteSessions,
	"POST /api/v1/quote":                  permReadQuotes,
	"GET /api/v1/branches/{branch}/slots": permReadAvailability,
	"POST /api/v1/events/load":            permWriteEvents,
	"POST /api/v1/events/presets":         permWriteEvents,
	"POST /api/v1/events/save":            permWriteEvents,
	"GET /api/v1/orders":                  permReadOrders,
	"GET /api/v1/orders/export":           permReadOrders,
	"POST /api/v1/orders/resync":          permWriteOrders,
	"GET /api/v1/orders/{id}":             permReadOrders,
	"PATCH /api/v1/orders/{id}/status":    permWriteOrders,
}

// publicRoutes skip auth and rate limiting.
var publicRoutes = map[string]bool{
	"/healthz": true,
}

func routePermission(method, template string) permission {
	return routePermissions[method+" "+template]
}

const (
	apiKeyHeaderDefault   = "x-api-key"
	apiExtraHeaderDefault = "x-api-extra"
	clientKeyUnknown      = "unknown"
)

var (
	errMissingCredentials = errors.New("missing api key headers")
	errInvalidKey         = errors.New("invalid api key")
	errInvalidExtra       = errors.New("invalid extra header")
	errPermissionDenied   = errors.New("permission denied")
)

// apiClients holds the configured API keys and the header names they are
// sent in. HTTP and gRPC authenticate through the same store.
type apiClients struct {
	keyHeader   string
	extraHeader string
	byKey       map[string]config.APIClientKey
}

func newAPIClients(cfg config.APIAuthConfig) *apiClients {
	c := &apiClients{
		keyHeader:   headerOr(cfg.HeaderAPIKey, apiKeyHeaderDefault),
		extraHeader: headerOr(cfg.HeaderExtra, apiExtraHeaderDefault),
		byKey:       make(map[string]config.APIClientKey, len(cfg.APIKeys)),
	}
	for _, k := range cfg.APIKeys {
		c.byKey[k.Key] = k
	}
	return c
}

func headerOr(name, fallback string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return fallback
	}
	return name
}

func (c *apiClients) authenticate(key, extra string) (config.APIClientKey, error) {
	if key == "" || extra == "" {
		return config.APIClientKey{}, errMissingCredentials
	}
	client, ok := c.byKey[key]
	if !ok {
		return config.APIClientKey{}, errInvalidKey
	}
	if subtle.ConstantTimeCompare([]byte(client.Extra), []byte(extra)) != 1 {
		return config.APIClientKey{}, errInvalidExtra
	}
	return client, nil
}

// allowed reports errPermissionDenied unless client holds need. A key with
// no permissions listed may call everything.
func allowed(client config.APIClientKey, need permission) error {
	if need == "" || len(client.Permissions) == 0 {
		return nil
	}
	for _, p := range client.Permissions {
		if permission(strings.TrimSpace(p)) == need {
			return nil
		}
	}
	return errPermissionDenied
}

// limitKey picks the rate limit bucket: the API key when one is sent,
// otherwise the caller's address.
func limitKey(apiKey, remote string) string {
	if apiKey != "" {
		return "key:" + apiKey
	}
	if remote == "" {
		remote = clientKeyUnknown
	}
	return "addr:" + remote
}

// AuthInterceptor applies API-key auth and rate limiting to gRPC calls.
type AuthInterceptor struct {
	enabled     bool
	authEnabled bool
	clients     *apiClients
	limiter     *rateLimiter
}

func NewAuthInterceptor(cfg *config.APIConfig) *AuthInterceptor {
	return &AuthInterceptor{
		enabled:     cfg.Enabled,
		authEnabled: cfg.Auth.Enabled,
		clients:     newAPIClients(cfg.Auth),
		limiter:     newRateLimiter(cfg),
	}
}

func (a *AuthInterceptor) Unary() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if !a.enabled {
			return handler(ctx, req)
		}

		md, _ := metadata.FromIncomingContext(ctx)
		key := first(md.Get(a.clients.keyHeader))

		if a.authEnabled {
			client, err := a.clients.authenticate(key, first(md.Get(a.clients.extraHeader)))
			if err != nil {
				return nil, status.Error(codes.Unauthenticated, err.Error())
			}
			if err := allowed(client, grpcPermissions[info.FullMethod]); err != nil {
				return nil, status.Error(codes.PermissionDenied, err.Error())
			}
		}

		if !a.limiter.allow(limitKey(key, peerAddr(ctx))) {
			return nil, status.Error(codes.ResourceExhausted, "rate limit exceeded")
		}
		return handler(ctx, req)
	}
}

func peerAddr(ctx context.Context) string {
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		return p.Addr.String()
	}
	return ""
}

func first(vals []string) string {
	if len(vals) == 0 {
		return ""
	}
	return strings.TrimSpace(vals[0])
}
