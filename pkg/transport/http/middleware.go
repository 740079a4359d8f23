package httptransport

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-logr/logr"
	"github.com/porthorian/accountgate/pkg/connector"
	oerrors "github.com/porthorian/accountgate/pkg/errors"
)

// ConnectionResolver is satisfied by *cache.ConnectionCache.
type ConnectionResolver interface {
	Resolve(ctx context.Context, identity connector.Identity, secret string, actingAs connector.Identity) (connector.Connection, error)
}

type MiddlewareConfig struct {
	SwitchUserHeader        string
	Realm                   string
	FailureStatusCode       int
	RemoteFailureStatusCode int
	Logger                  logr.Logger
}

func DefaultConfig() MiddlewareConfig {
	return MiddlewareConfig{
		SwitchUserHeader:        "X-Switch-User",
		Realm:                   "accountgate",
		FailureStatusCode:       http.StatusUnauthorized,
		RemoteFailureStatusCode: http.StatusBadGateway,
	}
}

type connectionContextKey struct{}

func WithConnection(ctx context.Context, conn connector.Connection) context.Context {
	return context.WithValue(ctx, connectionContextKey{}, conn)
}

func ConnectionFromContext(ctx context.Context) (connector.Connection, bool) {
	conn, ok := ctx.Value(connectionContextKey{}).(connector.Connection)
	return conn, ok && conn != nil
}

// Middleware resolves Basic credentials, plus an optional switch-user
// header, into a connection stored on the request context.
func Middleware(resolver ConnectionResolver, config MiddlewareConfig) func(http.Handler) http.Handler {
	defaults := DefaultConfig()
	if config.SwitchUserHeader == "" {
		config.SwitchUserHeader = defaults.SwitchUserHeader
	}
	if config.Realm == "" {
		config.Realm = defaults.Realm
	}
	if config.FailureStatusCode == 0 {
		config.FailureStatusCode = defaults.FailureStatusCode
	}
	if config.RemoteFailureStatusCode == 0 {
		config.RemoteFailureStatusCode = defaults.RemoteFailureStatusCode
	}
	if config.Logger.GetSink() == nil {
		config.Logger = logr.Discard()
	}

	challenge := fmt.Sprintf("Basic realm=%q, charset=\"UTF-8\"", config.Realm)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			username, password, ok := r.BasicAuth()
			if !ok {
				w.Header().Set("WWW-Authenticate", challenge)
				http.Error(w, "missing credentials", config.FailureStatusCode)
				return
			}

			actingAs := connector.Identity(r.Header.Get(config.SwitchUserHeader))
			conn, err := resolver.Resolve(r.Context(), connector.Identity(username), password, actingAs)
			if err != nil {
				if oerrors.IsLoginFailure(err) {
					w.Header().Set("WWW-Authenticate", challenge)
					http.Error(w, err.Error(), config.FailureStatusCode)
					return
				}

				config.Logger.V(1).Info("rejected request", "path", r.URL.Path, "code", string(oerrors.CodeOf(err)))
				http.Error(w, err.Error(), config.RemoteFailureStatusCode)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithConnection(r.Context(), conn)))
		})
	}
}
