package cache

import (
	"context"
	"errors"
	"sync"

	"github.com/go-logr/logr"
	"github.com/porthorian/accountgate/pkg/connector"
	oerrors "github.com/porthorian/accountgate/pkg/errors"
)

const messageInvalidCredentials = "invalid credentials"

var (
	ErrNilStore      = errors.New("cache: connection store is required")
	ErrClosed        = errors.New("cache: connection cache is closed")
	errNilConnection = errors.New("cache: authenticator returned no connection")
)

// ConnectionCache authenticates once per distinct AuthKey and hands out the
// resulting connection to every later caller. Entries never expire.
//
// Concurrent misses on one key may each authenticate. Only the first
// connection inserted into the store is kept; the others are closed.
type ConnectionCache struct {
	auth   connector.Authenticator
	store  ConnectionStore
	logger logr.Logger

	// mu is held shared by Resolve and exclusively by Close, so no
	// connection is stored after Close has walked the store.
	mu     sync.RWMutex
	closed bool
}

// NewConnectionCache returns an empty cache that authenticates through auth.
func NewConnectionCache(auth connector.Authenticator, store ConnectionStore, logger logr.Logger) (*ConnectionCache, error) {
	if auth == nil {
		return nil, oerrors.ErrMissingAuthenticator
	}
	if store == nil {
		return nil, ErrNilStore
	}
	if logger.GetSink() == nil {
		logger = logr.Discard()
	}

	return &ConnectionCache{
		auth:   auth,
		store:  store,
		logger: logger,
	}, nil
}

// Resolve returns the connection for the given credentials, authenticating
// and pinging on first use. An empty actingAs means no user switch.
func (c *ConnectionCache) Resolve(ctx context.Context, identity connector.Identity, secret string, actingAs connector.Identity) (connector.Connection, error) {
	if actingAs == "" {
		actingAs = identity
	}

	key, err := NewAuthKey(identity, secret, actingAs)
	if err != nil {
		c.logger.V(1).Info("rejected credentials", "identity", identity, "reason", err.Error())
		return nil, oerrors.Wrap(oerrors.CodeInvalidCredentials, messageInvalidCredentials, err)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil, ErrClosed
	}

	if conn, ok := c.store.Load(key); ok {
		return conn, nil
	}

	conn, err := c.connect(ctx, key)
	if err != nil {
		return nil, err
	}

	existing, loaded := c.store.LoadOrStore(key, conn)
	if loaded {
		if closeErr := conn.Close(); closeErr != nil {
			c.logger.Error(closeErr, "failed to close redundant connection", "key", key.String())
		}
		c.logger.V(1).Info("adopted concurrently established connection", "key", key.String())
		return existing, nil
	}

	c.logger.V(1).Info("cached new connection", "key", key.String())
	return conn, nil
}

func (c *ConnectionCache) connect(ctx context.Context, key AuthKey) (connector.Connection, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	conn, err := c.auth.Authenticate(ctx, key.ActingAs(), key.Identity(), key.Secret())
	if err == nil && conn == nil {
		err = errNilConnection
	}
	if err != nil {
		return nil, c.translate(key, "authenticate", err)
	}

	if err := conn.Ping(ctx); err != nil {
		if closeErr := conn.Close(); closeErr != nil {
			c.logger.Error(closeErr, "failed to close unverified connection", "key", key.String())
		}
		return nil, c.translate(key, "ping", err)
	}

	return conn, nil
}

func (c *ConnectionCache) translate(key AuthKey, stage string, err error) error {
	translated := connector.Translate(err)
	c.logger.Error(err, "connection failed", "key", key.String(), "stage", stage, "code", string(translated.Code))
	return translated
}

// Len reports the number of cached connections.
func (c *ConnectionCache) Len() int {
	return c.store.Len()
}

// Close waits for in-flight Resolve calls, then closes every cached
// connection. Later Resolve calls fail with ErrClosed.
func (c *ConnectionCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true

	var errs []error
	c.store.Range(func(key AuthKey, conn connector.Connection) bool {
		if err := conn.Close(); err != nil {
			errs = append(errs, err)
		}
		return true
	})
	return errors.Join(errs...)
}
