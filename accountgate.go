package accountgate

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/go-logr/logr"
	"github.com/porthorian/accountgate/pkg/cache"
	"github.com/porthorian/accountgate/pkg/connector"
	ocrypto "github.com/porthorian/accountgate/pkg/crypto"
	oerrors "github.com/porthorian/accountgate/pkg/errors"
	"github.com/porthorian/accountgate/pkg/sanitize"
)

type Config struct {
	Authenticator connector.Authenticator
	Store         cache.ConnectionStore
	Logger        logr.Logger
	Hasher        ocrypto.Hasher
	Registry      *sanitize.Registry
	Runtime       RuntimeConfig
}

type Client struct {
	connections *cache.ConnectionCache
	hasher      ocrypto.Hasher
	registry    *sanitize.Registry
	logger      logr.Logger

	closed        atomic.Bool
	closeOnce     sync.Once
	closeErr      error
	closeResource func() error
}

// New builds a client around auth. Runtime resources named in config are
// still initialized; auth takes precedence over any connector they
// provide.
func New(auth connector.Authenticator, config Config) (*Client, error) {
	if auth == nil {
		return nil, oerrors.ErrMissingAuthenticator
	}
	config.Authenticator = auth
	return newClient(config)
}

// NewDefault builds a client whose authenticator comes from
// config.Authenticator or config.Runtime.Connector.
func NewDefault(config Config) (*Client, error) {
	return newClient(config)
}

func newClient(config Config) (*Client, error) {
	closeResource, resolvedConfig, err := config.initialize(context.Background())
	if err != nil {
		return nil, err
	}

	if resolvedConfig.Authenticator == nil {
		_ = closeResource()
		return nil, oerrors.ErrMissingAuthenticator
	}

	connections, err := cache.NewConnectionCache(resolvedConfig.Authenticator, resolvedConfig.Store, resolvedConfig.Logger.WithName("cache"))
	if err != nil {
		_ = closeResource()
		return nil, err
	}

	return &Client{
		connections:   connections,
		hasher:        resolvedConfig.Hasher,
		registry:      resolvedConfig.Registry,
		logger:        resolvedConfig.Logger,
		closeResource: closeResource,
	}, nil
}

// Resolve returns the cached connection for credentials, authenticating
// on first use.
func (c *Client) Resolve(ctx context.Context, credentials Credentials) (connector.Connection, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	conn, err := c.connections.Resolve(ctx, credentials.identity(), credentials.Password, credentials.actingAs())
	if errors.Is(err, cache.ErrClosed) {
		return nil, oerrors.ErrClientClosed
	}
	return conn, err
}

// Connections exposes the connection cache for transports.
func (c *Client) Connections() *cache.ConnectionCache {
	if c == nil {
		return nil
	}
	return c.connections
}

// Close closes every cached connection and then the runtime resources. A
// Resolve already in progress finishes first and its connection is closed
// with the rest. Later calls return the first result.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}

	c.closeOnce.Do(func() {
		c.closed.Store(true)

		closeConnections := func() error {
			if c.connections == nil {
				return nil
			}
			return c.connections.Close()
		}

		// Connections are released before the resources they run on.
		err := joinClosers(c.closeResource, closeConnections)()
		if err != nil {
			c.closeErr = oerrors.Wrap(oerrors.CodeUnknown, "failed to close client resources", err)
			return
		}
		c.logger.V(1).Info("closed client")
	})
	return c.closeErr
}

func (c *Client) ready() error {
	if c == nil || c.connections == nil {
		return oerrors.ErrMissingAuthenticator
	}
	if c.closed.Load() {
		return oerrors.ErrClientClosed
	}
	return nil
}
