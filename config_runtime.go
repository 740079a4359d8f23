package accountgate

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	memorycache "github.com/porthorian/accountgate/pkg/cache/memory"
	"github.com/porthorian/accountgate/pkg/connector/postgres"
	ocrypto "github.com/porthorian/accountgate/pkg/crypto"
	"github.com/porthorian/accountgate/pkg/dto"
	"github.com/porthorian/accountgate/pkg/sanitize"
	"golang.org/x/crypto/bcrypt"
)

type ConnectorBackend string

const (
	ConnectorBackendNone     ConnectorBackend = "none"
	ConnectorBackendPostgres ConnectorBackend = "postgres"
)

type CacheBackend string

const (
	CacheBackendMemory CacheBackend = "memory"
)

type RuntimeConfig struct {
	Connector ConnectorConfig
	Cache     CacheConfig
}

type ConnectorConfig struct {
	Backend  ConnectorBackend
	Postgres PostgresConfig
}

type PostgresConfig struct {
	DriverName      string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
	OpenDB          func(driverName string, dsn string) (*sql.DB, error)
}

type CacheConfig struct {
	Backend CacheBackend
}

func (c Config) initialize(ctx context.Context) (func() error, Config, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	config := c
	config.Logger = resolveLogger(config.Logger)

	if config.Hasher == nil {
		config.Hasher = ocrypto.NewSchemeHasher(
			ocrypto.NewPBKDF2Hasher(ocrypto.DefaultPBKDF2Options()),
			ocrypto.NewBcryptHasher(bcrypt.DefaultCost),
		)
	}

	if config.Registry == nil {
		registry := sanitize.NewRegistry()
		if err := dto.Register(registry); err != nil {
			return nil, Config{}, fmt.Errorf("accountgate config: failed to register transfer objects: %w", err)
		}
		config.Registry = registry
	}

	closeConnector, config, err := initializeConnector(ctx, config)
	if err != nil {
		return nil, Config{}, err
	}

	closeCache, config, err := initializeCache(config)
	if err != nil {
		_ = closeConnector()
		return nil, Config{}, err
	}

	return joinClosers(closeConnector, closeCache), config, nil
}

func initializeConnector(ctx context.Context, config Config) (func() error, Config, error) {
	backend := config.Runtime.Connector.Backend
	if backend == "" {
		backend = ConnectorBackendNone
	}

	switch backend {
	case ConnectorBackendNone:
		return noopCloser, config, nil
	case ConnectorBackendPostgres:
		return initializePostgres(ctx, config)
	default:
		return nil, Config{}, fmt.Errorf("accountgate config: unsupported runtime.connector.backend %q", backend)
	}
}

func initializeCache(config Config) (func() error, Config, error) {
	backend := config.Runtime.Cache.Backend
	if backend == "" {
		backend = CacheBackendMemory
	}

	switch backend {
	case CacheBackendMemory:
		if config.Store == nil {
			config.Store = memorycache.NewAdapter()
			config.Logger.V(1).Info("initialized memory cache backend")
		}
		return noopCloser, config, nil
	default:
		return nil, Config{}, fmt.Errorf("accountgate config: unsupported runtime.cache.backend %q", backend)
	}
}

func initializePostgres(ctx context.Context, config Config) (func() error, Config, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	pgConfig := config.Runtime.Connector.Postgres
	if pgConfig.DSN == "" {
		return nil, Config{}, fmt.Errorf("accountgate config: runtime.connector.postgres.dsn is required")
	}

	if pgConfig.DriverName == "" {
		pgConfig.DriverName = "pgx"
	}
	if pgConfig.PingTimeout <= 0 {
		pgConfig.PingTimeout = 5 * time.Second
	}
	if pgConfig.OpenDB == nil {
		pgConfig.OpenDB = sql.Open
	}

	db, err := pgConfig.OpenDB(pgConfig.DriverName, pgConfig.DSN)
	if err != nil {
		return nil, Config{}, fmt.Errorf("accountgate config: failed to open postgres database: %w", err)
	}

	if pgConfig.MaxOpenConns > 0 {
		db.SetMaxOpenConns(pgConfig.MaxOpenConns)
	}
	if pgConfig.MaxIdleConns > 0 {
		db.SetMaxIdleConns(pgConfig.MaxIdleConns)
	}
	if pgConfig.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(pgConfig.ConnMaxLifetime)
	}
	if pgConfig.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(pgConfig.ConnMaxIdleTime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pgConfig.PingTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, Config{}, fmt.Errorf("accountgate config: failed to ping postgres database: %w", err)
	}

	adapter, err := postgres.NewAdapter(db, config.Hasher, config.Logger.WithName("postgres"))
	if err != nil {
		_ = db.Close()
		return nil, Config{}, fmt.Errorf("accountgate config: failed to initialize postgres connector: %w", err)
	}

	if config.Authenticator == nil {
		config.Authenticator = adapter
	}

	closeResource := func() error {
		return db.Close()
	}

	config.Runtime.Connector.Postgres = pgConfig
	config.Logger.V(1).Info("initialized postgres connector backend", "driver", pgConfig.DriverName, "max_open_conns", pgConfig.MaxOpenConns, "max_idle_conns", pgConfig.MaxIdleConns)
	return closeResource, config, nil
}

func joinClosers(closers ...func() error) func() error {
	return func() error {
		var errs []error

		for i := len(closers) - 1; i >= 0; i-- {
			if closers[i] == nil {
				continue
			}
			if err := closers[i](); err != nil {
				errs = append(errs, err)
			}
		}

		return stderrors.Join(errs...)
	}
}

func noopCloser() error {
	return nil
}
