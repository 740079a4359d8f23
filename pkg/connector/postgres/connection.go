package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"github.com/porthorian/accountgate/pkg/connector"
	oerrors "github.com/porthorian/accountgate/pkg/errors"
)

const (
	pingSessionQuery = `
SELECT
  s.closed_at IS NULL, a.disabled
FROM accountgate.session s
JOIN accountgate.account a ON a.username = s.username
WHERE s.id = $1
`

	closeSessionQuery = `
UPDATE accountgate.session
SET closed_at = $2
WHERE id = $1 AND closed_at IS NULL
`

	closeTimeout = 5 * time.Second
)

var (
	ErrConnectionClosed = errors.New("postgres connector: connection is closed")
	ErrSessionNotFound  = errors.New("postgres connector: session not found")
	ErrSessionClosed    = errors.New("postgres connector: session closed")
)

// Connection is a session on the accountgate schema. It is safe for
// concurrent use; Close runs once.
type Connection struct {
	id       uuid.UUID
	db       *sql.DB
	identity connector.Identity
	actingAs connector.Identity
	now      func() time.Time
	logger   logr.Logger

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

var _ connector.Connection = (*Connection)(nil)
var _ connector.LinuxTables = (*Connection)(nil)

func newConnection(id uuid.UUID, db *sql.DB, identity, actingAs connector.Identity, now func() time.Time, logger logr.Logger) *Connection {
	return &Connection{
		id:       id,
		db:       db,
		identity: identity,
		actingAs: actingAs,
		now:      now,
		logger:   logger,
	}
}

func (c *Connection) ID() string {
	return c.id.String()
}

func (c *Connection) Identity() connector.Identity {
	return c.identity
}

func (c *Connection) ActingAs() connector.Identity {
	return c.actingAs
}

func (c *Connection) Ping(ctx context.Context) error {
	if c.closed.Load() {
		return ErrConnectionClosed
	}

	var open, disabled bool
	err := c.db.QueryRowContext(ctx, pingSessionQuery, c.id.String()).Scan(&open, &disabled)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrSessionNotFound
	}
	if err != nil {
		return fmt.Errorf("postgres connector: ping session: %w", err)
	}
	if disabled {
		return oerrors.New(oerrors.CodeAccountDisabled, fmt.Sprintf("account disabled: %s", c.identity))
	}
	if !open {
		return ErrSessionClosed
	}
	return nil
}

func (c *Connection) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)

		ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()

		if _, err := c.db.ExecContext(ctx, closeSessionQuery, c.id.String(), c.now()); err != nil {
			c.closeErr = fmt.Errorf("postgres connector: close session: %w", err)
			return
		}
		c.logger.V(1).Info("closed session", "session_id", c.id.String(), "identity", c.identity)
	})
	return c.closeErr
}
