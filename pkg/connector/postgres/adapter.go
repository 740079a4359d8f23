package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"github.com/porthorian/accountgate/pkg/connector"
	ocrypto "github.com/porthorian/accountgate/pkg/crypto"
	oerrors "github.com/porthorian/accountgate/pkg/errors"
)

const (
	getAccountQuery = `
SELECT
  username, password_hash, disabled, can_switch_users
FROM accountgate.account
WHERE username = $1
`

	openSessionQuery = `
INSERT INTO accountgate.session (
  id, username, acting_as, date_added
) VALUES ($1, $2, $3, $4)
`
)

var (
	ErrNilDB     = errors.New("postgres connector: db is nil")
	ErrNilHasher = errors.New("postgres connector: hasher is nil")
)

// Adapter authenticates accounts stored in the accountgate schema. Each
// successful authentication opens a session row owned by the returned
// Connection.
type Adapter struct {
	db     *sql.DB
	hasher ocrypto.Hasher
	logger logr.Logger
	now    func() time.Time
}

var _ connector.Authenticator = (*Adapter)(nil)

func NewAdapter(db *sql.DB, hasher ocrypto.Hasher, logger logr.Logger) (*Adapter, error) {
	if db == nil {
		return nil, ErrNilDB
	}
	if hasher == nil {
		return nil, ErrNilHasher
	}
	if logger.GetSink() == nil {
		logger = logr.Discard()
	}

	return &Adapter{
		db:     db,
		hasher: hasher,
		logger: logger,
		now: func() time.Time {
			return time.Now().UTC()
		},
	}, nil
}

type accountRow struct {
	username       string
	passwordHash   string
	disabled       bool
	canSwitchUsers bool
}

func (a *Adapter) Authenticate(ctx context.Context, actingAs connector.Identity, identity connector.Identity, secret string) (connector.Connection, error) {
	account, err := a.getAccount(ctx, identity)
	if err != nil {
		return nil, err
	}
	if account.disabled {
		return nil, oerrors.New(oerrors.CodeAccountDisabled, fmt.Sprintf("account disabled: %s", identity))
	}

	ok, err := a.hasher.Verify(secret, account.passwordHash)
	if err != nil {
		return nil, fmt.Errorf("postgres connector: verify secret of %s: %w", identity, err)
	}
	if !ok {
		return nil, oerrors.New(oerrors.CodeBadSecret, fmt.Sprintf("invalid password for %s", identity))
	}

	if actingAs != identity {
		if !account.canSwitchUsers {
			return nil, fmt.Errorf("postgres connector: %s is not allowed to switch users", identity)
		}
		target, err := a.getAccount(ctx, actingAs)
		if err != nil {
			return nil, err
		}
		if target.disabled {
			return nil, oerrors.New(oerrors.CodeAccountDisabled, fmt.Sprintf("account disabled: %s", actingAs))
		}
	}

	id := uuid.New()
	if _, err := a.db.ExecContext(ctx, openSessionQuery, id.String(), string(identity), string(actingAs), a.now()); err != nil {
		return nil, fmt.Errorf("postgres connector: open session: %w", err)
	}

	a.logger.V(1).Info("opened session", "session_id", id.String(), "identity", identity, "acting_as", actingAs)
	return newConnection(id, a.db, identity, actingAs, a.now, a.logger), nil
}

func (a *Adapter) getAccount(ctx context.Context, username connector.Identity) (accountRow, error) {
	var row accountRow
	err := a.db.QueryRowContext(ctx, getAccountQuery, string(username)).Scan(
		&row.username,
		&row.passwordHash,
		&row.disabled,
		&row.canSwitchUsers,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return accountRow{}, oerrors.New(oerrors.CodeAccountNotFound, fmt.Sprintf("no such account: %s", username))
	}
	if err != nil {
		return accountRow{}, fmt.Errorf("postgres connector: load account %s: %w", username, err)
	}
	return row, nil
}
