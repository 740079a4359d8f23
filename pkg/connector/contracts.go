package connector

import (
	"context"

	"github.com/porthorian/accountgate/pkg/dto"
	"github.com/porthorian/accountgate/pkg/sanitize"
)

// Identity is an account login name on the remote account service.
type Identity string

func (i Identity) String() string {
	return string(i)
}

// Connection is an authenticated handle to the remote account service.
// Implementations must be safe for concurrent use once returned by an
// Authenticator.
type Connection interface {
	Ping(ctx context.Context) error
	Close() error
}

// Authenticator establishes connections. actingAs equals identity when no
// user switch was requested.
type Authenticator interface {
	Authenticate(ctx context.Context, actingAs Identity, identity Identity, secret string) (Connection, error)
}

type AuthenticatorFunc func(ctx context.Context, actingAs Identity, identity Identity, secret string) (Connection, error)

func (f AuthenticatorFunc) Authenticate(ctx context.Context, actingAs Identity, identity Identity, secret string) (Connection, error) {
	return f(ctx, actingAs, identity, secret)
}

type LinuxServerRecord = sanitize.Projector[*dto.LinuxServer]

type LinuxDaemonACLRecord = sanitize.Projector[*dto.LinuxDaemonACL]

// LinuxTables is implemented by connections that can list linux tables
// visible to the acting account.
type LinuxTables interface {
	LinuxServers(ctx context.Context) ([]LinuxServerRecord, error)
	LinuxDaemonACLs(ctx context.Context) ([]LinuxDaemonACLRecord, error)
}
