package accountgate

import (
	"context"
	"fmt"

	"github.com/porthorian/accountgate/pkg/connector"
	"github.com/porthorian/accountgate/pkg/dto"
	oerrors "github.com/porthorian/accountgate/pkg/errors"
	"github.com/porthorian/accountgate/pkg/sanitize"
)

// LinuxServers lists the linux servers visible to the acting account.
func (c *Client) LinuxServers(ctx context.Context, credentials Credentials) ([]*dto.LinuxServer, error) {
	tables, err := c.linuxTables(ctx, credentials)
	if err != nil {
		return nil, err
	}

	records, err := tables.LinuxServers(ctx)
	if err != nil {
		return nil, c.remoteFailure(credentials, "list linux servers", err)
	}
	return sanitize.Sanitize[*dto.LinuxServer](c.registry, records)
}

// LinuxDaemonACLs lists the linux daemon ACL entries visible to the acting
// account.
func (c *Client) LinuxDaemonACLs(ctx context.Context, credentials Credentials) ([]*dto.LinuxDaemonACL, error) {
	tables, err := c.linuxTables(ctx, credentials)
	if err != nil {
		return nil, err
	}

	records, err := tables.LinuxDaemonACLs(ctx)
	if err != nil {
		return nil, c.remoteFailure(credentials, "list linux daemon acls", err)
	}
	return sanitize.Sanitize[*dto.LinuxDaemonACL](c.registry, records)
}

// PasswordMatches authenticates credentials and then reports whether
// plaintext hashes to hashed. An empty plaintext never matches.
func (c *Client) PasswordMatches(ctx context.Context, credentials Credentials, hashed string, plaintext string) (bool, error) {
	if _, err := c.Resolve(ctx, credentials); err != nil {
		return false, err
	}
	if plaintext == "" {
		return false, nil
	}

	ok, err := c.hasher.Verify(plaintext, hashed)
	if err != nil {
		return false, oerrors.Wrap(oerrors.CodeUnknown, "failed to verify password", err)
	}
	return ok, nil
}

func (c *Client) linuxTables(ctx context.Context, credentials Credentials) (connector.LinuxTables, error) {
	conn, err := c.Resolve(ctx, credentials)
	if err != nil {
		return nil, err
	}

	tables, ok := conn.(connector.LinuxTables)
	if !ok {
		return nil, oerrors.New(oerrors.CodeNotImplemented, fmt.Sprintf("connection %T does not expose linux tables", conn))
	}
	return tables, nil
}

func (c *Client) remoteFailure(credentials Credentials, operation string, err error) error {
	translated := connector.Translate(err)
	c.logger.Error(err, "remote operation failed", "operation", operation, "credentials", credentials.String(), "code", string(translated.Code))
	return translated
}
