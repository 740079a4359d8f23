package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/porthorian/accountgate/pkg/connector"
	"github.com/porthorian/accountgate/pkg/dto"
)

const (
	listLinuxServersQuery = `
SELECT
  server, hostname, daemon_bind, time_zone, operating_system, architecture, failover_server, description
FROM accountgate.linux_server
WHERE owner = $1
ORDER BY server
`

	listLinuxDaemonACLsQuery = `
SELECT
  acl.id, srv.hostname, acl.host
FROM accountgate.linux_daemon_acl acl
JOIN accountgate.linux_server srv ON srv.server = acl.server
WHERE srv.owner = $1
ORDER BY acl.id
`
)

type linuxServerRow struct {
	server          int
	hostname        string
	daemonBind      string
	timeZone        string
	operatingSystem string
	architecture    string
	failoverServer  sql.NullString
	description     string
}

func (r linuxServerRow) TransferObject() (*dto.LinuxServer, error) {
	out := &dto.LinuxServer{
		Server:          r.server,
		Hostname:        r.hostname,
		DaemonBind:      r.daemonBind,
		TimeZone:        r.timeZone,
		OperatingSystem: r.operatingSystem,
		Architecture:    r.architecture,
		Description:     r.description,
	}
	if r.failoverServer.Valid {
		failover := r.failoverServer.String
		out.FailoverServer = &failover
	}
	return out, nil
}

type linuxDaemonACLRow struct {
	id     int
	server string
	host   string
}

func (r linuxDaemonACLRow) TransferObject() (*dto.LinuxDaemonACL, error) {
	return &dto.LinuxDaemonACL{
		ID:     r.id,
		Server: r.server,
		Host:   r.host,
	}, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func (c *Connection) LinuxServers(ctx context.Context) ([]connector.LinuxServerRecord, error) {
	if c.closed.Load() {
		return nil, ErrConnectionClosed
	}

	rows, err := c.db.QueryContext(ctx, listLinuxServersQuery, string(c.actingAs))
	if err != nil {
		return nil, fmt.Errorf("postgres connector: list linux servers: %w", err)
	}
	defer rows.Close()

	records := []connector.LinuxServerRecord{}
	for rows.Next() {
		row, err := scanLinuxServer(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres connector: scan linux server: %w", err)
		}
		records = append(records, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres connector: list linux servers: %w", err)
	}
	return records, nil
}

func (c *Connection) LinuxDaemonACLs(ctx context.Context) ([]connector.LinuxDaemonACLRecord, error) {
	if c.closed.Load() {
		return nil, ErrConnectionClosed
	}

	rows, err := c.db.QueryContext(ctx, listLinuxDaemonACLsQuery, string(c.actingAs))
	if err != nil {
		return nil, fmt.Errorf("postgres connector: list linux daemon acls: %w", err)
	}
	defer rows.Close()

	records := []connector.LinuxDaemonACLRecord{}
	for rows.Next() {
		var row linuxDaemonACLRow
		if err := rows.Scan(&row.id, &row.server, &row.host); err != nil {
			return nil, fmt.Errorf("postgres connector: scan linux daemon acl: %w", err)
		}
		records = append(records, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres connector: list linux daemon acls: %w", err)
	}
	return records, nil
}

func scanLinuxServer(row scanner) (linuxServerRow, error) {
	var r linuxServerRow
	err := row.Scan(
		&r.server,
		&r.hostname,
		&r.daemonBind,
		&r.timeZone,
		&r.operatingSystem,
		&r.architecture,
		&r.failoverServer,
		&r.description,
	)
	return r, err
}
