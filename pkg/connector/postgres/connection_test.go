package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"github.com/porthorian/accountgate/pkg/connector"
	"github.com/porthorian/accountgate/pkg/dto"
	oerrors "github.com/porthorian/accountgate/pkg/errors"
	"github.com/porthorian/accountgate/pkg/sanitize"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestConnection(t *testing.T, identity, actingAs connector.Identity) (*Connection, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})

	conn := newConnection(uuid.New(), db, identity, actingAs, func() time.Time { return fixedNow }, logr.Discard())
	return conn, mock
}

func TestConnectionPing(t *testing.T) {
	t.Run("open session", func(t *testing.T) {
		conn, mock := newTestConnection(t, "alice", "alice")
		mock.ExpectQuery(pingSessionPattern).WithArgs(conn.ID()).
			WillReturnRows(sqlmock.NewRows([]string{"open", "disabled"}).AddRow(true, false))

		assert.NoError(t, conn.Ping(context.Background()))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("account disabled after login", func(t *testing.T) {
		conn, mock := newTestConnection(t, "alice", "alice")
		mock.ExpectQuery(pingSessionPattern).WithArgs(conn.ID()).
			WillReturnRows(sqlmock.NewRows([]string{"open", "disabled"}).AddRow(true, true))

		err := conn.Ping(context.Background())
		assert.True(t, oerrors.IsCode(err, oerrors.CodeAccountDisabled))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("closed elsewhere", func(t *testing.T) {
		conn, mock := newTestConnection(t, "alice", "alice")
		mock.ExpectQuery(pingSessionPattern).WithArgs(conn.ID()).
			WillReturnRows(sqlmock.NewRows([]string{"open", "disabled"}).AddRow(false, false))

		assert.ErrorIs(t, conn.Ping(context.Background()), ErrSessionClosed)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing session", func(t *testing.T) {
		conn, mock := newTestConnection(t, "alice", "alice")
		mock.ExpectQuery(pingSessionPattern).WithArgs(conn.ID()).
			WillReturnRows(sqlmock.NewRows([]string{"open", "disabled"}))

		err := conn.Ping(context.Background())
		assert.ErrorIs(t, err, ErrSessionNotFound)
		assert.Equal(t, oerrors.CodeTransport, connector.Classify(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestConnectionCloseRunsOnce(t *testing.T) {
	conn, mock := newTestConnection(t, "alice", "alice")
	mock.ExpectExec(closeSessionPattern).WithArgs(conn.ID(), fixedNow).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, conn.Close())
	require.NoError(t, conn.Close())

	assert.ErrorIs(t, conn.Ping(context.Background()), ErrConnectionClosed)
	_, err := conn.LinuxServers(context.Background())
	assert.ErrorIs(t, err, ErrConnectionClosed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConnectionCloseReportsFailure(t *testing.T) {
	conn, mock := newTestConnection(t, "alice", "alice")
	mock.ExpectExec(closeSessionPattern).WithArgs(conn.ID(), fixedNow).
		WillReturnError(errors.New("broken pipe"))

	err := conn.Close()
	require.Error(t, err)
	assert.Equal(t, err, conn.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConnectionLinuxServers(t *testing.T) {
	conn, mock := newTestConnection(t, "admin", "bob")

	columns := []string{"server", "hostname", "daemon_bind", "time_zone", "operating_system", "architecture", "failover_server", "description"}
	mock.ExpectQuery(listLinuxServersPattern).WithArgs("bob").
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow(int64(1), "web-1", "0.0.0.0:8080", "UTC", "linux", "amd64", nil, "front\x01end").
			AddRow(int64(2), "web-2", "0.0.0.0:8080", "UTC", "linux", "arm64", "web-1", "backup"))

	records, err := conn.LinuxServers(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)

	registry := sanitize.NewRegistry()
	require.NoError(t, dto.Register(registry))

	servers, err := sanitize.Sanitize[*dto.LinuxServer](registry, records)
	require.NoError(t, err)
	require.Len(t, servers, 2)

	assert.Equal(t, 1, servers[0].Server)
	assert.Nil(t, servers[0].FailoverServer)
	assert.Equal(t, `front\u0001end`, servers[0].Description)

	require.NotNil(t, servers[1].FailoverServer)
	assert.Equal(t, "web-1", *servers[1].FailoverServer)
	assert.Equal(t, "arm64", servers[1].Architecture)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConnectionLinuxDaemonACLs(t *testing.T) {
	conn, mock := newTestConnection(t, "bob", "bob")
	mock.ExpectQuery(listLinuxDaemonACLsPattern).WithArgs("bob").
		WillReturnRows(sqlmock.NewRows([]string{"id", "hostname", "host"}))

	records, err := conn.LinuxDaemonACLs(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
	assert.NoError(t, mock.ExpectationsWereMet())
}
