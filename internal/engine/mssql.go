// Package engine invokes the external backup machinery: the SQL Server
// command engine for native backup/restore and connectivity probes, and the
// sqlpackage executable for bacpac export/import.
package engine

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"strings"

	_ "github.com/microsoft/go-mssqldb"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/fabricesemti80/azure-sql-datamover-sub000/model"
)

const (
	dialTimeoutSeconds  = 15
	backupStatementBase = "BACKUP DATABASE %s TO DISK = @path"
)

// SQLEngine issues commands against a SQL Server endpoint through the
// go-mssqldb driver. It holds no connections; each call opens, runs one
// command, and closes.
type SQLEngine struct {
	logger log.FieldLogger
}

func NewSQLEngine(logger log.FieldLogger) *SQLEngine {
	return &SQLEngine{logger: logger}
}

func connectionString(server string, credentials model.Credentials, database string) string {
	query := url.Values{}
	query.Add("database", database)
	query.Add("dial timeout", fmt.Sprintf("%d", dialTimeoutSeconds))
	query.Add("encrypt", "true")

	u := &url.URL{
		Scheme:   "sqlserver",
		User:     url.UserPassword(credentials.Username, credentials.Password),
		Host:     server,
		RawQuery: query.Encode(),
	}
	return u.String()
}

func (e *SQLEngine) open(server string, credentials model.Credentials, database string) (*sql.DB, error) {
	db, err := sql.Open("sqlserver", connectionString(server, credentials, database))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open connection to %s", server)
	}
	return db, nil
}

// RunConnectivityProbe opens a connection to the server's administrative
// database and runs a single metadata query referencing the target
// database. Success means no error and no timeout.
func (e *SQLEngine) RunConnectivityProbe(ctx context.Context, server string, credentials model.Credentials, database string) error {
	db, err := e.open(server, credentials, "master")
	if err != nil {
		return &model.ConnectivityError{Endpoint: server, Err: err}
	}
	defer db.Close()

	var count int
	err = db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sys.databases WHERE name = @name",
		sql.Named("name", database),
	).Scan(&count)
	if err != nil {
		return &model.ConnectivityError{
			Endpoint: server,
			Timeout:  isTimeout(err),
			Err:      err,
		}
	}

	e.logger.WithFields(log.Fields{"server": server, "database": database}).
		Debug("Connectivity probe succeeded")

	return nil
}

// RunBackup issues a native backup of the database to targetPath on the
// server. Differential and log backups are supported alongside the default
// full backup, with optional compression.
func (e *SQLEngine) RunBackup(ctx context.Context, server string, credentials model.Credentials,
	database, targetPath string, kind model.BackupKind, compression bool) error {

	db, err := e.open(server, credentials, database)
	if err != nil {
		return err
	}
	defer db.Close()

	statement := fmt.Sprintf(backupStatementBase, quoteName(database))
	if kind == model.BackupKindLog {
		statement = fmt.Sprintf("BACKUP LOG %s TO DISK = @path", quoteName(database))
	}

	var options []string
	if kind == model.BackupKindDifferential {
		options = append(options, "DIFFERENTIAL")
	}
	if compression {
		options = append(options, "COMPRESSION")
	}
	options = append(options, "FORMAT", "INIT")
	statement += " WITH " + strings.Join(options, ", ")

	e.logger.WithFields(log.Fields{
		"server":   server,
		"database": database,
		"kind":     kind,
	}).Info("Running native backup")

	_, err = db.ExecContext(ctx, statement, sql.Named("path", targetPath))
	if err != nil {
		return &model.ExternalEngineError{
			Engine: "backup command",
			Output: err.Error(),
			Err:    errors.Wrapf(err, "backup of %s did not complete", database),
		}
	}

	return nil
}

// RunRestoreFromURL restores the database on a Managed Instance from a
// staged blob URL. Managed Instance restores accept only URL sources.
func (e *SQLEngine) RunRestoreFromURL(ctx context.Context, server string, credentials model.Credentials,
	database, blobURL string) error {

	db, err := e.open(server, credentials, "master")
	if err != nil {
		return err
	}
	defer db.Close()

	statement := fmt.Sprintf("RESTORE DATABASE %s FROM URL = @url", quoteName(database))

	e.logger.WithFields(log.Fields{"server": server, "database": database}).
		Info("Restoring database from URL")

	_, err = db.ExecContext(ctx, statement, sql.Named("url", blobURL))
	if err != nil {
		return &model.ExternalEngineError{
			Engine: "restore command",
			Output: err.Error(),
			Err:    errors.Wrapf(err, "restore of %s did not complete", database),
		}
	}

	return nil
}

// quoteName bracket-quotes a SQL Server identifier.
func quoteName(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	// The driver reports dial timeouts as plain errors in some paths.
	return strings.Contains(strings.ToLower(err.Error()), "timeout")
}
