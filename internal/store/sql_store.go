// Package store persists per-run operation results in a local SQLite
// database so past batches can be inspected after the fact.
package store

import (
	"database/sql"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

// SQLStore is a SQLite-backed result history.
type SQLStore struct {
	db     *sql.DB
	logger log.FieldLogger
}

const createResultsTable = `
CREATE TABLE IF NOT EXISTS OperationResult (
	ID TEXT PRIMARY KEY,
	OperationID TEXT NOT NULL,
	DatabaseName TEXT NOT NULL,
	State TEXT NOT NULL,
	Success INTEGER NOT NULL,
	FailureStage TEXT NOT NULL,
	DurationMillis INTEGER NOT NULL,
	Message TEXT NOT NULL,
	CreateAt INTEGER NOT NULL
)`

// New opens (and initializes, if necessary) the history database at dsn.
func New(dsn string, logger log.FieldLogger) (*SQLStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open history database")
	}

	if _, err := db.Exec(createResultsTable); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to initialize history schema")
	}

	return &SQLStore{
		db:     db,
		logger: logger,
	}, nil
}

// Close closes the underlying database.
func (sqlStore *SQLStore) Close() error {
	return sqlStore.db.Close()
}
