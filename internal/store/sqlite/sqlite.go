package sqlite

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/mailpouch/mailpouch/internal/store"
)

// DB wraps a sql.DB connection to a SQLite database and the write
// notifier feeding reactive reads.
type DB struct {
	db       *sql.DB
	notifier *store.Notifier
}

// New opens a SQLite database at the given DSN and runs migrations.
// Use ":memory:" for an in-memory database.
func New(dsn string) (*DB, error) {
	connStr := dsn
	if dsn != ":memory:" {
		connStr = dsn + "?_journal_mode=WAL&_foreign_keys=on"
	} else {
		connStr = ":memory:?_foreign_keys=on"
	}

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &DB{db: db, notifier: store.NewNotifier()}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return s, nil
}

func (s *DB) migrate() error {
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// Subscribe returns a channel signalled after every committed write for
// userID, plus a cancel func.
func (s *DB) Subscribe(userID string) (<-chan struct{}, func()) {
	return s.notifier.Subscribe(userID)
}

// Close closes the underlying database connection.
func (s *DB) Close() error {
	return s.db.Close()
}

// Compile-time interface compliance check.
var _ store.Store = (*DB)(nil)
