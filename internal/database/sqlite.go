// Package database provides the SQLite-backed implementation of the
// ledger store.
package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"shareledger/internal/database/migrations"
	"shareledger/internal/ledger"
	"shareledger/internal/model"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteStore implements the ledger.Store interface using SQLite.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore creates a new SQLite store.
// path can be a file path or ":memory:" for an in-memory database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	return &SQLiteStore{db: db, path: path}, nil
}

// NewSQLiteStoreFromDB wraps an existing database connection.
// The caller is responsible for ensuring the connection is properly configured.
func NewSQLiteStoreFromDB(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db, path: ""}
}

// OpenConnection opens and configures a SQLite database connection with
// appropriate PRAGMAs. Exported for tools and tests that need a properly
// configured connection.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Each pooled connection to ":memory:" would get its own empty
	// database, so in-memory stores are pinned to a single connection.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	// Foreign key enforcement is off by default in SQLite.
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	// Readers must not block the single writer.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return db, nil
}

// Content reference operations

func (s *SQLiteStore) CreateContentReference(ref *model.ContentReference) error {
	_, err := s.db.Exec(`
		INSERT INTO content_references (id, owner, uri, added_at)
		VALUES (?, ?, ?, ?)
	`, ref.ID, ref.Owner, ref.URI, ref.AddedAt)
	if err != nil {
		return fmt.Errorf("inserting content reference: %w", err)
	}
	return nil
}

func (s *SQLiteStore) FindContentReferencesByOwner(owner string) ([]*model.ContentReference, error) {
	rows, err := s.db.Query(`
		SELECT id, owner, uri, added_at FROM content_references
		WHERE owner = ?
		ORDER BY seq
	`, owner)
	if err != nil {
		return nil, fmt.Errorf("selecting content references: %w", err)
	}
	defer rows.Close()

	result := []*model.ContentReference{}
	for rows.Next() {
		var ref model.ContentReference
		if err := rows.Scan(&ref.ID, &ref.Owner, &ref.URI, &ref.AddedAt); err != nil {
			return nil, fmt.Errorf("scanning content reference: %w", err)
		}
		result = append(result, &ref)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Grant operations

// ApplyGrant is a single-statement upsert: a fresh pair inserts an active
// grant; a revoked pair is reactivated with a refreshed granted_at; an
// already-active pair is left untouched.
func (s *SQLiteStore) ApplyGrant(id, owner, grantee string, grantedAt time.Time) error {
	_, err := s.db.Exec(`
		INSERT INTO access_grants (id, owner, grantee, active, granted_at)
		VALUES (?, ?, ?, 1, ?)
		ON CONFLICT (owner, grantee)
		DO UPDATE SET active = 1, granted_at = excluded.granted_at
		WHERE access_grants.active = 0
	`, id, owner, grantee, grantedAt)
	if err != nil {
		return fmt.Errorf("upserting grant: %w", err)
	}
	return nil
}

func (s *SQLiteStore) RevokeGrant(owner, grantee string) error {
	res, err := s.db.Exec(`
		UPDATE access_grants SET active = 0
		WHERE owner = ? AND grantee = ?
	`, owner, grantee)
	if err != nil {
		return fmt.Errorf("deactivating grant: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ledger.ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) FindGrant(owner, grantee string) (*model.AccessGrant, error) {
	var grant model.AccessGrant
	err := s.db.QueryRow(`
		SELECT id, owner, grantee, active, granted_at FROM access_grants
		WHERE owner = ? AND grantee = ?
	`, owner, grantee).Scan(&grant.ID, &grant.Owner, &grant.Grantee, &grant.Active, &grant.GrantedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("selecting grant: %w", err)
	}
	return &grant, nil
}

func (s *SQLiteStore) FindGranteesByOwner(owner string) ([]*model.AccessGrant, error) {
	rows, err := s.db.Query(`
		SELECT id, owner, grantee, active, granted_at FROM access_grants
		WHERE owner = ?
		ORDER BY seq
	`, owner)
	if err != nil {
		return nil, fmt.Errorf("selecting grantees: %w", err)
	}
	defer rows.Close()

	result := []*model.AccessGrant{}
	for rows.Next() {
		var grant model.AccessGrant
		if err := rows.Scan(&grant.ID, &grant.Owner, &grant.Grantee, &grant.Active, &grant.GrantedAt); err != nil {
			return nil, fmt.Errorf("scanning grant: %w", err)
		}
		result = append(result, &grant)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *SQLiteStore) FindActiveGrantors(grantee string) ([]string, error) {
	rows, err := s.db.Query(`
		SELECT owner FROM access_grants
		WHERE grantee = ? AND active = 1
		ORDER BY seq
	`, grantee)
	if err != nil {
		return nil, fmt.Errorf("selecting grantors: %w", err)
	}
	defer rows.Close()

	result := []string{}
	for rows.Next() {
		var owner string
		if err := rows.Scan(&owner); err != nil {
			return nil, fmt.Errorf("scanning grantor: %w", err)
		}
		result = append(result, owner)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Access log operations

func (s *SQLiteStore) AppendAccessLog(entry *model.AccessLogEntry) error {
	_, err := s.db.Exec(`
		INSERT INTO access_log (id, file_owner, file_url, granted_to, occurred_at)
		VALUES (?, ?, ?, ?, ?)
	`, entry.ID, entry.FileOwner, entry.FileURL, entry.GrantedTo, entry.OccurredAt)
	if err != nil {
		return fmt.Errorf("appending access log entry: %w", err)
	}
	return nil
}

func (s *SQLiteStore) FindAccessLog(account string) ([]*model.AccessLogEntry, error) {
	query := `
		SELECT id, file_owner, file_url, granted_to, occurred_at FROM access_log
		ORDER BY seq
	`
	args := []any{}
	if account != "" {
		query = `
			SELECT id, file_owner, file_url, granted_to, occurred_at FROM access_log
			WHERE file_owner = ? OR granted_to = ?
			ORDER BY seq
		`
		args = []any{account, account}
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("selecting access log: %w", err)
	}
	defer rows.Close()

	result := []*model.AccessLogEntry{}
	for rows.Next() {
		var entry model.AccessLogEntry
		if err := rows.Scan(&entry.ID, &entry.FileOwner, &entry.FileURL, &entry.GrantedTo, &entry.OccurredAt); err != nil {
			return nil, fmt.Errorf("scanning access log entry: %w", err)
		}
		result = append(result, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Operation tracking

func (s *SQLiteStore) CreateOperation(operation string, parameters string) (*model.Operation, error) {
	startedAt := time.Now()
	res, err := s.db.Exec(`
		INSERT INTO operations (operation, parameters, started_at, status)
		VALUES (?, ?, ?, '')
	`, operation, parameters, startedAt)
	if err != nil {
		return nil, fmt.Errorf("inserting operation: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading operation id: %w", err)
	}
	return &model.Operation{
		ID:         id,
		Operation:  operation,
		Parameters: parameters,
		StartedAt:  startedAt,
	}, nil
}

func (s *SQLiteStore) FinishOperation(id int64, status string) error {
	_, err := s.db.Exec(`
		UPDATE operations SET finished_at = ?, status = ?
		WHERE id = ?
	`, time.Now(), status, id)
	if err != nil {
		return fmt.Errorf("finishing operation: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListOperations(limit int) ([]*model.Operation, error) {
	rows, err := s.db.Query(`
		SELECT id, operation, parameters, started_at, finished_at, status FROM operations
		ORDER BY id DESC
		LIMIT ?
	`, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("selecting operations: %w", err)
	}
	defer rows.Close()

	result := []*model.Operation{}
	for rows.Next() {
		var op model.Operation
		var finishedAt sql.NullTime
		if err := rows.Scan(&op.ID, &op.Operation, &op.Parameters, &op.StartedAt, &finishedAt, &op.Status); err != nil {
			return nil, fmt.Errorf("scanning operation: %w", err)
		}
		if finishedAt.Valid {
			t := finishedAt.Time
			op.FinishedAt = &t
		}
		result = append(result, &op)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Path returns the database file path (or ":memory:" for in-memory databases).
func (s *SQLiteStore) Path() string {
	return s.path
}

// CheckMigrations verifies the database schema is up-to-date.
func (s *SQLiteStore) CheckMigrations() error {
	return migrations.CheckStatus(s.db)
}

// MigrateUp brings the database schema to the latest version.
func (s *SQLiteStore) MigrateUp() error {
	return migrations.MigrateUp(s.db)
}

// BackupTo creates a complete copy of the database at destPath using VACUUM INTO.
func (s *SQLiteStore) BackupTo(destPath string) error {
	_, err := s.db.Exec("VACUUM INTO ?", destPath)
	if err != nil {
		return fmt.Errorf("backing up database: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Compile-time check that SQLiteStore implements the ledger.Store interface.
var _ ledger.Store = (*SQLiteStore)(nil)
