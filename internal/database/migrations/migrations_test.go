package migrations

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func TestMigrateUp_FreshDatabase(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	if err := MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp() failed: %v", err)
	}

	tables := []string{"content_references", "access_grants", "access_log", "operations", "schema_migrations"}
	for _, table := range tables {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("Table %s was not created: %v", table, err)
		}
	}
}

func TestCheckStatus_FreshDatabase(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	err := CheckStatus(db)
	if err == nil {
		t.Error("CheckStatus() expected error for fresh database, got nil")
	}
	if err.Error() != "database has no schema version (needs migration)" {
		t.Errorf("CheckStatus() error = %q, want error about needing migration", err.Error())
	}
}

func TestCheckStatus_AfterMigration(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	if err := MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp() failed: %v", err)
	}
	if err := CheckStatus(db); err != nil {
		t.Errorf("CheckStatus() after migration returned error: %v", err)
	}
}

func TestMigrateUp_Idempotent(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	if err := MigrateUp(db); err != nil {
		t.Fatalf("First MigrateUp() failed: %v", err)
	}
	if err := MigrateUp(db); err != nil {
		t.Errorf("Second MigrateUp() failed: %v (should be idempotent)", err)
	}
	if err := CheckStatus(db); err != nil {
		t.Errorf("CheckStatus() after double migration returned error: %v", err)
	}
}

func TestSchema_GrantPairUnique(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	if err := MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp() failed: %v", err)
	}

	_, err := db.Exec(`
		INSERT INTO access_grants (id, owner, grantee, active, granted_at)
		VALUES ('g-1', '0xaaa', '0xbbb', 1, datetime('now'))
	`)
	if err != nil {
		t.Fatalf("Failed to insert first grant: %v", err)
	}

	// A second grant for the same (owner, grantee) pair must be rejected.
	_, err = db.Exec(`
		INSERT INTO access_grants (id, owner, grantee, active, granted_at)
		VALUES ('g-2', '0xaaa', '0xbbb', 0, datetime('now'))
	`)
	if err == nil {
		t.Error("Expected unique constraint violation for duplicate grant pair, but insert succeeded")
	}
}

func TestSchema_ContentReferenceInsertOrder(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	if err := MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp() failed: %v", err)
	}

	for _, id := range []string{"r-1", "r-2", "r-3"} {
		_, err := db.Exec(`
			INSERT INTO content_references (id, owner, uri, added_at)
			VALUES (?, '0xaaa', 'https://example.com/'||?, datetime('now'))
		`, id, id)
		if err != nil {
			t.Fatalf("Failed to insert reference %s: %v", id, err)
		}
	}

	rows, err := db.Query("SELECT id FROM content_references ORDER BY seq")
	if err != nil {
		t.Fatalf("Failed to query references: %v", err)
	}
	defer rows.Close()

	var got []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			t.Fatalf("Scan failed: %v", err)
		}
		got = append(got, id)
	}
	want := []string{"r-1", "r-2", "r-3"}
	for i := range want {
		if i >= len(got) || got[i] != want[i] {
			t.Fatalf("insertion order = %v, want %v", got, want)
		}
	}
}

// openTestDB opens an in-memory SQLite database for testing.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("Failed to enable foreign keys: %v", err)
	}

	return db
}
