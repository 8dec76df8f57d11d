package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestManager_ReadWrite_RoundTrip(t *testing.T) {
	original := &Config{
		BaseDir: "/home/user/.local/share/shareledger",
		LogDir:  "/home/user/.local/share/shareledger/log",
		Database: DatabaseConfig{
			Type:    "sqlite",
			DataDir: "/home/user/.local/share/shareledger/data",
		},
		Archives: []ArchiveConfig{
			{Type: "filesystem", Name: "local", FSArchiveRoot: "/backup/archive"},
		},
		Encryption: EncryptionConfig{
			PublicKeyPath:  "/home/user/.local/share/shareledger/keys/shareledger.pub",
			PrivateKeyPath: "/home/user/.local/share/shareledger/keys/shareledger.key",
		},
		Server: ServerConfig{Addr: "localhost:9090"},
	}

	var buf bytes.Buffer
	m := &Manager{}

	if err := m.Write(&buf, original); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, err := m.Read(&buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if got.BaseDir != original.BaseDir {
		t.Errorf("BaseDir = %q, want %q", got.BaseDir, original.BaseDir)
	}
	if got.LogDir != original.LogDir {
		t.Errorf("LogDir = %q, want %q", got.LogDir, original.LogDir)
	}
	if got.Database.Type != "sqlite" {
		t.Errorf("Database.Type = %q, want %q", got.Database.Type, "sqlite")
	}
	if len(got.Archives) != 1 {
		t.Fatalf("len(Archives) = %d, want 1", len(got.Archives))
	}
	if got.Archives[0].Type != "filesystem" {
		t.Errorf("Archive.Type = %q, want %q", got.Archives[0].Type, "filesystem")
	}
	if got.Archives[0].FSArchiveRoot != "/backup/archive" {
		t.Errorf("Archive.FSArchiveRoot = %q, want %q", got.Archives[0].FSArchiveRoot, "/backup/archive")
	}
	if got.Encryption.PublicKeyPath != original.Encryption.PublicKeyPath {
		t.Errorf("Encryption.PublicKeyPath = %q, want %q", got.Encryption.PublicKeyPath, original.Encryption.PublicKeyPath)
	}
	if got.Server.Addr != "localhost:9090" {
		t.Errorf("Server.Addr = %q, want %q", got.Server.Addr, "localhost:9090")
	}
}

func TestNewConfig(t *testing.T) {
	cfg := NewConfig("/data/shareledger")

	if cfg.BaseDir != "/data/shareledger" {
		t.Errorf("BaseDir = %q, want %q", cfg.BaseDir, "/data/shareledger")
	}
	if cfg.LogDir != "/data/shareledger/log" {
		t.Errorf("LogDir = %q, want %q", cfg.LogDir, "/data/shareledger/log")
	}
	if cfg.Database.Type != "sqlite" {
		t.Errorf("Database.Type = %q, want %q", cfg.Database.Type, "sqlite")
	}
	if cfg.Database.DataDir != "/data/shareledger/data" {
		t.Errorf("Database.DataDir = %q, want %q", cfg.Database.DataDir, "/data/shareledger/data")
	}
	if cfg.Encryption.PublicKeyPath != "/data/shareledger/keys/shareledger.pub" {
		t.Errorf("Encryption.PublicKeyPath = %q, want %q", cfg.Encryption.PublicKeyPath, "/data/shareledger/keys/shareledger.pub")
	}
	if cfg.Server.Addr != "localhost:8080" {
		t.Errorf("Server.Addr = %q, want %q", cfg.Server.Addr, "localhost:8080")
	}
}

func TestInit(t *testing.T) {
	t.Run("creates config file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "shareledger.toml")
		cfg := NewConfig(dir)

		if err := Init(path, cfg); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		if _, err := os.Stat(path); err != nil {
			t.Fatalf("config file not created: %v", err)
		}
	})

	t.Run("fails if file already exists", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "shareledger.toml")
		cfg := NewConfig(dir)

		if err := Init(path, cfg); err != nil {
			t.Fatalf("first Init() error = %v", err)
		}

		err := Init(path, cfg)
		if err == nil {
			t.Fatal("second Init() expected error")
		}
	})
}

func TestReadFromFile(t *testing.T) {
	t.Run("reads valid config", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "shareledger.toml")
		cfg := NewConfig(dir)
		cfg.Database = DatabaseConfig{Type: "memory"}

		if err := Init(path, cfg); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		got, err := ReadFromFile(path)
		if err != nil {
			t.Fatalf("ReadFromFile() error = %v", err)
		}
		if got.Database.Type != "memory" {
			t.Errorf("Database.Type = %q, want %q", got.Database.Type, "memory")
		}
	})

	t.Run("returns error for missing file", func(t *testing.T) {
		_, err := ReadFromFile("/nonexistent/path/shareledger.toml")
		if err == nil {
			t.Fatal("ReadFromFile() expected error for missing file")
		}
	})
}
