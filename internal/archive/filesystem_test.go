package archive

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewFileSystemArchive(t *testing.T) {
	t.Run("creates directory structure", func(t *testing.T) {
		tmpDir := t.TempDir()
		root := filepath.Join(tmpDir, "archive")

		a, err := NewFileSystemArchive("test", root)
		if err != nil {
			t.Fatalf("NewFileSystemArchive() error = %v", err)
		}

		if _, err := os.Stat(filepath.Join(root, "exports")); err != nil {
			t.Errorf("exports directory not created: %v", err)
		}

		if a.name != "test" {
			t.Errorf("name = %q, want %q", a.name, "test")
		}
	})

	t.Run("works with existing directory", func(t *testing.T) {
		tmpDir := t.TempDir()

		if _, err := NewFileSystemArchive("test", tmpDir); err != nil {
			t.Fatalf("NewFileSystemArchive() error = %v", err)
		}
	})
}

func TestFileSystemArchive_PutExport(t *testing.T) {
	tests := []struct {
		name    string
		export  string
		data    string
		size    int64
		wantErr bool
	}{
		{
			name:    "store export successfully",
			export:  "access-log-20240115T103000Z.jsonl",
			data:    "hello world",
			size:    11,
			wantErr: false,
		},
		{
			name:    "size mismatch",
			export:  "access-log-bad.jsonl",
			data:    "hello",
			size:    100,
			wantErr: true,
		},
		{
			name:    "empty export",
			export:  "access-log-empty.jsonl",
			data:    "",
			size:    0,
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := NewFileSystemArchive("test", t.TempDir())
			if err != nil {
				t.Fatalf("NewFileSystemArchive() error = %v", err)
			}

			err = a.PutExport(tt.export, strings.NewReader(tt.data), tt.size)
			if (err != nil) != tt.wantErr {
				t.Fatalf("PutExport() error = %v, wantErr %v", err, tt.wantErr)
			}

			if tt.wantErr {
				// Failed writes must not leave a partial export behind
				if _, err := os.Stat(filepath.Join(a.exportsDir, tt.export)); !os.IsNotExist(err) {
					t.Errorf("partial export left on disk after failed write")
				}
				return
			}

			var buf bytes.Buffer
			if err := a.GetExport(tt.export, &buf); err != nil {
				t.Fatalf("GetExport() error: %v", err)
			}
			if got := buf.String(); got != tt.data {
				t.Errorf("GetExport() = %q, want %q", got, tt.data)
			}
		})
	}
}

func TestFileSystemArchive_PutExportOverwrites(t *testing.T) {
	a, err := NewFileSystemArchive("test", t.TempDir())
	if err != nil {
		t.Fatalf("NewFileSystemArchive() error = %v", err)
	}

	name := "access-log.jsonl"
	for _, content := range []string{"first", "second"} {
		if err := a.PutExport(name, strings.NewReader(content), int64(len(content))); err != nil {
			t.Fatalf("PutExport(%q) error: %v", content, err)
		}
	}

	var buf bytes.Buffer
	if err := a.GetExport(name, &buf); err != nil {
		t.Fatalf("GetExport() error: %v", err)
	}
	if got := buf.String(); got != "second" {
		t.Errorf("GetExport() = %q, want %q", got, "second")
	}
}

func TestFileSystemArchive_GetExportNotFound(t *testing.T) {
	a, err := NewFileSystemArchive("test", t.TempDir())
	if err != nil {
		t.Fatalf("NewFileSystemArchive() error = %v", err)
	}

	var buf bytes.Buffer
	if err := a.GetExport("nonexistent", &buf); err == nil {
		t.Error("GetExport() expected error for nonexistent export, got nil")
	}
}

func TestFileSystemArchive_ListExports(t *testing.T) {
	a, err := NewFileSystemArchive("test", t.TempDir())
	if err != nil {
		t.Fatalf("NewFileSystemArchive() error = %v", err)
	}

	names, err := a.ListExports()
	if err != nil {
		t.Fatalf("ListExports() error: %v", err)
	}
	if len(names) != 0 {
		t.Errorf("ListExports() = %v, want empty", names)
	}

	for _, name := range []string{"b.jsonl", "a.jsonl"} {
		if err := a.PutExport(name, strings.NewReader("x"), 1); err != nil {
			t.Fatalf("PutExport(%q) error: %v", name, err)
		}
	}

	names, err = a.ListExports()
	if err != nil {
		t.Fatalf("ListExports() error: %v", err)
	}
	if len(names) != 2 || names[0] != "a.jsonl" || names[1] != "b.jsonl" {
		t.Errorf("ListExports() = %v, want [a.jsonl b.jsonl]", names)
	}
}

func TestFileSystemArchive_ValidateSetup(t *testing.T) {
	t.Run("valid archive", func(t *testing.T) {
		a, err := NewFileSystemArchive("test", t.TempDir())
		if err != nil {
			t.Fatalf("NewFileSystemArchive() error = %v", err)
		}
		if err := a.ValidateSetup(); err != nil {
			t.Errorf("ValidateSetup() error: %v", err)
		}
	})

	t.Run("missing exports directory", func(t *testing.T) {
		root := t.TempDir()
		a, err := NewFileSystemArchive("test", root)
		if err != nil {
			t.Fatalf("NewFileSystemArchive() error = %v", err)
		}
		if err := os.RemoveAll(filepath.Join(root, "exports")); err != nil {
			t.Fatalf("removing exports dir: %v", err)
		}
		if err := a.ValidateSetup(); err == nil {
			t.Error("ValidateSetup() expected error for missing exports directory, got nil")
		}
	})
}
