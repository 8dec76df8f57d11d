package archive

import (
	"bytes"
	"strings"
	"testing"
)

func TestMemoryArchive_PutAndGetExport(t *testing.T) {
	arch := NewMemoryArchive("test-archive")

	tests := []struct {
		name    string
		export  string
		content string
	}{
		{
			name:    "store and retrieve export",
			export:  "access-log-20240115T103000Z.jsonl",
			content: `{"id":"id-1","file_owner":"0xaa","granted_to":"0xbb","occurred_at":"2024-01-15T10:30:00Z"}` + "\n",
		},
		{
			name:    "store empty export",
			export:  "access-log-empty.jsonl",
			content: "",
		},
		{
			name:    "store large export",
			export:  "access-log-large.jsonl",
			content: strings.Repeat("x", 10000),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := strings.NewReader(tt.content)
			if err := arch.PutExport(tt.export, r, int64(len(tt.content))); err != nil {
				t.Fatalf("PutExport() error: %v", err)
			}

			var buf bytes.Buffer
			if err := arch.GetExport(tt.export, &buf); err != nil {
				t.Fatalf("GetExport() error: %v", err)
			}

			if got := buf.String(); got != tt.content {
				t.Errorf("GetExport() = %q, want %q", got, tt.content)
			}
		})
	}
}

func TestMemoryArchive_PutExportOverwrites(t *testing.T) {
	arch := NewMemoryArchive("test-archive")

	name := "access-log.jsonl"
	for _, content := range []string{"first", "second"} {
		r := strings.NewReader(content)
		if err := arch.PutExport(name, r, int64(len(content))); err != nil {
			t.Fatalf("PutExport(%q) error: %v", content, err)
		}
	}

	var buf bytes.Buffer
	if err := arch.GetExport(name, &buf); err != nil {
		t.Fatalf("GetExport() error: %v", err)
	}
	if got := buf.String(); got != "second" {
		t.Errorf("GetExport() = %q, want %q", got, "second")
	}
}

func TestMemoryArchive_GetExportNotFound(t *testing.T) {
	arch := NewMemoryArchive("test-archive")

	var buf bytes.Buffer
	if err := arch.GetExport("nonexistent", &buf); err == nil {
		t.Error("GetExport() expected error for nonexistent export, got nil")
	}
}

func TestMemoryArchive_PutExportSizeMismatch(t *testing.T) {
	arch := NewMemoryArchive("test-archive")

	content := "test"
	r := strings.NewReader(content)
	// Pass wrong size
	if err := arch.PutExport("export", r, int64(len(content)+10)); err == nil {
		t.Error("PutExport() expected error for size mismatch, got nil")
	}
}

func TestMemoryArchive_ListExports(t *testing.T) {
	arch := NewMemoryArchive("test-archive")

	names, err := arch.ListExports()
	if err != nil {
		t.Fatalf("ListExports() error: %v", err)
	}
	if len(names) != 0 {
		t.Errorf("ListExports() = %v, want empty", names)
	}

	// Stored out of order, listed sorted
	for _, name := range []string{"b.jsonl", "a.jsonl", "c.jsonl"} {
		if err := arch.PutExport(name, strings.NewReader("x"), 1); err != nil {
			t.Fatalf("PutExport(%q) error: %v", name, err)
		}
	}

	names, err = arch.ListExports()
	if err != nil {
		t.Fatalf("ListExports() error: %v", err)
	}
	want := []string{"a.jsonl", "b.jsonl", "c.jsonl"}
	if len(names) != len(want) {
		t.Fatalf("ListExports() = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("ListExports()[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestMemoryArchive_ValidateSetup(t *testing.T) {
	arch := NewMemoryArchive("test-archive")
	if err := arch.ValidateSetup(); err != nil {
		t.Errorf("ValidateSetup() error: %v", err)
	}
}
