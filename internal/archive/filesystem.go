package archive

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"shareledger/internal/ledger"
)

// FileSystemArchive is a filesystem-based implementation of the Archive
// interface. Exports are stored as files in a flat directory:
//
//	<root>/
//	  exports/
//	    <name>     (one file per export)
type FileSystemArchive struct {
	name       string
	root       string
	exportsDir string
}

// NewFileSystemArchive creates a new filesystem archive rooted at the given path.
func NewFileSystemArchive(name, root string) (*FileSystemArchive, error) {
	exportsDir := filepath.Join(root, "exports")

	if err := os.MkdirAll(exportsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create exports directory: %w", err)
	}

	return &FileSystemArchive{
		name:       name,
		root:       root,
		exportsDir: exportsDir,
	}, nil
}

// PutExport stores a named export. Re-storing a name overwrites it.
func (a *FileSystemArchive) PutExport(name string, r io.Reader, size int64) error {
	return a.writeFile(filepath.Join(a.exportsDir, name), r, size)
}

// GetExport retrieves a named export and writes it to w.
func (a *FileSystemArchive) GetExport(name string, w io.Writer) error {
	srcPath := filepath.Join(a.exportsDir, name)

	f, err := os.Open(srcPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("export not found: %s", name)
		}
		return fmt.Errorf("failed to open export: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("failed to read export: %w", err)
	}

	return nil
}

// ListExports returns the stored export names in lexicographic order.
func (a *FileSystemArchive) ListExports() ([]string, error) {
	entries, err := os.ReadDir(a.exportsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read exports directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}

// ValidateSetup verifies that the archive directories are accessible.
func (a *FileSystemArchive) ValidateSetup() error {
	info, err := os.Stat(a.root)
	if err != nil {
		return fmt.Errorf("archive root not accessible: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("archive root is not a directory: %s", a.root)
	}

	info, err = os.Stat(a.exportsDir)
	if err != nil {
		return fmt.Errorf("exports directory not accessible: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("exports path is not a directory: %s", a.exportsDir)
	}

	return nil
}

// writeFile writes data from r to the specified path using atomic write (temp file + rename).
func (a *FileSystemArchive) writeFile(destPath string, r io.Reader, expectedSize int64) error {
	// Create temp file in the same directory to ensure atomic rename works
	dir := filepath.Dir(destPath)
	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	// Clean up temp file on failure
	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	written, err := io.Copy(tmpFile, r)
	if err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write data: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if written != expectedSize {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", expectedSize, written)
	}

	// Atomic rename
	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}

// Compile-time check that FileSystemArchive implements the Archive interface
var _ ledger.Archive = (*FileSystemArchive)(nil)
