package ledger

import "io"

// Archive is the interface for storing audit-log exports. Implementations
// include in-memory storage (for testing), local filesystem, and S3.
// Archives hold serialized ledger exports only, never the referenced content.
type Archive interface {
	// PutExport stores a named export. Storing the same name again
	// overwrites the previous export.
	// size is the number of bytes that will be read from r.
	PutExport(name string, r io.Reader, size int64) error

	// GetExport retrieves a named export and writes it to w.
	GetExport(name string, w io.Writer) error

	// ListExports returns the names of all stored exports in
	// lexicographic order.
	ListExports() ([]string, error)

	// ValidateSetup checks that the archive is correctly configured
	// and accessible.
	ValidateSetup() error
}
