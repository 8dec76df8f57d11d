package ledger

import (
	"time"

	"shareledger/internal/model"
)

// Store provides an interface for ledger state persistence.
// Mutating methods must apply their effects atomically: a failed call
// leaves no partial state behind.
type Store interface {
	// Content reference operations

	// CreateContentReference appends a reference to its owner's sequence.
	// Repeated URIs are legal; each call records a distinct reference.
	CreateContentReference(ref *model.ContentReference) error

	// FindContentReferencesByOwner returns all references registered by
	// owner, in insertion order. An unknown owner yields an empty slice.
	FindContentReferencesByOwner(owner string) ([]*model.ContentReference, error)

	// Grant operations

	// ApplyGrant creates an active grant from owner to grantee, or
	// reactivates an existing inactive one (refreshing its granted-at
	// time). Applying an already-active grant is a no-op.
	ApplyGrant(id, owner, grantee string, grantedAt time.Time) error

	// RevokeGrant deactivates the grant from owner to grantee. Revoking
	// an already-inactive grant is a no-op. Returns ErrNotFound if no
	// grant record exists for the pair.
	RevokeGrant(owner, grantee string) error

	// FindGrant returns the grant record for (owner, grantee), or nil
	// if none was ever created.
	FindGrant(owner, grantee string) (*model.AccessGrant, error)

	// FindGranteesByOwner returns every grant record ever created by
	// owner, active or not, in creation order.
	FindGranteesByOwner(owner string) ([]*model.AccessGrant, error)

	// FindActiveGrantors returns the owners that currently have an
	// active grant to grantee, in grant-creation order.
	FindActiveGrantors(grantee string) ([]string, error)

	// Access log operations

	// AppendAccessLog durably appends one audit entry. Entries are never
	// updated or deleted.
	AppendAccessLog(entry *model.AccessLogEntry) error

	// FindAccessLog returns audit entries in append order, oldest first.
	// With a non-empty account, only entries where the account is the
	// file owner or the reader are returned; otherwise the full log.
	FindAccessLog(account string) ([]*model.AccessLogEntry, error)

	// Operation tracking

	// CreateOperation records the start of an administrative operation.
	CreateOperation(operation string, parameters string) (*model.Operation, error)

	// FinishOperation marks an operation finished with the given status.
	FinishOperation(id int64, status string) error

	// ListOperations returns the most recent operations, newest first.
	ListOperations(limit int) ([]*model.Operation, error)

	// CheckMigrations verifies the storage schema is up-to-date.
	CheckMigrations() error

	// Close closes the underlying storage.
	Close() error
}
