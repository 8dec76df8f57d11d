package model

import "time"

// ContentReference is a pointer to content stored outside the ledger.
// The ledger never fetches the URI; it only records who registered it and when.
// References are immutable once created.
type ContentReference struct {
	ID      string    // UUID
	Owner   string    // Account that registered the reference
	URI     string    // External locator (e.g. https://... or ipfs://...)
	AddedAt time.Time // When the reference was registered
}

// AccessGrant records a viewing permission from Owner to Grantee.
// At most one grant exists per (owner, grantee) pair. Revocation flips
// Active to false instead of deleting the row, so "never granted" and
// "revoked" stay distinguishable.
type AccessGrant struct {
	ID        string // UUID
	Owner     string // Grantor account
	Grantee   string // Viewer account
	Active    bool
	GrantedAt time.Time // Set on creation, refreshed on reactivation
}

// AccessLogEntry is an immutable record of a completed cross-account read.
// Entries are created when an access actually occurs, not when a grant is
// made. The grant records permission, the log records usage.
type AccessLogEntry struct {
	ID         string // UUID
	FileOwner  string // Account whose files were read
	FileURL    string // URL read; empty when the access covered the owner's full file set
	GrantedTo  string // Account that performed the read
	OccurredAt time.Time
}

// Operation tracks an administrative command that may mutate the ledger.
type Operation struct {
	ID         int64
	Operation  string
	Parameters string
	StartedAt  time.Time
	FinishedAt *time.Time
	Status     string // "success" or "error"
}
