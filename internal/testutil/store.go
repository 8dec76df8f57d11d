package testutil

import (
	"errors"
	"testing"

	"shareledger/internal/database"
	"shareledger/internal/ledger"
	"shareledger/internal/model"
)

// NewTestStore creates a new in-memory SQLite store with schema applied.
// The store is automatically closed when the test completes.
func NewTestStore(t *testing.T) ledger.Store {
	t.Helper()

	store, err := database.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}

	if err := store.MigrateUp(); err != nil {
		store.Close()
		t.Fatalf("failed to apply schema: %v", err)
	}

	t.Cleanup(func() {
		store.Close()
	})

	return store
}

// ErrStoreFailure is returned by FailingStore for owners marked as failing.
var ErrStoreFailure = errors.New("simulated store failure")

// FailingStore wraps a Store and fails FindContentReferencesByOwner for a
// chosen set of owners. Used to exercise partial aggregation failures.
type FailingStore struct {
	ledger.Store
	FailOwners map[string]bool
}

// NewFailingStore wraps inner so reads for the given owners fail.
func NewFailingStore(inner ledger.Store, failOwners ...string) *FailingStore {
	m := make(map[string]bool, len(failOwners))
	for _, owner := range failOwners {
		m[owner] = true
	}
	return &FailingStore{Store: inner, FailOwners: m}
}

func (s *FailingStore) FindContentReferencesByOwner(owner string) ([]*model.ContentReference, error) {
	if s.FailOwners[owner] {
		return nil, ErrStoreFailure
	}
	return s.Store.FindContentReferencesByOwner(owner)
}

// RevokingStore wraps a Store and revokes a grant the first time the
// grantor list for a viewer is read, simulating a concurrent revoke
// between the index lookup and the per-owner read.
type RevokingStore struct {
	ledger.Store
	RevokeOwner   string
	RevokeGrantee string

	revoked bool
}

func (s *RevokingStore) FindActiveGrantors(grantee string) ([]string, error) {
	grantors, err := s.Store.FindActiveGrantors(grantee)
	if err != nil {
		return nil, err
	}
	if !s.revoked {
		s.revoked = true
		if err := s.Store.RevokeGrant(s.RevokeOwner, s.RevokeGrantee); err != nil {
			return nil, err
		}
	}
	return grantors, nil
}

// Compile-time interface checks.
var (
	_ ledger.Store = (*FailingStore)(nil)
	_ ledger.Store = (*RevokingStore)(nil)
)
