// Package ledger implements the ownership and access-control ledger: who
// registered which content references, who may view them, and an
// append-only audit log of every cross-account read.
package ledger

import (
	"fmt"
	"sync"

	"shareledger/internal/account"
	"shareledger/internal/model"
)

// Ledger is the single entry point for all ledger operations. It owns the
// backing store exclusively; callers never reach the store directly.
//
// Writes are serialized through a single mutex. Reads go straight to the
// store and may run concurrently with each other and with writers; the
// store guarantees each call sees a consistent snapshot.
type Ledger struct {
	store  Store
	logger Logger
	clock  Clock
	idgen  IDGenerator

	writeMu sync.Mutex
}

// NewLedger creates a Ledger with the provided dependencies.
func NewLedger(store Store, logger Logger, clock Clock, idgen IDGenerator) *Ledger {
	return &Ledger{
		store:  store,
		logger: logger,
		clock:  clock,
		idgen:  idgen,
	}
}

// AddFile registers a content reference for owner. The URI is an opaque
// external locator; the ledger does not fetch or validate its reachability.
// Repeated URIs are legal and represent distinct upload events.
func (l *Ledger) AddFile(owner, uri string) (*model.ContentReference, error) {
	owner, err := normalizeAccount(owner)
	if err != nil {
		return nil, err
	}
	if uri == "" {
		return nil, fmt.Errorf("%w: empty uri", ErrInvalidInput)
	}

	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	ref := &model.ContentReference{
		ID:      l.idgen.New(),
		Owner:   owner,
		URI:     uri,
		AddedAt: l.clock.Now(),
	}
	if err := l.store.CreateContentReference(ref); err != nil {
		return nil, fmt.Errorf("storing content reference: %w", err)
	}

	l.logger.Info("file registered", "owner", owner, "uri", uri)
	return ref, nil
}

// Grant gives grantee viewing access to all of owner's content references.
// Granting to an account that already has active access is a no-op; granting
// to a previously revoked account reactivates the existing record.
func (l *Ledger) Grant(owner, grantee string) error {
	owner, err := normalizeAccount(owner)
	if err != nil {
		return err
	}
	grantee, err = normalizeAccount(grantee)
	if err != nil {
		return err
	}
	if owner == grantee {
		return ErrSelfGrant
	}

	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	if err := l.store.ApplyGrant(l.idgen.New(), owner, grantee, l.clock.Now()); err != nil {
		return fmt.Errorf("applying grant: %w", err)
	}

	l.logger.Info("access granted", "owner", owner, "grantee", grantee)
	return nil
}

// Revoke withdraws grantee's viewing access. The grant record is kept with
// active=false so grant history survives. Returns ErrNotFound if no grant
// was ever made to grantee; revoking an already-inactive grant is a no-op.
func (l *Ledger) Revoke(owner, grantee string) error {
	owner, err := normalizeAccount(owner)
	if err != nil {
		return err
	}
	grantee, err = normalizeAccount(grantee)
	if err != nil {
		return err
	}

	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	if err := l.store.RevokeGrant(owner, grantee); err != nil {
		return fmt.Errorf("revoking grant for %s: %w", grantee, err)
	}

	l.logger.Info("access revoked", "owner", owner, "grantee", grantee)
	return nil
}

// Display returns the URIs of owner's content references, in insertion
// order, after authorizing requester. A cross-account read appends one
// audit entry covering the whole file set; the entry must be durably
// recorded for the read to succeed.
func (l *Ledger) Display(requester, owner string) ([]string, error) {
	requester, err := normalizeAccount(requester)
	if err != nil {
		return nil, err
	}
	owner, err = normalizeAccount(owner)
	if err != nil {
		return nil, err
	}

	if err := l.authorizeRead(requester, owner); err != nil {
		return nil, err
	}

	refs, err := l.store.FindContentReferencesByOwner(owner)
	if err != nil {
		return nil, fmt.Errorf("listing files for %s: %w", owner, err)
	}

	uris := make([]string, len(refs))
	for i, ref := range refs {
		uris[i] = ref.URI
	}

	if requester != owner {
		entry := &model.AccessLogEntry{
			ID:         l.idgen.New(),
			FileOwner:  owner,
			GrantedTo:  requester,
			OccurredAt: l.clock.Now(),
		}
		if err := l.store.AppendAccessLog(entry); err != nil {
			return nil, fmt.Errorf("recording access: %w", err)
		}
		l.logger.Debug("cross-account access recorded", "owner", owner, "requester", requester)
	}

	return uris, nil
}

// ListGrantees returns every grant record owner ever created, in creation
// order, including revoked ones. Callers use the Active flag to tell
// "revoked" apart from "never granted".
func (l *Ledger) ListGrantees(owner string) ([]*model.AccessGrant, error) {
	owner, err := normalizeAccount(owner)
	if err != nil {
		return nil, err
	}
	grants, err := l.store.FindGranteesByOwner(owner)
	if err != nil {
		return nil, fmt.Errorf("listing grantees for %s: %w", owner, err)
	}
	return grants, nil
}

// History returns audit entries oldest first. With a non-empty account,
// only entries involving that account (as file owner or reader) are
// returned; with an empty account the full log.
func (l *Ledger) History(acct string) ([]*model.AccessLogEntry, error) {
	if acct != "" {
		var err error
		acct, err = normalizeAccount(acct)
		if err != nil {
			return nil, err
		}
	}
	entries, err := l.store.FindAccessLog(acct)
	if err != nil {
		return nil, fmt.Errorf("reading access log: %w", err)
	}
	return entries, nil
}

// authorizeRead is the single chokepoint deciding whether requester may
// read owner's file list: either they are the same account, or owner has
// an active grant to requester. Both Display and the shared-file
// aggregation funnel through here.
func (l *Ledger) authorizeRead(requester, owner string) error {
	if requester == owner {
		return nil
	}
	grant, err := l.store.FindGrant(owner, requester)
	if err != nil {
		return fmt.Errorf("checking grant: %w", err)
	}
	if grant == nil || !grant.Active {
		return ErrAccessDenied
	}
	return nil
}

// normalizeAccount maps account validation failures onto ErrInvalidAddress.
func normalizeAccount(raw string) (string, error) {
	normalized, err := account.Normalize(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	return normalized, nil
}
