package ledger

import (
	"errors"
	"sync"
)

// maxOwnerFetches bounds how many grantors' file lists are fetched
// concurrently during one aggregation.
const maxOwnerFetches = 4

// SharedView is the result of a shared-file aggregation for one viewer.
// Partial is true when one or more grantors' file lists could not be
// fetched; those accounts are listed in FailedOwners and their files are
// absent from URIs.
type SharedView struct {
	URIs         []string
	Partial      bool
	FailedOwners []string
}

// SharedDisplay returns every content reference visible to viewer through
// someone else's grant: the union of Display(viewer, owner) over all owners
// with an active grant to viewer, concatenated in grant-creation order with
// each owner's files in insertion order.
//
// Per-owner fetches run concurrently, and each owner's grant is re-verified
// at the moment its files are read: a grant revoked by a concurrent writer
// mid-aggregation drops that owner from the result. A store failure on one
// owner does not abort the aggregation; the owner is reported in
// FailedOwners and everything else is still returned.
//
// A viewer with no active grantors gets an empty view, not an error.
func (l *Ledger) SharedDisplay(viewer string) (*SharedView, error) {
	viewer, err := normalizeAccount(viewer)
	if err != nil {
		return nil, err
	}

	grantors, err := l.store.FindActiveGrantors(viewer)
	if err != nil {
		return nil, err
	}

	type ownerResult struct {
		owner string
		uris  []string
		err   error
	}

	results := make([]ownerResult, len(grantors))
	sem := make(chan struct{}, maxOwnerFetches)
	var wg sync.WaitGroup

	for i, owner := range grantors {
		wg.Add(1)
		go func(i int, owner string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			// Display re-checks the grant and records the audit entry.
			uris, err := l.Display(viewer, owner)
			results[i] = ownerResult{owner: owner, uris: uris, err: err}
		}(i, owner)
	}
	wg.Wait()

	view := &SharedView{URIs: []string{}}
	for _, res := range results {
		switch {
		case res.err == nil:
			view.URIs = append(view.URIs, res.uris...)
		case errors.Is(res.err, ErrAccessDenied):
			// Grant revoked between the grantor lookup and the read;
			// the owner's files are simply not visible anymore.
			l.logger.Debug("grant revoked mid-aggregation", "owner", res.owner, "viewer", viewer)
		default:
			l.logger.Warn("failed to fetch owner files", "owner", res.owner, "viewer", viewer, "error", res.err)
			view.Partial = true
			view.FailedOwners = append(view.FailedOwners, res.owner)
		}
	}

	return view, nil
}
