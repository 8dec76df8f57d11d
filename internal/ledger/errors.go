package ledger

import "errors"

// Sentinel errors returned by ledger operations. Callers match them with
// errors.Is; the store and transport layers map them onto their own
// error surfaces.
var (
	// ErrInvalidInput marks a malformed URI or other bad argument.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidAddress marks an account identifier that fails format validation.
	ErrInvalidAddress = errors.New("invalid account address")

	// ErrSelfGrant is returned when an owner tries to grant access to itself.
	ErrSelfGrant = errors.New("cannot grant access to yourself")

	// ErrAccessDenied is returned when a read is attempted without an active grant.
	ErrAccessDenied = errors.New("access denied")

	// ErrNotFound is returned when a referenced grant record does not exist.
	ErrNotFound = errors.New("not found")
)
