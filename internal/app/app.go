package app

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"shareledger/internal/archive"
	"shareledger/internal/config"
	"shareledger/internal/database"
	"shareledger/internal/encryption"
	"shareledger/internal/ledger"
	"shareledger/internal/model"
)

// LedgerApp is the application layer between the CLI (or HTTP server) and
// the Ledger service. It constructs all dependencies from config, exposes
// high-level operations, and manages the store lifecycle on Close.
type LedgerApp struct {
	cfg       *config.Config
	store     ledger.Store
	archives  []namedArchive
	encryptor ledger.Encryptor
	service   *ledger.Ledger
	op        *AdminOperation
	logFile   *os.File
}

type namedArchive struct {
	name string
	ledger.Archive
}

// NewLedgerApp creates a fully wired LedgerApp from the given config.
// operation identifies the command being run (e.g. "Grant", "ExportHistory").
// The caller must call Close when done.
func NewLedgerApp(cfg *config.Config, operation string) (*LedgerApp, error) {
	store, err := database.NewStoreFromConfig(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("creating store: %w", err)
	}

	if err := store.CheckMigrations(); err != nil {
		store.Close()
		return nil, fmt.Errorf("database schema out of date: %w", err)
	}

	var archives []namedArchive
	for _, ac := range cfg.Archives {
		a, err := archive.NewArchiveFromConfig(ac)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("creating archive %q: %w", ac.Name, err)
		}
		archives = append(archives, namedArchive{name: ac.Name, Archive: a})
	}

	enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("creating encryptor: %w", err)
	}

	opID := time.Now().UTC().Format("20060102T150405Z")
	logger, logFile, err := newLogger(cfg.LogDir, opID)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	svc := ledger.NewLedger(store, &slogAdapter{l: logger}, ledger.RealClock{}, ledger.UUIDGenerator{})
	op := NewAdminOperation(operation, "")

	return &LedgerApp{
		cfg:       cfg,
		store:     store,
		archives:  archives,
		encryptor: enc,
		service:   svc,
		op:        op,
		logFile:   logFile,
	}, nil
}

// persistOperation saves the admin operation to the store, giving it an
// auto-increment ID. This should only be called for mutating commands.
func (a *LedgerApp) persistOperation(parameters string) error {
	if a.op.Persisted() {
		return nil // already persisted
	}
	a.op.Parameters = parameters
	dbOp, err := a.store.CreateOperation(a.op.Operation, a.op.Parameters)
	if err != nil {
		return fmt.Errorf("persisting admin operation: %w", err)
	}
	a.op.ID = dbOp.ID
	return nil
}

// fail records that the operation ended in error and passes err through.
func (a *LedgerApp) fail(err error) error {
	if err != nil {
		a.op.Status = "error"
	}
	return err
}

// AddFile registers a content reference for the owner account.
func (a *LedgerApp) AddFile(owner, uri string) (*model.ContentReference, error) {
	if err := a.persistOperation(owner + " " + uri); err != nil {
		return nil, err
	}
	ref, err := a.service.AddFile(owner, uri)
	return ref, a.fail(err)
}

// Grant gives grantee read access to all of owner's files.
func (a *LedgerApp) Grant(owner, grantee string) error {
	if err := a.persistOperation(owner + " " + grantee); err != nil {
		return err
	}
	return a.fail(a.service.Grant(owner, grantee))
}

// Revoke withdraws grantee's read access to owner's files.
func (a *LedgerApp) Revoke(owner, grantee string) error {
	if err := a.persistOperation(owner + " " + grantee); err != nil {
		return err
	}
	return a.fail(a.service.Revoke(owner, grantee))
}

// Display returns owner's file URIs as seen by requester.
func (a *LedgerApp) Display(requester, owner string) ([]string, error) {
	return a.service.Display(requester, owner)
}

// SharedDisplay aggregates the files shared with viewer across all grantors.
func (a *LedgerApp) SharedDisplay(viewer string) (*ledger.SharedView, error) {
	return a.service.SharedDisplay(viewer)
}

// ListGrantees returns every grant owner has ever made, active or revoked.
func (a *LedgerApp) ListGrantees(owner string) ([]*model.AccessGrant, error) {
	return a.service.ListGrantees(owner)
}

// History returns audit entries involving the account, or the full log when
// account is empty.
func (a *LedgerApp) History(account string) ([]*model.AccessLogEntry, error) {
	return a.service.History(account)
}

// Operations returns the most recent admin operations, newest first.
func (a *LedgerApp) Operations(limit int) ([]*model.Operation, error) {
	return a.store.ListOperations(limit)
}

// ExportHistory serializes the full access log as JSON Lines and stores it
// in every configured archive. With encrypt set, the export is encrypted
// with the configured public key before upload. Returns the export name and
// the number of entries exported.
func (a *LedgerApp) ExportHistory(encrypt bool) (string, int, error) {
	if len(a.archives) == 0 {
		return "", 0, fmt.Errorf("no archives configured")
	}

	if err := a.persistOperation(""); err != nil {
		return "", 0, err
	}

	entries, err := a.service.History("")
	if err != nil {
		return "", 0, a.fail(err)
	}

	var plain bytes.Buffer
	if err := ledger.EncodeAccessLog(&plain, entries); err != nil {
		return "", 0, a.fail(err)
	}

	name := ledger.ExportName(time.Now())
	data := plain.Bytes()

	if encrypt {
		if !a.encryptor.IsConfigured() {
			return "", 0, a.fail(fmt.Errorf("encryption keys not set up: run config init first"))
		}
		var sealed bytes.Buffer
		if err := a.encryptor.Encrypt(bytes.NewReader(data), &sealed); err != nil {
			return "", 0, a.fail(fmt.Errorf("encrypting export: %w", err))
		}
		data = sealed.Bytes()
		name += ".age"
	}

	for _, arch := range a.archives {
		if err := arch.PutExport(name, bytes.NewReader(data), int64(len(data))); err != nil {
			return "", 0, a.fail(fmt.Errorf("storing export in archive %q: %w", arch.name, err))
		}
	}

	return name, len(entries), nil
}

// SetupEncryption generates the export encryption key pair.
func (a *LedgerApp) SetupEncryption(passphrase string) error {
	return a.encryptor.Setup(passphrase)
}

// EncryptionConfigured reports whether export encryption keys exist.
func (a *LedgerApp) EncryptionConfigured() bool {
	return a.encryptor.IsConfigured()
}

// Service exposes the underlying ledger service, for callers like the HTTP
// server that manage their own request lifecycle.
func (a *LedgerApp) Service() *ledger.Ledger {
	return a.service
}

// Config returns the configuration the app was built from.
func (a *LedgerApp) Config() *config.Config {
	return a.cfg
}

// Close finalizes the operation record (for persisted operations) and closes
// all resources.
func (a *LedgerApp) Close() error {
	var firstErr error

	if a.op.Persisted() {
		if err := a.store.FinishOperation(a.op.ID, a.op.Status); err != nil {
			firstErr = fmt.Errorf("finishing admin operation: %w", err)
		}
	}

	if err := a.store.Close(); err != nil {
		if firstErr == nil {
			firstErr = fmt.Errorf("closing store: %w", err)
		}
	}

	if a.logFile != nil {
		a.logFile.Close()
	}

	return firstErr
}
