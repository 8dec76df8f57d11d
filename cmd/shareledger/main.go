package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"shareledger/internal/app"
	"shareledger/internal/config"
	"shareledger/internal/database"
	"shareledger/internal/encryption"
	"shareledger/internal/httpapi"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates a LedgerApp. The caller must defer app.Close().
// operation identifies the CLI command being run (e.g. "Grant", "ExportHistory").
func newApp(operation string) (*app.LedgerApp, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	a, err := app.NewLedgerApp(cfg, operation)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

func loadConfig() (*config.Config, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return cfg, nil
}

// account returns the caller account from the --account flag.
func account(cmd *cobra.Command) (string, error) {
	acct, _ := cmd.Flags().GetString("account")
	if acct == "" {
		return "", fmt.Errorf("--account is required")
	}
	return acct, nil
}

var rootCmd = &cobra.Command{
	Use:   "shareledger",
	Short: "Ownership and access-control ledger for external content",
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration and database",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults["base_dir"])

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		if err := setupDatabase(cfg); err != nil {
			return err
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Base Dir:   %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:    %s\n", cfg.LogDir)
		fmt.Printf("Database:   %s\n", cfg.Database.Type)
		fmt.Printf("Server:     %s\n", cfg.Server.Addr)
		fmt.Printf("Archives:   %d configured\n", len(cfg.Archives))
		return nil
	},
}

var configKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage export encryption keys",
}

var configKeysInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate the export encryption key pair",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
		if err != nil {
			return fmt.Errorf("creating encryptor: %w", err)
		}
		if enc.IsConfigured() {
			return fmt.Errorf("encryption keys already exist")
		}

		passphrase, err := promptPassphrase()
		if err != nil {
			return err
		}

		if err := enc.Setup(passphrase); err != nil {
			return fmt.Errorf("generating keys: %w", err)
		}

		fmt.Println("Encryption keys generated.")
		return nil
	},
}

// add command
var addCmd = &cobra.Command{
	Use:   "add URI",
	Short: "Register a content reference",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		owner, err := account(cmd)
		if err != nil {
			return err
		}

		a, err := newApp("AddFile")
		if err != nil {
			return err
		}
		defer a.Close()

		ref, err := a.AddFile(owner, args[0])
		if err != nil {
			return err
		}

		fmt.Printf("Added %s (id %s)\n", ref.URI, ref.ID)
		return nil
	},
}

// grant command
var grantCmd = &cobra.Command{
	Use:   "grant GRANTEE",
	Short: "Give an account read access to your files",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		owner, err := account(cmd)
		if err != nil {
			return err
		}

		a, err := newApp("Grant")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Grant(owner, args[0]); err != nil {
			return err
		}

		fmt.Printf("Granted %s access to files of %s\n", args[0], owner)
		return nil
	},
}

// revoke command
var revokeCmd = &cobra.Command{
	Use:   "revoke GRANTEE",
	Short: "Withdraw an account's read access to your files",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		owner, err := account(cmd)
		if err != nil {
			return err
		}

		a, err := newApp("Revoke")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Revoke(owner, args[0]); err != nil {
			return err
		}

		fmt.Printf("Revoked access of %s to files of %s\n", args[0], owner)
		return nil
	},
}

// files command
var filesCmd = &cobra.Command{
	Use:   "files [OWNER]",
	Short: "List an owner's file URIs (your own by default)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		requester, err := account(cmd)
		if err != nil {
			return err
		}

		owner := requester
		if len(args) > 0 {
			owner = args[0]
		}

		a, err := newApp("Display")
		if err != nil {
			return err
		}
		defer a.Close()

		uris, err := a.Display(requester, owner)
		if err != nil {
			return err
		}

		if len(uris) == 0 {
			fmt.Println("No files.")
			return nil
		}
		for _, uri := range uris {
			fmt.Println(uri)
		}
		return nil
	},
}

// shared command
var sharedCmd = &cobra.Command{
	Use:   "shared",
	Short: "List every file shared with you",
	RunE: func(cmd *cobra.Command, args []string) error {
		viewer, err := account(cmd)
		if err != nil {
			return err
		}

		a, err := newApp("SharedDisplay")
		if err != nil {
			return err
		}
		defer a.Close()

		view, err := a.SharedDisplay(viewer)
		if err != nil {
			return err
		}

		for _, uri := range view.URIs {
			fmt.Println(uri)
		}
		if view.Partial {
			fmt.Printf("\nWarning: result is incomplete, %d owner(s) unreachable:\n", len(view.FailedOwners))
			for _, owner := range view.FailedOwners {
				fmt.Printf("  %s\n", owner)
			}
		}
		if len(view.URIs) == 0 && !view.Partial {
			fmt.Println("No files shared with you.")
		}
		return nil
	},
}

// grantees command
var granteesCmd = &cobra.Command{
	Use:   "grantees",
	Short: "List every grant you have made, active or revoked",
	RunE: func(cmd *cobra.Command, args []string) error {
		owner, err := account(cmd)
		if err != nil {
			return err
		}

		a, err := newApp("ListGrantees")
		if err != nil {
			return err
		}
		defer a.Close()

		grants, err := a.ListGrantees(owner)
		if err != nil {
			return err
		}

		if len(grants) == 0 {
			fmt.Println("No grants recorded.")
			return nil
		}
		for _, g := range grants {
			state := "revoked"
			if g.Active {
				state = "active"
			}
			fmt.Printf("%s  %-8s  %s\n", g.Grantee, state, g.GrantedAt.Format("2006-01-02 15:04:05"))
		}
		return nil
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View the access audit log for your account",
	RunE: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all")

		acct := ""
		if !all {
			var err error
			acct, err = account(cmd)
			if err != nil {
				return err
			}
		}

		a, err := newApp("History")
		if err != nil {
			return err
		}
		defer a.Close()

		entries, err := a.History(acct)
		if err != nil {
			return err
		}

		if len(entries) == 0 {
			fmt.Println("No accesses recorded.")
			return nil
		}
		for _, e := range entries {
			url := e.FileURL
			if url == "" {
				url = "(all files)"
			}
			fmt.Printf("%s  %s -> %s  %s\n",
				e.OccurredAt.Format("2006-01-02 15:04:05"),
				e.FileOwner,
				e.GrantedTo,
				url,
			)
		}
		return nil
	},
}

// operations command
var operationsCmd = &cobra.Command{
	Use:   "operations",
	Short: "View recent administrative operations",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp("ListOperations")
		if err != nil {
			return err
		}
		defer a.Close()

		ops, err := a.Operations(limit)
		if err != nil {
			return err
		}

		if len(ops) == 0 {
			fmt.Println("No operations recorded.")
			return nil
		}
		for _, op := range ops {
			duration := ""
			if op.FinishedAt != nil {
				d := op.FinishedAt.Sub(op.StartedAt)
				duration = d.Truncate(time.Millisecond).String()
			}
			fmt.Printf("#%d  %-15s  %s  %-10s  %s\n",
				op.ID,
				op.Operation,
				op.StartedAt.Format("2006-01-02 15:04:05"),
				op.Status,
				duration,
			)
		}
		return nil
	},
}

// export-history command
var exportHistoryCmd = &cobra.Command{
	Use:   "export-history",
	Short: "Export the audit log to the configured archives",
	RunE: func(cmd *cobra.Command, args []string) error {
		encrypt, _ := cmd.Flags().GetBool("encrypt")

		a, err := newApp("ExportHistory")
		if err != nil {
			return err
		}
		defer a.Close()

		name, count, err := a.ExportHistory(encrypt)
		if err != nil {
			return err
		}

		fmt.Printf("Exported %d audit entr(ies) as %s\n", count, name)
		return nil
	},
}

// serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the ledger HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Serve")
		if err != nil {
			return err
		}
		defer a.Close()

		logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
		server := httpapi.NewServer(a.Config().Server.Addr, a.Service(), logger)

		errCh := make(chan error, 1)
		go func() {
			errCh <- server.ListenAndServe()
		}()

		stop := make(chan os.Signal, 1)
		signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

		select {
		case err := <-errCh:
			return err
		case <-stop:
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		logger.Info("shutdown started")
		if err := server.Shutdown(ctx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		logger.Info("shutdown complete")
		return nil
	},
}

// migrate command
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := setupDatabase(cfg); err != nil {
			return err
		}
		fmt.Println("Database is up to date.")
		return nil
	},
}

// setupDatabase creates the data directory and applies migrations.
func setupDatabase(cfg *config.Config) error {
	if cfg.Database.Type != "sqlite" {
		return nil
	}

	if err := os.MkdirAll(cfg.Database.DataDir, 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	store, err := database.NewSQLiteStore(filepath.Join(cfg.Database.DataDir, "ledger.db"))
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer store.Close()

	if err := store.MigrateUp(); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}
	return nil
}

// promptPassphrase reads a passphrase twice without echo and verifies both
// entries match.
func promptPassphrase() (string, error) {
	fmt.Print("Passphrase: ")
	first, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}

	fmt.Print("Confirm passphrase: ")
	second, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}

	if string(first) != string(second) {
		return "", fmt.Errorf("passphrases do not match")
	}
	if len(first) == 0 {
		return "", fmt.Errorf("passphrase must not be empty")
	}
	return string(first), nil
}

func init() {
	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configKeysCmd)
	configKeysCmd.AddCommand(configKeysInitCmd)

	// root commands
	rootCmd.PersistentFlags().StringP("account", "a", "", "Caller account address (0x...)")
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(grantCmd)
	rootCmd.AddCommand(revokeCmd)
	rootCmd.AddCommand(filesCmd)
	rootCmd.AddCommand(sharedCmd)
	rootCmd.AddCommand(granteesCmd)
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().Bool("all", false, "Show the full audit log, not just your account")
	rootCmd.AddCommand(operationsCmd)
	operationsCmd.Flags().IntP("limit", "n", 50, "Maximum number of operations to show")
	rootCmd.AddCommand(exportHistoryCmd)
	exportHistoryCmd.Flags().Bool("encrypt", false, "Encrypt the export with the configured public key")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
}
