// Package admin provides chatctl, the catalog and schema administration CLI.
package admin

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"modelchat-backend/internal/catalog"
	"modelchat-backend/internal/config"
	"modelchat-backend/internal/database"
	"modelchat-backend/internal/repository"
)

// opener is swapped in tests.
var opener = func(ctx context.Context, logger *slog.Logger) (*repository.Store, error) {
	cfg := config.LoadStore()
	return repository.Open(ctx, repository.StoreConfig{
		Driver:     cfg.StoreDriver,
		AnonURL:    cfg.DatabaseURL,
		ServiceURL: cfg.DatabaseServiceURL,
		SQLitePath: cfg.SQLitePath,
		// migrate applies and reports schema changes itself.
		SkipMigrations: true,
	}, database.PrivilegeService, logger)
}

// NewRootCommand builds the chatctl command tree.
func NewRootCommand() *cobra.Command {
	var verbose bool
	var store *repository.Store
	var logger *slog.Logger

	root := &cobra.Command{
		Use:          "chatctl",
		Short:        "Administer the model catalog and schema",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := slog.LevelWarn
			if verbose {
				level = slog.LevelInfo
			}
			logger = config.SetupLoggerWithWriters(cmd.ErrOrStderr(), io.Discard, level)

			var err error
			store, err = opener(cmd.Context(), logger)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			if store.Privilege != database.PrivilegeService {
				store.Close()
				return fmt.Errorf("chatctl needs service privilege; set DATABASE_SERVICE_URL")
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if store != nil {
				store.Close()
			}
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			applied, err := store.Migrate(cmd.Context())
			if err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			if len(applied) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "schema up to date (%s)\n", store.Driver)
				return nil
			}
			versions := make([]string, len(applied))
			for i, v := range applied {
				versions[i] = strconv.Itoa(v)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "applied migrations %s (%s)\n", strings.Join(versions, ", "), store.Driver)
			return nil
		},
	}

	modelsCmd := &cobra.Command{
		Use:   "models",
		Short: "Manage the model catalog",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List catalog entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := store.Models.ListOrderedByName(cmd.Context())
			if err != nil {
				return fmt.Errorf("list models: %w", err)
			}
			w := cmd.OutOrStdout()
			if len(list) == 0 {
				fmt.Fprintln(w, "catalog is empty")
				return nil
			}
			for _, m := range list {
				desc := ""
				if m.Description != nil {
					desc = *m.Description
				}
				fmt.Fprintf(w, "%-24s %-20s %s\n", m.Tag, m.Name, desc)
			}
			return nil
		},
	}

	importCmd := &cobra.Command{
		Use:   "import [FILE]",
		Short: "Upsert models from a YAML catalog (built-in catalog when FILE is omitted)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			list, err := catalog.LoadFile(path)
			if err != nil {
				return err
			}
			if err := catalog.Import(cmd.Context(), store.Models, list, logger); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d models\n", len(list))
			return nil
		},
	}

	modelsCmd.AddCommand(listCmd, importCmd)
	root.AddCommand(migrateCmd, modelsCmd)
	return root
}

// Execute runs chatctl.
func Execute() error {
	return NewRootCommand().ExecuteContext(context.Background())
}
