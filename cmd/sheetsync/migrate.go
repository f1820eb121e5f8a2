package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/assinatura-email/sheetsync/internal/migrations"
	"github.com/assinatura-email/sheetsync/internal/schema"
)

var migrateCmd = &cobra.Command{
	Use:     "migrate",
	GroupID: "db",
	Short:   "Apply versioned schema migrations",
	Long: `Manage the destination table with versioned migrations.

Migrations are embedded in the binary and exist for postgres and mysql.
They create the default table (assinatura_email); for another table name
or for sqlite use 'sheetsync init-schema'.`,
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrator(func(m *migrations.Migrator) error {
			changed, err := m.Up()
			if err != nil {
				return err
			}
			if !changed {
				out.Success("database already up to date")
				return nil
			}
			out.Success("migrations applied")
			return nil
		})
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down [N]",
	Short: "Roll back N migrations (default 1)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		steps := 1
		if len(args) == 1 {
			n, err := strconv.Atoi(args[0])
			if err != nil || n < 1 {
				return fmt.Errorf("invalid steps argument %q", args[0])
			}
			steps = n
		}
		return withMigrator(func(m *migrations.Migrator) error {
			changed, err := m.Down(steps)
			if err != nil {
				return err
			}
			if !changed {
				out.Warn("nothing to roll back")
				return nil
			}
			out.Success("rolled back %d migration(s)", steps)
			return nil
		})
	},
}

var migrateVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the current migration version",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrator(func(m *migrations.Migrator) error {
			st, err := m.Version()
			if err != nil {
				return err
			}
			if st.None {
				out.Warn("no migrations applied")
				return nil
			}
			fmt.Printf("version: %d  dirty: %v\n", st.Version, st.Dirty)
			return nil
		})
	},
}

var migrateForceCmd = &cobra.Command{
	Use:   "force VERSION",
	Short: "Set the recorded version without migrating (clears dirty state)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid version %q", args[0])
		}
		return withMigrator(func(m *migrations.Migrator) error {
			if err := m.Force(v); err != nil {
				return err
			}
			out.Success("forced version %d", v)
			return nil
		})
	},
}

var initSchemaCmd = &cobra.Command{
	Use:     "init-schema",
	GroupID: "db",
	Short:   "Create the destination table if it does not exist",
	Long: `Create the configured destination table with CREATE TABLE IF NOT EXISTS.

Works for every driver and any table name. Existing tables are left as is.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		database, err := openStore()
		if err != nil {
			return err
		}
		defer database.Close()

		if err := database.InitSchemaContext(ctx); err != nil {
			return err
		}
		logger.Info("schema initialized", "component", "store", "driver", database.Driver(), "table", database.Table())
		out.Success("table %q ready", database.Table())
		return nil
	},
}

// withMigrator opens a migrator for the configured database, runs fn and
// closes it.
func withMigrator(fn func(m *migrations.Migrator) error) error {
	if cfg.Database.Table != schema.DefaultTable {
		return fmt.Errorf("migrations create table %q but database.table is %q; use init-schema",
			schema.DefaultTable, cfg.Database.Table)
	}

	database, err := openStore()
	if err != nil {
		return err
	}
	defer database.Close()

	url, err := database.MigrateURL()
	if err != nil {
		return err
	}

	m, err := migrations.New(database.Driver(), url, logger.Logger)
	if err != nil {
		return err
	}
	defer m.Close()

	return fn(m)
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)
	migrateCmd.AddCommand(migrateVersionCmd)
	migrateCmd.AddCommand(migrateForceCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(initSchemaCmd)
}
