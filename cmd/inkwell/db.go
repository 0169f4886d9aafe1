package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"gorm.io/gorm/logger"

	"github.com/thebtf/inkwell/internal/db"
)

// dbCmd groups the schema management subcommands.
var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage the database schema",
	Long:  `Manage the database schema and migrations.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("error: Command 'db' requires a subcommand (migrate, rollback, status, reset)")
		fmt.Println()
		_ = cmd.Help()
		os.Exit(1)
	},
}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create and/or upgrade the database schema",
	Long: `Create and/or upgrade the database schema.

This command runs all pending migrations to bring the schema up to date.

Example:
  inkwell db migrate`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStoreForMigration()
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		before, err := db.AppliedMigrations(store.DB)
		if err != nil {
			return err
		}

		if err := db.RunMigrations(store.DB); err != nil {
			return err
		}

		after, err := db.AppliedMigrations(store.DB)
		if err != nil {
			return err
		}
		if len(after) == len(before) {
			fmt.Println("No migrations to run - database is up to date")
			return nil
		}
		fmt.Printf("Applied %d migration(s), now at %s\n", len(after)-len(before), after[len(after)-1])
		return nil
	},
}

var dbRollbackCmd = &cobra.Command{
	Use:   "rollback [steps]",
	Short: "Rollback database migrations",
	Long: `Rollback database migrations.

This command rolls back the specified number of migrations (default: 1).

Example:
  inkwell db rollback      # Rollback 1 migration
  inkwell db rollback 3    # Rollback 3 migrations`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		steps := 1
		if len(args) > 0 {
			n, err := strconv.Atoi(args[0])
			if err != nil || n <= 0 {
				return fmt.Errorf("invalid step count %q", args[0])
			}
			steps = n
		}

		store, err := openStoreForMigration()
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		fmt.Printf("Rolling back %d migration(s)...\n", steps)
		if err := db.RollbackSteps(store.DB, steps); err != nil {
			return err
		}

		applied, err := db.AppliedMigrations(store.DB)
		if err != nil {
			return err
		}
		if len(applied) == 0 {
			fmt.Println("Rolled back to empty schema")
		} else {
			fmt.Printf("Rolled back to %s\n", applied[len(applied)-1])
		}
		return nil
	},
}

var dbStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show applied migrations",
	Long:  `Show which schema migrations have been applied.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStoreForMigration()
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		applied, err := db.AppliedMigrations(store.DB)
		if err != nil {
			return err
		}
		if len(applied) == 0 {
			fmt.Println("No migrations have been applied yet")
			return nil
		}
		for _, id := range applied {
			fmt.Println(id)
		}
		fmt.Printf("Current revision: %s\n", applied[len(applied)-1])
		return nil
	},
}

var dbResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Drop and re-create the schema",
	Long: `Roll back every applied migration and re-apply the full set.

Intended for development databases; all data is lost.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStoreForMigration()
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		if err := db.ResetSchema(store.DB); err != nil {
			return err
		}
		fmt.Println("Schema reset complete")
		return nil
	},
}

// openStoreForMigration opens the store without the automatic migration
// pass so the subcommands control schema changes explicitly.
func openStoreForMigration() (*db.Store, error) {
	return db.NewStore(db.Config{
		Driver:         cfg.Database.Driver,
		DSN:            cfg.Database.BuildDSN(),
		MaxConns:       cfg.Database.MaxConns,
		LogLevel:       logger.Silent,
		SkipMigrations: true,
	})
}

func init() {
	dbCmd.AddCommand(dbMigrateCmd)
	dbCmd.AddCommand(dbRollbackCmd)
	dbCmd.AddCommand(dbStatusCmd)
	dbCmd.AddCommand(dbResetCmd)
	rootCmd.AddCommand(dbCmd)
}
