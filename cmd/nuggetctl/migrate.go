package main

import (
	"fmt"
	"strconv"

	"github.com/nugget-pipeline/internal/config"
	"github.com/nugget-pipeline/internal/database"
	"github.com/spf13/cobra"
)

func newMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the postgres key-value schema",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, cfg, err := openDatabase()
			if err != nil {
				return err
			}
			defer db.Close()
			return db.RunMigrations(cfg.Database.MigrationsPath)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the last migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, cfg, err := openDatabase()
			if err != nil {
				return err
			}
			defer db.Close()
			return db.MigrateDown(cfg.Database.MigrationsPath)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "to <version>",
		Short: "Migrate up or down to a specific version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := strconv.ParseUint(args[0], 10, 32)
			if err != nil {
				return fmt.Errorf("invalid version %q: %w", args[0], err)
			}

			db, cfg, err := openDatabase()
			if err != nil {
				return err
			}
			defer db.Close()
			return db.MigrateToVersion(cfg.Database.MigrationsPath, uint(version))
		},
	})

	return cmd
}

func openDatabase() (*database.DB, *config.Config, error) {
	cfg, log, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	if cfg.Store.Backend != config.BackendPostgres {
		return nil, nil, fmt.Errorf("migrations apply to the postgres backend, KV_BACKEND is %q", cfg.Store.Backend)
	}

	db, err := database.New(&cfg.Database, log)
	if err != nil {
		return nil, nil, err
	}
	return db, cfg, nil
}
