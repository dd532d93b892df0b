// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package main

import (
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"

	"inkpost/internal/config"
	"inkpost/internal/database"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the Postgres schema",
	}
	cmd.AddCommand(
		migrateStep("up", "Apply all pending migrations", database.Migrate),
		migrateStep("down", "Roll back the most recent migration", database.MigrateDown),
		migrateStep("status", "Show the state of every migration", database.MigrationStatus),
	)
	return cmd
}

func migrateStep(use, short string, run func(*sql.DB) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			setupLogger(cfg)
			if cfg.StoreDriver != config.DriverPostgres {
				return fmt.Errorf("migrations apply to the postgres driver only (STORE_DRIVER=%s)", cfg.StoreDriver)
			}

			db, err := openPostgres(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := run(db); err != nil {
				return err
			}
			if v, err := database.Version(db); err == nil {
				fmt.Fprintf(cmd.OutOrStdout(), "schema version %d\n", v)
			}
			return nil
		},
	}
}
