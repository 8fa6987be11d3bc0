package main

import (
	"github.com/spf13/cobra"

	"airquality-backend/internal/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema and exit",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, gormDB, err := bootstrap()
		if err != nil {
			return err
		}
		defer db.Close(gormDB)

		return db.Migrate(gormDB, &cfg.Database)
	},
}
