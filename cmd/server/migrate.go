package main

import (
	"github.com/spf13/cobra"

	"github.com/replane-dev/replane-sub002/internal/config"
	"github.com/replane-dev/replane-sub002/internal/store/postgres"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations to the durable store",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate()
		},
	}
}

func runMigrate() error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	db, err := postgres.OpenSQLDB(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	return postgres.Migrate(db)
}
