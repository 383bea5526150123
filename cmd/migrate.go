package cmd

import (
	"errors"
	"waitlist-service/core/database"
	"waitlist-service/core/logger"

	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.Storage.Driver != "postgres" {
				return errors.New("migrate needs STORAGE_DRIVER=postgres")
			}

			db, err := database.InitDB(database.DatabaseConfig{
				Host:           cfg.Database.Host,
				Port:           cfg.Database.Port,
				User:           cfg.Database.User,
				Password:       cfg.Database.Password,
				DBName:         cfg.Database.Name,
				SSLMode:        cfg.Database.SSLMode,
				ConnectTimeout: 5,
			})
			if err != nil {
				return err
			}
			defer db.Close()

			if err := database.Migrate(cmd.Context(), db); err != nil {
				return err
			}
			logger.Info("Migrate:Done", "database", cfg.Database.Name)
			return nil
		},
	}
}

