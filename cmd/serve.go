package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"waitlist-service/core/server"

	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var migrateUp bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("migrate") {
				cfg.Database.Migrate = migrateUp
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			app, err := server.NewApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer app.Close()

			return app.Serve(ctx)
		},
	}

	cmd.Flags().BoolVar(&migrateUp, "migrate", true, "run database migrations on startup")
	cmd.Flags().Lookup("migrate").NoOptDefVal = "true"
	return cmd
}
