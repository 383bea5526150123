package cmd

import (
	"fmt"
	"waitlist-service/core/server"

	"github.com/spf13/cobra"
)

func newSweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Expire due offers and stale entries once, then exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			app, err := server.NewApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer app.Close()

			offers, entries := app.Waitlist.Sweeper.Sweep(cmd.Context())
			fmt.Printf("expired %d offers and %d stale entries\n", offers, entries)
			return nil
		},
	}
}
