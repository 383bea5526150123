package cmd

import (
	"fmt"
	"os"
	"waitlist-service/core/config"
	"waitlist-service/core/logger"

	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	CommitSHA = "none"
	BuildDate = "unknown"
)

var envFiles []string

func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "waitlist",
		Short:        "Waitlist and slot reallocation engine for bookable resources",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringSliceVar(&envFiles, "env-file", []string{".env"}, "env files to load before the process environment")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newServeCmd())
	root.AddCommand(newWorkerCmd())
	root.AddCommand(newMigrateCmd())
	root.AddCommand(newSweepCmd())

	return root
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Init(envFiles...)
	if err != nil {
		return nil, err
	}
	logger.Init(cfg.App.LogLevel, cfg.App.LogFormat, nil)
	return cfg, nil
}
