package main

import (
	"github.com/spf13/cobra"

	"github.com/rex103240/IronLock-Server/internal/config"
	"github.com/rex103240/IronLock-Server/internal/logging"
)

func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "ironlock",
		Short:         "IronLock license server",
		Long:          "Issues gym licenses, verifies them against hardware bindings and signs attestations clients can check offline.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(NewServeCmd())
	rootCmd.AddCommand(NewKeygenCmd())
	rootCmd.AddCommand(NewIssueCmd())
	rootCmd.AddCommand(NewAttestCmd())

	return rootCmd
}

// loadConfig reads configuration and configures the global logger.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := logging.Setup(cfg.Log.Level, cfg.Log.Format); err != nil {
		return nil, err
	}
	return cfg, nil
}
