package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rex103240/IronLock-Server/internal/service"
	"github.com/rex103240/IronLock-Server/internal/store"
)

func NewIssueCmd() *cobra.Command {
	var req service.IssueRequest

	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Issue new license keys directly into the database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			db, err := store.Open(cfg.DatabaseURL)
			if err != nil {
				return err
			}

			admin := service.NewAdminService(store.New(db), nil)
			issued, err := admin.Issue(cmd.Context(), req, service.Operator{Username: "cli", Address: "local"})
			if err != nil {
				return err
			}

			for _, lic := range issued {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", lic.Key, lic.ExpiryDate())
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&req.Count, "count", "n", 1, "Number of keys to issue")
	cmd.Flags().IntVarP(&req.Months, "months", "m", 12, "Validity in months (30 days each)")
	cmd.Flags().StringVar(&req.Email, "email", "", "Client email to pre-bind")
	cmd.Flags().StringVar(&req.GymName, "gym", "", "Gym name to pre-bind")
	cmd.Flags().StringVar(&req.Prefix, "prefix", "", "Key prefix (default IRON)")

	return cmd
}
