package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rex103240/IronLock-Server/internal/license"
	"github.com/rex103240/IronLock-Server/internal/models"
)

func NewAttestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "attest",
		Short: "Work with signed verification attestations",
	}
	cmd.AddCommand(newAttestVerifyCmd())
	return cmd
}

func newAttestVerifyCmd() *cobra.Command {
	var (
		publicKeyPath string
		key           string
		hardwareID    string
		expiry        string
		signature     string
	)

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check an attestation offline against the public key",
		RunE: func(cmd *cobra.Command, _ []string) error {
			publicPEM, err := os.ReadFile(publicKeyPath)
			if err != nil {
				return err
			}
			verifier, err := license.ParseVerifier(publicPEM)
			if err != nil {
				return err
			}

			expiryDate, err := models.ParseDate(expiry)
			if err != nil {
				return fmt.Errorf("expiry must be YYYY-MM-DD: %w", err)
			}

			if err := verifier.Verify(key, hardwareID, expiryDate, signature); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "attestation valid")
			return nil
		},
	}

	cmd.Flags().StringVar(&publicKeyPath, "public-key", "public_key.pem", "PEM public key")
	cmd.Flags().StringVar(&key, "key", "", "License key")
	cmd.Flags().StringVar(&hardwareID, "hwid", "", "Hardware id")
	cmd.Flags().StringVar(&expiry, "expiry", "", "Expiry date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&signature, "signature", "", "Base64 signature")
	for _, name := range []string{"key", "hwid", "expiry", "signature"} {
		_ = cmd.MarkFlagRequired(name)
	}

	return cmd
}
