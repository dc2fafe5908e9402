package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rex103240/IronLock-Server/internal/license"
)

func NewKeygenCmd() *cobra.Command {
	var (
		privatePath string
		publicPath  string
		bits        int
		force       bool
	)

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate the RSA key pair used to sign attestations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !force {
				for _, path := range []string{privatePath, publicPath} {
					if _, err := os.Stat(path); err == nil {
						return fmt.Errorf("%s already exists, use --force to overwrite", path)
					} else if !errors.Is(err, os.ErrNotExist) {
						return err
					}
				}
			}

			privatePEM, publicPEM, err := license.GenerateKeyPair(bits)
			if err != nil {
				return err
			}
			if err := os.WriteFile(privatePath, privatePEM, 0o600); err != nil {
				return err
			}
			if err := os.WriteFile(publicPath, publicPEM, 0o644); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s and %s\n", privatePath, publicPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&privatePath, "private", "private_key.pem", "Private key output path")
	cmd.Flags().StringVar(&publicPath, "public", "public_key.pem", "Public key output path")
	cmd.Flags().IntVar(&bits, "bits", 2048, "RSA key size")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing files")

	return cmd
}
