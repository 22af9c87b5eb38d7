package main

import (
	"fmt"
	"os"

	"github.com/jrsteele09/home-logistic/internal/config"
	"github.com/jrsteele09/home-logistic/token"
	"github.com/spf13/cobra"
)

// flagConfigPath is the TOML config file; empty means environment and defaults only.
var flagConfigPath string

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "home-logistic",
		Short:         "Home Logistic backend",
		Long:          "Signs users in with Google and sets up their shopping list spreadsheet in Google Drive.",
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve()
		},
	}

	cmd.PersistentFlags().StringVar(&flagConfigPath, "config", os.Getenv(config.ConfigFileVar), "config file path")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newSecretCmd())
	return cmd
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve()
		},
	}
}

func newSecretCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "secret",
		Short: "Print a random value suitable for SESSION_SECRET",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			secret, err := token.GenerateSecret()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), secret)
			return nil
		},
	}
}
