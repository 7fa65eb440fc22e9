package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newLoginCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Log in through a visible browser and save the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			provider, err := ctx.provider(cmd)
			if err != nil {
				return err
			}
			cookies, err := provider.Login(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %d cookies to %s\n", len(cookies), cfg.Paths.CredentialsFile)
			return nil
		},
	}
}
