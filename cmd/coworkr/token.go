package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/hrygo/coworkr/server/auth"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint an access token for a team member",
	RunE: func(cmd *cobra.Command, _ []string) error {
		caller, _ := cmd.Flags().GetString("caller")
		name, _ := cmd.Flags().GetString("name")
		ttl, _ := cmd.Flags().GetDuration("ttl")
		if caller == "" {
			return fmt.Errorf("--caller is required")
		}
		token, err := auth.NewAuthenticator(v.GetString("jwt.secret")).GenerateAccessToken(caller, name, ttl)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	flags := tokenCmd.Flags()
	flags.String("caller", "", "team member id")
	flags.String("name", "", "display name")
	flags.Duration("ttl", 24*time.Hour, "token lifetime")
}
