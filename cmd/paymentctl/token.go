package main

import (
	"fmt"
	"time"

	"paycore/internal/config"
	"paycore/internal/models"
	"paycore/internal/utils"

	"github.com/spf13/cobra"
)

var (
	tokenRole string
	tokenTTL  time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token <customer-id>",
	Short: "Issue an API access token",
	Long: `Issue an API access token signed with JWT_SECRET.

Examples:
  paymentctl token CUST-1
  paymentctl token ops --role admin --ttl 1h`,
	Args: cobra.ExactArgs(1),
	RunE: runToken,
}

func init() {
	tokenCmd.Flags().StringVar(&tokenRole, "role", models.RoleCustomer, "token role (customer or admin)")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", utils.DefaultTokenTTL, "token lifetime")
}

func runToken(cmd *cobra.Command, args []string) error {
	if tokenRole != models.RoleCustomer && tokenRole != models.RoleAdmin {
		return fmt.Errorf("unknown role %q", tokenRole)
	}
	cfg := config.Load()
	tok, err := utils.GenerateToken(cfg.JWT.Secret, cfg.JWT.Issuer, args[0], tokenRole, tokenTTL)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), tok)
	return nil
}
