package main

import (
	"fmt"

	"paycore/internal/app"
	"paycore/internal/repositories"

	"github.com/spf13/cobra"
)

var migrateDrop bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the payment tables",
	Long: `Create or update the payment tables.

Examples:
  paymentctl migrate
  paymentctl migrate --drop   # recreate from scratch, disposable databases only`,
	Args: cobra.NoArgs,
	RunE: runMigrate,
}

func init() {
	migrateCmd.Flags().BoolVar(&migrateDrop, "drop", false, "drop the payment tables before migrating")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if migrateDrop {
		if a.Config.IsProduction() {
			return fmt.Errorf("refusing to drop tables in production")
		}
		if err := repositories.DropAllTables(a.DB); err != nil {
			return fmt.Errorf("failed to drop tables: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Dropped payment tables")
	}

	if err := app.Migrate(a); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Migration complete")
	return nil
}
