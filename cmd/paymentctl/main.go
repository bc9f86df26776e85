// Command paymentctl is the operator CLI for the payment core.
package main

import (
	"fmt"
	"os"

	"paycore/internal/app"
	"paycore/internal/config"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var Version = "dev"

var rootCmd = &cobra.Command{
	Use:           "paymentctl",
	Short:         "paymentctl - operate the payment core",
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	config.LoadEnv()

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(sweepCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(tokenCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openApp loads the configuration and connects the stores.
func openApp() (*app.App, error) {
	cfg := config.Load()
	zl, err := app.NewLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	a, err := app.New(cfg, zl.WithOptions(zap.IncreaseLevel(zap.WarnLevel)))
	if err != nil {
		return nil, err
	}
	return a, nil
}
