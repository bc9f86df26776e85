package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Cancel payments stuck in PROCESSING past the payment timeout",
	Args:  cobra.NoArgs,
	RunE:  runSweep,
}

func runSweep(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	cancelled, err := a.Payments.SweepTimeouts(cmd.Context())
	if err != nil {
		return fmt.Errorf("sweep failed: %w", err)
	}

	out := cmd.OutOrStdout()
	for _, tx := range cancelled {
		fmt.Fprintf(out, "cancelled %s (%s, order %s, created %s)\n",
			tx.ID(), tx.MerchantReference(), tx.OrderID(), tx.CreatedAt().Format("2006-01-02 15:04:05"))
	}
	fmt.Fprintf(out, "%d payment(s) cancelled\n", len(cancelled))
	return nil
}
