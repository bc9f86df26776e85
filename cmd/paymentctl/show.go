package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var showGateway bool

var showCmd = &cobra.Command{
	Use:   "show <transaction-id>",
	Short: "Print a stored transaction",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func init() {
	showCmd.Flags().BoolVarP(&showGateway, "gateway", "g", false, "also query the gateway for its view of the payment")
}

func runShow(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	tx, err := a.Payments.GetTransaction(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	view := map[string]interface{}{"transaction": tx.Snapshot()}
	if showGateway {
		res, err := a.Payments.QueryGatewayStatus(cmd.Context(), tx.ID())
		if err != nil {
			return err
		}
		view["gateway"] = res
	}

	out, err := json.MarshalIndent(view, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}
