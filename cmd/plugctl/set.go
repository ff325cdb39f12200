package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thatsimonsguy/plug-remote/db"
	"github.com/thatsimonsguy/plug-remote/internal/model"
)

func init() {
	rootCmd.AddCommand(setCmd)
}

var setCmd = &cobra.Command{
	Use:   "set <a|b> <ip>",
	Short: "Pin a plug to a known address",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		slot, err := parseSlot(args[0])
		if err != nil {
			return err
		}
		ip, err := model.ParseIPv4(args[1])
		if err != nil {
			return err
		}
		if err := db.StoreAddressCLI(dbPath, slot, ip); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", slot.Label(), ip)
		return nil
	},
}
