package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thatsimonsguy/plug-remote/db"
	"github.com/thatsimonsguy/plug-remote/internal/arp"
	"github.com/thatsimonsguy/plug-remote/internal/resolver"
)

var resolveStore bool

func init() {
	resolveCmd.Flags().BoolVarP(&resolveStore, "store", "s", false, "Write the result to the address cache")
	rootCmd.AddCommand(resolveCmd)
}

var resolveCmd = &cobra.Command{
	Use:   "resolve <a|b|all>",
	Short: "Sweep the local subnet for a plug's MAC address",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		slots, err := parseSlots(args[0])
		if err != nil {
			return err
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		res := resolver.New(arp.NewTable(cfg.Interface), cfg.ProbeDelay())
		for _, slot := range slots {
			plug := plugForSlot(&cfg, slot)
			ip := res.Resolve(plug.MAC)
			if !ip.Resolved() {
				fmt.Fprintf(cmd.OutOrStdout(), "%s (%s): not found\n", slot.Label(), plug.MAC)
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s): %s\n", slot.Label(), plug.MAC, ip)
			if resolveStore {
				if err := db.StoreAddressCLI(dbPath, slot, ip); err != nil {
					return err
				}
			}
		}
		return nil
	},
}
