package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thatsimonsguy/plug-remote/db"
)

func init() {
	rootCmd.AddCommand(forgetCmd)
}

var forgetCmd = &cobra.Command{
	Use:   "forget <a|b|all>",
	Short: "Drop cached addresses so the next wake resolves them again",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		slots, err := parseSlots(args[0])
		if err != nil {
			return err
		}
		if err := db.ForgetAddressesCLI(dbPath, slots...); err != nil {
			return err
		}
		for _, s := range slots {
			fmt.Fprintf(cmd.OutOrStdout(), "Forgot %s\n", s.Label())
		}
		return nil
	},
}
