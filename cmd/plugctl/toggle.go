package main

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thatsimonsguy/plug-remote/db"
	"github.com/thatsimonsguy/plug-remote/internal/dispatcher"
	"github.com/thatsimonsguy/plug-remote/internal/model"
)

func init() {
	rootCmd.AddCommand(toggleCmd)
}

var toggleCmd = &cobra.Command{
	Use:   "toggle <a|b>",
	Short: "Toggle a plug using its cached address",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		slot, err := parseSlot(args[0])
		if err != nil {
			return err
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ip, err := cachedAddress(cfg.DBPath, slot)
		if err != nil {
			return err
		}

		d := dispatcher.New(
			dispatcher.NewHTTPTransport(cfg.HTTPTimeout()),
			cfg.RelayRPCPath,
			cfg.RelaySwitchID,
			cfg.SettleDelay(),
		)
		d.Toggle(ip)
		fmt.Fprintf(cmd.OutOrStdout(), "Sent toggle to %s at %s\n", slot.Label(), ip)
		return nil
	},
}

func cachedAddress(path string, slot model.Slot) (model.IPv4, error) {
	dbConn, err := db.Open(path)
	if err != nil {
		return model.Unresolved, err
	}
	defer dbConn.Close()
	return lookup(dbConn, slot)
}

func lookup(dbConn *sql.DB, slot model.Slot) (model.IPv4, error) {
	v, err := db.GetAddress(dbConn, string(slot))
	if errors.Is(err, db.ErrNotFound) {
		return model.Unresolved, fmt.Errorf("no cached address for %s, run resolve first", slot.Label())
	}
	if err != nil {
		return model.Unresolved, err
	}
	ip := model.IPv4(v)
	if !ip.Resolved() {
		return model.Unresolved, fmt.Errorf("%s was not found on the last sweep", slot.Label())
	}
	return ip, nil
}
