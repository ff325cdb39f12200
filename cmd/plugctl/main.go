package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/thatsimonsguy/plug-remote/internal/config"
	"github.com/thatsimonsguy/plug-remote/internal/logging"
	"github.com/thatsimonsguy/plug-remote/internal/model"
)

var (
	configFile string
	dbPath     string
	logLevel   string
)

func main() {
	Execute()
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "plugctl",
	Short:        "Inspect and maintain a plug remote node",
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.InitConsole(config.ParseLogLevel(logLevel))
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config-file", "c", "config.json", "Path to node config file")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "data/plug-remote.db", "Path to the SQLite address cache")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
}

// loadConfig reads the node config, turning its validation panic into an error.
func loadConfig() (cfg config.Config, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()
	cfg = config.FromFile(configFile)
	cfg.DBPath = dbPath
	return cfg, nil
}

// parseSlots maps a/b/all onto the cache slots.
func parseSlots(arg string) ([]model.Slot, error) {
	switch strings.ToLower(arg) {
	case "a", "ip1":
		return []model.Slot{model.SlotA}, nil
	case "b", "ip2":
		return []model.Slot{model.SlotB}, nil
	case "all":
		return append([]model.Slot(nil), model.Slots...), nil
	default:
		return nil, fmt.Errorf("unknown plug %q, expected a, b or all", arg)
	}
}

func parseSlot(arg string) (model.Slot, error) {
	slots, err := parseSlots(arg)
	if err != nil {
		return "", err
	}
	if len(slots) != 1 {
		return "", fmt.Errorf("expected a single plug, got %q", arg)
	}
	return slots[0], nil
}

func plugForSlot(cfg *config.Config, slot model.Slot) model.Plug {
	for _, p := range cfg.Plugs() {
		if p.Slot == slot {
			return p
		}
	}
	return model.Plug{}
}
