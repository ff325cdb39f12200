package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/thatsimonsguy/plug-remote/system/startup"
)

var (
	installBinary string
	installRun    bool
)

func init() {
	installCmd.Flags().StringVar(&installBinary, "binary", "/usr/local/bin/plug-remote", "Path to the plug-remote binary")
	installCmd.Flags().BoolVar(&installRun, "run", false, "Also run the pin script now")
	rootCmd.AddCommand(installCmd)
}

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Write the GPIO boot script and systemd units",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if abs, err := filepath.Abs(cfg.ConfigFile); err == nil {
			cfg.ConfigFile = abs
		}
		if abs, err := filepath.Abs(cfg.DBPath); err == nil {
			cfg.DBPath = abs
		}

		if err := startup.WriteStartupScript(&cfg); err != nil {
			return fmt.Errorf("failed to write boot script: %w", err)
		}
		if err := startup.InstallStartupService(&cfg); err != nil {
			return fmt.Errorf("failed to write pin service: %w", err)
		}
		if err := startup.InstallNodeService(&cfg, installBinary); err != nil {
			return fmt.Errorf("failed to write node service: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s, %s and %s\n", cfg.BootScriptFilePath, cfg.OSServicePath, cfg.MainServicePath)

		if installRun {
			if err := startup.RunStartupScript(&cfg); err != nil {
				fmt.Fprintln(os.Stderr, "Pin script failed:", err)
				return err
			}
		}
		return nil
	},
}
