package startup

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/thatsimonsguy/plug-remote/internal/config"
	"github.com/thatsimonsguy/plug-remote/internal/model"
)

// WriteStartupScript writes the boot-time pin setup. Buttons idle away from
// their pressed level, a separate wake line is pulled up and unused pins are
// parked as pulled-down inputs.
func WriteStartupScript(cfg *config.Config) error {
	var lines []string
	lines = append(lines, "#!/bin/bash", "", "# Plug remote GPIO pin configuration at boot", "")

	write := func(label string, pin int, pull string) {
		lines = append(lines, fmt.Sprintf("# %s", label))
		lines = append(lines, fmt.Sprintf("pinctrl set %d ip %s", pin, pull))
		lines = append(lines, "")
	}

	buttons := map[int]bool{}
	for _, plug := range cfg.Plugs() {
		buttons[plug.Button.Number] = true
		write(plug.Slot.Label()+" button", plug.Button.Number, buttonPull(plug.Button))
	}
	for _, pin := range cfg.WakePins {
		if !buttons[pin] {
			write("wake line", pin, "pu")
		}
	}
	for _, pin := range cfg.UnusedPins {
		write("unused", pin, "pd")
	}

	contents := strings.Join(lines, "\n") + "\n"
	return os.WriteFile(cfg.BootScriptFilePath, []byte(contents), 0755)
}

// buttons idle at the opposite of their pressed level
func buttonPull(pin model.GPIOPin) string {
	if pin.ActiveHigh {
		return "pd"
	}
	return "pu"
}

func InstallStartupService(cfg *config.Config) error {
	unitContents := fmt.Sprintf(`[Unit]
Description=Configure plug remote GPIO pins at boot
After=local-fs.target

[Service]
Type=oneshot
Environment=PATH=/usr/local/bin:/usr/bin:/bin
ExecStart=%s
RemainAfterExit=true

[Install]
WantedBy=multi-user.target
`, cfg.BootScriptFilePath)

	return os.WriteFile(cfg.OSServicePath, []byte(unitContents), 0644)
}

func RunStartupScript(cfg *config.Config) error {
	cmd := exec.Command("/bin/bash", cfg.BootScriptFilePath)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// InstallNodeService writes the unit for the node itself. Every wake starts
// the process fresh, so it restarts whenever it exits.
func InstallNodeService(cfg *config.Config, binary string) error {
	gpioUnitName := filepath.Base(cfg.OSServicePath)

	execCmd := fmt.Sprintf("%s -config-file %s", binary, cfg.ConfigFile)
	if cfg.DBPath != "" {
		execCmd += " -db " + cfg.DBPath
	}

	unit := fmt.Sprintf(`[Unit]
Description=Plug remote node
After=%s network-online.target
Wants=network-online.target
Requires=%s

[Service]
Type=simple
Environment=PATH=/usr/local/bin:/usr/bin:/bin
ExecStart=%s
Restart=always
RestartSec=1s

[Install]
WantedBy=multi-user.target
`, gpioUnitName, gpioUnitName, execCmd)

	return os.WriteFile(cfg.MainServicePath, []byte(unit), 0644)
}
