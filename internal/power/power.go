package power

import (
	"fmt"
	"os/exec"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/plug-remote/internal/pinctrl"
)

// Level is the input level that wakes the node.
type Level int

const (
	LevelLow Level = iota
	LevelHigh
)

func (l Level) String() string {
	if l == LevelHigh {
		return "high"
	}
	return "low"
}

// Manager owns the platform steps of going to sleep.
type Manager interface {
	ParkPins(pins []int) error
	TearDownNetwork() error
	ArmWakeSource(pins []int, level Level) error
	// EnterDeepSleep powers the node down and does not return. A wake
	// restarts the process from the top.
	EnterDeepSleep()
	// EnterLightSleep suspends the node and returns after a wake.
	EnterLightSleep() error
}

var (
	setPin = pinctrl.SetPin
	run    = func(name string, args ...string) error {
		out, err := exec.Command(name, args...).CombinedOutput()
		if err != nil {
			return fmt.Errorf("%s failed: %w (output: %s)", name, err, string(out))
		}
		return nil
	}
	block = func() { select {} }
)

// SystemManager drives sleep through pinctrl, iproute2 and systemd. In safe
// mode every step is logged but nothing touches the host.
type SystemManager struct {
	iface    string
	safeMode bool
}

func NewSystemManager(iface string, safeMode bool) *SystemManager {
	return &SystemManager{iface: iface, safeMode: safeMode}
}

// ParkPins sets every unused pin to a pulled-down input.
func (m *SystemManager) ParkPins(pins []int) error {
	for _, pin := range pins {
		if m.safeMode {
			log.Info().Int("pin", pin).Msg("Safe mode: would park pin")
			continue
		}
		if err := setPin(pin, "ip", "pd"); err != nil {
			return fmt.Errorf("failed to park pin %d: %w", pin, err)
		}
	}
	log.Debug().Ints("pins", pins).Msg("Parked unused pins")
	return nil
}

func (m *SystemManager) TearDownNetwork() error {
	if m.safeMode {
		log.Info().Str("iface", m.iface).Msg("Safe mode: would bring interface down")
		return nil
	}
	if err := run("ip", "link", "set", m.iface, "down"); err != nil {
		return fmt.Errorf("failed to bring down %s: %w", m.iface, err)
	}
	log.Debug().Str("iface", m.iface).Msg("Network interface down")
	return nil
}

// ArmWakeSource biases each wake pin away from its trigger level so that a
// press, and only a press, reaches it.
func (m *SystemManager) ArmWakeSource(pins []int, level Level) error {
	pull := "pu"
	if level == LevelHigh {
		pull = "pd"
	}
	for _, pin := range pins {
		if m.safeMode {
			log.Info().Int("pin", pin).Str("level", level.String()).Msg("Safe mode: would arm wake pin")
			continue
		}
		if err := setPin(pin, "ip", pull); err != nil {
			return fmt.Errorf("failed to arm wake pin %d: %w", pin, err)
		}
	}
	log.Debug().Ints("pins", pins).Str("level", level.String()).Msg("Wake source armed")
	return nil
}

func (m *SystemManager) EnterDeepSleep() {
	if m.safeMode {
		log.Info().Msg("Safe mode: would halt")
	} else if err := run("systemctl", "halt"); err != nil {
		log.Error().Err(err).Msg("Failed to halt")
	}
	block()
}

func (m *SystemManager) EnterLightSleep() error {
	if m.safeMode {
		log.Info().Msg("Safe mode: would suspend")
		return nil
	}
	return run("systemctl", "suspend")
}
