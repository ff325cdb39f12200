package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/thatsimonsguy/plug-remote/internal/model"
)

const (
	SleepModeDeep  = "deep"
	SleepModeLight = "light"

	// HaltWakePin is the only line that brings a halted Pi back up, on a low level.
	HaltWakePin = 3
)

type Config struct {
	ConfigFile string
	DBPath     string
	LogFile    string
	LogLevel   zerolog.Level

	PlugAMAC   string `json:"plug_a_mac"`
	PlugBMAC   string `json:"plug_b_mac"`
	ButtonAPin *int   `json:"button_a_pin"`
	ButtonBPin *int   `json:"button_b_pin"`
	WakePins   []int  `json:"wake_pins"`
	UnusedPins []int  `json:"unused_pins"`

	ButtonActiveHigh bool `json:"button_active_high"`

	AwakeWindowMs  int `json:"awake_window_ms"`
	PollIntervalMs int `json:"poll_interval_ms"`
	ProbeDelayMs   int `json:"probe_delay_ms"`
	SettleDelayMs  int `json:"settle_delay_ms"`
	DebounceMs     int `json:"debounce_ms"`
	HTTPTimeoutMs  int `json:"http_timeout_ms"`

	RelayRPCPath  string `json:"relay_rpc_path"`
	RelaySwitchID int    `json:"relay_switch_id"`
	Interface     string `json:"interface"`
	SleepMode     string `json:"sleep_mode"`
	SafeMode      bool   `json:"safe_mode"`

	EnableDatadog bool     `json:"enable_datadog"`
	DDAgentAddr   string   `json:"dd_agent_addr"`
	DDNamespace   string   `json:"dd_namespace"`
	DDTags        []string `json:"dd_tags"`

	NtfyTopic  string `json:"ntfy_topic"`
	NtfyServer string `json:"ntfy_server"`

	BootScriptFilePath string `json:"boot_script_path"`
	OSServicePath      string `json:"os_service_path"`
	MainServicePath    string `json:"main_service_path"`
}

func Load() Config {
	var configFile, dbPath, logFile, logLevel string

	flag.StringVar(&configFile, "config-file", "config.json", "Path to node config file")
	flag.StringVar(&dbPath, "db", "data/plug-remote.db", "Path to the SQLite address cache")
	flag.StringVar(&logFile, "log-file", "/var/log/plug-remote.log", "Path to the rotated log file")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	cfg := FromFile(configFile)
	cfg.DBPath = dbPath
	cfg.LogFile = logFile
	cfg.LogLevel = ParseLogLevel(logLevel)
	return cfg
}

// FromFile reads and validates a config file, panicking on any problem.
func FromFile(path string) Config {
	cfg := Config{ConfigFile: path, LogLevel: zerolog.InfoLevel}

	file, err := os.Open(path)
	if err != nil {
		panic("Failed to load config file: " + err.Error())
	}
	defer file.Close()

	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		panic("Failed to parse config file: " + err.Error())
	}

	cfg.applyDefaults()
	cfg.validate()
	return cfg
}

func ParseLogLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func (cfg *Config) applyDefaults() {
	if cfg.ButtonAPin == nil {
		pin := 5
		cfg.ButtonAPin = &pin
	}
	if cfg.ButtonBPin == nil {
		pin := 4
		cfg.ButtonBPin = &pin
	}
	if cfg.AwakeWindowMs == 0 {
		cfg.AwakeWindowMs = 5000
	}
	if cfg.PollIntervalMs == 0 {
		cfg.PollIntervalMs = 10
	}
	if cfg.ProbeDelayMs == 0 {
		cfg.ProbeDelayMs = 50
	}
	if cfg.SettleDelayMs == 0 {
		cfg.SettleDelayMs = 200
	}
	if cfg.HTTPTimeoutMs == 0 {
		cfg.HTTPTimeoutMs = 2000
	}
	if cfg.RelayRPCPath == "" {
		cfg.RelayRPCPath = "/rpc/Switch.Toggle"
	}
	if cfg.Interface == "" {
		cfg.Interface = "wlan0"
	}
	if cfg.SleepMode == "" {
		cfg.SleepMode = SleepModeDeep
	}
	if len(cfg.WakePins) == 0 {
		if cfg.SleepMode == SleepModeDeep {
			cfg.WakePins = []int{HaltWakePin}
		} else {
			cfg.WakePins = []int{*cfg.ButtonAPin, *cfg.ButtonBPin}
		}
	}
	if cfg.DDAgentAddr == "" {
		cfg.DDAgentAddr = "127.0.0.1:8125"
	}
	if cfg.DDNamespace == "" {
		cfg.DDNamespace = "plug_remote."
	}
	if cfg.NtfyServer == "" {
		cfg.NtfyServer = "https://ntfy.sh"
	}
	if cfg.BootScriptFilePath == "" {
		cfg.BootScriptFilePath = "/usr/local/bin/plug-remote-gpio.sh"
	}
	if cfg.OSServicePath == "" {
		cfg.OSServicePath = "/etc/systemd/system/plug-remote-gpio.service"
	}
	if cfg.MainServicePath == "" {
		cfg.MainServicePath = "/etc/systemd/system/plug-remote.service"
	}
}

func (cfg *Config) validate() {
	var problems []string

	macs := map[string]string{}
	for _, m := range []struct{ name, value string }{
		{"plug_a_mac", cfg.PlugAMAC},
		{"plug_b_mac", cfg.PlugBMAC},
	} {
		if m.value == "" {
			problems = append(problems, "missing "+m.name)
			continue
		}
		mac, err := model.ParseHardwareAddr(m.value)
		if err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", m.name, err))
			continue
		}
		if other, exists := macs[mac.String()]; exists {
			problems = append(problems, fmt.Sprintf("%s and %s share mac %s", m.name, other, mac))
		}
		macs[mac.String()] = m.name
	}

	usedPins := map[int]string{}
	claim := func(name string, pin int) {
		if pin < 0 {
			problems = append(problems, fmt.Sprintf("%s uses negative pin %d", name, pin))
			return
		}
		if other, exists := usedPins[pin]; exists {
			problems = append(problems, fmt.Sprintf("%s and %s both use pin %d", name, other, pin))
			return
		}
		usedPins[pin] = name
	}
	claim("button_a_pin", *cfg.ButtonAPin)
	claim("button_b_pin", *cfg.ButtonBPin)
	for _, pin := range cfg.UnusedPins {
		claim("unused_pins", pin)
	}
	for _, pin := range cfg.WakePins {
		if name, ok := usedPins[pin]; ok && name == "unused_pins" {
			problems = append(problems, fmt.Sprintf("wake pin %d is also parked as unused", pin))
		}
	}

	if cfg.SleepMode != SleepModeDeep && cfg.SleepMode != SleepModeLight {
		problems = append(problems, fmt.Sprintf("sleep_mode must be %q or %q, got %q", SleepModeDeep, SleepModeLight, cfg.SleepMode))
	}
	if cfg.SleepMode == SleepModeDeep {
		for _, pin := range cfg.WakePins {
			if pin != HaltWakePin {
				problems = append(problems, fmt.Sprintf("deep sleep can only wake on GPIO%d, not wake pin %d", HaltWakePin, pin))
			}
		}
		if cfg.ButtonActiveHigh {
			problems = append(problems, fmt.Sprintf("deep sleep needs active-low buttons to pull GPIO%d down", HaltWakePin))
		}
	}
	if !strings.HasPrefix(cfg.RelayRPCPath, "/") {
		problems = append(problems, "relay_rpc_path must start with /")
	}

	if len(problems) > 0 {
		panic("Invalid config: " + strings.Join(problems, ", "))
	}
}

// Plugs returns slot A and slot B, in that order.
func (cfg *Config) Plugs() []model.Plug {
	a, _ := model.ParseHardwareAddr(cfg.PlugAMAC)
	b, _ := model.ParseHardwareAddr(cfg.PlugBMAC)
	return []model.Plug{
		{Slot: model.SlotA, MAC: a, Button: model.GPIOPin{Number: *cfg.ButtonAPin, ActiveHigh: cfg.ButtonActiveHigh}},
		{Slot: model.SlotB, MAC: b, Button: model.GPIOPin{Number: *cfg.ButtonBPin, ActiveHigh: cfg.ButtonActiveHigh}},
	}
}

func (cfg *Config) AwakeWindow() time.Duration {
	return time.Duration(cfg.AwakeWindowMs) * time.Millisecond
}

func (cfg *Config) PollInterval() time.Duration {
	return time.Duration(cfg.PollIntervalMs) * time.Millisecond
}

func (cfg *Config) ProbeDelay() time.Duration {
	return time.Duration(cfg.ProbeDelayMs) * time.Millisecond
}

func (cfg *Config) SettleDelay() time.Duration {
	return time.Duration(cfg.SettleDelayMs) * time.Millisecond
}

func (cfg *Config) Debounce() time.Duration {
	return time.Duration(cfg.DebounceMs) * time.Millisecond
}

func (cfg *Config) HTTPTimeout() time.Duration {
	return time.Duration(cfg.HTTPTimeoutMs) * time.Millisecond
}
