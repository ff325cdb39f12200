package main

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/plug-remote/db"
	"github.com/thatsimonsguy/plug-remote/internal/addrcache"
	"github.com/thatsimonsguy/plug-remote/internal/arp"
	"github.com/thatsimonsguy/plug-remote/internal/config"
	"github.com/thatsimonsguy/plug-remote/internal/controller"
	"github.com/thatsimonsguy/plug-remote/internal/datadog"
	"github.com/thatsimonsguy/plug-remote/internal/dispatcher"
	"github.com/thatsimonsguy/plug-remote/internal/gpio"
	"github.com/thatsimonsguy/plug-remote/internal/logging"
	"github.com/thatsimonsguy/plug-remote/internal/model"
	"github.com/thatsimonsguy/plug-remote/internal/notifications"
	"github.com/thatsimonsguy/plug-remote/internal/power"
	"github.com/thatsimonsguy/plug-remote/internal/resolver"
	"github.com/thatsimonsguy/plug-remote/system/shutdown"
)

func main() {
	start := time.Now()

	cfg := config.Load()
	logging.Init(cfg.LogLevel, cfg.LogFile)
	datadog.InitMetrics(&cfg)
	notifications.Init(&cfg)

	log.Info().
		Str("config_file", cfg.ConfigFile).
		Str("db", cfg.DBPath).
		Str("sleep_mode", cfg.SleepMode).
		Msg("Starting plug remote")

	if cfg.SafeMode {
		log.Warn().Msg("SAFE MODE ENABLED: pins, network and power are left alone")
	}

	dbConn, err := db.Open(cfg.DBPath)
	if err != nil {
		shutdown.ShutdownWithError(err, "Failed to open address cache")
		return
	}
	defer dbConn.Close()

	plugs := cfg.Plugs()
	pins := []model.GPIOPin{plugs[0].Button, plugs[1].Button}
	reader := gpio.PinctrlReader{}
	if err := gpio.CheckButtons(reader, pins); err != nil {
		log.Warn().Err(err).Msg("Button pins not readable, presses may be missed")
	}

	res := resolver.New(arp.NewTable(cfg.Interface), cfg.ProbeDelay())
	cache := addrcache.New(db.NewAddressStore(dbConn), res, plugs[0], plugs[1])
	disp := dispatcher.New(
		dispatcher.NewHTTPTransport(cfg.HTTPTimeout()),
		cfg.RelayRPCPath,
		cfg.RelaySwitchID,
		cfg.SettleDelay(),
	)
	pm := power.NewSystemManager(cfg.Interface, cfg.SafeMode)
	sampler := gpio.NewSampler(reader, pins, cfg.Debounce())

	ctrl := controller.New(controller.OptionsFromConfig(&cfg), sampler, cache, disp, pm)
	ctrl.Boot(start)

	if err := ctrl.Run(context.Background()); err != nil {
		shutdown.ShutdownWithError(err, "Controller stopped")
	}
}
