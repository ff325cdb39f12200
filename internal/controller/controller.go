package controller

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/plug-remote/internal/config"
	"github.com/thatsimonsguy/plug-remote/internal/datadog"
	"github.com/thatsimonsguy/plug-remote/internal/gpio"
	"github.com/thatsimonsguy/plug-remote/internal/logging"
	"github.com/thatsimonsguy/plug-remote/internal/model"
	"github.com/thatsimonsguy/plug-remote/internal/notifications"
	"github.com/thatsimonsguy/plug-remote/internal/power"
)

var notify = notifications.Send

type State int

const (
	StateAsleep State = iota
	StateAwakeIdle
	StateAwakePending
)

func (s State) String() string {
	switch s {
	case StateAsleep:
		return "asleep"
	case StateAwakeIdle:
		return "awake_idle"
	case StateAwakePending:
		return "awake_pending"
	default:
		return "unknown"
	}
}

type Sampler interface {
	Sample(now time.Time) []gpio.ButtonState
}

type Cache interface {
	Load() (model.IPv4, model.IPv4)
	CommitIfDirty()
	Rediscover() (model.IPv4, model.IPv4)
}

type Dispatcher interface {
	Toggle(addr model.IPv4)
}

// Context is everything the state machine carries between ticks. Index 0 is
// plug A, index 1 is plug B.
type Context struct {
	State       State
	LastWake    time.Time
	AwakeWindow time.Duration
	Pending     [2]bool
	Addresses   [2]model.IPv4

	// both buttons were held on the previous tick
	gesture bool
}

// Action is what one tick decided to do.
type Action struct {
	Rediscover bool
	Toggle     []int
	Sleep      bool
}

type Options struct {
	Slots        [2]model.Slot
	WakePins     []int
	UnusedPins   []int
	WakeLevel    power.Level
	SleepMode    string
	AwakeWindow  time.Duration
	PollInterval time.Duration
}

func OptionsFromConfig(cfg *config.Config) Options {
	opts := Options{
		Slots:        [2]model.Slot{model.SlotA, model.SlotB},
		WakePins:     cfg.WakePins,
		UnusedPins:   cfg.UnusedPins,
		WakeLevel:    power.LevelLow,
		SleepMode:    cfg.SleepMode,
		AwakeWindow:  cfg.AwakeWindow(),
		PollInterval: cfg.PollInterval(),
	}
	// light sleep wakes on the button pins; a halted board wakes on GPIO3 pulled low
	if cfg.SleepMode == config.SleepModeLight && cfg.ButtonActiveHigh {
		opts.WakeLevel = power.LevelHigh
	}
	return opts
}

type Controller struct {
	cc         *Context
	opts       Options
	sampler    Sampler
	cache      Cache
	dispatcher Dispatcher
	power      power.Manager
	bootedAt   time.Time
	now        func() time.Time
}

func New(opts Options, sampler Sampler, cache Cache, dispatcher Dispatcher, pm power.Manager) *Controller {
	return &Controller{
		cc:         &Context{State: StateAsleep, AwakeWindow: opts.AwakeWindow},
		opts:       opts,
		sampler:    sampler,
		cache:      cache,
		dispatcher: dispatcher,
		power:      pm,
		now:        time.Now,
	}
}

func (c *Controller) Context() Context {
	return *c.cc
}

// Boot loads both addresses, resolving and persisting any that are missing,
// before the first tick. The awake window starts once loading is done.
func (c *Controller) Boot(now time.Time) {
	c.bootedAt = now
	c.cc.State = StateAwakeIdle

	a, b := c.cache.Load()
	c.cache.CommitIfDirty()
	c.cc.Addresses = [2]model.IPv4{a, b}
	c.cc.LastWake = c.now()

	datadog.Incr("controller.boot")
	log.Info().
		Str("plug_a", a.String()).
		Str("plug_b", b.String()).
		Dur("load_time", time.Since(now)).
		Msg("Controller awake")

	c.reportUnresolved()
}

func (c *Controller) reportUnresolved() {
	resolved := 0
	for i, addr := range c.cc.Addresses {
		if addr.Resolved() {
			resolved++
			continue
		}
		label := c.opts.Slots[i].Label()
		log.Warn().Str("slot", label).Msg("Plug not found on the local network")
		msg := fmt.Sprintf("%s did not answer on the local network. Hold both buttons to search again.", label)
		if err := notify("Plug not found", msg); err != nil {
			log.Debug().Err(err).Msg("Failed to send notification")
		}
	}
	datadog.Gauge("controller.resolved_plugs", float64(resolved))
}

// Run ticks until the node goes to sleep or ctx is cancelled.
func (c *Controller) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			c.Step(now)
			if c.cc.State == StateAsleep {
				return nil
			}
		}
	}
}

func (c *Controller) Step(now time.Time) {
	if c.cc.State == StateAsleep {
		return
	}
	buttons := c.sampler.Sample(now)
	act := evaluate(c.cc, buttons, now)
	c.execute(act, now)
}

func evaluate(cc *Context, buttons []gpio.ButtonState, now time.Time) Action {
	var act Action

	// down counts raw levels too, so a press still settling keeps the node awake
	down, pressed := 0, 0
	for i, b := range buttons {
		if i >= len(cc.Pending) {
			break
		}
		if b.Held || b.Pressed {
			down++
		}
		if b.Pressed {
			pressed++
		}
		if b.Edge {
			cc.Pending[i] = true
		}
	}

	if down > 0 {
		if cc.State == StateAwakeIdle {
			cc.State = StateAwakePending
		}
		cc.LastWake = now
	}

	both := pressed == len(cc.Pending)
	if both && !cc.gesture {
		act.Rediscover = true
	}
	cc.gesture = both

	for i, p := range cc.Pending {
		if p {
			act.Toggle = append(act.Toggle, i)
		}
	}

	if down == 0 && len(act.Toggle) == 0 && now.Sub(cc.LastWake) > cc.AwakeWindow {
		act.Sleep = true
	}
	return act
}

func (c *Controller) execute(act Action, now time.Time) {
	if act.Rediscover {
		log.Info().Msg("Both buttons pressed, rediscovering plugs")
		datadog.Incr("controller.rediscover")
		a, b := c.cache.Rediscover()
		c.cc.Addresses = [2]model.IPv4{a, b}
		c.cc.LastWake = c.now()
		c.reportUnresolved()
	}

	for _, i := range act.Toggle {
		c.cc.Pending[i] = false
		addr := c.cc.Addresses[i]
		if !addr.Resolved() {
			log.Warn().Str("slot", c.opts.Slots[i].Label()).Msg("No address for plug, skipping toggle")
			datadog.Incr("controller.toggle_skipped", "slot:"+string(c.opts.Slots[i]))
			continue
		}
		log.Info().Str("slot", c.opts.Slots[i].Label()).Str("ip", addr.String()).Msg("Button pressed")
		c.dispatcher.Toggle(addr)
	}

	if c.cc.State == StateAwakePending {
		c.cc.State = StateAwakeIdle
	}

	if act.Sleep {
		c.sleep(now)
	}
}

func (c *Controller) sleep(now time.Time) {
	c.cc.State = StateAsleep
	c.cache.CommitIfDirty()

	if err := c.power.ParkPins(c.opts.UnusedPins); err != nil {
		log.Warn().Err(err).Msg("Failed to park unused pins")
	}

	datadog.Timing("controller.awake_time", now.Sub(c.bootedAt))
	datadog.Flush()

	if c.opts.SleepMode == config.SleepModeLight {
		c.lightSleep()
		return
	}

	if err := c.power.TearDownNetwork(); err != nil {
		log.Warn().Err(err).Msg("Failed to tear down network")
	}
	if err := c.power.ArmWakeSource(c.opts.WakePins, c.opts.WakeLevel); err != nil {
		log.Error().Err(err).Msg("Failed to arm wake source")
	}

	log.Info().Dur("awake", now.Sub(c.bootedAt)).Msg("Entering deep sleep")
	logging.Silence()
	c.power.EnterDeepSleep()
}

func (c *Controller) lightSleep() {
	if err := c.power.ArmWakeSource(c.opts.WakePins, c.opts.WakeLevel); err != nil {
		log.Error().Err(err).Msg("Failed to arm wake source")
	}

	log.Info().Msg("Entering light sleep")
	if err := c.power.EnterLightSleep(); err != nil {
		log.Error().Err(err).Msg("Light sleep failed")
	}

	woke := c.now()
	c.bootedAt = woke
	c.cc.State = StateAwakeIdle
	c.cc.LastWake = woke
	datadog.Incr("controller.wake", "mode:light")
	log.Info().Msg("Woke from light sleep")
}
