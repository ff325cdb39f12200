package controller

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thatsimonsguy/plug-remote/internal/config"
	"github.com/thatsimonsguy/plug-remote/internal/gpio"
	"github.com/thatsimonsguy/plug-remote/internal/model"
	"github.com/thatsimonsguy/plug-remote/internal/notifications"
	"github.com/thatsimonsguy/plug-remote/internal/power"
)

var (
	ipA  = model.IPv4FromOctets(10, 0, 0, 5)
	ipB  = model.IPv4FromOctets(10, 0, 0, 9)
	t0   = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	tick = 10 * time.Millisecond
)

// MockSampler replays scripted button levels and derives edges the way the
// real sampler does.
type MockSampler struct {
	mu     sync.Mutex
	levels [2]bool
	prev   [2]bool
}

func (m *MockSampler) Set(a, b bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.levels = [2]bool{a, b}
}

func (m *MockSampler) Sample(time.Time) []gpio.ButtonState {
	m.mu.Lock()
	defer m.mu.Unlock()
	states := make([]gpio.ButtonState, 2)
	for i := range states {
		states[i].Held = m.levels[i]
		states[i].Pressed = m.levels[i]
		states[i].Edge = m.levels[i] && !m.prev[i]
	}
	m.prev = m.levels
	return states
}

type MockCache struct {
	addrs        [2]model.IPv4
	rediscover   [2]model.IPv4
	loads        int
	commits      int
	rediscovers  int
	calls        *[]string
	onLoad       func()
	onRediscover func()
}

func (m *MockCache) Load() (model.IPv4, model.IPv4) {
	m.loads++
	if m.onLoad != nil {
		m.onLoad()
	}
	return m.addrs[0], m.addrs[1]
}

func (m *MockCache) CommitIfDirty() {
	m.commits++
}

func (m *MockCache) Rediscover() (model.IPv4, model.IPv4) {
	m.rediscovers++
	*m.calls = append(*m.calls, "rediscover")
	if m.onRediscover != nil {
		m.onRediscover()
	}
	m.addrs = m.rediscover
	return m.addrs[0], m.addrs[1]
}

type MockDispatcher struct {
	toggled []model.IPv4
	calls   *[]string
}

func (m *MockDispatcher) Toggle(addr model.IPv4) {
	m.toggled = append(m.toggled, addr)
	*m.calls = append(*m.calls, "toggle "+addr.String())
}

type MockPower struct {
	calls    *[]string
	armed    []int
	level    power.Level
	parked   []int
	deep     int
	light    int
	armErr   error
	onResume func()
}

func (m *MockPower) ParkPins(pins []int) error {
	m.parked = pins
	*m.calls = append(*m.calls, "park")
	return nil
}

func (m *MockPower) TearDownNetwork() error {
	*m.calls = append(*m.calls, "network_down")
	return nil
}

func (m *MockPower) ArmWakeSource(pins []int, level power.Level) error {
	m.armed = pins
	m.level = level
	*m.calls = append(*m.calls, "arm")
	return m.armErr
}

func (m *MockPower) EnterDeepSleep() {
	m.deep++
	*m.calls = append(*m.calls, "deep_sleep")
}

func (m *MockPower) EnterLightSleep() error {
	m.light++
	*m.calls = append(*m.calls, "light_sleep")
	if m.onResume != nil {
		m.onResume()
	}
	return nil
}

type harness struct {
	ctrl       *Controller
	sampler    *MockSampler
	cache      *MockCache
	dispatcher *MockDispatcher
	power      *MockPower
	calls      []string
	// clock is what the controller sees as wall time between ticks
	clock time.Time
}

func newHarness(mode string) *harness {
	h := &harness{}
	h.sampler = &MockSampler{}
	h.cache = &MockCache{addrs: [2]model.IPv4{ipA, ipB}, calls: &h.calls}
	h.dispatcher = &MockDispatcher{calls: &h.calls}
	h.power = &MockPower{calls: &h.calls}

	wakePins := []int{config.HaltWakePin}
	if mode == config.SleepModeLight {
		wakePins = []int{5, 4}
	}
	opts := Options{
		Slots:        [2]model.Slot{model.SlotA, model.SlotB},
		WakePins:     wakePins,
		UnusedPins:   []int{17, 27},
		SleepMode:    mode,
		AwakeWindow:  5 * time.Second,
		PollInterval: tick,
	}
	h.ctrl = New(opts, h.sampler, h.cache, h.dispatcher, h.power)
	h.clock = t0
	h.ctrl.now = func() time.Time { return h.clock }
	return h
}

// run steps the controller n ticks from start and returns the time of the last tick.
func (h *harness) run(start time.Time, n int) time.Time {
	now := start
	for i := 0; i < n; i++ {
		now = now.Add(tick)
		h.clock = now
		h.ctrl.Step(now)
	}
	return now
}

// levelReader reports fixed raw pin levels to a real gpio.Sampler.
type levelReader struct {
	mu     sync.Mutex
	levels map[int]bool
}

func (r *levelReader) set(pin int, level bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.levels[pin] = level
}

func (r *levelReader) ReadLevel(pin int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.levels[pin], nil
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "asleep", StateAsleep.String())
	assert.Equal(t, "awake_idle", StateAwakeIdle.String())
	assert.Equal(t, "awake_pending", StateAwakePending.String())
	assert.Equal(t, "unknown", State(42).String())
}

func TestBoot_LoadsAndCommits(t *testing.T) {
	h := newHarness(config.SleepModeDeep)
	h.ctrl.Boot(t0)

	cc := h.ctrl.Context()
	assert.Equal(t, StateAwakeIdle, cc.State)
	assert.Equal(t, t0, cc.LastWake)
	assert.Equal(t, [2]model.IPv4{ipA, ipB}, cc.Addresses)
	assert.Equal(t, 1, h.cache.loads)
	assert.Equal(t, 1, h.cache.commits)
}

func TestBoot_WindowStartsAfterSlowLoad(t *testing.T) {
	h := newHarness(config.SleepModeDeep)
	h.cache.onLoad = func() { h.clock = t0.Add(6 * time.Second) }
	h.ctrl.Boot(t0)

	assert.Equal(t, t0.Add(6*time.Second), h.ctrl.Context().LastWake)

	h.ctrl.Step(t0.Add(6*time.Second + tick))
	assert.Equal(t, StateAwakeIdle, h.ctrl.Context().State)
	assert.Zero(t, h.power.deep)

	h.run(t0.Add(6*time.Second), 600)
	assert.Equal(t, 1, h.power.deep, "window still runs out after a slow load")
}

func TestEvaluate(t *testing.T) {
	window := 5 * time.Second
	released := []gpio.ButtonState{{}, {}}

	t.Run("press while idle goes pending and resets clock", func(t *testing.T) {
		cc := &Context{State: StateAwakeIdle, LastWake: t0, AwakeWindow: window}
		now := t0.Add(time.Second)
		act := evaluate(cc, []gpio.ButtonState{{Pressed: true, Edge: true}, {}}, now)

		assert.Equal(t, StateAwakePending, cc.State)
		assert.Equal(t, now, cc.LastWake)
		assert.Equal(t, []int{0}, act.Toggle)
		assert.False(t, act.Rediscover)
		assert.False(t, act.Sleep)
	})

	t.Run("held button without edge does not toggle", func(t *testing.T) {
		cc := &Context{State: StateAwakeIdle, LastWake: t0, AwakeWindow: window}
		act := evaluate(cc, []gpio.ButtonState{{Pressed: true}, {}}, t0.Add(time.Second))
		assert.Empty(t, act.Toggle)
	})

	t.Run("idle within window stays awake", func(t *testing.T) {
		cc := &Context{State: StateAwakeIdle, LastWake: t0, AwakeWindow: window}
		act := evaluate(cc, released, t0.Add(window))
		assert.False(t, act.Sleep, "window must be exceeded, not just reached")
	})

	t.Run("idle past window sleeps", func(t *testing.T) {
		cc := &Context{State: StateAwakeIdle, LastWake: t0, AwakeWindow: window}
		act := evaluate(cc, released, t0.Add(window+time.Millisecond))
		assert.True(t, act.Sleep)
	})

	t.Run("raw level past window never sleeps", func(t *testing.T) {
		cc := &Context{State: StateAwakeIdle, LastWake: t0, AwakeWindow: window}
		now := t0.Add(time.Hour)
		act := evaluate(cc, []gpio.ButtonState{{Held: true}, {}}, now)
		assert.False(t, act.Sleep)
		assert.Empty(t, act.Toggle, "no toggle until the press settles")
		assert.Equal(t, now, cc.LastWake)
	})

	t.Run("pressed past window never sleeps", func(t *testing.T) {
		cc := &Context{State: StateAwakeIdle, LastWake: t0, AwakeWindow: window}
		act := evaluate(cc, []gpio.ButtonState{{}, {Pressed: true}}, t0.Add(time.Hour))
		assert.False(t, act.Sleep)
	})

	t.Run("both pressed rediscovers once per gesture", func(t *testing.T) {
		cc := &Context{State: StateAwakeIdle, LastWake: t0, AwakeWindow: window}
		both := []gpio.ButtonState{{Pressed: true, Edge: true}, {Pressed: true, Edge: true}}
		act := evaluate(cc, both, t0)
		assert.True(t, act.Rediscover)
		assert.Equal(t, []int{0, 1}, act.Toggle)

		cc.Pending = [2]bool{}
		held := []gpio.ButtonState{{Pressed: true}, {Pressed: true}}
		act = evaluate(cc, held, t0.Add(tick))
		assert.False(t, act.Rediscover)

		evaluate(cc, released, t0.Add(2*tick))
		act = evaluate(cc, both, t0.Add(3*tick))
		assert.True(t, act.Rediscover, "a new gesture after release triggers again")
	})
}

func TestStep_OneTogglePerEdge(t *testing.T) {
	h := newHarness(config.SleepModeDeep)
	h.ctrl.Boot(t0)

	now := t0
	for press := 0; press < 3; press++ {
		h.sampler.Set(true, false)
		now = h.run(now, 5)
		h.sampler.Set(false, false)
		now = h.run(now, 5)
	}

	assert.Equal(t, []model.IPv4{ipA, ipA, ipA}, h.dispatcher.toggled)
	assert.Equal(t, StateAwakeIdle, h.ctrl.Context().State)
}

func TestStep_BothButtonsIndependently(t *testing.T) {
	h := newHarness(config.SleepModeDeep)
	h.ctrl.Boot(t0)

	h.sampler.Set(false, true)
	now := h.run(t0, 3)
	h.sampler.Set(false, false)
	now = h.run(now, 3)
	h.sampler.Set(true, false)
	h.run(now, 3)

	assert.Equal(t, []model.IPv4{ipB, ipA}, h.dispatcher.toggled)
	assert.Zero(t, h.cache.rediscovers)
}

func TestStep_SleepGuard(t *testing.T) {
	h := newHarness(config.SleepModeDeep)
	h.ctrl.Boot(t0)

	h.sampler.Set(true, false)
	h.run(t0, 2000) // 20s, four windows

	assert.NotEqual(t, StateAsleep, h.ctrl.Context().State)
	assert.Zero(t, h.power.deep)
	assert.Len(t, h.dispatcher.toggled, 1)
}

func TestStep_SleepGuardDuringDebounce(t *testing.T) {
	h := newHarness(config.SleepModeDeep)
	// pull-ups: released buttons read high
	reader := &levelReader{levels: map[int]bool{5: true, 4: true}}
	pins := []model.GPIOPin{{Number: 5}, {Number: 4}}
	h.ctrl.sampler = gpio.NewSampler(reader, pins, 50*time.Millisecond)
	h.ctrl.Boot(t0)

	now := h.run(t0, 500)
	require.Equal(t, StateAwakeIdle, h.ctrl.Context().State)

	reader.set(5, false)
	now = h.run(now, 1)
	assert.NotEqual(t, StateAsleep, h.ctrl.Context().State)
	assert.Equal(t, now, h.ctrl.Context().LastWake)
	assert.Zero(t, h.power.deep, "a press still settling keeps the node awake")
	assert.Empty(t, h.dispatcher.toggled)

	h.run(now, 5)
	assert.Equal(t, []model.IPv4{ipA}, h.dispatcher.toggled, "toggle once the press settles")
	assert.Zero(t, h.power.deep)
}

func TestStep_SlowRediscoverRestartsWindow(t *testing.T) {
	h := newHarness(config.SleepModeDeep)
	h.cache.rediscover = [2]model.IPv4{ipA, ipB}
	h.ctrl.Boot(t0)

	h.cache.onRediscover = func() { h.clock = h.clock.Add(6 * time.Second) }
	h.sampler.Set(true, true)
	h.run(t0, 1)
	require.Equal(t, 1, h.cache.rediscovers)
	assert.Equal(t, t0.Add(tick+6*time.Second), h.ctrl.Context().LastWake)

	h.sampler.Set(false, false)
	now := h.run(t0.Add(tick+6*time.Second), 1)
	assert.Equal(t, StateAwakeIdle, h.ctrl.Context().State)
	assert.Zero(t, h.power.deep)

	h.run(now, 500)
	assert.Equal(t, 1, h.power.deep)
}

func TestStep_IdleTimeoutSleepsOnce(t *testing.T) {
	h := newHarness(config.SleepModeDeep)
	h.ctrl.Boot(t0)

	h.run(t0, 499)
	assert.Equal(t, StateAwakeIdle, h.ctrl.Context().State)
	assert.Zero(t, h.power.deep)

	h.run(t0.Add(499*tick), 100)

	assert.Equal(t, StateAsleep, h.ctrl.Context().State)
	assert.Equal(t, 1, h.power.deep)
	assert.Equal(t, []string{"park", "network_down", "arm", "deep_sleep"}, h.calls)
	assert.Equal(t, []int{3}, h.power.armed)
	assert.Equal(t, power.LevelLow, h.power.level)
	assert.Equal(t, []int{17, 27}, h.power.parked)
	assert.Equal(t, 2, h.cache.commits, "pending addresses get another chance before sleep")
}

func TestStep_PressExtendsWindow(t *testing.T) {
	h := newHarness(config.SleepModeDeep)
	h.ctrl.Boot(t0)

	now := h.run(t0, 400)
	h.sampler.Set(false, true)
	now = h.run(now, 1)
	h.sampler.Set(false, false)

	h.run(now, 450)
	assert.Equal(t, StateAwakeIdle, h.ctrl.Context().State, "window restarts at the press")

	h.run(now.Add(450*tick), 100)
	assert.Equal(t, StateAsleep, h.ctrl.Context().State)
}

func TestStep_RediscoverBeforeDispatch(t *testing.T) {
	h := newHarness(config.SleepModeDeep)
	h.cache.rediscover = [2]model.IPv4{ipA, model.IPv4FromOctets(10, 0, 0, 42)}
	h.ctrl.Boot(t0)

	h.sampler.Set(true, true)
	h.run(t0, 10)

	assert.Equal(t, 1, h.cache.rediscovers)
	assert.Equal(t, []string{"rediscover", "toggle 10.0.0.5", "toggle 10.0.0.42"}, h.calls)
	assert.Equal(t, model.IPv4FromOctets(10, 0, 0, 42), h.ctrl.Context().Addresses[1])
}

func TestStep_UnresolvedSkipped(t *testing.T) {
	h := newHarness(config.SleepModeDeep)
	h.cache.addrs = [2]model.IPv4{model.Unresolved, ipB}
	h.ctrl.Boot(t0)

	h.sampler.Set(true, false)
	now := h.run(t0, 1)
	h.sampler.Set(false, true)
	h.run(now, 1)

	assert.Equal(t, []model.IPv4{ipB}, h.dispatcher.toggled)
	assert.Equal(t, [2]bool{}, h.ctrl.Context().Pending, "skipped presses are still consumed")
}

func TestStep_LightSleepReturnsToIdle(t *testing.T) {
	h := newHarness(config.SleepModeLight)
	woke := t0.Add(time.Hour)
	h.power.onResume = func() { h.clock = woke }
	h.ctrl.Boot(t0)

	h.run(t0, 600)

	cc := h.ctrl.Context()
	assert.Equal(t, StateAwakeIdle, cc.State)
	assert.Equal(t, woke, cc.LastWake)
	assert.Equal(t, 1, h.power.light)
	assert.Zero(t, h.power.deep)
	assert.Equal(t, []string{"park", "arm", "light_sleep"}, h.calls, "network stays up in light sleep")
	assert.Equal(t, []int{5, 4}, h.power.armed)

	h.sampler.Set(true, false)
	h.run(woke, 1)
	assert.Equal(t, []model.IPv4{ipA}, h.dispatcher.toggled)
}

func TestStep_ArmFailureStillSleeps(t *testing.T) {
	h := newHarness(config.SleepModeDeep)
	h.power.armErr = errors.New("pinctrl: not found")
	h.ctrl.Boot(t0)

	h.run(t0, 600)
	assert.Equal(t, 1, h.power.deep)
}

func TestStep_IgnoredWhileAsleep(t *testing.T) {
	h := newHarness(config.SleepModeDeep)
	h.ctrl.Boot(t0)
	h.run(t0, 600)
	require.Equal(t, StateAsleep, h.ctrl.Context().State)

	h.sampler.Set(true, true)
	h.run(t0.Add(time.Minute), 10)

	assert.Empty(t, h.dispatcher.toggled)
	assert.Equal(t, 1, h.power.deep)
}

func TestRun_StopsAfterSleep(t *testing.T) {
	h := newHarness(config.SleepModeDeep)
	h.ctrl.opts.PollInterval = time.Millisecond
	h.ctrl.cc.AwakeWindow = 20 * time.Millisecond
	h.ctrl.now = time.Now
	h.ctrl.Boot(time.Now())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := h.ctrl.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateAsleep, h.ctrl.Context().State)
	assert.Equal(t, 1, h.power.deep)
}

func TestRun_Cancelled(t *testing.T) {
	h := newHarness(config.SleepModeDeep)
	h.ctrl.opts.PollInterval = time.Millisecond
	h.ctrl.now = time.Now
	h.ctrl.Boot(time.Now())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	err := h.ctrl.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Zero(t, h.power.deep)
}

func TestOptionsFromConfig(t *testing.T) {
	a, b := 6, 13
	cfg := &config.Config{
		ButtonAPin:     &a,
		ButtonBPin:     &b,
		WakePins:       []int{6, 13},
		UnusedPins:     []int{2},
		SleepMode:      config.SleepModeLight,
		AwakeWindowMs:  3000,
		PollIntervalMs: 20,
	}

	opts := OptionsFromConfig(cfg)
	assert.Equal(t, [2]model.Slot{model.SlotA, model.SlotB}, opts.Slots)
	assert.Equal(t, []int{6, 13}, opts.WakePins)
	assert.Equal(t, []int{2}, opts.UnusedPins)
	assert.Equal(t, 3*time.Second, opts.AwakeWindow)
	assert.Equal(t, 20*time.Millisecond, opts.PollInterval)
	assert.Equal(t, power.LevelLow, opts.WakeLevel)

	cfg.ButtonActiveHigh = true
	assert.Equal(t, power.LevelHigh, OptionsFromConfig(cfg).WakeLevel)

	cfg.SleepMode = config.SleepModeDeep
	cfg.WakePins = []int{3}
	assert.Equal(t, power.LevelLow, OptionsFromConfig(cfg).WakeLevel, "GPIO3 wakes a halted board on low")
}

func TestBoot_NotifiesUnresolved(t *testing.T) {
	var sent []string
	notify = func(title, message string) error {
		sent = append(sent, message)
		return nil
	}
	defer func() { notify = notifications.Send }()

	h := newHarness(config.SleepModeDeep)
	h.cache.addrs = [2]model.IPv4{ipA, model.Unresolved}
	h.ctrl.Boot(t0)

	require.Len(t, sent, 1)
	assert.Contains(t, sent[0], "plug B")
}
