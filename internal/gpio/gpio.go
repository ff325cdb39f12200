package gpio

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/plug-remote/internal/model"
	"github.com/thatsimonsguy/plug-remote/internal/pinctrl"
)

var readPin = pinctrl.ReadPin

// LevelReader reads the raw logic level of an input pin.
type LevelReader interface {
	ReadLevel(pin int) (bool, error)
}

type PinctrlReader struct{}

func (PinctrlReader) ReadLevel(pin int) (bool, error) {
	return pinctrl.ReadLevel(pin)
}

// ButtonState is one sample of one button. Held is the raw level of this
// sample, Pressed the debounced one. Edge is set only on the sample where
// the button became pressed.
type ButtonState struct {
	Held    bool
	Pressed bool
	Edge    bool
}

type button struct {
	pin       model.GPIOPin
	stable    bool
	candidate bool
	since     time.Time
}

// Sampler polls button pins and derives press edges. A raw level must hold
// for the debounce period before it is accepted.
type Sampler struct {
	reader   LevelReader
	buttons  []button
	debounce time.Duration
}

func NewSampler(reader LevelReader, pins []model.GPIOPin, debounce time.Duration) *Sampler {
	buttons := make([]button, len(pins))
	for i, p := range pins {
		buttons[i] = button{pin: p}
	}
	return &Sampler{reader: reader, buttons: buttons, debounce: debounce}
}

// Sample reads every button in one pass. Results are indexed like the pins
// given to NewSampler.
func (s *Sampler) Sample(now time.Time) []ButtonState {
	states := make([]ButtonState, len(s.buttons))
	for i := range s.buttons {
		b := &s.buttons[i]
		raw := s.pressed(b.pin)
		states[i].Held = raw

		if raw != b.candidate {
			b.candidate = raw
			b.since = now
		}
		if b.candidate != b.stable && now.Sub(b.since) >= s.debounce {
			b.stable = b.candidate
			states[i].Edge = b.stable
		}
		states[i].Pressed = b.stable
	}
	return states
}

func (s *Sampler) pressed(pin model.GPIOPin) bool {
	level, err := s.reader.ReadLevel(pin.Number)
	if err != nil {
		log.Debug().Err(err).Int("pin", pin.Number).Msg("Failed to read button level, treating as released")
		return false
	}
	return level == pin.ActiveHigh
}

// CheckButtons verifies every button pin can be read, returning the first
// failure. A pin not configured as an input pulled away from its pressed
// level is only warned about.
func CheckButtons(reader LevelReader, pins []model.GPIOPin) error {
	for _, p := range pins {
		level, err := reader.ReadLevel(p.Number)
		if err != nil {
			return fmt.Errorf("failed to read button pin %d: %w", p.Number, err)
		}
		log.Debug().Int("pin", p.Number).Bool("pressed", level == p.ActiveHigh).Msg("Button pin readable")

		state, err := readPin(p.Number)
		if err != nil {
			log.Debug().Err(err).Int("pin", p.Number).Msg("Failed to read button pin config")
			continue
		}
		if problem := pinConfigProblem(p, state); problem != "" {
			log.Warn().
				Int("pin", p.Number).
				Str("mode", state.Mode).
				Str("pull", state.Pull).
				Msg("Button pin " + problem + ", was the boot script run?")
		}
	}
	return nil
}

func pinConfigProblem(p model.GPIOPin, state *pinctrl.PinState) string {
	if state.Mode != "ip" {
		return "is not an input"
	}
	pull, direction := "pu", "up"
	if p.ActiveHigh {
		pull, direction = "pd", "down"
	}
	if state.Pull != pull {
		return "is not pulled " + direction
	}
	return ""
}
