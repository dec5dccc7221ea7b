// Package actuator drives the LED, relay and vibration outputs of a node and
// suppresses hardware writes that would not change anything.
package actuator

import (
	"fmt"
	"log"

	"github.com/sweeney/meshnode/internal/errcode"
	"github.com/sweeney/meshnode/internal/logic"
	"github.com/sweeney/meshnode/internal/protocol"
)

// TimesVib is the number of vibration pulses per request.
const TimesVib = 3

// Driver writes to the node's output hardware. Each call is expected to
// complete within one tick period.
type Driver interface {
	SetLED(c protocol.RGB) error
	SetRelay(muted bool) error
	SetVibration(on bool) error
}

// Config declares which actuators a node has. At most one may be set.
type Config struct {
	UseVibration bool // vibration motor or buzzer
	UseRelay     bool
}

// Validate reports errcode.ConflictingActuatorConfig when both actuators are set.
func (c Config) Validate() error {
	if c.UseVibration && c.UseRelay {
		return &errcode.E{C: errcode.ConflictingActuatorConfig, Op: "actuator", Msg: "can't use vibration and relay on the same node"}
	}
	return nil
}

// Request is what the current code asks of the actuators on one tick.
type Request struct {
	Relay      bool // whether a relay state is requested at all
	RelayMuted bool
}

// State is the coordinator's view of its outputs.
// It is a value type, safe to hand to other goroutines.
type State struct {
	VibRemaining int

	// Relay state last written; unknown until the first write.
	RelayKnown bool
	RelayMuted bool

	// Vibration level last written; unknown until the first write.
	VibKnown bool
	VibOn    bool

	// LED colour last written.
	LEDKnown bool
	LED      protocol.RGB
}

// Coordinator owns State. Not safe for concurrent use; the tick loop is its only caller.
type Coordinator struct {
	cfg Config
	drv Driver
	st  State
}

// NewCoordinator creates a coordinator with no pending pulses and unknown outputs.
func NewCoordinator(cfg Config, drv Driver) *Coordinator {
	return &Coordinator{cfg: cfg, drv: drv}
}

// Config returns the actuator configuration.
func (c *Coordinator) Config() Config { return c.cfg }

// State returns a copy of the current state.
func (c *Coordinator) State() State { return c.st }

// RequestVibration starts a fresh run of TimesVib pulses. The caller restarts
// its phase at 0 so pulses line up with the cycle.
func (c *Coordinator) RequestVibration() {
	c.st.VibRemaining = TimesVib
	log.Printf("actuator: vibration started, %d pulses", TimesVib)
}

// Tick drives the configured actuators for one tick. With both actuators
// configured it refuses to act and returns errcode.ConflictingActuatorConfig.
func (c *Coordinator) Tick(phase logic.Phase, req Request) error {
	if err := c.cfg.Validate(); err != nil {
		return err
	}
	if c.cfg.UseVibration {
		return c.Vibrate(phase)
	}
	if c.cfg.UseRelay && req.Relay {
		return c.ApplyRelay(req.RelayMuted)
	}
	return nil
}

// Vibrate drives the vibration output for phase. While pulses remain the
// output is on for the first half of the cycle; the count drops by one on the
// last tick of each cycle. With no pulses left the output is not touched.
func (c *Coordinator) Vibrate(phase logic.Phase) error {
	if c.st.VibRemaining == 0 {
		return nil
	}

	on := phase.FirstHalf()
	if phase.Last() {
		c.st.VibRemaining--
		log.Printf("actuator: vibration pulse done, %d left", c.st.VibRemaining)
	}

	if c.st.VibKnown && c.st.VibOn == on {
		return nil
	}
	c.st.VibKnown = true
	c.st.VibOn = on
	if err := c.drv.SetVibration(on); err != nil {
		return fmt.Errorf("set vibration: %w", err)
	}
	return nil
}

// ApplyRelay writes the relay only when muted differs from the last applied state.
func (c *Coordinator) ApplyRelay(muted bool) error {
	if c.st.RelayKnown && c.st.RelayMuted == muted {
		return nil
	}
	c.st.RelayKnown = true
	c.st.RelayMuted = muted

	if err := c.drv.SetRelay(muted); err != nil {
		if muted {
			return fmt.Errorf("relay mute: %w", err)
		}
		return fmt.Errorf("relay unmute: %w", err)
	}
	if muted {
		log.Printf("actuator: relay muted")
	} else {
		log.Printf("actuator: relay unmuted")
	}
	return nil
}

// ShowLED writes c to the LED unless it is already showing.
func (c *Coordinator) ShowLED(rgb protocol.RGB) error {
	if c.st.LEDKnown && c.st.LED == rgb {
		return nil
	}
	c.st.LEDKnown = true
	c.st.LED = rgb
	if err := c.drv.SetLED(rgb); err != nil {
		return fmt.Errorf("set led: %w", err)
	}
	return nil
}
