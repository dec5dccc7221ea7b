// Package node runs the tick loop of a mesh node: it gates inbound codes by
// role, renders the current effect and drives the actuators once per tick.
package node

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/sweeney/meshnode/internal/actuator"
	"github.com/sweeney/meshnode/internal/errcode"
	"github.com/sweeney/meshnode/internal/logic"
	"github.com/sweeney/meshnode/internal/protocol"
)

// DefaultTickPeriod is the time between ticks.
const DefaultTickPeriod = 20 * time.Millisecond

// Config fixes a node's role and actuator set at start.
type Config struct {
	Role     logic.Role
	Actuator actuator.Config
}

// DefaultActuators returns the actuator set a role carries by default.
func DefaultActuators(role logic.Role) actuator.Config {
	switch role {
	case logic.ButtonsVibNode:
		return actuator.Config{UseVibration: true}
	case logic.RelayNode:
		return actuator.Config{UseRelay: true}
	}
	return actuator.Config{}
}

// Counts tracks inbound codes and tick failures.
type Counts struct {
	Received int
	Accepted int
	Ignored  int // addressed to another role
	Failed   int // ticks where rendering or actuation failed
}

// Snapshot is a point-in-time view of the node.
type Snapshot struct {
	Role     logic.Role
	Code     byte
	HasCode  bool
	Effect   protocol.Effect
	Colour   protocol.Colour
	Phase    logic.Phase
	Actuator actuator.State
	Counts   Counts
}

// Observer is told about inbound codes and state after each tick.
type Observer interface {
	CodeReceived(code byte, applied bool)
	NodeUpdated(snap Snapshot)
}

// Node owns the phase counter, the actuator coordinator and the current code.
// Not safe for concurrent use; Run is its only caller while running.
type Node struct {
	cfg   Config
	coord *actuator.Coordinator
	obs   Observer

	phase   logic.Phase
	code    byte
	hasCode bool
	counts  Counts

	conflictWarned bool

	// sleep is swapped in tests so RunFor and ShowEffect don't wait.
	sleep func(time.Duration)
}

// New creates a node. It fails with errcode.UnsupportedNodeRole for an
// unknown role.
func New(cfg Config, drv actuator.Driver) (*Node, error) {
	if _, err := logic.Accepts(cfg.Role); err != nil {
		return nil, err
	}
	return &Node{
		cfg:   cfg,
		coord: actuator.NewCoordinator(cfg.Actuator, drv),
		sleep: time.Sleep,
	}, nil
}

// SetObserver registers o for code and tick notifications. o is handed the
// current state straight away so it never reports a node it has not heard from.
func (n *Node) SetObserver(o Observer) {
	n.obs = o
	if o != nil {
		o.NodeUpdated(n.Snapshot())
	}
}

// HandleCode gates code against the node's role and makes it current when
// accepted. A code for another role is dropped and the previous code kept.
func (n *Node) HandleCode(code byte) (bool, error) {
	n.counts.Received++
	next, applied, err := logic.Dispatch(code, n.cfg.Role, n.code)
	if err != nil {
		return false, err
	}
	if n.obs != nil {
		n.obs.CodeReceived(code, applied)
	}
	if !applied {
		n.counts.Ignored++
		return false, nil
	}

	n.counts.Accepted++
	log.Printf("node: accepted %s", protocol.Describe(code))

	// Only a node with a vibration actuator acts on the vib bit; elsewhere it
	// must not restart the phase of the effect being shown.
	if n.cfg.Actuator.UseVibration && protocol.OpCodeOf(next) == protocol.OpIndicator {
		ind := protocol.DecodeIndicator(next)
		if ind.Vibrate {
			// Consumed here so a repeat of the same code starts a new run.
			ind.Vibrate = false
			next = protocol.EncodeIndicator(ind)
			n.coord.RequestVibration()
			n.phase = 0
		}
	}

	n.code = next
	n.hasCode = true
	return true, nil
}

// indicator returns the effect and colour to show for the current code.
func (n *Node) indicator() (protocol.Effect, protocol.Colour) {
	if !n.hasCode {
		return protocol.Off, protocol.Red
	}
	if n.cfg.Role == logic.RelayNode {
		c := protocol.DecodeControl(n.code)
		switch {
		case !c.UsePhysicalMute:
			return protocol.Static, protocol.Red
		case c.PhysicalMuted:
			return protocol.Static, protocol.Orange
		default:
			return protocol.Static, protocol.Green
		}
	}
	ind := protocol.DecodeIndicator(n.code)
	return ind.Effect, ind.Colour
}

func (n *Node) request() actuator.Request {
	if !n.hasCode || n.cfg.Role != logic.RelayNode {
		return actuator.Request{}
	}
	c := protocol.DecodeControl(n.code)
	return actuator.Request{Relay: c.UsePhysicalMute, RelayMuted: c.PhysicalMuted}
}

// Step runs one tick: render the LED, drive the actuators and advance the
// phase. With conflicting actuators nothing is driven, the LED included, and
// the conflict is logged once until it clears.
func (n *Node) Step() error {
	defer func() {
		n.phase = n.phase.Next()
		if n.obs != nil {
			n.obs.NodeUpdated(n.Snapshot())
		}
	}()

	if err := n.cfg.Actuator.Validate(); err != nil {
		n.counts.Failed++
		if !n.conflictWarned {
			log.Printf("node: not actuating: %v", err)
			n.conflictWarned = true
		}
		return err
	}
	n.conflictWarned = false

	var errs []error
	effect, colour := n.indicator()
	rgb, err := logic.Render(effect, colour, n.phase)
	if err != nil {
		errs = append(errs, err)
	} else if err := n.coord.ShowLED(rgb); err != nil {
		errs = append(errs, err)
	}
	if err := n.coord.Tick(n.phase, n.request()); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		n.counts.Failed++
		return errors.Join(errs...)
	}
	return nil
}

func (n *Node) step() {
	if err := n.Step(); err != nil && errcode.Of(err) != errcode.ConflictingActuatorConfig {
		log.Printf("node: tick: %v", err)
	}
}

// RunFor runs ticks iterations of the loop, sleeping period after each.
func (n *Node) RunFor(ticks int, period time.Duration) {
	for i := 0; i < ticks; i++ {
		n.step()
		n.sleep(period)
	}
}

// ShowEffect holds a local effect for ticks iterations without touching the
// current code, then restores the LED to the code's effect on the next tick.
func (n *Node) ShowEffect(effect protocol.Effect, colour protocol.Colour, ticks int, period time.Duration) error {
	for i := 0; i < ticks; i++ {
		rgb, err := logic.Render(effect, colour, n.phase)
		if err != nil {
			return fmt.Errorf("show effect: %w", err)
		}
		if err := n.coord.ShowLED(rgb); err != nil {
			log.Printf("node: show effect: %v", err)
		}
		n.phase = n.phase.Next()
		n.sleep(period)
	}
	n.phase = 0
	return nil
}

// Run drives the node until ctx is cancelled. Each value on tick runs one
// Step; codes are dispatched between ticks.
func (n *Node) Run(ctx context.Context, tick <-chan time.Time, codes <-chan byte) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case code, ok := <-codes:
			if !ok {
				codes = nil
				continue
			}
			if _, err := n.HandleCode(code); err != nil {
				log.Printf("node: code 0x%02x: %v", code, err)
			}
		case <-tick:
			n.step()
		}
	}
}

// Role returns the node's role.
func (n *Node) Role() logic.Role { return n.cfg.Role }

// Phase returns the current phase.
func (n *Node) Phase() logic.Phase { return n.phase }

// Snapshot returns the current node state.
func (n *Node) Snapshot() Snapshot {
	effect, colour := n.indicator()
	return Snapshot{
		Role:     n.cfg.Role,
		Code:     n.code,
		HasCode:  n.hasCode,
		Effect:   effect,
		Colour:   colour,
		Phase:    n.phase,
		Actuator: n.coord.State(),
		Counts:   n.counts,
	}
}
