// Package logic contains the pure node logic: the phase counter, LED effect
// rendering, role-based code dispatch and per-button debounce state.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
package logic

import (
	"fmt"
	"strings"
)

// CountMax is the length of one effect cycle in ticks.
const CountMax = 100

// Phase is the tick-driven position inside an effect cycle, in [0, CountMax).
type Phase uint8

// Next returns the phase one tick later, wrapping to 0 at CountMax.
func (p Phase) Next() Phase {
	if p+1 >= CountMax {
		return 0
	}
	return p + 1
}

// FirstHalf reports whether p lies in the lit/driven half of the cycle.
func (p Phase) FirstHalf() bool {
	return p < CountMax/2
}

// Last reports whether p is the final tick of a cycle.
func (p Phase) Last() bool {
	return p == CountMax-1
}

// Role is the fixed functional identity of a node.
type Role uint8

const (
	ButtonsVibNode Role = iota
	LedNode
	RelayNode
)

func (r Role) String() string {
	switch r {
	case ButtonsVibNode:
		return "buttons-vib"
	case LedNode:
		return "led"
	case RelayNode:
		return "relay"
	}
	return fmt.Sprintf("role(%d)", uint8(r))
}

// ParseRole parses the names produced by Role.String.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(s) {
	case "buttons-vib", "buttons":
		return ButtonsVibNode, nil
	case "led":
		return LedNode, nil
	case "relay":
		return RelayNode, nil
	}
	return 0, fmt.Errorf("unknown role %q (want buttons-vib, led or relay)", s)
}

// Button identities. The numbering is the protocol's, not the GPIO line offset.
const (
	ButtonPhysicalMute = 0
	ButtonOnlineMute   = 1
)

// Edge is one level change reported by an input pin.
type Edge struct {
	Pin   int
	Level bool // true = high
}

// ButtonState tracks debounce state for a single button.
type ButtonState struct {
	Pin int
	// Last level seen on any edge, genuine or not
	LastObserved bool
	// Level last acted on and confirmed after the settle window
	LastConfirmed bool
	// Whether LastConfirmed holds a real value yet
	Confirmed bool
}
