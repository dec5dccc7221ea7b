package logic

import (
	"fmt"

	"github.com/sweeney/meshnode/internal/errcode"
	"github.com/sweeney/meshnode/internal/protocol"
)

// Debouncer tracks per-button state and turns genuine edges into Control codes.
// Not safe for concurrent use; the edge consumer is its only caller.
type Debouncer struct {
	buttons map[int]*ButtonState
}

// NewDebouncer creates state for the physical-mute and online-mute buttons.
// Neither button has a confirmed level yet, so the first edge on each is acted on.
func NewDebouncer() *Debouncer {
	return &Debouncer{
		buttons: map[int]*ButtonState{
			ButtonPhysicalMute: {Pin: ButtonPhysicalMute},
			ButtonOnlineMute:   {Pin: ButtonOnlineMute},
		},
	}
}

// Observe processes one edge. It returns the Control code to publish and
// true for a genuine transition, or false when the level matches the last
// confirmed level (bounce). Unknown pins fail with errcode.UnknownButtonPin.
func (d *Debouncer) Observe(e Edge) (protocol.Control, bool, error) {
	b, ok := d.buttons[e.Pin]
	if !ok {
		return protocol.Control{}, false, &errcode.E{C: errcode.UnknownButtonPin, Op: "debounce", Msg: fmt.Sprintf("pin %d", e.Pin)}
	}
	b.LastObserved = e.Level

	if b.Confirmed && e.Level == b.LastConfirmed {
		return protocol.Control{}, false, nil
	}

	c, err := ControlFor(e)
	if err != nil {
		return protocol.Control{}, false, err
	}
	return c, true, nil
}

// Confirm records level as the settled state of pin.
func (d *Debouncer) Confirm(pin int, level bool) {
	if b, ok := d.buttons[pin]; ok {
		b.LastConfirmed = level
		b.Confirmed = true
	}
}

// State returns a copy of the state for pin.
func (d *Debouncer) State(pin int) (ButtonState, bool) {
	b, ok := d.buttons[pin]
	if !ok {
		return ButtonState{}, false
	}
	return *b, true
}

// ControlFor builds the Control code a button edge asks for.
func ControlFor(e Edge) (protocol.Control, error) {
	switch e.Pin {
	case ButtonPhysicalMute:
		return protocol.Control{UsePhysicalMute: true, PhysicalMuted: e.Level}, nil
	case ButtonOnlineMute:
		return protocol.Control{UseOnlineMute: true, OnlineMuted: e.Level}, nil
	}
	return protocol.Control{}, &errcode.E{C: errcode.UnknownButtonPin, Op: "debounce", Msg: fmt.Sprintf("pin %d", e.Pin)}
}
