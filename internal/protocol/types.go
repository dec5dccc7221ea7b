// Package protocol encodes and decodes the single-byte Indicator and Control
// codes exchanged between mesh nodes. It has no I/O and no dependencies beyond
// the error codes.
package protocol

import "fmt"

// OpCode is the 2-bit message tag held in bits 7–6 of a mesh code.
type OpCode uint8

const (
	OpNothing   OpCode = 0b00
	OpIndicator OpCode = 0b01
	OpControl   OpCode = 0b10
	OpReserved  OpCode = 0b11
)

func (o OpCode) String() string {
	switch o {
	case OpNothing:
		return "NOTHING"
	case OpIndicator:
		return "INDICATOR"
	case OpControl:
		return "CONTROL"
	case OpReserved:
		return "RESERVED"
	}
	return fmt.Sprintf("OPCODE(%d)", uint8(o))
}

// Colour is the 3-bit LED colour index.
type Colour uint8

const (
	Red Colour = iota
	Orange
	Yellow
	Green
	Cyan
	Blue
	Purple
	White
)

var colourNames = [...]string{"RED", "ORANGE", "YELLOW", "GREEN", "CYAN", "BLUE", "PURPLE", "WHITE"}

func (c Colour) String() string {
	if int(c) < len(colourNames) {
		return colourNames[c]
	}
	return fmt.Sprintf("COLOUR(%d)", uint8(c))
}

// Effect is the 2-bit LED effect.
type Effect uint8

const (
	Off Effect = iota
	Static
	Blinking
	Breathing
)

var effectNames = [...]string{"OFF", "STATIC", "BLINKING", "BREATHING"}

func (e Effect) String() string {
	if int(e) < len(effectNames) {
		return effectNames[e]
	}
	return fmt.Sprintf("EFFECT(%d)", uint8(e))
}

// RGB is one LED intensity triple.
type RGB struct {
	R, G, B uint8
}

// MaxChannel is the full-scale value of one LED channel.
const MaxChannel = 255

// Indicator describes an LED colour/effect plus actuator requests.
// Relay is only carried by the buzzer/relay layout.
type Indicator struct {
	Colour  Colour
	Effect  Effect
	Vibrate bool // vibration motor or buzzer
	Relay   bool
}

// Control describes an online/physical mute request for a relay node.
type Control struct {
	UseOnlineMute   bool
	OnlineMuted     bool
	UsePhysicalMute bool
	PhysicalMuted   bool
}
