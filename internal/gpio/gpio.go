// Package gpio provides button input and actuator output lines with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

import "github.com/sweeney/meshnode/internal/logic"

// Input delivers button edges and reads button levels.
type Input interface {
	// Watch starts delivering edges to fn. fn is called from the driver's
	// event goroutine, outside the tick loop, and must not block.
	Watch(fn func(logic.Edge)) error

	// ReadLevel returns the current raw level of a button (true = high).
	ReadLevel(pin int) (bool, error)

	// Close releases GPIO resources.
	Close() error
}

// Outputs drives the relay or vibration line of a node.
type Outputs interface {
	SetRelay(muted bool) error
	SetVibration(on bool) error
	Close() error
}

// Pin definitions (BCM numbering)
const (
	DefaultChip            = "gpiochip0"
	DefaultPinPhysicalMute = 3
	DefaultPinOnlineMute   = 6
	DefaultPinActuator     = 17 // shared by relay and vibration motor
)

// NopOutputs is used by nodes without relay or vibration hardware.
type NopOutputs struct{}

func (NopOutputs) SetRelay(bool) error     { return nil }
func (NopOutputs) SetVibration(bool) error { return nil }
func (NopOutputs) Close() error            { return nil }
