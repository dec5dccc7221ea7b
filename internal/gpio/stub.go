//go:build !linux

package gpio

import (
	"errors"

	"github.com/sweeney/meshnode/internal/logic"
)

var errUnsupported = errors.New("gpio: not supported on this platform (requires Linux)")

// RealInput is not available on non-Linux platforms.
type RealInput struct{}

// NewRealInput returns an error on non-Linux platforms.
func NewRealInput(chipName string, pins map[int]int) (*RealInput, error) {
	return nil, errUnsupported
}

// Watch is not implemented on non-Linux platforms.
func (r *RealInput) Watch(fn func(logic.Edge)) error { return errUnsupported }

// ReadLevel is not implemented on non-Linux platforms.
func (r *RealInput) ReadLevel(pin int) (bool, error) { return false, errUnsupported }

// Close is not implemented on non-Linux platforms.
func (r *RealInput) Close() error { return nil }

// RealOutputs is not available on non-Linux platforms.
type RealOutputs struct{}

// NewRealOutputs returns an error on non-Linux platforms.
func NewRealOutputs(chipName string, offset int) (*RealOutputs, error) {
	return nil, errUnsupported
}

func (o *RealOutputs) SetRelay(bool) error     { return errUnsupported }
func (o *RealOutputs) SetVibration(bool) error { return errUnsupported }
func (o *RealOutputs) Close() error            { return nil }
