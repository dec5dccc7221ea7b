//go:build linux

package gpio

import (
	"fmt"
	"sync"

	"github.com/warthog618/go-gpiocdev"

	"github.com/sweeney/meshnode/internal/logic"
)

// RealInput watches button lines on the Linux GPIO character device.
type RealInput struct {
	chip     *gpiocdev.Chip
	lines    map[int]*gpiocdev.Line // button -> line
	byOffset map[int]int            // line offset -> button

	mu sync.RWMutex
	fn func(logic.Edge)
}

// NewRealInput requests the given button lines (button -> BCM offset) as
// inputs with pull-up and both-edge detection.
func NewRealInput(chipName string, pins map[int]int) (*RealInput, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	r := &RealInput{
		chip:     chip,
		lines:    make(map[int]*gpiocdev.Line, len(pins)),
		byOffset: make(map[int]int, len(pins)),
	}
	for button, offset := range pins {
		r.byOffset[offset] = button
	}

	for button, offset := range pins {
		line, err := chip.RequestLine(offset,
			gpiocdev.AsInput,
			gpiocdev.WithPullUp,
			gpiocdev.WithBothEdges,
			gpiocdev.WithEventHandler(r.handle))
		if err != nil {
			r.Close()
			return nil, fmt.Errorf("request button %d pin %d: %w", button, offset, err)
		}
		r.lines[button] = line
	}

	return r, nil
}

// handle runs on gpiocdev's event goroutine.
func (r *RealInput) handle(evt gpiocdev.LineEvent) {
	button, ok := r.byOffset[evt.Offset]
	if !ok {
		return
	}
	r.mu.RLock()
	fn := r.fn
	r.mu.RUnlock()
	if fn == nil {
		return
	}
	fn(logic.Edge{Pin: button, Level: evt.Type == gpiocdev.LineEventRisingEdge})
}

// Watch sets the edge callback. Edges arriving before Watch are dropped.
func (r *RealInput) Watch(fn func(logic.Edge)) error {
	r.mu.Lock()
	r.fn = fn
	r.mu.Unlock()
	return nil
}

// ReadLevel returns the raw level of a button line.
func (r *RealInput) ReadLevel(pin int) (bool, error) {
	line, ok := r.lines[pin]
	if !ok {
		return false, fmt.Errorf("no line for button %d", pin)
	}
	v, err := line.Value()
	if err != nil {
		return false, fmt.Errorf("read button %d: %w", pin, err)
	}
	return v == 1, nil
}

// Close releases the button lines and the chip.
func (r *RealInput) Close() error {
	var errs []error
	for button, line := range r.lines {
		if err := line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close button %d: %w", button, err))
		}
	}
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

// RealOutputs drives the shared relay/vibration line.
type RealOutputs struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
}

// NewRealOutputs requests the actuator line as an output, initially low.
func NewRealOutputs(chipName string, offset int) (*RealOutputs, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}
	line, err := chip.RequestLine(offset, gpiocdev.AsOutput(0))
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request actuator pin %d: %w", offset, err)
	}
	return &RealOutputs{chip: chip, line: line}, nil
}

// SetRelay drives the relay. The relay is wired so that a low level mutes.
func (o *RealOutputs) SetRelay(muted bool) error {
	v := 1
	if muted {
		v = 0
	}
	return o.line.SetValue(v)
}

// SetVibration drives the vibration motor.
func (o *RealOutputs) SetVibration(on bool) error {
	v := 0
	if on {
		v = 1
	}
	return o.line.SetValue(v)
}

// Close returns the line to input with pull-down (matching Pi boot defaults)
// so the relay or motor is not left energised, then releases it.
func (o *RealOutputs) Close() error {
	var errs []error
	if o.line != nil {
		if err := o.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure actuator pin: %w", err))
		}
		if err := o.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close actuator pin: %w", err))
		}
	}
	if o.chip != nil {
		if err := o.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
