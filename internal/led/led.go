// Package led drives the node's RGB indicator LED.
package led

import (
	"fmt"
	"io"
	"log"

	"github.com/tarm/serial"

	"github.com/sweeney/meshnode/internal/protocol"
)

// Strip sets the colour of the indicator LED.
type Strip interface {
	SetLED(c protocol.RGB) error
	Close() error
}

// DefaultBaud is the line rate of the serial LED controller.
const DefaultBaud = 115200

// frameStart marks the beginning of a colour frame on the serial line.
const frameStart = 0x7E

// Frame returns the serial frame for c: start byte, then red, green, blue.
func Frame(c protocol.RGB) []byte {
	return []byte{frameStart, c.R, c.G, c.B}
}

// SerialStrip writes colour frames to a serial-attached LED controller.
type SerialStrip struct {
	port io.WriteCloser
}

// NewSerialStrip opens the serial port of the LED controller. The port stays
// open for the life of the strip since a frame is written every tick.
func NewSerialStrip(name string, baud int) (*SerialStrip, error) {
	p, err := serial.OpenPort(&serial.Config{Name: name, Baud: baud})
	if err != nil {
		return nil, fmt.Errorf("open led port %s: %w", name, err)
	}
	return &SerialStrip{port: p}, nil
}

// SetLED writes one colour frame.
func (s *SerialStrip) SetLED(c protocol.RGB) error {
	if _, err := s.port.Write(Frame(c)); err != nil {
		return fmt.Errorf("write led frame: %w", err)
	}
	return nil
}

// Close turns the LED off and closes the port.
func (s *SerialStrip) Close() error {
	if err := s.SetLED(protocol.RGB{}); err != nil {
		log.Printf("led: clear on close: %v", err)
	}
	return s.port.Close()
}

// LogStrip stands in for a node without LED hardware and logs colour changes.
type LogStrip struct{}

func (LogStrip) SetLED(c protocol.RGB) error {
	log.Printf("led: colour %d,%d,%d", c.R, c.G, c.B)
	return nil
}

func (LogStrip) Close() error { return nil }
