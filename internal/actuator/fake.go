package actuator

import "github.com/sweeney/meshnode/internal/protocol"

// FakeDriver records every hardware write for test assertions.
type FakeDriver struct {
	// LEDWrites contains every colour written, in order.
	LEDWrites []protocol.RGB

	// RelayWrites contains every relay state written (true = muted).
	RelayWrites []bool

	// VibrationWrites contains every vibration level written.
	VibrationWrites []bool

	// Error, if set, is returned by every write (after recording it).
	Error error
}

// NewFakeDriver creates a FakeDriver for testing.
func NewFakeDriver() *FakeDriver {
	return &FakeDriver{}
}

// SetLED records the colour.
func (f *FakeDriver) SetLED(c protocol.RGB) error {
	f.LEDWrites = append(f.LEDWrites, c)
	return f.Error
}

// SetRelay records the relay state.
func (f *FakeDriver) SetRelay(muted bool) error {
	f.RelayWrites = append(f.RelayWrites, muted)
	return f.Error
}

// SetVibration records the vibration level.
func (f *FakeDriver) SetVibration(on bool) error {
	f.VibrationWrites = append(f.VibrationWrites, on)
	return f.Error
}

// Reset clears recorded writes.
func (f *FakeDriver) Reset() {
	f.LEDWrites = nil
	f.RelayWrites = nil
	f.VibrationWrites = nil
	f.Error = nil
}
