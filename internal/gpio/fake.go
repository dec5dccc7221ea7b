package gpio

import (
	"errors"
	"sync"

	"github.com/sweeney/meshnode/internal/logic"
)

// FakeInput is a test double that delivers scripted button edges.
type FakeInput struct {
	mu sync.Mutex

	// Levels holds the current level of each button.
	Levels map[int]bool

	// ReadError, if set, will be returned by ReadLevel.
	ReadError error

	// Closed tracks if Close was called
	Closed bool

	fn func(logic.Edge)
}

// NewFakeInput creates a FakeInput with both buttons low.
func NewFakeInput() *FakeInput {
	return &FakeInput{Levels: map[int]bool{
		logic.ButtonPhysicalMute: false,
		logic.ButtonOnlineMute:   false,
	}}
}

// Watch records the edge callback.
func (f *FakeInput) Watch(fn func(logic.Edge)) error {
	f.mu.Lock()
	f.fn = fn
	f.mu.Unlock()
	return nil
}

// Emit sets the button level and delivers the edge to the watcher, as the
// driver's event goroutine would. It reports whether a watcher was set.
func (f *FakeInput) Emit(e logic.Edge) bool {
	f.mu.Lock()
	f.Levels[e.Pin] = e.Level
	fn := f.fn
	f.mu.Unlock()
	if fn == nil {
		return false
	}
	fn(e)
	return true
}

// ReadLevel returns the scripted level of a button.
func (f *FakeInput) ReadLevel(pin int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ReadError != nil {
		return false, f.ReadError
	}
	v, ok := f.Levels[pin]
	if !ok {
		return false, errors.New("no such button")
	}
	return v, nil
}

// Close marks the input as closed.
func (f *FakeInput) Close() error {
	f.mu.Lock()
	f.Closed = true
	f.mu.Unlock()
	return nil
}

// FakeOutputs records relay and vibration writes.
type FakeOutputs struct {
	Relay     []bool
	Vibration []bool
	Closed    bool
}

func (f *FakeOutputs) SetRelay(muted bool) error {
	f.Relay = append(f.Relay, muted)
	return nil
}

func (f *FakeOutputs) SetVibration(on bool) error {
	f.Vibration = append(f.Vibration, on)
	return nil
}

func (f *FakeOutputs) Close() error {
	f.Closed = true
	return nil
}
