package mqtt

import (
	"fmt"
	"sync"

	"github.com/sweeney/meshnode/internal/errcode"
)

// FakeTransport records published codes and system events for test
// assertions. Inbound codes are injected with Inject. Safe for concurrent
// use since button and tick goroutines share it.
type FakeTransport struct {
	mu sync.Mutex

	published    []byte
	systemEvents []SystemEvent

	// PublishError, if set, will be returned by Publish.
	PublishError error

	// PublishSystemError, if set, will be returned by PublishSystem.
	PublishSystemError error

	authenticated bool
	closed        bool
	codes         chan byte
}

// NewFakeTransport creates an authenticated FakeTransport.
func NewFakeTransport() *FakeTransport {
	return &FakeTransport{
		authenticated: true,
		codes:         make(chan byte, codeQueueLen),
	}
}

// Publish records the code.
func (f *FakeTransport) Publish(code byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.authenticated {
		return &errcode.E{C: errcode.NotAuthenticated, Op: "publish", Msg: fmt.Sprintf("code 0x%02x", code)}
	}
	if f.PublishError != nil {
		return f.PublishError
	}
	f.published = append(f.published, code)
	return nil
}

// PublishSystem records the system event.
func (f *FakeTransport) PublishSystem(event SystemEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishSystemError != nil {
		return f.PublishSystemError
	}
	f.systemEvents = append(f.systemEvents, event)
	return nil
}

// Inject queues an inbound code as if it arrived from the mesh.
func (f *FakeTransport) Inject(code byte) {
	f.codes <- code
}

// Loopback forwards every published code back into Codes, like a broker
// echoing the node's own subscription.
func (f *FakeTransport) Loopback() {
	for _, c := range f.Published() {
		f.Inject(c)
	}
}

// Codes delivers injected codes.
func (f *FakeTransport) Codes() <-chan byte {
	return f.codes
}

// SetAuthenticated controls IsAuthenticated and whether Publish succeeds.
func (f *FakeTransport) SetAuthenticated(ok bool) {
	f.mu.Lock()
	f.authenticated = ok
	f.mu.Unlock()
}

func (f *FakeTransport) IsAuthenticated() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.authenticated
}

// IsConnected mirrors IsAuthenticated.
func (f *FakeTransport) IsConnected() bool {
	return f.IsAuthenticated()
}

// Published returns a copy of the codes published so far.
func (f *FakeTransport) Published() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]byte(nil), f.published...)
}

// SystemEvents returns a copy of the system events published so far.
func (f *FakeTransport) SystemEvents() []SystemEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]SystemEvent(nil), f.systemEvents...)
}

// Close marks the transport as closed.
func (f *FakeTransport) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

// Closed reports whether Close was called.
func (f *FakeTransport) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// Reset clears recorded codes and events.
func (f *FakeTransport) Reset() {
	f.mu.Lock()
	f.published = nil
	f.systemEvents = nil
	f.PublishError = nil
	f.PublishSystemError = nil
	f.closed = false
	f.mu.Unlock()
}
