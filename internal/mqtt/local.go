package mqtt

import (
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"github.com/btittelbach/pubsub"
)

// BrokerLocal selects an in-process bus instead of an MQTT broker.
const BrokerLocal = "local"

// Bus is an in-process mesh. Every transport joined to it hears every code
// published on it, its own included, the way the broker echoes a node's own
// subscription.
type Bus struct {
	ps   *pubsub.PubSub
	seen atomic.Uint64
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{ps: pubsub.New(codeQueueLen)}
}

// Close stops the bus. Joined transports stop receiving.
func (b *Bus) Close() {
	b.ps.Shutdown()
}

// Join attaches a transport for nodeID.
func (b *Bus) Join(nodeID string) *LocalTransport {
	control := fmt.Sprintf("local/%d", b.seen.Add(1))
	t := &LocalTransport{
		bus:     b,
		system:  SystemTopic(nodeID),
		control: control,
		sub:     b.ps.Sub(TopicCodes, control),
		codes:   make(chan byte, codeQueueLen),
		stopped: make(chan struct{}),
	}
	go t.forward()
	return t
}

// SubscribeSystem returns a channel of SystemEvents published by nodeID.
func (b *Bus) SubscribeSystem(nodeID string) chan interface{} {
	return b.ps.Sub(SystemTopic(nodeID))
}

// leave tells forward that nothing more will arrive for TopicCodes.
type leave struct{}

// LocalTransport is a Transport on a Bus.
type LocalTransport struct {
	bus     *Bus
	system  string
	control string // private topic, carries leave
	sub     chan interface{}
	codes   chan byte
	stopped chan struct{}
	once    sync.Once
}

// forward reads sub until leave arrives or the bus shuts down. The bus blocks
// on a full subscriber, so sub is never left unread while subscribed.
func (t *LocalTransport) forward() {
	defer close(t.stopped)
	for msg := range t.sub {
		switch m := msg.(type) {
		case leave:
			return
		case byte:
			select {
			case t.codes <- m:
			default:
				log.Printf("mqtt: code queue full, dropping 0x%02x", m)
			}
		default:
			log.Printf("mqtt: local bus: dropping %T", msg)
		}
	}
}

// Publish broadcasts code to every transport on the bus.
func (t *LocalTransport) Publish(code byte) error {
	t.bus.ps.Pub(code, TopicCodes)
	return nil
}

// PublishSystem broadcasts event on the node's system topic.
func (t *LocalTransport) PublishSystem(event SystemEvent) error {
	t.bus.ps.Pub(event, t.system)
	return nil
}

// IsAuthenticated is always true; the bus needs no key.
func (t *LocalTransport) IsAuthenticated() bool { return true }

// IsConnected mirrors IsAuthenticated.
func (t *LocalTransport) IsConnected() bool { return true }

// Codes delivers codes from the bus.
func (t *LocalTransport) Codes() <-chan byte { return t.codes }

// Close leaves the bus. Transports must be closed before their Bus.
//
// The bus handles commands in order, so once leave comes through on the
// private topic no code for this transport is still queued behind it.
func (t *LocalTransport) Close() error {
	t.once.Do(func() {
		t.bus.ps.Unsub(t.sub, TopicCodes)
		t.bus.ps.Pub(leave{}, t.control)
		<-t.stopped
		t.bus.ps.Unsub(t.sub, t.control)
	})
	return nil
}
