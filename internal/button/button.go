// Package button turns asynchronous button edges into published Control codes.
//
// Edges arrive from the GPIO event goroutine through Offer into a bounded
// queue. A single consumer (Run) debounces them and is the only writer of
// button state.
package button

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/sweeney/meshnode/internal/errcode"
	"github.com/sweeney/meshnode/internal/logic"
	"github.com/sweeney/meshnode/internal/protocol"
)

const (
	// QueueSize bounds edges waiting for the consumer.
	QueueSize = 10

	// DefaultSettle is how long a genuine edge is left to settle before
	// queued edges for the same pin are discarded.
	DefaultSettle = 20 * time.Millisecond
)

// Publisher is the part of the mesh transport the consumer needs.
type Publisher interface {
	Publish(code byte) error
	IsAuthenticated() bool
}

// LevelReader reads the current level of a button.
type LevelReader interface {
	ReadLevel(pin int) (bool, error)
}

// Counts tracks what happened to offered edges.
type Counts struct {
	Published int // control codes handed to the transport
	Failed    int // publish refused or failed, not retried
	Bounced   int // level matched the confirmed level
	Settled   int // discarded during a settle window
	Unknown   int // edge on a pin that is not a button
	Dropped   int // queue full at Offer
}

// Consumer debounces button edges and publishes Control codes.
type Consumer struct {
	queue   chan logic.Edge
	pub     Publisher
	levels  LevelReader
	deb     *logic.Debouncer
	settle  time.Duration
	pending []logic.Edge

	// after is swapped in tests to control the settle window.
	after func(time.Duration) <-chan time.Time

	mu     sync.Mutex
	counts Counts
}

// NewConsumer creates a consumer publishing through pub. When levels is
// non-nil the button is re-read at processing time, so the code reflects the
// level after any bounce rather than the level carried by the edge.
func NewConsumer(pub Publisher, levels LevelReader, settle time.Duration) *Consumer {
	if settle <= 0 {
		settle = DefaultSettle
	}
	return &Consumer{
		queue:  make(chan logic.Edge, QueueSize),
		pub:    pub,
		levels: levels,
		deb:    logic.NewDebouncer(),
		settle: settle,
		after:  time.After,
	}
}

// Offer queues an edge without blocking. It reports false when the queue is
// full and the edge was dropped.
func (c *Consumer) Offer(e logic.Edge) bool {
	select {
	case c.queue <- e:
		return true
	default:
		c.count(func(n *Counts) { n.Dropped++ })
		return false
	}
}

// Counts returns a copy of the edge counters.
func (c *Consumer) Counts() Counts {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts
}

func (c *Consumer) count(f func(*Counts)) {
	c.mu.Lock()
	f(&c.counts)
	c.mu.Unlock()
}

// Run consumes edges until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		e, ok := c.next(ctx)
		if !ok {
			return ctx.Err()
		}
		c.handle(ctx, e)
	}
}

func (c *Consumer) next(ctx context.Context) (logic.Edge, bool) {
	if len(c.pending) > 0 {
		e := c.pending[0]
		c.pending = c.pending[1:]
		return e, true
	}
	select {
	case <-ctx.Done():
		return logic.Edge{}, false
	case e := <-c.queue:
		return e, true
	}
}

func (c *Consumer) handle(ctx context.Context, e logic.Edge) {
	e = c.confirmLevel(e)

	ctrl, genuine, err := c.deb.Observe(e)
	if err != nil {
		if errors.Is(err, errcode.UnknownButtonPin) {
			c.count(func(n *Counts) { n.Unknown++ })
		}
		log.Printf("button: skipping edge: %v", err)
		return
	}
	if !genuine {
		c.count(func(n *Counts) { n.Bounced++ })
		return
	}

	code := protocol.EncodeControl(ctrl)
	log.Printf("button: pin %d level %t, publishing %s", e.Pin, e.Level, protocol.Describe(code))
	c.publish(code)

	select {
	case <-ctx.Done():
	case <-c.after(c.settle):
	}
	c.drain(e.Pin)
	c.deb.Confirm(e.Pin, e.Level)
}

func (c *Consumer) confirmLevel(e logic.Edge) logic.Edge {
	if c.levels == nil {
		return e
	}
	level, err := c.levels.ReadLevel(e.Pin)
	if err != nil {
		// Unknown pins fail here too; the debouncer reports them.
		return e
	}
	e.Level = level
	return e
}

func (c *Consumer) publish(code byte) {
	if !c.pub.IsAuthenticated() {
		c.count(func(n *Counts) { n.Failed++ })
		log.Printf("button: not authenticated, code 0x%02x not sent", code)
		return
	}
	if err := c.pub.Publish(code); err != nil {
		c.count(func(n *Counts) { n.Failed++ })
		log.Printf("button: publish 0x%02x: %v", code, err)
		return
	}
	c.count(func(n *Counts) { n.Published++ })
}

// drain discards queued edges for pin. Edges for other pins keep their order.
func (c *Consumer) drain(pin int) {
	kept := c.pending[:0]
	settled := 0
	for _, e := range c.pending {
		if e.Pin == pin {
			settled++
			continue
		}
		kept = append(kept, e)
	}
	c.pending = kept

	for {
		select {
		case e := <-c.queue:
			if e.Pin == pin {
				settled++
				continue
			}
			c.pending = append(c.pending, e)
		default:
			if settled > 0 {
				c.count(func(n *Counts) { n.Settled += settled })
			}
			return
		}
	}
}

// State returns the debounce state of pin. Only safe to call when Run is not
// running.
func (c *Consumer) State(pin int) (logic.ButtonState, bool) {
	return c.deb.State(pin)
}
