// Package status provides a thread-safe status tracker for the meshnode daemon.
// It is written by the node and button goroutines and read by HTTP handlers
// and the heartbeat.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/meshnode/internal/button"
	"github.com/sweeney/meshnode/internal/node"
)

// Config contains daemon configuration for display.
type Config struct {
	NodeID      string
	Role        string
	TickMs      int64
	SettleMs    int64
	HeartbeatMs int64
	Broker      string
	HTTPAddr    string
	LEDPort     string // empty when the LED is logged only
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Node          node.Snapshot
	Buttons       button.Counts
	Recent        []CodeRecord // oldest first
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu     sync.RWMutex
	snap   Snapshot
	recent *codeRing

	now func() time.Time
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
		recent: newCodeRing(HistoryLen),
		now:    time.Now,
	}
}

// NodeUpdated stores the node state. Called by the node after every tick.
func (t *Tracker) NodeUpdated(s node.Snapshot) {
	t.mu.Lock()
	t.snap.Node = s
	t.mu.Unlock()
}

// CodeReceived appends an inbound code to the recent history.
func (t *Tracker) CodeReceived(code byte, applied bool) {
	rec := CodeRecord{At: t.now(), Code: code, Applied: applied}
	t.mu.Lock()
	t.recent.push(rec)
	t.mu.Unlock()
}

// SetButtons sets the button edge counters.
func (t *Tracker) SetButtons(c button.Counts) {
	t.mu.Lock()
	t.snap.Buttons = c
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	s.Recent = t.recent.list()
	t.mu.RUnlock()
	s.Now = t.now()
	return s
}
