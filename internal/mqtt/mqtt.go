// Package mqtt carries mesh codes and node lifecycle events over MQTT, with
// an abstraction for testing.
package mqtt

import (
	"encoding/json"
	"fmt"
	"time"
)

// TopicCodes is the broadcast topic for mesh codes. Every node publishes and
// subscribes here; each payload is exactly one code byte.
const TopicCodes = "mesh/codes"

// SystemTopic returns the lifecycle topic for one node.
func SystemTopic(nodeID string) string {
	return "mesh/node/" + nodeID + "/system"
}

// Transport moves single-byte codes between this node and the mesh.
type Transport interface {
	// Publish sends a code to the mesh. Fails with errcode.NotAuthenticated
	// when the node cannot publish yet; callers log and move on.
	Publish(code byte) error

	// PublishSystem sends a node lifecycle event.
	PublishSystem(event SystemEvent) error

	// IsAuthenticated reports whether the node may publish.
	IsAuthenticated() bool

	// Codes delivers inbound codes.
	Codes() <-chan byte

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a node lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT", "OFFLINE"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}

// ParseCode extracts the code from an inbound payload.
func ParseCode(payload []byte) (byte, error) {
	if len(payload) != 1 {
		return 0, fmt.Errorf("code payload: want 1 byte, got %d", len(payload))
	}
	return payload[0], nil
}
