package status

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/sweeney/meshnode/internal/protocol"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	NodeID        string       `json:"node_id"`
	Role          string       `json:"role"`
	Code          *CodeJSON    `json:"code,omitempty"`
	Effect        string       `json:"effect"`
	Colour        string       `json:"colour"`
	LED           LEDJSON      `json:"led"`
	Relay         string       `json:"relay"`
	Vibration     VibJSON      `json:"vibration"`
	Phase         int          `json:"phase"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Counts        CountsJSON   `json:"code_counts"`
	Buttons       ButtonsJSON  `json:"button_counts"`
	Recent        []RecentJSON `json:"recent,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// CodeJSON describes one mesh code.
type CodeJSON struct {
	Hex         string `json:"hex"`
	Description string `json:"description"`
}

// LEDJSON is the last colour written to the LED.
type LEDJSON struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// VibJSON reports the vibration output.
type VibJSON struct {
	On        bool `json:"on"`
	Remaining int  `json:"remaining_pulses"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of inbound code counts.
type CountsJSON struct {
	Received    int `json:"received"`
	Accepted    int `json:"accepted"`
	Ignored     int `json:"ignored"`
	FailedTicks int `json:"failed_ticks"`
}

// ButtonsJSON is the JSON representation of button edge counts.
type ButtonsJSON struct {
	Published int `json:"published"`
	Failed    int `json:"failed"`
	Bounced   int `json:"bounced"`
	Settled   int `json:"settled"`
	Unknown   int `json:"unknown"`
	Dropped   int `json:"dropped"`
}

// RecentJSON is one entry of the inbound code history.
type RecentJSON struct {
	Timestamp string `json:"timestamp"`
	CodeJSON
	Applied bool `json:"applied"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	TickMs      int64  `json:"tick_ms"`
	SettleMs    int64  `json:"settle_ms"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	Broker      string `json:"broker"`
	HTTPAddr    string `json:"http_addr"`
	LEDPort     string `json:"led_port,omitempty"`
}

func describe(code byte) CodeJSON {
	return CodeJSON{Hex: fmt.Sprintf("0x%02x", code), Description: protocol.Describe(code)}
}

// RelayState renders the relay output as MUTED, UNMUTED or UNKNOWN.
func RelayState(snap Snapshot) string {
	a := snap.Node.Actuator
	switch {
	case !a.RelayKnown:
		return "UNKNOWN"
	case a.RelayMuted:
		return "MUTED"
	}
	return "UNMUTED"
}

func buildInner(snap Snapshot) StatusInner {
	n := snap.Node
	role := snap.Config.Role
	if role == "" {
		role = n.Role.String()
	}

	inner := StatusInner{
		NodeID:        snap.Config.NodeID,
		Role:          role,
		Effect:        n.Effect.String(),
		Colour:        n.Colour.String(),
		LED:           LEDJSON{R: n.Actuator.LED.R, G: n.Actuator.LED.G, B: n.Actuator.LED.B},
		Relay:         RelayState(snap),
		Vibration:     VibJSON{On: n.Actuator.VibOn, Remaining: n.Actuator.VibRemaining},
		Phase:         int(n.Phase),
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Received:    n.Counts.Received,
			Accepted:    n.Counts.Accepted,
			Ignored:     n.Counts.Ignored,
			FailedTicks: n.Counts.Failed,
		},
		Buttons: ButtonsJSON{
			Published: snap.Buttons.Published,
			Failed:    snap.Buttons.Failed,
			Bounced:   snap.Buttons.Bounced,
			Settled:   snap.Buttons.Settled,
			Unknown:   snap.Buttons.Unknown,
			Dropped:   snap.Buttons.Dropped,
		},
		Config: ConfigJSON{
			TickMs:      snap.Config.TickMs,
			SettleMs:    snap.Config.SettleMs,
			HeartbeatMs: snap.Config.HeartbeatMs,
			Broker:      snap.Config.Broker,
			HTTPAddr:    snap.Config.HTTPAddr,
			LEDPort:     snap.Config.LEDPort,
		},
	}
	if n.HasCode {
		c := describe(n.Code)
		inner.Code = &c
	}
	if len(snap.Recent) > 0 {
		inner.Recent = RecentJSONOf(snap.Recent)
	}
	return inner
}

// RecentJSONOf converts code history for JSON. The result is never nil.
func RecentJSONOf(recs []CodeRecord) []RecentJSON {
	out := make([]RecentJSON, 0, len(recs))
	for _, r := range recs {
		out = append(out, RecentJSON{
			Timestamp: r.At.UTC().Format(time.RFC3339),
			CodeJSON:  describe(r.Code),
			Applied:   r.Applied,
		})
	}
	return out
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event. The
// code history stays on the web page.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	inner.Recent = nil

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
