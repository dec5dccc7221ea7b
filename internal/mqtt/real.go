package mqtt

import (
	"fmt"
	"log"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/sweeney/meshnode/internal/errcode"
)

const (
	qosNoConfirmation  byte = 0
	qosReqConfirmation byte = 1
)

// codeQueueLen bounds inbound codes waiting for the tick loop.
const codeQueueLen = 16

// Config holds broker connection settings.
type Config struct {
	Broker   string
	ClientID string
	Username string
	Password string // mesh application key
}

// RealTransport talks to an actual MQTT broker.
type RealTransport struct {
	client paho.Client
	system string
	codes  chan byte
}

// NewRealTransport connects to the broker and subscribes to TopicCodes. The
// subscription is renewed on every reconnect. An OFFLINE last-will is
// registered on the node's system topic.
func NewRealTransport(cfg Config) (*RealTransport, error) {
	t := &RealTransport{
		system: SystemTopic(cfg.ClientID),
		codes:  make(chan byte, codeQueueLen),
	}

	will, err := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: "OFFLINE", Reason: "connection lost"})
	if err != nil {
		return nil, fmt.Errorf("format will: %w", err)
	}

	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetUsername(cfg.Username).
		SetPassword(cfg.Password).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetKeepAlive(30 * time.Second).
		SetBinaryWill(t.system, will, qosReqConfirmation, true).
		SetOnConnectHandler(t.onConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Printf("mqtt: connection lost: %v", err)
		})

	t.client = paho.NewClient(opts)
	token := t.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return t, nil
}

func (t *RealTransport) onConnect(c paho.Client) {
	log.Printf("mqtt: connected, subscribing %s", TopicCodes)
	token := c.Subscribe(TopicCodes, qosNoConfirmation, func(_ paho.Client, msg paho.Message) {
		t.deliver(msg.Payload())
	})
	if !token.WaitTimeout(5 * time.Second) {
		log.Printf("mqtt: subscribe %s: timeout", TopicCodes)
		return
	}
	if err := token.Error(); err != nil {
		log.Printf("mqtt: subscribe %s: %v", TopicCodes, err)
	}
}

// deliver runs on paho's callback goroutine and must not block it.
func (t *RealTransport) deliver(payload []byte) {
	code, err := ParseCode(payload)
	if err != nil {
		log.Printf("mqtt: dropping message: %v", err)
		return
	}
	select {
	case t.codes <- code:
	default:
		log.Printf("mqtt: code queue full, dropping 0x%02x", code)
	}
}

// Codes delivers inbound codes in arrival order.
func (t *RealTransport) Codes() <-chan byte {
	return t.codes
}

// IsAuthenticated reports whether the broker session is open.
func (t *RealTransport) IsAuthenticated() bool {
	return t.client.IsConnectionOpen()
}

// IsConnected reports whether the broker session is open.
func (t *RealTransport) IsConnected() bool {
	return t.client.IsConnectionOpen()
}

// Publish sends one code to the mesh. Publishing is fire-and-forget: nothing
// is queued for later when the session is down.
func (t *RealTransport) Publish(code byte) error {
	if !t.IsAuthenticated() {
		return &errcode.E{C: errcode.NotAuthenticated, Op: "publish", Msg: fmt.Sprintf("code 0x%02x", code)}
	}

	// QoS 0 (at-most-once), not retained
	token := t.client.Publish(TopicCodes, qosNoConfirmation, false, []byte{code})
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// PublishSystem sends a lifecycle event to the node's system topic.
func (t *RealTransport) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}

	// QoS 1 (at-least-once) - lifecycle events should arrive
	token := t.client.Publish(t.system, qosReqConfirmation, event.Retained, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish system timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish system: %w", err)
	}
	return nil
}

// Close disconnects from the broker.
func (t *RealTransport) Close() error {
	t.client.Disconnect(1000) // 1 second timeout
	return nil
}
