// Command meshnode runs one node of the mesh: it renders received indicator
// codes on the LED and actuators, and publishes control codes from its buttons.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/sweeney/meshnode/internal/actuator"
	"github.com/sweeney/meshnode/internal/button"
	"github.com/sweeney/meshnode/internal/gpio"
	"github.com/sweeney/meshnode/internal/led"
	"github.com/sweeney/meshnode/internal/logic"
	"github.com/sweeney/meshnode/internal/mqtt"
	"github.com/sweeney/meshnode/internal/node"
	"github.com/sweeney/meshnode/internal/protocol"
	"github.com/sweeney/meshnode/internal/status"
	"github.com/sweeney/meshnode/internal/web"
)

// bootBlink is shown once before the node starts taking codes.
const bootBlink = time.Second

// statusRefresh is how often connection and button counters reach the tracker.
const statusRefresh = time.Second

type options struct {
	role         logic.Role
	clientID     string
	broker       string
	username     string
	appKey       string
	tick         time.Duration
	settle       time.Duration
	heartbeat    time.Duration
	chip         string
	pinPhysical  int
	pinOnline    int
	pinActuator  int
	buttons      bool
	actuators    actuator.Config
	ledPort      string
	ledBaud      int
	httpAddr     string
	printButtons bool
}

func main() {
	hostname, _ := os.Hostname()

	roleName := flag.String("role", "led", "Node role: buttons-vib, led or relay")
	clientID := flag.String("id", hostname, "MQTT client id, also names the system topic")
	broker := flag.String("broker", "tcp://192.168.1.200:1883", "MQTT broker address, or \"local\" for an in-process bus")
	username := flag.String("user", "", "MQTT username")
	appKey := flag.String("app-key", os.Getenv("MESH_APP_KEY"), "Mesh application key (MQTT password)")
	tick := flag.Duration("tick", node.DefaultTickPeriod, "Tick period")
	settle := flag.Duration("settle", button.DefaultSettle, "Button settle window")
	heartbeat := flag.Duration("heartbeat", 15*time.Minute, "Heartbeat interval (0 to disable)")
	chip := flag.String("chip", gpio.DefaultChip, "GPIO chip")
	pinPhysical := flag.Int("pin-physical", gpio.DefaultPinPhysicalMute, "BCM pin number for the physical mute button")
	pinOnline := flag.Int("pin-online", gpio.DefaultPinOnlineMute, "BCM pin number for the online mute button")
	pinActuator := flag.Int("pin-actuator", gpio.DefaultPinActuator, "BCM pin number for the relay or vibration motor")
	buttons := flag.Bool("buttons", false, "Watch mute buttons (default: buttons-vib role only)")
	useVib := flag.Bool("vib", false, "Drive the vibration motor (default: from role)")
	useRelay := flag.Bool("relay", false, "Drive the relay (default: from role)")
	ledPort := flag.String("led-port", "", "Serial port of the LED controller (empty logs colours)")
	ledBaud := flag.Int("led-baud", led.DefaultBaud, "LED controller baud rate")
	httpAddr := flag.String("http", ":80", "HTTP status address (empty to disable)")
	decode := flag.String("decode", "", "Describe a code (e.g. 0x51) and exit")
	layoutName := flag.String("layout", "mesh", "Indicator layout for -decode: mesh or buzzer-relay")
	printButtons := flag.Bool("print-buttons", false, "Print button levels and exit")

	flag.Parse()

	if *decode != "" {
		layout, err := protocol.ParseLayout(*layoutName)
		if err != nil {
			log.Fatalf("fatal: %v", err)
		}
		out, err := decodeCode(*decode, layout)
		if err != nil {
			log.Fatalf("fatal: %v", err)
		}
		fmt.Println(out)
		return
	}

	role, err := logic.ParseRole(*roleName)
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}

	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	opts := options{
		role:         role,
		clientID:     *clientID,
		broker:       *broker,
		username:     *username,
		appKey:       *appKey,
		tick:         *tick,
		settle:       *settle,
		heartbeat:    *heartbeat,
		chip:         *chip,
		pinPhysical:  *pinPhysical,
		pinOnline:    *pinOnline,
		pinActuator:  *pinActuator,
		buttons:      role == logic.ButtonsVibNode,
		actuators:    resolveActuators(role, flagOverride(set, "vib", *useVib), flagOverride(set, "relay", *useRelay)),
		ledPort:      *ledPort,
		ledBaud:      *ledBaud,
		httpAddr:     *httpAddr,
		printButtons: *printButtons,
	}
	if set["buttons"] {
		opts.buttons = *buttons
	}

	if err := run(opts); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

// flagOverride returns &v when the flag was given on the command line.
func flagOverride(set map[string]bool, name string, v bool) *bool {
	if !set[name] {
		return nil
	}
	return &v
}

// resolveActuators applies command-line overrides to the role's actuators.
// Both overrides may be on; the node then refuses to actuate.
func resolveActuators(role logic.Role, vib, relay *bool) actuator.Config {
	cfg := node.DefaultActuators(role)
	if vib != nil {
		cfg.UseVibration = *vib
	}
	if relay != nil {
		cfg.UseRelay = *relay
	}
	return cfg
}

// decodeCode parses a code in any strconv base and describes it.
func decodeCode(s string, layout protocol.Layout) (string, error) {
	code, err := protocol.ParseCode(s)
	if err != nil {
		return "", err
	}
	return layout.Describe(code), nil
}

func levelString(high bool) string {
	if high {
		return "HIGH"
	}
	return "LOW"
}

func readButtons(in gpio.Input) (string, error) {
	phys, err := in.ReadLevel(logic.ButtonPhysicalMute)
	if err != nil {
		return "", fmt.Errorf("read physical mute: %w", err)
	}
	online, err := in.ReadLevel(logic.ButtonOnlineMute)
	if err != nil {
		return "", fmt.Errorf("read online mute: %w", err)
	}
	return fmt.Sprintf("physical-mute: %s, online-mute: %s", levelString(phys), levelString(online)), nil
}

// hardware is the actuator driver of a node: LED strip plus relay/vibration line.
type hardware struct {
	led.Strip
	gpio.Outputs
}

func (h hardware) Close() error {
	err := h.Strip.Close()
	if oerr := h.Outputs.Close(); err == nil {
		err = oerr
	}
	return err
}

func openHardware(opts options) (hardware, error) {
	var h hardware
	if opts.ledPort != "" {
		s, err := led.NewSerialStrip(opts.ledPort, opts.ledBaud)
		if err != nil {
			return h, fmt.Errorf("init led: %w", err)
		}
		h.Strip = s
	} else {
		h.Strip = led.LogStrip{}
	}

	if opts.actuators.UseVibration || opts.actuators.UseRelay {
		o, err := gpio.NewRealOutputs(opts.chip, opts.pinActuator)
		if err != nil {
			h.Strip.Close()
			return h, fmt.Errorf("init actuator: %w", err)
		}
		h.Outputs = o
	} else {
		h.Outputs = gpio.NopOutputs{}
	}
	return h, nil
}

func run(opts options) error {
	if opts.tick <= 0 {
		return fmt.Errorf("tick must be positive, got %v", opts.tick)
	}

	var input gpio.Input
	if opts.buttons || opts.printButtons {
		in, err := gpio.NewRealInput(opts.chip, map[int]int{
			logic.ButtonPhysicalMute: opts.pinPhysical,
			logic.ButtonOnlineMute:   opts.pinOnline,
		})
		if err != nil {
			return fmt.Errorf("init gpio: %w", err)
		}
		defer in.Close()
		input = in
	}

	// Print buttons mode
	if opts.printButtons {
		out, err := readButtons(input)
		if err != nil {
			return err
		}
		fmt.Println(out)
		return nil
	}

	hw, err := openHardware(opts)
	if err != nil {
		return err
	}
	defer hw.Close()

	nd, err := node.New(node.Config{Role: opts.role, Actuator: opts.actuators}, hw)
	if err != nil {
		return fmt.Errorf("init node: %w", err)
	}
	if err := opts.actuators.Validate(); err != nil {
		log.Printf("node: %v, nothing will be actuated", err)
	}

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), status.Config{
		NodeID:      opts.clientID,
		Role:        opts.role.String(),
		TickMs:      opts.tick.Milliseconds(),
		SettleMs:    opts.settle.Milliseconds(),
		HeartbeatMs: opts.heartbeat.Milliseconds(),
		Broker:      opts.broker,
		HTTPAddr:    opts.httpAddr,
		LEDPort:     opts.ledPort,
	})
	nd.SetObserver(tracker)

	if err := nd.ShowEffect(protocol.Blinking, protocol.White, int(bootBlink/opts.tick), opts.tick); err != nil {
		log.Printf("boot blink: %v", err)
	}

	// Initialize MQTT
	transport, closeTransport, err := connect(opts)
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}
	defer closeTransport()

	var consumer *button.Consumer
	if input != nil {
		consumer = button.NewConsumer(transport, input, opts.settle)
		if err := input.Watch(func(e logic.Edge) {
			if !consumer.Offer(e) {
				log.Printf("button: queue full, dropping edge on pin %d", e.Pin)
			}
		}); err != nil {
			return fmt.Errorf("watch buttons: %w", err)
		}
	}

	publishStartup(transport, tracker)

	// Start HTTP status server
	if opts.httpAddr != "" {
		srv := web.New(opts.httpAddr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", opts.httpAddr)
	}

	log.Printf("started: role=%s id=%s tick=%v broker=%s buttons=%t vib=%t relay=%t",
		opts.role, opts.clientID, opts.tick, opts.broker, consumer != nil, opts.actuators.UseVibration, opts.actuators.UseRelay)

	ticker := time.NewTicker(opts.tick)
	defer ticker.Stop()

	refresh := time.NewTicker(statusRefresh)
	defer refresh.Stop()

	var heartbeat <-chan time.Time
	if opts.heartbeat > 0 {
		hb := time.NewTicker(opts.heartbeat)
		defer hb.Stop()
		heartbeat = hb.C
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(loop{
		node:      nd,
		buttons:   consumer,
		transport: transport,
		tracker:   tracker,
		now:       time.Now,
	}, ticker.C, heartbeat, refresh.C, sigCh)
}

// connect opens the mesh transport. "-broker local" runs the node on an
// in-process bus, which echoes the node's own codes back to it.
func connect(opts options) (mqtt.Transport, func(), error) {
	if opts.broker == mqtt.BrokerLocal {
		bus := mqtt.NewBus()
		events := bus.SubscribeSystem(opts.clientID)
		go func() {
			for msg := range events {
				if ev, ok := msg.(mqtt.SystemEvent); ok {
					log.Printf("mqtt: local system event %s", ev.Event)
				}
			}
		}()
		t := bus.Join(opts.clientID)
		return t, func() {
			t.Close()
			bus.Close()
		}, nil
	}

	t, err := mqtt.NewRealTransport(mqtt.Config{
		Broker:   opts.broker,
		ClientID: opts.clientID,
		Username: opts.username,
		Password: opts.appKey,
	})
	if err != nil {
		return nil, nil, err
	}
	return t, func() { t.Close() }, nil
}

func publishStartup(transport mqtt.Transport, tracker *status.Tracker) {
	tracker.SetMQTTConnected(transport.IsAuthenticated())
	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := transport.PublishSystem(startupEvent); err != nil {
		log.Printf("failed to publish startup event: %v", err)
	} else {
		log.Printf("published startup event")
	}
}

// loop holds what runLoop drives.
type loop struct {
	node      *node.Node
	buttons   *button.Consumer // nil when the node has no buttons
	transport mqtt.Transport
	tracker   *status.Tracker
	now       func() time.Time
}

func (l loop) refresh() {
	l.tracker.SetMQTTConnected(l.transport.IsAuthenticated())
	if l.buttons != nil {
		l.tracker.SetButtons(l.buttons.Counts())
	}
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}

// runLoop runs the node and button consumer until a signal arrives, then
// stops both and publishes SHUTDOWN. The node goroutine is the only one that
// touches the phase and actuators.
func runLoop(l loop, tick, heartbeat, refresh <-chan time.Time, sig <-chan os.Signal) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		l.node.Run(ctx, tick, l.transport.Codes())
	}()
	if l.buttons != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.buttons.Run(ctx)
		}()
	}

	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			cancel()
			wg.Wait()

			name := signalName(s)
			l.refresh()
			snap := l.tracker.Snapshot()
			event := mqtt.SystemEvent{
				Timestamp:  l.now(),
				Event:      "SHUTDOWN",
				Reason:     name,
				Retained:   true,
				RawPayload: status.FormatStatusEvent(snap, "SHUTDOWN", name),
			}
			if err := l.transport.PublishSystem(event); err != nil {
				log.Printf("failed to publish shutdown event: %v", err)
			} else {
				log.Printf("published shutdown event")
			}
			return nil

		case <-heartbeat:
			l.refresh()
			snap := l.tracker.Snapshot()
			log.Printf("heartbeat: uptime=%v received=%d accepted=%d buttons=%d",
				snap.Uptime().Truncate(time.Second), snap.Node.Counts.Received, snap.Node.Counts.Accepted, snap.Buttons.Published)
			event := mqtt.SystemEvent{
				Timestamp:  l.now(),
				Event:      "HEARTBEAT",
				RawPayload: status.FormatStatusEvent(snap, "HEARTBEAT", ""),
			}
			if err := l.transport.PublishSystem(event); err != nil {
				log.Printf("heartbeat publish error: %v", err)
			}

		case <-refresh:
			l.refresh()
		}
	}
}
