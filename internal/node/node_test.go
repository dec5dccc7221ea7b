package node

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/sweeney/meshnode/internal/actuator"
	"github.com/sweeney/meshnode/internal/errcode"
	"github.com/sweeney/meshnode/internal/logic"
	"github.com/sweeney/meshnode/internal/protocol"
)

var (
	red    = protocol.RGB{R: 255}
	orange = protocol.RGB{R: 255, G: 85}
	green  = protocol.RGB{G: 255}
	white  = protocol.RGB{R: 255, G: 255, B: 255}
	black  = protocol.RGB{}
)

func newTestNode(t *testing.T, role logic.Role) (*Node, *actuator.FakeDriver) {
	t.Helper()
	drv := actuator.NewFakeDriver()
	n, err := New(Config{Role: role, Actuator: DefaultActuators(role)}, drv)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	n.sleep = func(time.Duration) {}
	return n, drv
}

func indicator(c protocol.Colour, e protocol.Effect, vib bool) byte {
	return protocol.EncodeIndicator(protocol.Indicator{Colour: c, Effect: e, Vibrate: vib})
}

func physical(muted bool) byte {
	return protocol.EncodeControl(protocol.Control{UsePhysicalMute: true, PhysicalMuted: muted})
}

// recorder is an Observer that keeps everything it is told.
type recorder struct {
	codes   []byte
	applied []bool
	snaps   []Snapshot
}

func (r *recorder) CodeReceived(code byte, applied bool) {
	r.codes = append(r.codes, code)
	r.applied = append(r.applied, applied)
}

func (r *recorder) NodeUpdated(s Snapshot) { r.snaps = append(r.snaps, s) }

func TestNewUnsupportedRole(t *testing.T) {
	_, err := New(Config{Role: logic.Role(9)}, actuator.NewFakeDriver())
	if !errors.Is(err, errcode.UnsupportedNodeRole) {
		t.Errorf("expected UnsupportedNodeRole, got %v", err)
	}
}

func TestDefaultActuators(t *testing.T) {
	tests := []struct {
		role logic.Role
		want actuator.Config
	}{
		{logic.ButtonsVibNode, actuator.Config{UseVibration: true}},
		{logic.LedNode, actuator.Config{}},
		{logic.RelayNode, actuator.Config{UseRelay: true}},
	}
	for _, tt := range tests {
		t.Run(tt.role.String(), func(t *testing.T) {
			if got := DefaultActuators(tt.role); got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestControlCodeDiscardedOnLedNode(t *testing.T) {
	n, _ := newTestNode(t, logic.LedNode)
	prev := indicator(protocol.Blue, protocol.Static, false)

	if ok, err := n.HandleCode(prev); err != nil || !ok {
		t.Fatalf("indicator not accepted: ok=%v err=%v", ok, err)
	}
	ok, err := n.HandleCode(physical(true))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("control code must not be applied on an LED node")
	}

	snap := n.Snapshot()
	if snap.Code != prev {
		t.Errorf("code changed to 0x%02x, want 0x%02x", snap.Code, prev)
	}
	if snap.Counts.Ignored != 1 || snap.Counts.Accepted != 1 || snap.Counts.Received != 2 {
		t.Errorf("unexpected counts %+v", snap.Counts)
	}
}

func TestIndicatorDiscardedOnRelayNode(t *testing.T) {
	n, drv := newTestNode(t, logic.RelayNode)

	if ok, _ := n.HandleCode(indicator(protocol.Red, protocol.Static, true)); ok {
		t.Fatal("indicator must not be applied on a relay node")
	}
	n.RunFor(5, DefaultTickPeriod)

	if len(drv.RelayWrites) != 0 || len(drv.VibrationWrites) != 0 {
		t.Errorf("unexpected actuation relay=%v vib=%v", drv.RelayWrites, drv.VibrationWrites)
	}
	if !reflect.DeepEqual(drv.LEDWrites, []protocol.RGB{black}) {
		t.Errorf("expected LED off before any code, got %v", drv.LEDWrites)
	}
}

func TestVibrationFromCode(t *testing.T) {
	n, drv := newTestNode(t, logic.ButtonsVibNode)
	n.RunFor(37, DefaultTickPeriod) // leave the phase mid-cycle

	if _, err := n.HandleCode(indicator(protocol.Green, protocol.Static, true)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n.Phase() != 0 {
		t.Errorf("phase not reset, got %d", n.Phase())
	}
	if protocol.DecodeIndicator(n.Snapshot().Code).Vibrate {
		t.Error("stored code should have the vibration request consumed")
	}

	n.RunFor(3*logic.CountMax, DefaultTickPeriod)
	want := []bool{true, false, true, false, true, false}
	if !reflect.DeepEqual(drv.VibrationWrites, want) {
		t.Fatalf("vibration writes %v, want %v", drv.VibrationWrites, want)
	}

	n.RunFor(2*logic.CountMax, DefaultTickPeriod)
	if len(drv.VibrationWrites) != len(want) {
		t.Errorf("vibration continued after three pulses: %v", drv.VibrationWrites)
	}
	if n.Snapshot().Actuator.VibRemaining != 0 {
		t.Errorf("expected no pulses left, got %d", n.Snapshot().Actuator.VibRemaining)
	}
}

func TestRepeatedVibrationCodeRestarts(t *testing.T) {
	n, drv := newTestNode(t, logic.ButtonsVibNode)
	code := indicator(protocol.Green, protocol.Static, true)

	n.HandleCode(code)
	n.RunFor(logic.CountMax+10, DefaultTickPeriod)
	n.HandleCode(code)

	if got := n.Snapshot().Actuator.VibRemaining; got != actuator.TimesVib {
		t.Errorf("expected a fresh run of %d pulses, got %d", actuator.TimesVib, got)
	}
	drv.Reset()
	n.RunFor(3*logic.CountMax, DefaultTickPeriod)
	if n.Snapshot().Actuator.VibRemaining != 0 {
		t.Error("expected the restarted run to finish")
	}
}

func TestLedNodeBlinking(t *testing.T) {
	n, drv := newTestNode(t, logic.LedNode)
	n.HandleCode(indicator(protocol.Red, protocol.Blinking, false))

	n.RunFor(2*logic.CountMax, DefaultTickPeriod)

	want := []protocol.RGB{red, black, red, black}
	if !reflect.DeepEqual(drv.LEDWrites, want) {
		t.Errorf("LED writes %v, want %v", drv.LEDWrites, want)
	}
	if len(drv.VibrationWrites) != 0 {
		t.Error("LED node must not vibrate")
	}
}

func TestLedNodeIgnoresVibrationHardware(t *testing.T) {
	n, drv := newTestNode(t, logic.LedNode)
	n.HandleCode(indicator(protocol.Red, protocol.Static, true))
	n.RunFor(logic.CountMax, DefaultTickPeriod)

	if len(drv.VibrationWrites) != 0 {
		t.Errorf("unexpected vibration writes %v", drv.VibrationWrites)
	}
}

func TestLedNodeVibrationBitKeepsPhase(t *testing.T) {
	n, drv := newTestNode(t, logic.LedNode)
	n.HandleCode(indicator(protocol.Red, protocol.Blinking, false))
	n.RunFor(30, DefaultTickPeriod)

	if _, err := n.HandleCode(indicator(protocol.Red, protocol.Blinking, true)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n.Phase() != 30 {
		t.Errorf("phase %d after vib code, want 30", n.Phase())
	}

	n.RunFor(10*logic.CountMax, DefaultTickPeriod)
	if got := n.Snapshot().Actuator.VibRemaining; got != 0 {
		t.Errorf("LED node should hold no vibration pulses, got %d", got)
	}
	if len(drv.VibrationWrites) != 0 {
		t.Errorf("unexpected vibration writes %v", drv.VibrationWrites)
	}
}

func TestRelayNode(t *testing.T) {
	n, drv := newTestNode(t, logic.RelayNode)

	n.HandleCode(physical(true))
	n.RunFor(10, DefaultTickPeriod)
	if !reflect.DeepEqual(drv.RelayWrites, []bool{true}) {
		t.Fatalf("relay writes %v, want [true]", drv.RelayWrites)
	}
	if drv.LEDWrites[len(drv.LEDWrites)-1] != orange {
		t.Errorf("expected orange while muted, got %v", drv.LEDWrites)
	}

	n.HandleCode(physical(true))
	n.RunFor(10, DefaultTickPeriod)
	if len(drv.RelayWrites) != 1 {
		t.Errorf("repeated mute must not rewrite relay: %v", drv.RelayWrites)
	}

	n.HandleCode(physical(false))
	n.RunFor(1, DefaultTickPeriod)
	if !reflect.DeepEqual(drv.RelayWrites, []bool{true, false}) {
		t.Errorf("relay writes %v, want [true false]", drv.RelayWrites)
	}
	if drv.LEDWrites[len(drv.LEDWrites)-1] != green {
		t.Errorf("expected green while unmuted, got %v", drv.LEDWrites)
	}

	online := protocol.EncodeControl(protocol.Control{UseOnlineMute: true, OnlineMuted: true})
	n.HandleCode(online)
	n.RunFor(1, DefaultTickPeriod)
	if len(drv.RelayWrites) != 2 {
		t.Errorf("online-only code must not touch relay: %v", drv.RelayWrites)
	}
	if drv.LEDWrites[len(drv.LEDWrites)-1] != red {
		t.Errorf("expected red for a code without physical mute, got %v", drv.LEDWrites)
	}
}

func TestConflictingActuators(t *testing.T) {
	drv := actuator.NewFakeDriver()
	n, err := New(Config{Role: logic.ButtonsVibNode, Actuator: actuator.Config{UseVibration: true, UseRelay: true}}, drv)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	n.HandleCode(indicator(protocol.Red, protocol.Static, true))

	for i := 0; i < 3; i++ {
		if err := n.Step(); !errors.Is(err, errcode.ConflictingActuatorConfig) {
			t.Fatalf("tick %d: expected ConflictingActuatorConfig, got %v", i, err)
		}
	}
	if len(drv.LEDWrites)+len(drv.RelayWrites)+len(drv.VibrationWrites) != 0 {
		t.Errorf("expected no writes, got led=%v relay=%v vib=%v", drv.LEDWrites, drv.RelayWrites, drv.VibrationWrites)
	}
	if n.Phase() != 3 {
		t.Errorf("phase should keep advancing, got %d", n.Phase())
	}
	if n.Snapshot().Counts.Failed != 3 {
		t.Errorf("expected 3 failed ticks, got %+v", n.Snapshot().Counts)
	}
}

func TestStepLEDErrorContinues(t *testing.T) {
	n, drv := newTestNode(t, logic.LedNode)
	drv.Error = errors.New("port closed")
	n.HandleCode(indicator(protocol.Red, protocol.Static, false))

	if err := n.Step(); err == nil {
		t.Error("expected error")
	}
	if n.Phase() != 1 {
		t.Errorf("phase should advance after a failed tick, got %d", n.Phase())
	}
}

func TestPhaseWraps(t *testing.T) {
	n, _ := newTestNode(t, logic.LedNode)
	n.RunFor(logic.CountMax-1, DefaultTickPeriod)
	if n.Phase() != logic.CountMax-1 {
		t.Fatalf("phase %d, want %d", n.Phase(), logic.CountMax-1)
	}
	n.RunFor(1, DefaultTickPeriod)
	if n.Phase() != 0 {
		t.Errorf("phase %d after wrap, want 0", n.Phase())
	}
}

func TestShowEffect(t *testing.T) {
	n, drv := newTestNode(t, logic.LedNode)

	if err := n.ShowEffect(protocol.Blinking, protocol.White, 2*logic.CountMax, DefaultTickPeriod); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []protocol.RGB{white, black, white, black}
	if !reflect.DeepEqual(drv.LEDWrites, want) {
		t.Errorf("LED writes %v, want %v", drv.LEDWrites, want)
	}
	if n.Phase() != 0 || n.Snapshot().HasCode {
		t.Error("ShowEffect must leave phase at 0 and no current code")
	}

	n.Step()
	if drv.LEDWrites[len(drv.LEDWrites)-1] != black {
		t.Error("expected LED to return to Off after the effect")
	}
}

func TestShowEffectUnsupportedColour(t *testing.T) {
	n, _ := newTestNode(t, logic.LedNode)
	err := n.ShowEffect(protocol.Static, protocol.Colour(12), 1, DefaultTickPeriod)
	if !errors.Is(err, errcode.UnsupportedColour) {
		t.Errorf("expected UnsupportedColour, got %v", err)
	}
}

func TestObserver(t *testing.T) {
	n, _ := newTestNode(t, logic.LedNode)
	rec := &recorder{}
	n.SetObserver(rec)

	n.HandleCode(physical(true))
	n.HandleCode(indicator(protocol.Cyan, protocol.Static, false))
	n.Step()

	if !reflect.DeepEqual(rec.applied, []bool{false, true}) {
		t.Errorf("applied %v, want [false true]", rec.applied)
	}
	if len(rec.snaps) != 2 || rec.snaps[1].Colour != protocol.Cyan || rec.snaps[1].Phase != 1 {
		t.Errorf("unexpected snapshots %+v", rec.snaps)
	}
}

func TestSetObserverSeedsState(t *testing.T) {
	n, _ := newTestNode(t, logic.RelayNode)
	rec := &recorder{}
	n.SetObserver(rec)

	if len(rec.snaps) != 1 {
		t.Fatalf("expected the current state on registration, got %d snapshots", len(rec.snaps))
	}
	got := rec.snaps[0]
	if got.Role != logic.RelayNode || got.HasCode || got.Phase != 0 {
		t.Errorf("unexpected initial snapshot %+v", got)
	}
	if got.Actuator.RelayKnown {
		t.Error("relay should be unknown before the first tick")
	}
}

func TestRun(t *testing.T) {
	n, drv := newTestNode(t, logic.RelayNode)
	ctx, cancel := context.WithCancel(context.Background())
	tick := make(chan time.Time)
	codes := make(chan byte)

	done := make(chan error, 1)
	go func() { done <- n.Run(ctx, tick, codes) }()

	codes <- physical(true)
	tick <- time.Time{}
	tick <- time.Time{}
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}

	if !reflect.DeepEqual(drv.RelayWrites, []bool{true}) {
		t.Errorf("relay writes %v, want [true]", drv.RelayWrites)
	}
	if n.Phase() != 2 {
		t.Errorf("phase %d, want 2", n.Phase())
	}
}
