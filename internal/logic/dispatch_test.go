package logic

import (
	"errors"
	"testing"

	"github.com/sweeney/meshnode/internal/errcode"
	"github.com/sweeney/meshnode/internal/protocol"
)

func TestDispatch(t *testing.T) {
	indicator := protocol.EncodeIndicator(protocol.Indicator{Colour: protocol.Green, Effect: protocol.Static})
	control := protocol.EncodeControl(protocol.Control{UsePhysicalMute: true, PhysicalMuted: true})
	prev := byte(0x55)

	tests := []struct {
		name        string
		code        byte
		role        Role
		wantCode    byte
		wantApplied bool
	}{
		{"indicator to led", indicator, LedNode, indicator, true},
		{"indicator to buttons", indicator, ButtonsVibNode, indicator, true},
		{"indicator to relay", indicator, RelayNode, prev, false},
		{"control to relay", control, RelayNode, control, true},
		{"control to led", control, LedNode, prev, false},
		{"control to buttons", control, ButtonsVibNode, prev, false},
		{"nothing to led", 0x00, LedNode, prev, false},
		{"reserved to relay", 0xC0, RelayNode, prev, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, applied, err := Dispatch(tt.code, tt.role, prev)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if code != tt.wantCode {
				t.Errorf("code: got %#x, want %#x", code, tt.wantCode)
			}
			if applied != tt.wantApplied {
				t.Errorf("applied: got %v, want %v", applied, tt.wantApplied)
			}
		})
	}
}

func TestDispatchUnsupportedRole(t *testing.T) {
	code, applied, err := Dispatch(0x41, Role(9), 0x12)
	if !errors.Is(err, errcode.UnsupportedNodeRole) {
		t.Fatalf("expected UnsupportedNodeRole, got %v", err)
	}
	if applied || code != 0x12 {
		t.Errorf("got (%#x, %v), want previous code unapplied", code, applied)
	}
}

func TestParseRole(t *testing.T) {
	for _, r := range []Role{ButtonsVibNode, LedNode, RelayNode} {
		got, err := ParseRole(r.String())
		if err != nil || got != r {
			t.Errorf("ParseRole(%q) = %v, %v", r.String(), got, err)
		}
	}
	if _, err := ParseRole("sensor"); err == nil {
		t.Error("expected error for unknown role")
	}
}
