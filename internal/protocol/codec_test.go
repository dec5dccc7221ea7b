package protocol

import (
	"errors"
	"strings"
	"testing"

	"github.com/sweeney/meshnode/internal/errcode"
)

func TestIndicatorRoundTrip(t *testing.T) {
	for c := Red; c <= White; c++ {
		for e := Off; e <= Breathing; e++ {
			for _, vib := range []bool{false, true} {
				in := Indicator{Colour: c, Effect: e, Vibrate: vib}
				b := EncodeIndicator(in)
				if OpCodeOf(b) != OpIndicator {
					t.Fatalf("%+v: op-code %s, want INDICATOR", in, OpCodeOf(b))
				}
				if got := DecodeIndicator(b); got != in {
					t.Errorf("round trip: got %+v, want %+v", got, in)
				}
			}
		}
	}
}

func TestIndicatorBuzzerRelayRoundTrip(t *testing.T) {
	for c := Red; c <= White; c++ {
		for e := Off; e <= Breathing; e++ {
			for flags := 0; flags < 4; flags++ {
				in := Indicator{Colour: c, Effect: e, Vibrate: flags&1 != 0, Relay: flags&2 != 0}
				if got := DecodeIndicatorBuzzerRelay(EncodeIndicatorBuzzerRelay(in)); got != in {
					t.Errorf("round trip: got %+v, want %+v", got, in)
				}
			}
		}
	}
}

func TestControlRoundTrip(t *testing.T) {
	for flags := 0; flags < 16; flags++ {
		in := Control{
			UseOnlineMute:   flags&8 != 0,
			OnlineMuted:     flags&4 != 0,
			UsePhysicalMute: flags&2 != 0,
			PhysicalMuted:   flags&1 != 0,
		}
		b := EncodeControl(in)
		if OpCodeOf(b) != OpControl {
			t.Fatalf("%+v: op-code %s, want CONTROL", in, OpCodeOf(b))
		}
		if b&0b00110000 != 0 {
			t.Errorf("%+v: reserved bits set in %08b", in, b)
		}
		if got := DecodeControl(b); got != in {
			t.Errorf("round trip: got %+v, want %+v", got, in)
		}
	}
}

func TestEncodeIndicatorExactBits(t *testing.T) {
	tests := []struct {
		name string
		in   Indicator
		want byte
	}{
		{"red off", Indicator{Colour: Red, Effect: Off}, 0b01000000},
		{"white breathing", Indicator{Colour: White, Effect: Breathing}, 0b01011111},
		{"blue blinking vib", Indicator{Colour: Blue, Effect: Blinking, Vibrate: true}, 0b01110101},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EncodeIndicator(tt.in); got != tt.want {
				t.Errorf("got %08b, want %08b", got, tt.want)
			}
		})
	}
}

func TestEncodeControlExactBits(t *testing.T) {
	// Physical-mute button pressed: use physical mute, muted.
	got := EncodeControl(Control{UsePhysicalMute: true, PhysicalMuted: true})
	if got != 0b10000011 {
		t.Errorf("got %08b, want 10000011", got)
	}
	got = EncodeControl(Control{UseOnlineMute: true, OnlineMuted: true})
	if got != 0b10001100 {
		t.Errorf("got %08b, want 10001100", got)
	}
}

func TestEncodeBuzzerRelayExactBits(t *testing.T) {
	got := EncodeIndicatorBuzzerRelay(Indicator{Colour: Green, Effect: Static, Vibrate: true, Relay: true})
	if got != 0b11001011 {
		t.Errorf("got %08b, want 11001011", got)
	}
}

func TestEncodeOutOfRangeIsMasked(t *testing.T) {
	b := EncodeIndicator(Indicator{Colour: Colour(0xFF), Effect: Effect(0xFF)})
	if OpCodeOf(b) != OpIndicator {
		t.Errorf("op-code clobbered by out-of-range fields: %08b", b)
	}
	if b&vibMask != 0 {
		t.Errorf("vib bit clobbered by out-of-range fields: %08b", b)
	}
}

func TestOpCodeOf(t *testing.T) {
	tests := []struct {
		in   byte
		want OpCode
	}{
		{0x00, OpNothing},
		{0x3F, OpNothing},
		{0x40, OpIndicator},
		{0x80, OpControl},
		{0xC0, OpReserved},
		{0xFF, OpReserved},
	}
	for _, tt := range tests {
		if got := OpCodeOf(tt.in); got != tt.want {
			t.Errorf("OpCodeOf(%#x) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestColourToRGB(t *testing.T) {
	tests := []struct {
		c    Colour
		want RGB
	}{
		{Red, RGB{255, 0, 0}},
		{Orange, RGB{255, 85, 0}},
		{Yellow, RGB{255, 255, 0}},
		{Green, RGB{0, 255, 0}},
		{Cyan, RGB{0, 255, 255}},
		{Blue, RGB{0, 0, 255}},
		{Purple, RGB{255, 0, 255}},
		{White, RGB{255, 255, 255}},
	}
	for _, tt := range tests {
		t.Run(tt.c.String(), func(t *testing.T) {
			got, err := ColourToRGB(tt.c)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestColourToRGBUnsupported(t *testing.T) {
	got, err := ColourToRGB(Colour(8))
	if !errors.Is(err, errcode.UnsupportedColour) {
		t.Fatalf("expected UnsupportedColour, got %v", err)
	}
	if got != (RGB{}) {
		t.Errorf("expected zero RGB on failure, got %v", got)
	}
}

func TestParseLayout(t *testing.T) {
	for _, l := range []Layout{LayoutMesh, LayoutBuzzerRelay} {
		got, err := ParseLayout(l.String())
		if err != nil || got != l {
			t.Errorf("ParseLayout(%q) = %v, %v", l.String(), got, err)
		}
	}
	if _, err := ParseLayout("bogus"); err == nil {
		t.Error("expected error for unknown layout")
	}
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		in   byte
		want string
	}{
		{EncodeIndicator(Indicator{Colour: Red, Effect: Blinking, Vibrate: true}), "indicator colour=RED effect=BLINKING vib=1"},
		{EncodeControl(Control{UsePhysicalMute: true, PhysicalMuted: true}), "control online=0/0 physical=1/1"},
		{0xC3, "undefined 11000011"},
	}
	for _, tt := range tests {
		if got := Describe(tt.in); !strings.HasPrefix(got, tt.want) {
			t.Errorf("Describe(%#x) = %q, want prefix %q", tt.in, got, tt.want)
		}
	}
}

func TestLayoutDescribe(t *testing.T) {
	if got := LayoutMesh.Describe(0x51); got != Describe(0x51) {
		t.Errorf("mesh: got %q", got)
	}
	if got := LayoutBuzzerRelay.Describe(0xC0); got != DescribeBuzzerRelay(0xC0) {
		t.Errorf("buzzer-relay: got %q", got)
	}
}

func TestParseCode(t *testing.T) {
	tests := []struct {
		in      string
		want    byte
		wantErr bool
	}{
		{"0x51", 0x51, false},
		{"131", 0x83, false},
		{"0b10001100", 0x8C, false},
		{"0xFF", 0xFF, false},
		{"0x100", 0, true},
		{"-1", 0, true},
		{"", 0, true},
		{"red", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseCode(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseCode(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseCode(%q) = %#x, want %#x", tt.in, got, tt.want)
		}
	}
}
