package protocol

import (
	"fmt"
	"strconv"

	"github.com/sweeney/meshnode/internal/errcode"
)

// Mesh (single-actuator) indicator layout.
const (
	colourMask  = 0b00000111
	effectMask  = 0b00011000
	vibMask     = 0b00100000
	effectShift = 3
	opShift     = 6
)

// Buzzer/relay indicator layout. No op-code; bit 7 and bit 6 carry actuators
// and the effect takes three bits.
const (
	brEffectMask = 0b00111000
	brRelayMask  = 0b01000000
	brBuzzerMask = 0b10000000
)

// Control layout.
const (
	physMutedMask  = 0b00000001
	usePhysMask    = 0b00000010
	onlineMutedMsk = 0b00000100
	useOnlineMask  = 0b00001000
)

// Layout selects the Indicator bit layout.
type Layout int

const (
	LayoutMesh        Layout = iota // op-code 01, vib bit 5
	LayoutBuzzerRelay               // buzzer bit 7, relay bit 6
)

func (l Layout) String() string {
	switch l {
	case LayoutMesh:
		return "mesh"
	case LayoutBuzzerRelay:
		return "buzzer-relay"
	}
	return fmt.Sprintf("layout(%d)", int(l))
}

// ParseLayout parses the names produced by Layout.String.
func ParseLayout(s string) (Layout, error) {
	switch s {
	case "mesh":
		return LayoutMesh, nil
	case "buzzer-relay":
		return LayoutBuzzerRelay, nil
	}
	return 0, fmt.Errorf("unknown layout %q (want mesh or buzzer-relay)", s)
}

func bit(b bool) byte {
	if b {
		return 1
	}
	return 0
}

// OpCodeOf returns the op-code tag held in the top two bits.
func OpCodeOf(b byte) OpCode {
	return OpCode(b >> opShift)
}

// EncodeIndicator packs ind using the mesh layout. Out-of-range colour or
// effect values are masked to their field width. Relay is not carried.
func EncodeIndicator(ind Indicator) byte {
	return byte(OpIndicator)<<opShift |
		bit(ind.Vibrate)<<5 |
		(byte(ind.Effect)<<effectShift)&effectMask |
		byte(ind.Colour)&colourMask
}

// DecodeIndicator extracts the mesh-layout fields. It never fails; whether
// the op-code is Indicator is the caller's concern.
func DecodeIndicator(b byte) Indicator {
	return Indicator{
		Colour:  Colour(b & colourMask),
		Effect:  Effect((b & effectMask) >> effectShift),
		Vibrate: b&vibMask != 0,
	}
}

// EncodeIndicatorBuzzerRelay packs ind using the buzzer/relay layout.
func EncodeIndicatorBuzzerRelay(ind Indicator) byte {
	return bit(ind.Vibrate)<<7 |
		bit(ind.Relay)<<6 |
		(byte(ind.Effect)<<effectShift)&brEffectMask |
		byte(ind.Colour)&colourMask
}

// DecodeIndicatorBuzzerRelay extracts the buzzer/relay-layout fields.
func DecodeIndicatorBuzzerRelay(b byte) Indicator {
	return Indicator{
		Colour:  Colour(b & colourMask),
		Effect:  Effect((b & brEffectMask) >> effectShift),
		Vibrate: b&brBuzzerMask != 0,
		Relay:   b&brRelayMask != 0,
	}
}

// Encode packs ind with the given layout.
func (l Layout) Encode(ind Indicator) byte {
	if l == LayoutBuzzerRelay {
		return EncodeIndicatorBuzzerRelay(ind)
	}
	return EncodeIndicator(ind)
}

// Decode unpacks b with the given layout.
func (l Layout) Decode(b byte) Indicator {
	if l == LayoutBuzzerRelay {
		return DecodeIndicatorBuzzerRelay(b)
	}
	return DecodeIndicator(b)
}

// EncodeControl packs c with the Control op-code.
func EncodeControl(c Control) byte {
	return byte(OpControl)<<opShift |
		bit(c.UseOnlineMute)<<3 |
		bit(c.OnlineMuted)<<2 |
		bit(c.UsePhysicalMute)<<1 |
		bit(c.PhysicalMuted)
}

// DecodeControl extracts the Control fields.
func DecodeControl(b byte) Control {
	return Control{
		UseOnlineMute:   b&useOnlineMask != 0,
		OnlineMuted:     b&onlineMutedMsk != 0,
		UsePhysicalMute: b&usePhysMask != 0,
		PhysicalMuted:   b&physMutedMask != 0,
	}
}

// ColourToRGB maps a colour to its full-brightness triple. Values outside the
// eight defined colours return the zero RGB and errcode.UnsupportedColour.
func ColourToRGB(c Colour) (RGB, error) {
	switch c {
	case Red:
		return RGB{MaxChannel, 0, 0}, nil
	case Orange:
		return RGB{MaxChannel, MaxChannel / 3, 0}, nil
	case Yellow:
		return RGB{MaxChannel, MaxChannel, 0}, nil
	case Green:
		return RGB{0, MaxChannel, 0}, nil
	case Cyan:
		return RGB{0, MaxChannel, MaxChannel}, nil
	case Blue:
		return RGB{0, 0, MaxChannel}, nil
	case Purple:
		return RGB{MaxChannel, 0, MaxChannel}, nil
	case White:
		return RGB{MaxChannel, MaxChannel, MaxChannel}, nil
	}
	return RGB{}, &errcode.E{C: errcode.UnsupportedColour, Op: "colour_to_rgb", Msg: fmt.Sprintf("colour %d", uint8(c))}
}

// Describe renders a mesh code for logs, e.g.
// "indicator colour=RED effect=BLINKING vib=1 (0x51)".
func Describe(b byte) string {
	switch OpCodeOf(b) {
	case OpIndicator:
		ind := DecodeIndicator(b)
		return fmt.Sprintf("indicator colour=%s effect=%s vib=%d (0x%02x)", ind.Colour, ind.Effect, bit(ind.Vibrate), b)
	case OpControl:
		c := DecodeControl(b)
		return fmt.Sprintf("control online=%d/%d physical=%d/%d (0x%02x)",
			bit(c.UseOnlineMute), bit(c.OnlineMuted), bit(c.UsePhysicalMute), bit(c.PhysicalMuted), b)
	}
	return fmt.Sprintf("undefined %08b (0x%02x)", b, b)
}

// DescribeBuzzerRelay renders a buzzer/relay-layout indicator code.
func DescribeBuzzerRelay(b byte) string {
	ind := DecodeIndicatorBuzzerRelay(b)
	return fmt.Sprintf("indicator colour=%s effect=%s buzzer=%d relay=%d (0x%02x)", ind.Colour, ind.Effect, bit(ind.Vibrate), bit(ind.Relay), b)
}

// Describe renders b in layout l.
func (l Layout) Describe(b byte) string {
	if l == LayoutBuzzerRelay {
		return DescribeBuzzerRelay(b)
	}
	return Describe(b)
}

// ParseCode parses a code written in any strconv base: 0x51, 81 or 0b1010001.
func ParseCode(s string) (byte, error) {
	v, err := strconv.ParseUint(s, 0, 8)
	if err != nil {
		return 0, fmt.Errorf("parse code %q: %w", s, err)
	}
	return byte(v), nil
}
