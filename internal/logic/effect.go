package logic

import (
	"fmt"

	"github.com/sweeney/meshnode/internal/errcode"
	"github.com/sweeney/meshnode/internal/protocol"
)

// Render returns the LED triple for effect and colour at the given phase.
//
// Breathing ramps up as phase/CountMax*2 over the first half and down as
// (1-phase/CountMax)*2 over the second, so brightness jumps to full at the
// midpoint and the envelope is asymmetric. Channels are truncated toward zero.
func Render(effect protocol.Effect, colour protocol.Colour, phase Phase) (protocol.RGB, error) {
	if effect == protocol.Off {
		return protocol.RGB{}, nil
	}

	base, err := protocol.ColourToRGB(colour)
	if err != nil {
		return protocol.RGB{}, err
	}

	switch effect {
	case protocol.Static:
		return base, nil
	case protocol.Blinking:
		if phase.FirstHalf() {
			return base, nil
		}
		return protocol.RGB{}, nil
	case protocol.Breathing:
		return scale(base, breatheAmount(phase)), nil
	}
	return protocol.RGB{}, &errcode.E{C: errcode.UnsupportedEffect, Op: "render", Msg: fmt.Sprintf("effect %d", uint8(effect))}
}

func breatheAmount(phase Phase) float32 {
	frac := float32(phase) / float32(CountMax)
	if phase.FirstHalf() {
		return frac * 2
	}
	return (1 - frac) * 2
}

func scale(c protocol.RGB, a float32) protocol.RGB {
	return protocol.RGB{
		R: uint8(a * float32(c.R)),
		G: uint8(a * float32(c.G)),
		B: uint8(a * float32(c.B)),
	}
}
