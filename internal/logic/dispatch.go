package logic

import (
	"fmt"

	"github.com/sweeney/meshnode/internal/errcode"
	"github.com/sweeney/meshnode/internal/protocol"
)

// Accepts reports which op-code a role acts on.
func Accepts(role Role) (protocol.OpCode, error) {
	switch role {
	case ButtonsVibNode, LedNode:
		return protocol.OpIndicator, nil
	case RelayNode:
		return protocol.OpControl, nil
	}
	return protocol.OpNothing, &errcode.E{C: errcode.UnsupportedNodeRole, Op: "dispatch", Msg: fmt.Sprintf("role %d", uint8(role))}
}

// Dispatch gates an incoming code against the node's role. A code addressed
// to another role is not an error: prev is returned with applied=false.
func Dispatch(code byte, role Role, prev byte) (byte, bool, error) {
	want, err := Accepts(role)
	if err != nil {
		return prev, false, err
	}
	if protocol.OpCodeOf(code) != want {
		return prev, false, nil
	}
	return code, true, nil
}
