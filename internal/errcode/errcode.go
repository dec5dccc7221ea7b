// Package errcode defines the named conditions raised by the node core.
package errcode

// Code is a stable error identifier. It is a string newtype, comparable,
// and implements error so it can be returned or matched with errors.Is.
type Code string

func (c Code) Error() string { return string(c) }

const (
	UnsupportedColour         Code = "unsupported_colour"
	UnsupportedEffect         Code = "unsupported_effect"
	UnsupportedNodeRole       Code = "unsupported_node_role"
	UnknownButtonPin          Code = "unknown_button_pin"
	ConflictingActuatorConfig Code = "conflicting_actuator_config"
	NotAuthenticated          Code = "not_authenticated"

	Error Code = "error" // generic fallback
)

// E wraps a Code with the operation that raised it and optional detail.
type E struct {
	C   Code
	Op  string
	Msg string
	Err error
}

func (e *E) Error() string {
	s := string(e.C)
	if e.Op != "" {
		s = e.Op + ": " + s
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	return s
}

func (e *E) Unwrap() error { return e.Err }

// Is reports whether target is the Code carried by e.
func (e *E) Is(target error) bool {
	c, ok := target.(Code)
	return ok && c == e.C
}

// Of extracts a Code from an error, defaulting to Error. A nil error has no code.
func Of(err error) Code {
	if err == nil {
		return ""
	}
	if c, ok := err.(Code); ok {
		return c
	}
	if e, ok := err.(*E); ok {
		return e.C
	}
	return Error
}
