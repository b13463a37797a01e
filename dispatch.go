package ecard

// Handler processes one decoded command and returns optional response data.
type Handler func(command Command) ([]byte, error)

// Dispatcher routes (CLA, INS) pairs to handlers. It keeps no state of its
// own between invocations.
type Dispatcher struct {
	handlers map[[2]byte]Handler
	classes  map[byte]bool
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		handlers: make(map[[2]byte]Handler),
		classes:  make(map[byte]bool),
	}
}

// Handle registers a handler for one class/instruction pair.
func (dispatcher *Dispatcher) Handle(cla byte, ins byte, handler Handler) {
	dispatcher.classes[cla] = true
	dispatcher.handlers[[2]byte{cla, ins}] = handler
}

// Dispatch routes a decoded command. An unrecognized class fails with
// ErrClaNotSupported, an unrecognized instruction on a recognized class with
// ErrInsNotSupported.
func (dispatcher *Dispatcher) Dispatch(command Command) ([]byte, error) {

	if !dispatcher.classes[command.Cla] {
		return nil, ErrClaNotSupported
	}

	handler := dispatcher.handlers[[2]byte{command.Cla, command.Ins}]

	if handler == nil {
		return nil, ErrInsNotSupported
	}

	return handler(command)

}
