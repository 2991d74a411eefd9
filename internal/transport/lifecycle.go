// file: internal/transport/lifecycle.go
package transport

import (
	"context"

	"github.com/marekdano/weather-mcp-server/internal/fsm"
	"github.com/marekdano/weather-mcp-server/internal/logging"
)

// Binding lifecycle states.
const (
	StateIdle             fsm.State = "idle"
	StateTransportCreated fsm.State = "transport_created"
	StateConnected        fsm.State = "connected"
	StateHandling         fsm.State = "handling"
	StateClosed           fsm.State = "closed"
)

// Binding lifecycle events.
const (
	EventCreate  fsm.Event = "create"  // Fresh transport allocated.
	EventConnect fsm.Event = "connect" // Transport bound to the shared server.
	EventHandle  fsm.Event = "handle"  // Request forwarded to the transport.
	EventClose   fsm.Event = "close"   // Request finished or client went away.
)

// newLifecycle builds the binding state machine. observe is called with the
// destination state after every completed transition.
func newLifecycle(logger logging.Logger, observe func(fsm.State)) (fsm.FSM, error) {
	m := fsm.NewFSM(StateIdle, logger)

	step := func(from []fsm.State, event fsm.Event, to fsm.State) {
		m.AddTransition(fsm.Transition{
			From:  from,
			Event: event,
			To:    to,
			Action: func(context.Context, fsm.Event, any) error {
				observe(to)
				return nil
			},
		})
	}

	step([]fsm.State{StateIdle}, EventCreate, StateTransportCreated)
	step([]fsm.State{StateTransportCreated}, EventConnect, StateConnected)
	step([]fsm.State{StateConnected}, EventHandle, StateHandling)
	step([]fsm.State{StateTransportCreated, StateConnected, StateHandling}, EventClose, StateClosed)

	if err := m.Build(); err != nil {
		return nil, err
	}
	return m, nil
}
