// Package fsm provides a small finite state machine builder on top of looplab/fsm.
// file: internal/fsm/fsm.go
package fsm

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	lfsm "github.com/looplab/fsm"
	"github.com/marekdano/weather-mcp-server/internal/logging"
)

// State represents a state in the FSM.
type State string

// Event represents an event that can trigger a state transition.
type Event string

// TransitionAction runs after a transition completed. Errors are logged; the
// transition itself is not rolled back.
type TransitionAction func(ctx context.Context, event Event, data any) error

// GuardCondition is checked before a transition; returning false cancels it.
type GuardCondition func(ctx context.Context, event Event, data any) bool

// Transition defines a transition rule between states.
type Transition struct {
	From      []State
	To        State
	Event     Event
	Action    TransitionAction
	Condition GuardCondition
}

// FSM is a state machine assembled with AddTransition and finalized with Build.
type FSM interface {
	// AddTransition stores a transition definition. Call Build() after adding all transitions.
	AddTransition(transition Transition) FSM
	// Build creates the underlying machine.
	Build() error
	// CurrentState returns the current state.
	CurrentState() State
	// Is reports whether the machine is in state s.
	Is(s State) bool
	// CanTransition checks if the event is defined for the current state.
	CanTransition(event Event) bool
	// Transition fires event.
	Transition(ctx context.Context, event Event, data any) error
}

type loopFSM struct {
	initialState State
	logger       logging.Logger
	transitions  []Transition
	fsm          *lfsm.FSM
	buildErr     error
	mu           sync.RWMutex
}

// NewFSM creates a new FSM builder with the specified initial state.
func NewFSM(initialState State, logger logging.Logger) FSM {
	if logger == nil {
		logger = logging.GetNoopLogger()
	}
	return &loopFSM{
		initialState: initialState,
		logger:       logger.WithField("component", "fsm"),
	}
}

func (l *loopFSM) AddTransition(t Transition) FSM {
	l.mu.Lock()
	defer l.mu.Unlock()
	switch {
	case l.fsm != nil:
		l.setBuildErr(errors.New("cannot AddTransition after Build"))
	case len(t.From) == 0:
		l.setBuildErr(errors.Newf("transition %q is missing 'From' states", t.Event))
	default:
		l.transitions = append(l.transitions, t)
	}
	return l
}

func (l *loopFSM) setBuildErr(err error) {
	if l.buildErr == nil {
		l.buildErr = err
	}
}

func (l *loopFSM) Build() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.fsm != nil || l.buildErr != nil {
		return l.buildErr
	}

	descs := make(map[string]*lfsm.EventDesc)
	order := make([]string, 0, len(l.transitions))
	byEvent := make(map[Event][]Transition)
	for _, t := range l.transitions {
		name := string(t.Event)
		desc, ok := descs[name]
		if !ok {
			desc = &lfsm.EventDesc{Name: name, Dst: string(t.To)}
			descs[name] = desc
			order = append(order, name)
		} else if desc.Dst != string(t.To) {
			l.buildErr = errors.Newf("conflicting destinations (%q and %q) for event %q", desc.Dst, t.To, name)
			return l.buildErr
		}
		for _, s := range t.From {
			desc.Src = append(desc.Src, string(s))
		}
		byEvent[t.Event] = append(byEvent[t.Event], t)
	}

	events := make(lfsm.Events, 0, len(order))
	callbacks := make(lfsm.Callbacks)
	for _, name := range order {
		events = append(events, *descs[name])
		ts := byEvent[Event(name)]
		callbacks["before_"+name] = l.guardCallback(ts)
		callbacks["after_"+name] = l.actionCallback(ts)
	}

	l.fsm = lfsm.NewFSM(string(l.initialState), events, callbacks)
	return nil
}

// matching returns the transition in ts leaving src.
func matching(ts []Transition, src string) *Transition {
	for i := range ts {
		for _, from := range ts[i].From {
			if string(from) == src {
				return &ts[i]
			}
		}
	}
	return nil
}

func eventData(e *lfsm.Event) any {
	if len(e.Args) > 0 {
		return e.Args[0]
	}
	return nil
}

func (l *loopFSM) guardCallback(ts []Transition) lfsm.Callback {
	return func(ctx context.Context, e *lfsm.Event) {
		t := matching(ts, e.Src)
		if t == nil || t.Condition == nil {
			return
		}
		if !t.Condition(ctx, t.Event, eventData(e)) {
			e.Cancel(errors.Newf("guard condition for event %q from state %q failed", t.Event, e.Src))
		}
	}
}

func (l *loopFSM) actionCallback(ts []Transition) lfsm.Callback {
	return func(ctx context.Context, e *lfsm.Event) {
		t := matching(ts, e.Src)
		if t == nil || t.Action == nil {
			return
		}
		if err := t.Action(ctx, t.Event, eventData(e)); err != nil {
			l.logger.Error("Error executing transition action.", "event", t.Event, "from_state", e.Src, "to_state", e.Dst, "error", err)
		}
	}
}

func (l *loopFSM) machine() *lfsm.FSM {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.fsm
}

func (l *loopFSM) CurrentState() State {
	m := l.machine()
	if m == nil {
		return ""
	}
	return State(m.Current())
}

func (l *loopFSM) Is(s State) bool {
	m := l.machine()
	return m != nil && m.Is(string(s))
}

func (l *loopFSM) CanTransition(event Event) bool {
	m := l.machine()
	return m != nil && m.Can(string(event))
}

func (l *loopFSM) Transition(ctx context.Context, event Event, data any) error {
	m := l.machine()
	if m == nil {
		l.mu.RLock()
		defer l.mu.RUnlock()
		if l.buildErr != nil {
			return l.buildErr
		}
		return errors.New("fsm: Transition called before Build")
	}
	from := m.Current()

	var args []any
	if data != nil {
		args = append(args, data)
	}
	if err := m.Event(ctx, string(event), args...); err != nil {
		l.logger.Debug("FSM transition failed.", "event", event, "from_state", from, "error", err)
		return err
	}
	l.logger.Debug("Transition successful.", "event", event, "old_state", from, "new_state", m.Current())
	return nil
}
