package fsm

// file: internal/fsm/fsm_test.go

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	lfsm "github.com/looplab/fsm"
	"github.com/marekdano/weather-mcp-server/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	StateIdle     State = "idle"
	StateRunning  State = "running"
	StatePaused   State = "paused"
	StateFinished State = "finished"

	EventStart Event = "start"
	EventPause Event = "pause"
	EventStop  Event = "stop"
	EventForce Event = "force"
)

func buildTestFSM(t *testing.T) FSM {
	t.Helper()
	fsmBuilder := NewFSM(StateIdle, logging.GetNoopLogger())
	fsmBuilder.AddTransition(Transition{From: []State{StateIdle, StatePaused}, Event: EventStart, To: StateRunning})
	fsmBuilder.AddTransition(Transition{From: []State{StateRunning}, Event: EventPause, To: StatePaused})
	fsmBuilder.AddTransition(Transition{From: []State{StateRunning, StatePaused}, Event: EventStop, To: StateFinished})
	require.NoError(t, fsmBuilder.Build(), "Failed to build test FSM.")
	return fsmBuilder
}

func TestFSM_Build_IsIdempotent(t *testing.T) {
	fsmBuilder := NewFSM(StateIdle, nil)
	require.NoError(t, fsmBuilder.Build())
	require.NoError(t, fsmBuilder.Build(), "Calling Build() twice should not error.")
	assert.Equal(t, StateIdle, fsmBuilder.CurrentState())
}

func TestFSM_BasicTransitions_Succeeds(t *testing.T) {
	fsm := buildTestFSM(t)
	ctx := context.Background()

	assert.True(t, fsm.Is(StateIdle), "Initial state should be Idle.")

	require.NoError(t, fsm.Transition(ctx, EventStart, nil))
	assert.Equal(t, StateRunning, fsm.CurrentState())

	require.NoError(t, fsm.Transition(ctx, EventPause, nil))
	require.NoError(t, fsm.Transition(ctx, EventStop, nil), "Stop is allowed from Paused too.")
	assert.Equal(t, StateFinished, fsm.CurrentState())
}

func TestFSM_InvalidTransition_ReturnsError(t *testing.T) {
	fsm := buildTestFSM(t)

	assert.False(t, fsm.CanTransition(EventStop), "Should not be able to Stop from Idle.")
	err := fsm.Transition(context.Background(), EventStop, nil)
	require.Error(t, err)

	var invalid lfsm.InvalidEventError
	assert.True(t, errors.As(err, &invalid), "Expected an InvalidEventError.")
	assert.Equal(t, StateIdle, fsm.CurrentState(), "State should remain Idle.")
}

func TestFSM_TransitionWithAction_ExecutesAction(t *testing.T) {
	fsmBuilder := NewFSM(StateIdle, nil)
	actionExecuted := atomic.Bool{}

	action := func(_ context.Context, event Event, data any) error {
		actionExecuted.Store(true)
		assert.Equal(t, EventStart, event)
		assert.Equal(t, "some data", data)
		return nil
	}
	fsmBuilder.AddTransition(Transition{From: []State{StateIdle}, Event: EventStart, To: StateRunning, Action: action})
	require.NoError(t, fsmBuilder.Build())

	require.NoError(t, fsmBuilder.Transition(context.Background(), EventStart, "some data"))
	assert.True(t, actionExecuted.Load(), "Transition action should have been executed.")
}

func TestFSM_ActionPerSourceState_OnlyMatchingActionRuns(t *testing.T) {
	fsmBuilder := NewFSM(StateIdle, nil)
	var fromIdle, fromRunning atomic.Int32
	fsmBuilder.AddTransition(Transition{From: []State{StateIdle}, Event: EventStart, To: StateRunning})
	fsmBuilder.AddTransition(Transition{From: []State{StateIdle}, Event: EventStop, To: StateFinished,
		Action: func(context.Context, Event, any) error { fromIdle.Add(1); return nil }})
	fsmBuilder.AddTransition(Transition{From: []State{StateRunning}, Event: EventStop, To: StateFinished,
		Action: func(context.Context, Event, any) error { fromRunning.Add(1); return nil }})
	require.NoError(t, fsmBuilder.Build())

	ctx := context.Background()
	require.NoError(t, fsmBuilder.Transition(ctx, EventStart, nil))
	require.NoError(t, fsmBuilder.Transition(ctx, EventStop, nil))
	assert.Equal(t, int32(0), fromIdle.Load())
	assert.Equal(t, int32(1), fromRunning.Load())
}

func TestFSM_TransitionWithFailingAction_StillTransitions(t *testing.T) {
	fsmBuilder := NewFSM(StateIdle, nil)
	fsmBuilder.AddTransition(Transition{From: []State{StateIdle}, Event: EventStart, To: StateRunning,
		Action: func(context.Context, Event, any) error { return fmt.Errorf("action failed deliberately") }})
	require.NoError(t, fsmBuilder.Build())

	require.NoError(t, fsmBuilder.Transition(context.Background(), EventStart, nil))
	assert.Equal(t, StateRunning, fsmBuilder.CurrentState())
}

func TestFSM_TransitionWithGuard_AllowsAndBlocks(t *testing.T) {
	canForce := atomic.Bool{}
	guard := func(_ context.Context, event Event, data any) bool {
		assert.Equal(t, EventForce, event)
		assert.Equal(t, "force data", data)
		return canForce.Load()
	}

	blocked := NewFSM(StateIdle, nil)
	blocked.AddTransition(Transition{From: []State{StateIdle}, Event: EventForce, To: StateRunning, Condition: guard})
	require.NoError(t, blocked.Build())

	err := blocked.Transition(context.Background(), EventForce, "force data")
	require.Error(t, err, "Transition should fail when guard condition is false.")
	var canceledErr lfsm.CanceledError
	require.True(t, errors.As(err, &canceledErr), "Error should be a CanceledError when guard fails.")
	assert.Equal(t, StateIdle, blocked.CurrentState())

	canForce.Store(true)
	require.NoError(t, blocked.Transition(context.Background(), EventForce, "force data"))
	assert.Equal(t, StateRunning, blocked.CurrentState())
}

func TestFSM_Build_Fails_When_ConflictingDestinations(t *testing.T) {
	fsmBuilder := NewFSM(StateIdle, nil)
	fsmBuilder.AddTransition(Transition{From: []State{StateIdle}, Event: EventStart, To: StateRunning})
	fsmBuilder.AddTransition(Transition{From: []State{StateIdle}, Event: EventStart, To: StatePaused})

	err := fsmBuilder.Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "conflicting destinations")
}

func TestFSM_Build_Fails_When_MissingFromState(t *testing.T) {
	fsmBuilder := NewFSM(StateIdle, nil)
	fsmBuilder.AddTransition(Transition{Event: EventStart, To: StateRunning})

	err := fsmBuilder.Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing 'From' states")
}

func TestFSM_Transition_BeforeBuild_Fails(t *testing.T) {
	fsmBuilder := NewFSM(StateIdle, nil)
	assert.Error(t, fsmBuilder.Transition(context.Background(), EventStart, nil))
	assert.Equal(t, State(""), fsmBuilder.CurrentState())
	assert.False(t, fsmBuilder.CanTransition(EventStart))
}
