package domain

import (
	"fmt"
	"sync"

	"github.com/felixgeelhaar/statekit"
)

// Untyped so they convert to Stage/StageEvent as well as statekit ids.
const (
	StateIdle             = "idle"
	StateFileSelected     = "file_selected"
	StateCheckingLegality = "checking_legality"
	StateLegalConfirmed   = "legal_confirmed"
	StateAnalyzing        = "analyzing"
	StateComplete         = "complete"
	StateRejected         = "rejected"
	StateFailed           = "failed"

	eventSelectFile   = "select_file"
	eventCheck        = "check"
	eventConfirmLegal = "confirm_legal"
	eventReject       = "reject"
	eventAnalyze      = "analyze"
	eventFinish       = "finish"
	eventFail         = "fail"
	eventRetry        = "retry"
)

type sessionContext struct {
	Stage Stage
}

// transitionFunc runs one event through a machine started at a fixed stage.
type transitionFunc func(StageEvent) Stage

// sessionMachines holds one built machine per stage, since statekit fixes the
// initial state at build time. Interpreters stay per call.
var sessionMachines = sync.OnceValues(func() (map[Stage]transitionFunc, error) {
	stages := []Stage{
		StageIdle, StageFileSelected, StageCheckingLegality, StageLegalConfirmed,
		StageAnalyzing, StageComplete, StageRejected, StageFailed,
	}
	machines := make(map[Stage]transitionFunc, len(stages))
	for _, stage := range stages {
		fn, err := buildSessionMachine(stage)
		if err != nil {
			return nil, err
		}
		machines[stage] = fn
	}
	return machines, nil
})

// NextStage resolves event against the lifecycle machine started at current.
func NextStage(current Stage, event StageEvent) (Stage, error) {
	if current == "" {
		current = StageIdle
	}

	machines, err := sessionMachines()
	if err != nil {
		return current, err
	}
	transition, ok := machines[current]
	if !ok {
		return current, WrapError(ErrInvalidTransition, "advance session",
			fmt.Errorf("unknown stage %q", current))
	}

	next := transition(event)
	if next == current {
		return current, WrapError(ErrInvalidTransition, "advance session",
			fmt.Errorf("event %q is not allowed in stage %q", event, current))
	}
	return next, nil
}

func buildSessionMachine(initial Stage) (transitionFunc, error) {
	builder := statekit.NewMachine[sessionContext]("analysis-session").
		WithInitial(statekit.StateID(initial)).
		WithContext(sessionContext{Stage: initial})

	builder.State(StateIdle).
		On(eventSelectFile).Target(StateFileSelected).
		Done()

	builder.State(StateFileSelected).
		On(eventCheck).Target(StateCheckingLegality).
		On(eventFail).Target(StateFailed).
		Done()

	builder.State(StateCheckingLegality).
		On(eventConfirmLegal).Target(StateLegalConfirmed).
		On(eventReject).Target(StateRejected).
		On(eventFail).Target(StateFailed).
		Done()

	builder.State(StateLegalConfirmed).
		On(eventAnalyze).Target(StateAnalyzing).
		On(eventFail).Target(StateFailed).
		Done()

	builder.State(StateAnalyzing).
		On(eventFinish).Target(StateComplete).
		On(eventFail).Target(StateFailed).
		Done()

	builder.State(StateFailed).
		On(eventRetry).Target(StateFileSelected).
		Done()

	builder.State(StateComplete).Done()
	builder.State(StateRejected).Done()

	machine, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("build session state machine from %s: %w", initial, err)
	}

	return func(event StageEvent) Stage {
		interpreter := statekit.NewInterpreter(machine)
		interpreter.Start()
		interpreter.Send(statekit.Event{Type: statekit.EventType(event)})
		return Stage(interpreter.State().Value)
	}, nil
}
