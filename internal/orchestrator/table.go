package orchestrator

import (
	"fmt"
	"sort"

	"github.com/pondelion/mplm/internal/models"
)

type State string

const (
	StateSummary         State = "summary"
	StateTraining        State = "training"
	StateRepair          State = "repair"
	StateTerminalSuccess State = "terminal_success"
	StateTerminalFailure State = "terminal_failure"
)

func (s State) Terminal() bool {
	return s == StateTerminalSuccess || s == StateTerminalFailure
}

// Key selects a transition. Exhausted is RetryCount >= max retry.
type Key struct {
	State     State
	Status    models.Status
	Exhausted bool
}

// Table maps every reachable (state, status, exhausted) combination to the
// next state.
type Table map[Key]State

func DefaultTable() Table {
	t := Table{}
	add := func(from State, status models.Status, exhausted bool, to State) {
		t[Key{State: from, Status: status, Exhausted: exhausted}] = to
	}

	for _, exhausted := range []bool{false, true} {
		add(StateSummary, models.StatusOK, exhausted, StateTraining)
		add(StateTraining, models.StatusOK, exhausted, StateTerminalSuccess)
		add(StateRepair, models.StatusOK, exhausted, StateTerminalSuccess)

		add(StateSummary, models.StatusUnset, exhausted, StateTerminalFailure)
		add(StateTraining, models.StatusUnset, exhausted, StateTerminalFailure)
		add(StateRepair, models.StatusUnset, exhausted, StateTerminalFailure)
	}

	add(StateSummary, models.StatusFailed, false, StateSummary)
	add(StateTraining, models.StatusFailed, false, StateRepair)
	add(StateRepair, models.StatusFailed, false, StateRepair)

	add(StateSummary, models.StatusFailed, true, StateTerminalFailure)
	add(StateTraining, models.StatusFailed, true, StateTerminalFailure)
	add(StateRepair, models.StatusFailed, true, StateTerminalFailure)
	return t
}

// Next falls back to terminal failure for an unknown key.
func (t Table) Next(state State, status models.Status, exhausted bool) State {
	if next, ok := t[Key{State: state, Status: status, Exhausted: exhausted}]; ok {
		return next
	}
	return StateTerminalFailure
}

// Validate checks that every state reachable from Summary has a registered
// stage and a target for every status and budget combination.
func (t Table) Validate(stages map[State]Stage) error {
	for k := range t {
		if k.State.Terminal() {
			return fmt.Errorf("transition out of terminal state %s", k.State)
		}
	}

	statuses := []models.Status{models.StatusUnset, models.StatusOK, models.StatusFailed}
	seen := map[State]bool{}
	queue := []State{StateSummary}
	for len(queue) > 0 {
		state := queue[0]
		queue = queue[1:]
		if seen[state] || state.Terminal() {
			continue
		}
		seen[state] = true

		if _, ok := stages[state]; !ok {
			return fmt.Errorf("no stage registered for state %s", state)
		}
		for _, status := range statuses {
			for _, exhausted := range []bool{false, true} {
				next, ok := t[Key{State: state, Status: status, Exhausted: exhausted}]
				if !ok {
					return fmt.Errorf("missing transition for %s with status %q (exhausted=%t)", state, status, exhausted)
				}
				queue = append(queue, next)
			}
		}
	}

	var unused []string
	for state := range stages {
		if !seen[state] {
			unused = append(unused, string(state))
		}
	}
	if len(unused) > 0 {
		sort.Strings(unused)
		return fmt.Errorf("stages registered for unreachable states: %v", unused)
	}
	return nil
}
