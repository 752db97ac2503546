package orchestrator

import (
	"fmt"
	"slices"

	"github.com/BaSui01/submind/types"
)

// State is the lifecycle position of a discussion.
type State string

const (
	StateNotStarted          State = "not_started"
	StateRoundInProgress     State = "round_in_progress"
	StateAwaitingTermination State = "awaiting_termination"
	StateTerminated          State = "terminated"
	StateCancelled           State = "cancelled"
	StateFailed              State = "failed"
)

// validTransitions 定义合法的状态转换
var validTransitions = map[State][]State{
	StateNotStarted:          {StateRoundInProgress, StateCancelled, StateFailed},
	StateRoundInProgress:     {StateAwaitingTermination, StateCancelled, StateFailed},
	StateAwaitingTermination: {StateRoundInProgress, StateTerminated, StateCancelled, StateFailed},
}

// CanTransition reports whether from -> to is a legal move.
func CanTransition(from, to State) bool {
	return slices.Contains(validTransitions[from], to)
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateTerminated || s == StateCancelled || s == StateFailed
}

func invalidTransition(from, to State) error {
	return types.NewError(types.ErrInvalidTransition, fmt.Sprintf("invalid state transition: %s -> %s", from, to))
}
