package orchestrator

import (
	"time"

	"github.com/BaSui01/submind/termination"
	"github.com/BaSui01/submind/transcript"
)

// EventType names a lifecycle event.
type EventType string

const (
	EventDiscussionStarted   EventType = "discussion-started"
	EventRoundStarted        EventType = "round-started"
	EventPersonaInvoked      EventType = "persona-invoked"
	EventPersonaResponded    EventType = "persona-responded"
	EventPersonaError        EventType = "persona-error"
	EventRoundCompleted      EventType = "round-completed"
	EventTerminated          EventType = "terminated"
	EventDiscussionCompleted EventType = "discussion-completed"
	EventDiscussionCancelled EventType = "discussion-cancelled"
	EventDiscussionFailed    EventType = "discussion-failed"
)

// Final reports whether the event ends the stream.
func (t EventType) Final() bool {
	return t == EventDiscussionCompleted || t == EventDiscussionCancelled || t == EventDiscussionFailed
}

// Event is one lifecycle notification. Only the fields relevant to Type are
// set.
type Event struct {
	Type         EventType           `json:"type"`
	DiscussionID string              `json:"discussion_id"`
	Round        int                 `json:"round,omitempty"`
	Persona      string              `json:"persona,omitempty"`
	Message      *transcript.Message `json:"message,omitempty"`
	Reason       termination.Reason  `json:"reason,omitempty"`
	Detail       string              `json:"detail,omitempty"`
	Error        string              `json:"error,omitempty"`
	Summary      *Summary            `json:"summary,omitempty"`
	Timestamp    time.Time           `json:"timestamp"`

	// Err is the typed error behind Error.
	Err error `json:"-"`
}
