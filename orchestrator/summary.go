package orchestrator

import (
	"time"

	"github.com/BaSui01/submind/termination"
	"github.com/BaSui01/submind/transcript"
)

// Summary describes a finished (or interrupted) discussion.
type Summary struct {
	ID            string               `json:"id"`
	Prompt        string               `json:"prompt"`
	Participants  []string             `json:"participants"`
	Rounds        int                  `json:"rounds"`
	State         State                `json:"state"`
	Reason        termination.Reason   `json:"reason,omitempty"`
	Detail        string               `json:"detail,omitempty"`
	MessageCount  int                  `json:"message_count"`
	SpeakerCounts map[string]int       `json:"speaker_counts"`
	Failures      int                  `json:"failures"`
	Tokens        int                  `json:"tokens"`
	StartedAt     time.Time            `json:"started_at"`
	EndedAt       time.Time            `json:"ended_at,omitzero"`
	Duration      time.Duration        `json:"duration"`
	Messages      []transcript.Message `json:"messages,omitempty"`
}

// Responses counts persona-authored messages.
func (s *Summary) Responses() int {
	n := 0
	for _, m := range s.Messages {
		if m.IsPersona() {
			n++
		}
	}
	return n
}

// View wraps the summary's messages as a transcript view.
func (s *Summary) View() transcript.View {
	return transcript.NewView(s.Prompt, s.Messages)
}
