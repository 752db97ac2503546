package transcript

import (
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrSequenceViolation is returned when an append would break ordering.
	ErrSequenceViolation = errors.New("transcript: sequence violation")
	// ErrEmptySpeaker is returned for messages without a speaker.
	ErrEmptySpeaker = errors.New("transcript: message has no speaker")
)

// Transcript is the ordered, append-only record of a discussion. It is not
// safe for concurrent writers; readers must use View.
type Transcript struct {
	prompt   string
	messages []Message
	now      func() time.Time
}

// Option configures a Transcript.
type Option func(*Transcript)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(t *Transcript) { t.now = now }
}

// New creates an empty transcript for the given seeding prompt.
func New(prompt string, opts ...Option) *Transcript {
	t := &Transcript{prompt: prompt, now: time.Now}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Prompt returns the seeding prompt.
func (t *Transcript) Prompt() string { return t.prompt }

// Len returns the number of appended messages.
func (t *Transcript) Len() int { return len(t.messages) }

// Append stores msg at the next sequence position and returns the stored
// copy. A caller supplied Seq must equal the next position, and rounds may
// never go backwards.
func (t *Transcript) Append(msg Message) (Message, error) {
	if msg.Speaker == "" {
		return Message{}, ErrEmptySpeaker
	}
	next := len(t.messages) + 1
	if msg.Seq != 0 && msg.Seq != next {
		return Message{}, fmt.Errorf("%w: got seq %d, next is %d", ErrSequenceViolation, msg.Seq, next)
	}
	if n := len(t.messages); n > 0 && msg.Round < t.messages[n-1].Round {
		return Message{}, fmt.Errorf("%w: round %d after round %d", ErrSequenceViolation, msg.Round, t.messages[n-1].Round)
	}
	if msg.Round < 0 {
		return Message{}, fmt.Errorf("%w: negative round %d", ErrSequenceViolation, msg.Round)
	}

	msg.Seq = next
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = t.now()
	}
	t.messages = append(t.messages, msg)
	return msg, nil
}

// View returns a read-only snapshot of the current messages.
func (t *Transcript) View() View {
	n := len(t.messages)
	return View{prompt: t.prompt, messages: t.messages[:n:n]}
}

// Messages returns a copy of all messages in order.
func (t *Transcript) Messages() []Message {
	return t.View().Messages()
}

// Render is shorthand for t.View().Render(forPersona).
func (t *Transcript) Render(forPersona string) iter.Seq[Line] {
	return t.View().Render(forPersona)
}
