package transcript

import (
	"fmt"
	"time"
)

// Reserved speakers that are never persona identifiers.
const (
	SpeakerUser   = "User"
	SpeakerSystem = "System"
)

// Metadata is optional per-message information.
type Metadata struct {
	Model  string `json:"model,omitempty"`
	Tokens int    `json:"tokens,omitempty"`
	Error  bool   `json:"error,omitempty"`
}

// Message is one entry of the discussion. Seq is assigned by Append.
type Message struct {
	ID        string    `json:"id"`
	Seq       int       `json:"seq"`
	Round     int       `json:"round"`
	Speaker   string    `json:"speaker"`
	Role      string    `json:"role,omitempty"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Meta      Metadata  `json:"metadata"`
}

// IsPersona reports whether the message was produced by a persona rather
// than the user or the system.
func (m Message) IsPersona() bool {
	return m.Speaker != SpeakerUser && m.Speaker != SpeakerSystem && m.Speaker != ""
}

// Line renders the message as a dialogue line.
func (m Message) Line() string {
	return fmt.Sprintf("%s: %s", m.Speaker, m.Content)
}

// Line is one rendered dialogue entry.
type Line struct {
	Speaker string
	Content string
	// Own is true when the line was written by the persona the rendering
	// was produced for.
	Own bool
}

// String formats the line as "<speaker>: <content>".
func (l Line) String() string {
	return fmt.Sprintf("%s: %s", l.Speaker, l.Content)
}
