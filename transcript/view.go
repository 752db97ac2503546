package transcript

import (
	"iter"
	"slices"
)

// View is an immutable snapshot of a Transcript. The zero View is empty.
type View struct {
	prompt   string
	messages []Message
}

// NewView builds a view over a fixed message list, e.g. one loaded from an
// archive. The slice is copied.
func NewView(prompt string, messages []Message) View {
	return View{prompt: prompt, messages: slices.Clone(messages)}
}

// Prompt returns the seeding prompt.
func (v View) Prompt() string { return v.prompt }

// Len returns the number of messages in the snapshot.
func (v View) Len() int { return len(v.messages) }

// At returns the i-th message (0-based).
func (v View) At(i int) Message { return v.messages[i] }

// Last returns the most recent message.
func (v View) Last() (Message, bool) {
	if len(v.messages) == 0 {
		return Message{}, false
	}
	return v.messages[len(v.messages)-1], true
}

// Messages returns a copy of the snapshot's messages.
func (v View) Messages() []Message {
	return slices.Clone(v.messages)
}

// All iterates over the snapshot in order.
func (v View) All() iter.Seq[Message] {
	return slices.Values(v.messages)
}

// Round returns the messages of one round in order.
func (v View) Round(round int) []Message {
	var out []Message
	for _, m := range v.messages {
		if m.Round == round {
			out = append(out, m)
		}
	}
	return out
}

// BySpeaker returns every message of one speaker in order.
func (v View) BySpeaker(speaker string) []Message {
	var out []Message
	for _, m := range v.messages {
		if m.Speaker == speaker {
			out = append(out, m)
		}
	}
	return out
}

// SpeakerCounts counts messages per speaker, reserved speakers included.
func (v View) SpeakerCounts() map[string]int {
	counts := make(map[string]int)
	for _, m := range v.messages {
		counts[m.Speaker]++
	}
	return counts
}

// Render yields the dialogue as seen by forPersona: the seeding prompt
// first, then every later message. The sequence is lazy, restartable and
// deterministic for a given snapshot.
func (v View) Render(forPersona string) iter.Seq[Line] {
	return func(yield func(Line) bool) {
		if !yield(Line{Speaker: SpeakerUser, Content: v.prompt}) {
			return
		}
		for i, m := range v.messages {
			if i == 0 && isSeed(m, v.prompt) {
				continue
			}
			if !yield(Line{Speaker: m.Speaker, Content: m.Content, Own: forPersona != "" && m.Speaker == forPersona}) {
				return
			}
		}
	}
}

// Lines collects Render into "<speaker>: <content>" strings.
func (v View) Lines(forPersona string) []string {
	var out []string
	for l := range v.Render(forPersona) {
		out = append(out, l.String())
	}
	return out
}

func isSeed(m Message, prompt string) bool {
	return m.Speaker == SpeakerUser && m.Round == 0 && m.Content == prompt
}
