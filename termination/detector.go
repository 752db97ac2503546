package termination

import (
	"fmt"
	"slices"

	"github.com/BaSui01/submind/transcript"
)

// Detector decides whether a discussion should stop after a round.
// Implementations must be pure: the same view, state and config always give
// the same verdict.
type Detector interface {
	Evaluate(view transcript.View, state State, cfg Config) Verdict
}

// DetectorFunc adapts a function to Detector.
type DetectorFunc func(view transcript.View, state State, cfg Config) Verdict

// Evaluate calls f.
func (f DetectorFunc) Evaluate(view transcript.View, state State, cfg Config) Verdict {
	return f(view, state, cfg)
}

// HeuristicDetector is the lexical-overlap detector.
type HeuristicDetector struct {
	similarity SimilarityFunc
}

// Option configures a HeuristicDetector.
type Option func(*HeuristicDetector)

// WithSimilarity replaces the similarity measure.
func WithSimilarity(fn SimilarityFunc) Option {
	return func(d *HeuristicDetector) {
		if fn != nil {
			d.similarity = fn
		}
	}
}

// NewDetector returns a HeuristicDetector using Jaccard similarity unless
// overridden.
func NewDetector(opts ...Option) *HeuristicDetector {
	d := &HeuristicDetector{similarity: Jaccard}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Evaluate applies the rules in precedence order: round cap, explicit
// marker, consensus, repetition.
func (d *HeuristicDetector) Evaluate(view transcript.View, state State, cfg Config) Verdict {
	if cfg.MaxRounds > 0 && state.Round >= cfg.MaxRounds {
		return Stop(ReasonMaxRoundsReached, fmt.Sprintf("maximum rounds reached (%d/%d)", state.Round, cfg.MaxRounds))
	}
	if !cfg.SmartDetection {
		return Continue()
	}

	current := personaMessages(view.Round(state.Round), state.Active)
	if len(current) < 2 {
		return Continue()
	}
	if !d.minResponsesMet(view, state, cfg.MinResponsesPerPersona) {
		return Continue()
	}

	for _, m := range current {
		if marker, ok := FindMarker(m.Content, cfg.Markers); ok {
			v := Stop(ReasonExplicitSignal, fmt.Sprintf("%s signalled completion (%q)", m.Speaker, marker))
			v.Speaker = m.Speaker
			return v
		}
	}

	texts := make([]string, len(current))
	for i, m := range current {
		texts[i] = m.Content
	}
	if score := MeanPairwise(texts, d.similarity); score >= cfg.ConsensusThreshold {
		v := Stop(ReasonConsensusDetected, fmt.Sprintf("consensus detected (mean similarity %.2f >= %.2f)", score, cfg.ConsensusThreshold))
		v.Score = score
		return v
	}

	if state.Round > 1 {
		previous := personaMessages(view.Round(state.Round-1), state.Active)
		for _, m := range current {
			prev, ok := lastBy(previous, m.Speaker)
			if !ok {
				continue
			}
			score := d.similarity(m.Content, prev.Content)
			if score >= cfg.ConsensusThreshold {
				v := Stop(ReasonRepetitionDetected, fmt.Sprintf("%s is repeating itself (similarity %.2f)", m.Speaker, score))
				v.Speaker = m.Speaker
				v.Score = score
				return v
			}
		}
	}
	return Continue()
}

func (d *HeuristicDetector) minResponsesMet(view transcript.View, state State, atLeast int) bool {
	if atLeast <= 0 {
		return true
	}
	counts := view.SpeakerCounts()
	active := state.Active
	if len(active) == 0 {
		for speaker := range counts {
			if isPersonaSpeaker(speaker) {
				active = append(active, speaker)
			}
		}
	}
	// Personas that never produced a message (failing gateway) do not hold
	// back the other rules.
	for _, id := range active {
		if n := counts[id]; n > 0 && n < atLeast {
			return false
		}
	}
	return true
}

// personaMessages keeps the persona-authored messages, restricted to active
// speakers when given.
func personaMessages(msgs []transcript.Message, active []string) []transcript.Message {
	out := msgs[:0:0]
	for _, m := range msgs {
		if !m.IsPersona() {
			continue
		}
		if len(active) > 0 && !slices.Contains(active, m.Speaker) {
			continue
		}
		out = append(out, m)
	}
	return out
}

func lastBy(msgs []transcript.Message, speaker string) (transcript.Message, bool) {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Speaker == speaker {
			return msgs[i], true
		}
	}
	return transcript.Message{}, false
}

func isPersonaSpeaker(s string) bool {
	return transcript.Message{Speaker: s}.IsPersona()
}
