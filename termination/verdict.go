package termination

import (
	"fmt"

	"github.com/BaSui01/submind/types"
)

// Reason names why a discussion stopped.
type Reason string

const (
	ReasonNone               Reason = ""
	ReasonMaxRoundsReached   Reason = "max_rounds_reached"
	ReasonExplicitSignal     Reason = "explicit_signal"
	ReasonConsensusDetected  Reason = "consensus_detected"
	ReasonRepetitionDetected Reason = "repetition_detected"
)

// Verdict is the outcome of one evaluation. The zero Verdict means continue.
// Speaker is set when a single persona caused the stop; Score carries the
// similarity that crossed the threshold.
type Verdict struct {
	Stop    bool    `json:"stop"`
	Reason  Reason  `json:"reason,omitempty"`
	Detail  string  `json:"detail,omitempty"`
	Speaker string  `json:"speaker,omitempty"`
	Score   float64 `json:"score,omitempty"`
}

// Continue returns a verdict that lets the discussion run on.
func Continue() Verdict { return Verdict{} }

// Stop returns a stopping verdict.
func Stop(reason Reason, detail string) Verdict {
	return Verdict{Stop: true, Reason: reason, Detail: detail}
}

func (v Verdict) String() string {
	if !v.Stop {
		return "continue"
	}
	return fmt.Sprintf("stop(%s): %s", v.Reason, v.Detail)
}

// State is the part of the discussion state the detector reads.
type State struct {
	// Round is the round that just completed, starting at 1.
	Round int
	// Active lists the participating persona ids. Empty means every
	// non-reserved speaker counts.
	Active   []string
	Terminal bool
	Reason   Reason
}

// Config holds the detector knobs.
type Config struct {
	MaxRounds          int     `json:"max_rounds" yaml:"max_rounds"`
	ConsensusThreshold float64 `json:"consensus_threshold" yaml:"consensus_threshold"`
	// SmartDetection enables the marker, consensus and repetition rules.
	// When false only the round cap applies.
	SmartDetection bool `json:"smart_detection" yaml:"smart_detection"`
	// MinResponsesPerPersona holds back the smart rules until every active
	// persona has spoken at least this many times.
	MinResponsesPerPersona int `json:"min_responses_per_persona" yaml:"min_responses_per_persona"`
	// Markers overrides DefaultMarkers when non-empty.
	Markers []string `json:"markers,omitempty" yaml:"markers"`
}

// DefaultConfig returns the stock detector configuration.
func DefaultConfig() Config {
	return Config{
		MaxRounds:              3,
		ConsensusThreshold:     0.7,
		SmartDetection:         true,
		MinResponsesPerPersona: 1,
	}
}

// Validate reports a configuration error for out-of-range values.
func (c Config) Validate() error {
	switch {
	case c.MaxRounds <= 0:
		return types.NewConfigurationError("max_rounds must be positive, got %d", c.MaxRounds)
	case !(c.ConsensusThreshold > 0 && c.ConsensusThreshold <= 1):
		return types.NewConfigurationError("consensus_threshold must be in (0,1], got %g", c.ConsensusThreshold)
	case c.MinResponsesPerPersona < 0:
		return types.NewConfigurationError("min_responses_per_persona must not be negative, got %d", c.MinResponsesPerPersona)
	}
	return nil
}

// Progress formats "Round x/y (z remaining)".
func Progress(round, maxRounds int) string {
	remaining := max(maxRounds-round, 0)
	return fmt.Sprintf("Round %d/%d (%d remaining)", round, maxRounds, remaining)
}
