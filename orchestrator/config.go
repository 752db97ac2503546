package orchestrator

import (
	"errors"
	"time"

	"github.com/BaSui01/submind/termination"
	"github.com/BaSui01/submind/types"
)

// Config controls one discussion.
type Config struct {
	MaxRounds              int      `json:"max_rounds" yaml:"max_rounds"`
	ConsensusThreshold     float64  `json:"consensus_threshold" yaml:"consensus_threshold"`
	SmartTermination       bool     `json:"smart_termination" yaml:"smart_termination"`
	MinResponsesPerPersona int      `json:"min_responses_per_persona" yaml:"min_responses_per_persona"`
	Markers                []string `json:"markers,omitempty" yaml:"markers"`
	// Similarity is "jaccard" (default) or "cosine".
	Similarity string `json:"similarity,omitempty" yaml:"similarity"`

	// GenerationRetries re-asks a persona after a retryable failure.
	GenerationRetries int           `json:"generation_retries" yaml:"generation_retries"`
	RetryBackoff      time.Duration `json:"retry_backoff" yaml:"retry_backoff"`
	// DelayBetweenPersonas paces consecutive gateway calls.
	DelayBetweenPersonas time.Duration `json:"delay_between_personas" yaml:"delay_between_personas"`
	// ConcurrentOpening asks every persona for its first answer at once.
	// Opening answers are then based on the prompt alone.
	ConcurrentOpening bool `json:"concurrent_opening" yaml:"concurrent_opening"`
}

// DefaultConfig returns the stock discussion settings.
func DefaultConfig() Config {
	return Config{
		MaxRounds:              3,
		ConsensusThreshold:     0.7,
		SmartTermination:       true,
		MinResponsesPerPersona: 1,
		RetryBackoff:           time.Second,
	}
}

// Validate reports every problem as a single configuration error.
func (c Config) Validate() error {
	var errs []error
	if err := c.detectorConfig().Validate(); err != nil {
		errs = append(errs, err)
	}
	if _, err := termination.SimilarityByName(c.Similarity); err != nil {
		errs = append(errs, err)
	}
	if c.GenerationRetries < 0 {
		errs = append(errs, errors.New("generation_retries must not be negative"))
	}
	if c.RetryBackoff < 0 || c.DelayBetweenPersonas < 0 {
		errs = append(errs, errors.New("durations must not be negative"))
	}
	if len(errs) == 0 {
		return nil
	}
	return types.NewConfigurationError("invalid discussion config: %v", errors.Join(errs...))
}

func (c Config) detectorConfig() termination.Config {
	return termination.Config{
		MaxRounds:              c.MaxRounds,
		ConsensusThreshold:     c.ConsensusThreshold,
		SmartDetection:         c.SmartTermination,
		MinResponsesPerPersona: c.MinResponsesPerPersona,
		Markers:                c.Markers,
	}
}
