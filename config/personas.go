package config

import (
	"time"

	"github.com/BaSui01/submind/orchestrator"
	"github.com/BaSui01/submind/persona"
)

// PersonaConfig is the file form of a persona.
type PersonaConfig struct {
	ID             string        `yaml:"id"`
	Role           string        `yaml:"role"`
	Instructions   string        `yaml:"instructions"`
	Temperature    float64       `yaml:"temperature"`
	MaxTokens      int           `yaml:"max_tokens"`
	Timeout        time.Duration `yaml:"timeout"`
	Model          string        `yaml:"model"`
	FallbackModels []string      `yaml:"fallback_models"`
	Color          string        `yaml:"color"`
	Icon           string        `yaml:"icon"`
	Disabled       bool          `yaml:"disabled"`
}

// Persona converts the file form. Empty temperature and token values fall
// back to 0.7 and 500.
func (pc PersonaConfig) Persona() persona.Persona {
	p := persona.Persona{
		ID:             pc.ID,
		Role:           pc.Role,
		Instructions:   pc.Instructions,
		Model:          pc.Model,
		FallbackModels: pc.FallbackModels,
		Params: persona.Params{
			Temperature: pc.Temperature,
			MaxTokens:   pc.MaxTokens,
			Timeout:     pc.Timeout,
		},
		Display: persona.Display{Color: pc.Color, Icon: pc.Icon},
	}
	if p.Params.Temperature == 0 {
		p.Params.Temperature = 0.7
	}
	if p.Params.MaxTokens == 0 {
		p.Params.MaxTokens = 500
	}
	if p.Display.Color == "" {
		p.Display.Color = "white"
	}
	return p
}

// Roster builds the roster of enabled personas. Personas without their own
// model inherit the LLM defaults.
func (c *Config) Roster() (*persona.Roster, error) {
	var ps []persona.Persona
	for _, pc := range c.Personas {
		if pc.Disabled {
			continue
		}
		p := pc.Persona()
		if p.Model == "" {
			p.Model = c.LLM.Model
		}
		if len(p.FallbackModels) == 0 {
			p.FallbackModels = c.LLM.FallbackModels
		}
		ps = append(ps, p)
	}
	return persona.NewRoster(ps...)
}

// ActivePersonas selects ids from the roster, or the configured active set
// when ids is empty, and checks the selection can hold a discussion.
func (c *Config) ActivePersonas(ids []string) ([]persona.Persona, error) {
	roster, err := c.Roster()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		ids = c.Discussion.Active
	}
	active, err := roster.Select(ids)
	if err != nil {
		return nil, err
	}
	if err := persona.ValidateActive(active); err != nil {
		return nil, err
	}
	return active, nil
}

// Orchestrator converts the discussion section.
func (d DiscussionConfig) Orchestrator() orchestrator.Config {
	return orchestrator.Config{
		MaxRounds:              d.MaxRounds,
		ConsensusThreshold:     d.ConsensusThreshold,
		SmartTermination:       d.SmartTermination,
		MinResponsesPerPersona: d.MinResponsesPerPersona,
		Markers:                d.Markers,
		Similarity:             d.Similarity,
		GenerationRetries:      d.GenerationRetries,
		RetryBackoff:           d.RetryBackoff,
		DelayBetweenPersonas:   d.DelayBetweenPersonas,
		ConcurrentOpening:      d.ConcurrentOpening,
	}
}

// DefaultPersonas returns the built-in council.
func DefaultPersonas() []PersonaConfig {
	return []PersonaConfig{
		{
			ID:           "Doctrinal",
			Role:         "traditional",
			Instructions: "You are the Doctrinal voice in a group discussion. Argue from established practice and historical precedent. Respond to earlier speakers by name when they have spoken. Keep it to one or two short paragraphs.",
			Temperature:  0.7,
			MaxTokens:    500,
			Color:        "blue",
		},
		{
			ID:           "Analytical",
			Role:         "analytical",
			Instructions: "You are the Analytical voice in a group discussion. Reason from evidence and measurable outcomes. Respond to earlier speakers by name when they have spoken. Keep it to one or two short paragraphs.",
			Temperature:  0.5,
			MaxTokens:    500,
			Color:        "cyan",
		},
		{
			ID:           "Strategic",
			Role:         "strategic",
			Instructions: "You are the Strategic voice in a group discussion. Focus on feasibility, resources and execution. Respond to earlier speakers by name when they have spoken. Keep it to one or two short paragraphs.",
			Temperature:  0.6,
			MaxTokens:    500,
			Color:        "green",
		},
		{
			ID:           "Creative",
			Role:         "creative",
			Instructions: "You are the Creative voice in a group discussion. Offer unconventional angles and reframe the question. Respond to earlier speakers by name when they have spoken. Keep it to one or two short paragraphs.",
			Temperature:  0.9,
			MaxTokens:    500,
			Color:        "magenta",
		},
		{
			ID:           "Skeptic",
			Role:         "skeptic",
			Instructions: "You are the Skeptic in a group discussion. Challenge assumptions and point out risks. Respond to earlier speakers by name when they have spoken. When nothing new remains, say you have nothing further to add. Keep it to one or two short paragraphs.",
			Temperature:  0.7,
			MaxTokens:    500,
			Color:        "red",
		},
	}
}
