package api

import (
	"strings"
	"time"

	"github.com/BaSui01/submind/orchestrator"
	"github.com/BaSui01/submind/persona"
)

// =============================================================================
// 💬 Discussion 请求/响应
// =============================================================================

// DiscussionRequest starts a discussion. Nil overrides keep the server
// defaults.
type DiscussionRequest struct {
	Prompt   string   `json:"prompt"`
	Personas []string `json:"personas,omitempty"`

	MaxRounds              *int     `json:"max_rounds,omitempty"`
	ConsensusThreshold     *float64 `json:"consensus_threshold,omitempty"`
	SmartTermination       *bool    `json:"smart_termination,omitempty"`
	MinResponsesPerPersona *int     `json:"min_responses_per_persona,omitempty"`
	Similarity             string   `json:"similarity,omitempty"`
	Markers                []string `json:"markers,omitempty"`
	ConcurrentOpening      *bool    `json:"concurrent_opening,omitempty"`
}

// Apply layers the request overrides on top of base.
func (r *DiscussionRequest) Apply(base orchestrator.Config) orchestrator.Config {
	cfg := base
	if r.MaxRounds != nil {
		cfg.MaxRounds = *r.MaxRounds
	}
	if r.ConsensusThreshold != nil {
		cfg.ConsensusThreshold = *r.ConsensusThreshold
	}
	if r.SmartTermination != nil {
		cfg.SmartTermination = *r.SmartTermination
	}
	if r.MinResponsesPerPersona != nil {
		cfg.MinResponsesPerPersona = *r.MinResponsesPerPersona
	}
	if s := strings.TrimSpace(r.Similarity); s != "" {
		cfg.Similarity = s
	}
	if len(r.Markers) > 0 {
		cfg.Markers = append([]string(nil), r.Markers...)
	}
	if r.ConcurrentOpening != nil {
		cfg.ConcurrentOpening = *r.ConcurrentOpening
	}
	return cfg
}

// DiscussionResponse is the result of a synchronous discussion.
type DiscussionResponse struct {
	Discussion *orchestrator.Summary `json:"discussion"`
	// Exports maps format name to written file path.
	Exports map[string]string `json:"exports,omitempty"`
}

// DiscussionList is one page of archived discussions.
type DiscussionList struct {
	Discussions []*orchestrator.Summary `json:"discussions"`
	Limit       int                     `json:"limit"`
	Offset      int                     `json:"offset"`
}

// =============================================================================
// 🔌 流式命令
// =============================================================================

// CommandCancel asks the server to cancel the running discussion.
const CommandCancel = "cancel"

// StreamCommand is a client message on the WebSocket. The first message of
// a session is a DiscussionRequest; later ones are commands.
type StreamCommand struct {
	Type string `json:"type"`
}

// =============================================================================
// 🎭 Persona 与配置视图
// =============================================================================

// PersonaView describes one configured persona.
type PersonaView struct {
	ID             string        `json:"id"`
	Role           string        `json:"role"`
	Model          string        `json:"model,omitempty"`
	FallbackModels []string      `json:"fallback_models,omitempty"`
	Temperature    float64       `json:"temperature"`
	MaxTokens      int           `json:"max_tokens"`
	Timeout        time.Duration `json:"timeout,omitempty"`
	Color          string        `json:"color,omitempty"`
	Icon           string        `json:"icon,omitempty"`
	Active         bool          `json:"active"`
}

// NewPersonaView converts a persona.
func NewPersonaView(p persona.Persona, active bool) PersonaView {
	return PersonaView{
		ID:             p.ID,
		Role:           p.Role,
		Model:          p.Model,
		FallbackModels: p.FallbackModels,
		Temperature:    p.Params.Temperature,
		MaxTokens:      p.Params.MaxTokens,
		Timeout:        p.Params.Timeout,
		Color:          p.Display.Color,
		Icon:           p.Display.Icon,
		Active:         active,
	}
}

// ConfigView is the public part of the running configuration. Secrets are
// never included.
type ConfigView struct {
	Provider     string              `json:"provider"`
	BaseURL      string              `json:"base_url"`
	Model        string              `json:"model"`
	SystemRole   bool                `json:"system_role"`
	DialogueMode string              `json:"dialogue_mode"`
	Discussion   orchestrator.Config `json:"discussion"`
	Active       []string            `json:"active_personas"`
	Store        string              `json:"store"`
	Export       bool                `json:"export"`
	AuthEnabled  bool                `json:"auth_enabled"`
}
