package persona

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/BaSui01/submind/llm"
	"go.uber.org/zap"
)

// DialogueMode selects how the rendered transcript is packed into chat turns.
type DialogueMode string

const (
	// DialogueChat maps the persona's own lines to assistant turns and every
	// other line to a user turn "<speaker>: <content>".
	DialogueChat DialogueMode = "chat"
	// DialogueFlat sends the whole transcript as one user turn, one
	// "<speaker>: <content>" line each, ending with a "<persona>:" cue.
	DialogueFlat DialogueMode = "flat"
)

// LLMGateway adapts an llm.Provider to the Gateway contract.
type LLMGateway struct {
	provider   llm.Provider
	mode       DialogueMode
	systemRole bool
	clean      bool
	logger     *zap.Logger
}

// GatewayOption configures an LLMGateway.
type GatewayOption func(*LLMGateway)

// WithDialogueMode sets how dialogue is packed into chat turns.
func WithDialogueMode(mode DialogueMode) GatewayOption {
	return func(g *LLMGateway) {
		if mode != "" {
			g.mode = mode
		}
	}
}

// WithSystemRole controls whether instructions go out as a system turn.
// Servers whose chat template has no system slot (some LM Studio models)
// need false: instructions are then prepended to the first user turn.
func WithSystemRole(enabled bool) GatewayOption {
	return func(g *LLMGateway) { g.systemRole = enabled }
}

// WithResponseCleanup toggles CleanResponse on completions.
func WithResponseCleanup(enabled bool) GatewayOption {
	return func(g *LLMGateway) { g.clean = enabled }
}

// WithGatewayLogger sets the logger.
func WithGatewayLogger(logger *zap.Logger) GatewayOption {
	return func(g *LLMGateway) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// NewLLMGateway wraps provider.
func NewLLMGateway(provider llm.Provider, opts ...GatewayOption) *LLMGateway {
	g := &LLMGateway{
		provider:   provider,
		mode:       DialogueChat,
		systemRole: true,
		clean:      true,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = g.logger.With(zap.String("component", "llm_gateway"), zap.String("provider", provider.Name()))
	return g
}

// Generate implements Gateway.
func (g *LLMGateway) Generate(ctx context.Context, req Request) (Generation, error) {
	chatReq := &llm.ChatRequest{
		Model:       req.Model,
		Messages:    BuildMessages(req, g.mode, g.systemRole),
		MaxTokens:   req.Params.MaxTokens,
		Temperature: float32(req.Params.Temperature),
		Metadata:    map[string]string{"persona": req.PersonaID},
	}

	resp, err := g.provider.Completion(ctx, chatReq)
	if err != nil {
		return Generation{}, err
	}
	choice, err := llm.FirstChoice(resp)
	if err != nil {
		return Generation{}, &llm.Error{Code: llm.ErrMalformedResponse, Message: err.Error(), HTTPStatus: 502, Provider: g.provider.Name()}
	}

	text := choice.Message.Content
	if g.clean {
		text = CleanResponse(text, speakers(req)...)
	}
	if strings.TrimSpace(text) == "" && choice.Message.Content != "" {
		g.logger.Debug("completion emptied by cleanup",
			zap.String("persona", req.PersonaID),
			zap.Int("raw_len", len(choice.Message.Content)))
	}

	return Generation{Text: text, Model: resp.Model, Tokens: resp.Usage.CompletionTokens}, nil
}

// BuildMessages packs a request into chat turns.
func BuildMessages(req Request, mode DialogueMode, systemRole bool) []llm.Message {
	var msgs []llm.Message
	switch mode {
	case DialogueFlat:
		var b strings.Builder
		for _, l := range req.Dialogue {
			b.WriteString(l.String())
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s:", req.PersonaID)
		msgs = append(msgs, llm.Message{Role: llm.RoleUser, Content: b.String()})
	default:
		for _, l := range req.Dialogue {
			if l.Own {
				msgs = append(msgs, llm.Message{Role: llm.RoleAssistant, Content: l.Content})
				continue
			}
			msgs = append(msgs, llm.Message{Role: llm.RoleUser, Content: l.String()})
		}
	}

	if req.Instructions == "" {
		return msgs
	}
	if systemRole {
		return append([]llm.Message{{Role: llm.RoleSystem, Content: req.Instructions}}, msgs...)
	}
	for i := range msgs {
		if msgs[i].Role == llm.RoleUser {
			msgs[i].Content = req.Instructions + "\n\n" + msgs[i].Content
			return msgs
		}
	}
	return append([]llm.Message{{Role: llm.RoleUser, Content: req.Instructions}}, msgs...)
}

var (
	instTokenRe     = regexp.MustCompile(`\[/?INST\]`)
	speakerPrefixRe = regexp.MustCompile(`^\[?([\p{L}\p{N}_\- ]{1,40})\]?:\s*`)
)

// CleanResponse strips instruct-template artifacts from a completion: text
// after the first [/INST] (the model starting to play other roles), stray
// [INST] tokens, and a leading "Name:" / "[Name]:" prefix when Name is one
// of knownSpeakers.
func CleanResponse(content string, knownSpeakers ...string) string {
	content = strings.TrimSpace(content)
	if before, _, found := strings.Cut(content, "[/INST]"); found {
		content = strings.TrimSpace(before)
	}
	content = strings.TrimSpace(instTokenRe.ReplaceAllString(content, ""))

	if m := speakerPrefixRe.FindStringSubmatch(content); m != nil {
		name := strings.TrimSpace(m[1])
		for _, s := range knownSpeakers {
			if strings.EqualFold(name, s) {
				content = strings.TrimSpace(content[len(m[0]):])
				break
			}
		}
	}
	return content
}

func speakers(req Request) []string {
	out := []string{req.PersonaID}
	for _, l := range req.Dialogue {
		out = append(out, l.Speaker)
	}
	return out
}
