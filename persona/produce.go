package persona

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/BaSui01/submind/llm"
	"github.com/BaSui01/submind/transcript"
)

// Produce asks the gateway for this persona's next contribution to view and
// wraps it as a message for round. The transcript is never touched. When the
// current model is rate limited the next fallback model is tried; any other
// failure returns immediately.
func (p Persona) Produce(ctx context.Context, gw Gateway, view transcript.View, round int) (transcript.Message, error) {
	req := Request{
		PersonaID:    p.ID,
		Instructions: p.Instructions,
		Dialogue:     slices.Collect(view.Render(p.ID)),
		Params:       p.Params,
	}

	models := p.Models()
	var tried []string
	var lastErr error
	for i, model := range models {
		req.Model = model
		tried = append(tried, model)

		gen, err := p.call(ctx, gw, req)
		if err == nil {
			text := strings.TrimSpace(gen.Text)
			if text == "" {
				return transcript.Message{}, &GenerationError{PersonaID: p.ID, Models: tried, Cause: ErrEmptyResponse}
			}
			used := gen.Model
			if used == "" {
				used = model
			}
			return transcript.Message{
				Speaker: p.ID,
				Role:    p.Role,
				Content: text,
				Round:   round,
				Meta:    transcript.Metadata{Model: used, Tokens: gen.Tokens},
			}, nil
		}

		lastErr = err
		if ctx.Err() != nil || i == len(models)-1 || !llm.IsRateLimited(err) {
			break
		}
	}
	return transcript.Message{}, &GenerationError{PersonaID: p.ID, Models: tried, Cause: lastErr}
}

func (p Persona) call(ctx context.Context, gw Gateway, req Request) (Generation, error) {
	if p.Params.Timeout <= 0 {
		return gw.Generate(ctx, req)
	}
	callCtx, cancel := context.WithTimeout(ctx, p.Params.Timeout)
	defer cancel()

	gen, err := gw.Generate(callCtx, req)
	if err != nil && ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return gen, fmt.Errorf("%w after %s: %w", ErrTimeout, p.Params.Timeout, err)
	}
	return gen, err
}
