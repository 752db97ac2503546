package persona

import (
	"context"

	"github.com/BaSui01/submind/transcript"
)

// Request is what a persona hands to the completion gateway.
type Request struct {
	PersonaID    string
	Model        string
	Instructions string
	Dialogue     []transcript.Line
	Params       Params
}

// Generation is the gateway's answer.
type Generation struct {
	Text   string
	Model  string
	Tokens int
}

// Gateway is the completion service as seen by a persona. Implementations
// must honour ctx cancellation.
type Gateway interface {
	Generate(ctx context.Context, req Request) (Generation, error)
}

// GatewayFunc adapts a function to Gateway.
type GatewayFunc func(ctx context.Context, req Request) (Generation, error)

// Generate calls f.
func (f GatewayFunc) Generate(ctx context.Context, req Request) (Generation, error) {
	return f(ctx, req)
}
