package persona

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/BaSui01/submind/types"
)

// Params are the generation parameters of one persona.
type Params struct {
	Temperature float64       `json:"temperature" yaml:"temperature"`
	MaxTokens   int           `json:"max_tokens" yaml:"max_tokens"`
	Timeout     time.Duration `json:"timeout,omitempty" yaml:"timeout"`
}

// Display is presentation metadata only.
type Display struct {
	Color string `json:"color,omitempty" yaml:"color"`
	Icon  string `json:"icon,omitempty" yaml:"icon"`
}

// Persona is one configured discussion participant.
type Persona struct {
	ID           string `json:"id"`
	Role         string `json:"role"`
	Instructions string `json:"-"`
	Params       Params `json:"params"`
	// Model overrides the gateway default. FallbackModels are tried in
	// order when the previous model is rate limited.
	Model          string   `json:"model,omitempty"`
	FallbackModels []string `json:"fallback_models,omitempty"`
	Display        Display  `json:"display"`
}

// Models returns the ordered model chain. An empty chain means "gateway
// default" and is represented by a single empty entry.
func (p Persona) Models() []string {
	var chain []string
	if p.Model != "" {
		chain = append(chain, p.Model)
	}
	for _, m := range p.FallbackModels {
		if m != "" && !slices.Contains(chain, m) {
			chain = append(chain, m)
		}
	}
	if len(chain) == 0 {
		return []string{""}
	}
	return chain
}

// Validate checks a single persona definition.
func (p Persona) Validate() error {
	id := strings.TrimSpace(p.ID)
	switch {
	case id == "":
		return types.NewConfigurationError("persona id is required")
	case id != p.ID:
		return types.NewConfigurationError("persona id %q has surrounding whitespace", p.ID)
	case isReserved(id):
		return types.NewConfigurationError("persona id %q is reserved", p.ID)
	case p.Params.Temperature < 0 || p.Params.Temperature > 2:
		return types.NewConfigurationError("persona %q: temperature must be in [0,2], got %g", p.ID, p.Params.Temperature)
	case p.Params.MaxTokens < 0:
		return types.NewConfigurationError("persona %q: max_tokens must not be negative", p.ID)
	case p.Params.Timeout < 0:
		return types.NewConfigurationError("persona %q: timeout must not be negative", p.ID)
	}
	return nil
}

func isReserved(id string) bool {
	return strings.EqualFold(id, "User") || strings.EqualFold(id, "System")
}

// ValidateActive checks an active persona set: every persona valid, ids
// unique, at least two participants.
func ValidateActive(active []Persona) error {
	if len(active) < 2 {
		return types.NewConfigurationError("a discussion needs at least 2 active personas, got %d", len(active))
	}
	seen := make(map[string]struct{}, len(active))
	for _, p := range active {
		if err := p.Validate(); err != nil {
			return err
		}
		if _, dup := seen[p.ID]; dup {
			return types.NewConfigurationError("duplicate persona id %q", p.ID)
		}
		seen[p.ID] = struct{}{}
	}
	return nil
}

// IDs returns the identifiers of ps in order.
func IDs(ps []Persona) []string {
	ids := make([]string, len(ps))
	for i, p := range ps {
		ids[i] = p.ID
	}
	return ids
}

// Roster is the ordered set of configured personas.
type Roster struct {
	personas []Persona
	index    map[string]int
}

// NewRoster validates and indexes personas in configuration order.
func NewRoster(personas ...Persona) (*Roster, error) {
	r := &Roster{index: make(map[string]int, len(personas))}
	for _, p := range personas {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		if _, dup := r.index[p.ID]; dup {
			return nil, types.NewConfigurationError("duplicate persona id %q", p.ID)
		}
		r.index[p.ID] = len(r.personas)
		r.personas = append(r.personas, p)
	}
	return r, nil
}

// All returns every persona in configuration order.
func (r *Roster) All() []Persona {
	return slices.Clone(r.personas)
}

// Len returns the number of configured personas.
func (r *Roster) Len() int { return len(r.personas) }

// Get looks a persona up by id.
func (r *Roster) Get(id string) (Persona, bool) {
	i, ok := r.index[id]
	if !ok {
		return Persona{}, false
	}
	return r.personas[i], true
}

// Select returns the personas named by ids in configuration order, not in
// the order requested. Empty ids selects everyone. Lookup is
// case-insensitive so CLI users can type "skeptic".
func (r *Roster) Select(ids []string) ([]Persona, error) {
	if len(ids) == 0 {
		return r.All(), nil
	}
	want := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		i, ok := r.lookupFold(strings.TrimSpace(id))
		if !ok {
			return nil, types.NewConfigurationError("unknown persona %q", id)
		}
		want[i] = struct{}{}
	}
	out := make([]Persona, 0, len(want))
	for i, p := range r.personas {
		if _, ok := want[i]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *Roster) lookupFold(id string) (int, bool) {
	if i, ok := r.index[id]; ok {
		return i, true
	}
	for i, p := range r.personas {
		if strings.EqualFold(p.ID, id) {
			return i, true
		}
	}
	return 0, false
}

// String is used in log fields.
func (p Persona) String() string {
	return fmt.Sprintf("%s(%s)", p.ID, p.Role)
}
