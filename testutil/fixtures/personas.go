// =============================================================================
// 📦 测试数据工厂 - Persona
// =============================================================================
package fixtures

import (
	"fmt"

	"github.com/BaSui01/submind/persona"
)

// Persona 返回一个最小可用的 persona
func Persona(id string) persona.Persona {
	return persona.Persona{
		ID:           id,
		Role:         "test",
		Instructions: fmt.Sprintf("You are %s.", id),
		Params:       persona.Params{Temperature: 0.7, MaxTokens: 200},
	}
}

// Personas 按顺序返回多个最小 persona
func Personas(ids ...string) []persona.Persona {
	out := make([]persona.Persona, len(ids))
	for i, id := range ids {
		out[i] = Persona(id)
	}
	return out
}

// Council 返回五人默认阵容
func Council() []persona.Persona {
	return []persona.Persona{
		{ID: "Doctrinal", Role: "traditional", Instructions: "Argue from established doctrine.", Params: persona.Params{Temperature: 0.6, MaxTokens: 300}, Display: persona.Display{Color: "blue"}},
		{ID: "Analytical", Role: "analytical", Instructions: "Reason from evidence.", Params: persona.Params{Temperature: 0.5, MaxTokens: 300}, Display: persona.Display{Color: "cyan"}},
		{ID: "Strategic", Role: "strategic", Instructions: "Weigh long-term outcomes.", Params: persona.Params{Temperature: 0.6, MaxTokens: 300}, Display: persona.Display{Color: "green"}},
		{ID: "Creative", Role: "creative", Instructions: "Offer unconventional angles.", Params: persona.Params{Temperature: 0.9, MaxTokens: 300}, Display: persona.Display{Color: "magenta"}},
		{ID: "Skeptic", Role: "skeptic", Instructions: "Challenge every assumption.", Params: persona.Params{Temperature: 0.7, MaxTokens: 300}, Display: persona.Display{Color: "red"}},
	}
}
