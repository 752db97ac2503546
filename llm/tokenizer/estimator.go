package tokenizer

import (
	"math"
	"strings"
	"unicode"
)

// sentencePieceFamilies are local model families whose vocabularies split
// English text more finely than OpenAI's BPE encodings.
var sentencePieceFamilies = []string{"llama", "mistral", "mixtral", "gemma", "phi", "qwen", "yi-"}

// EstimatorTokenizer approximates token counts from rune classes. It is used
// for models tiktoken does not know, which covers most LM Studio and
// OpenRouter models.
type EstimatorTokenizer struct {
	model         string
	maxTokens     int
	charsPerToken float64
}

// NewEstimatorTokenizer creates an estimator tuned for the model family.
func NewEstimatorTokenizer(model string, maxTokens int) *EstimatorTokenizer {
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	cpt := 4.0
	lower := strings.ToLower(model)
	for _, family := range sentencePieceFamilies {
		if strings.Contains(lower, family) {
			cpt = 3.5
			break
		}
	}
	return &EstimatorTokenizer{model: model, maxTokens: maxTokens, charsPerToken: cpt}
}

// CountTokens never fails. CJK runes count about 1.5 per token, other
// non-space runes use the family ratio and runs of whitespace count once.
func (e *EstimatorTokenizer) CountTokens(text string) (int, error) {
	var cjk, other float64
	inSpace := false
	for _, r := range text {
		switch {
		case isCJK(r):
			cjk++
			inSpace = false
		case unicode.IsSpace(r):
			if !inSpace {
				other++
			}
			inSpace = true
		default:
			other++
			inSpace = false
		}
	}
	if cjk == 0 && other == 0 {
		return 0, nil
	}
	return max(1, int(math.Round(cjk/1.5+other/e.charsPerToken))), nil
}

func (e *EstimatorTokenizer) MaxTokens() int { return e.maxTokens }

func (e *EstimatorTokenizer) Name() string { return "estimator" }

func isCJK(r rune) bool {
	return unicode.Is(unicode.Han, r) ||
		unicode.Is(unicode.Hiragana, r) ||
		unicode.Is(unicode.Katakana, r) ||
		unicode.Is(unicode.Hangul, r) ||
		(r >= 0x3000 && r <= 0x303F) ||
		(r >= 0xFF00 && r <= 0xFFEF)
}
