package termination

import (
	"math"
	"strings"
	"unicode"

	"github.com/BaSui01/submind/types"
)

// SimilarityFunc scores two texts in [0,1]. Implementations must be
// symmetric and return 0 when either text normalizes to nothing.
type SimilarityFunc func(a, b string) float64

// Similarity measure names accepted by SimilarityByName.
const (
	SimilarityJaccard = "jaccard"
	SimilarityCosine  = "cosine"
)

// SimilarityByName resolves a configured measure. Empty selects Jaccard.
func SimilarityByName(name string) (SimilarityFunc, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", SimilarityJaccard:
		return Jaccard, nil
	case SimilarityCosine:
		return Cosine, nil
	default:
		return nil, types.NewConfigurationError("unknown similarity measure %q", name)
	}
}

// Normalize lower-cases s, turns every rune that is not a letter or digit
// into a space and collapses runs of whitespace.
func Normalize(s string) string {
	mapped := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, s)
	return strings.Join(strings.Fields(mapped), " ")
}

// Tokens returns the normalized words of s.
func Tokens(s string) []string {
	return strings.Fields(Normalize(s))
}

// Jaccard is |A∩B| / |A∪B| over the token sets of a and b.
func Jaccard(a, b string) float64 {
	sa, sb := tokenSet(a), tokenSet(b)
	if len(sa) == 0 || len(sb) == 0 {
		return 0
	}
	inter := 0
	for t := range sa {
		if _, ok := sb[t]; ok {
			inter++
		}
	}
	union := len(sa) + len(sb) - inter
	return float64(inter) / float64(union)
}

// Cosine is the cosine of the word-bigram count vectors of a and b. Texts of
// a single word fall back to unigrams.
func Cosine(a, b string) float64 {
	ta, tb := Tokens(a), Tokens(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	size := 2
	if len(ta) < 2 || len(tb) < 2 {
		size = 1
	}
	va, vb := shingles(ta, size), shingles(tb, size)

	var dot, na, nb float64
	for k, x := range va {
		na += x * x
		if y, ok := vb[k]; ok {
			dot += x * y
		}
	}
	for _, y := range vb {
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return clamp01(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}

// MeanPairwise averages sim over every unordered pair of texts. Texts that
// normalize to nothing are dropped first; fewer than two remaining texts
// score 0.
func MeanPairwise(texts []string, sim SimilarityFunc) float64 {
	pool := make([]string, 0, len(texts))
	for _, t := range texts {
		if Normalize(t) != "" {
			pool = append(pool, t)
		}
	}
	if len(pool) < 2 {
		return 0
	}
	var sum float64
	pairs := 0
	for i := 0; i < len(pool); i++ {
		for j := i + 1; j < len(pool); j++ {
			sum += sim(pool[i], pool[j])
			pairs++
		}
	}
	return sum / float64(pairs)
}

func tokenSet(s string) map[string]struct{} {
	toks := Tokens(s)
	set := make(map[string]struct{}, len(toks))
	for _, t := range toks {
		set[t] = struct{}{}
	}
	return set
}

func shingles(toks []string, size int) map[string]float64 {
	out := make(map[string]float64, len(toks))
	for i := 0; i+size <= len(toks); i++ {
		out[strings.Join(toks[i:i+size], " ")]++
	}
	return out
}

// clamp01 absorbs floating point drift above 1 for identical vectors.
func clamp01(x float64) float64 {
	return math.Max(0, math.Min(1, x))
}
