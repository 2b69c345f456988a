// Package sentiment provides the polarity-scoring primitive consumed by the
// message classifier.
//
// The classifier only depends on the Scorer interface; the default term-based
// implementation here is intentionally simple. Deployments can swap in a
// heavier NLP model behind the same interface.
package sentiment

import (
	"strings"
	"unicode"
)

// Scorer produces a signed polarity score for a piece of text. Negative
// values indicate negative affect. Implementations must be deterministic for
// identical input and must not have side effects.
type Scorer interface {
	Score(text string) float64
}

// TermScorer is a valence-lexicon scorer: each known token contributes its
// signed weight to the total. Unknown tokens contribute nothing, so the
// output is unbounded but proportional to the density of charged terms.
type TermScorer struct {
	valence map[string]float64
}

var _ Scorer = (*TermScorer)(nil)

// NewTermScorer returns a scorer backed by the built-in valence table.
func NewTermScorer() *TermScorer {
	return &TermScorer{valence: defaultValence}
}

func (s *TermScorer) Score(text string) float64 {
	var total float64
	for _, tok := range tokenize(text) {
		total += s.valence[tok]
	}
	return total
}

// tokenize lowercases and splits on any non-letter rune. Digits and
// punctuation act as separators so "hate!!!" and "hate" score the same.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
}

var defaultValence = map[string]float64{
	// negative affect
	"hate":       -3,
	"kill":       -3,
	"murder":     -3,
	"destroy":    -3,
	"die":        -3,
	"dead":       -2,
	"hurt":       -2,
	"attack":     -2,
	"fight":      -2,
	"war":        -2,
	"enemy":      -2,
	"stupid":     -2,
	"idiot":      -2,
	"worthless":  -2,
	"pathetic":   -2,
	"disgusting": -2,
	"terrible":   -1,
	"awful":      -1,
	"horrible":   -1,
	"angry":      -1,
	"furious":    -1,
	"bad":        -1,
	"worst":      -1,
	"never":      -1,
	"wrong":      -1,

	// positive affect
	"love":      3,
	"wonderful": 2,
	"great":     2,
	"awesome":   2,
	"happy":     2,
	"thanks":    2,
	"thank":     2,
	"good":      1,
	"nice":      1,
	"fun":       1,
	"cool":      1,
	"best":      1,
	"friend":    1,
	"welcome":   1,
}
