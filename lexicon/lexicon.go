package lexicon

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
)

// Lexicon maps a risk category name to the set of trigger terms for that
// category. Terms are matched case-insensitively as substrings of message
// text, and a term counts at most once per category per message.
//
// A Lexicon is constructed once at startup and must not be mutated after it
// has been handed to a classifier.
type Lexicon map[string][]string

// Categories returns the category names in sorted order.
func (l Lexicon) Categories() []string {
	out := make([]string, 0, len(l))
	for name := range l {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// MatchCategory counts how many distinct terms of the named category occur in
// the (already lowercased) text, returning the matched terms in lexicon order.
func (l Lexicon) MatchCategory(category, lowered string) (int, []string) {
	var matched []string
	for _, term := range l[category] {
		if strings.Contains(lowered, term) {
			matched = append(matched, term)
		}
	}
	return len(matched), matched
}

// Normalize lowercases all terms and drops empty ones, returning a cleaned
// copy. Load and the default lexicon both pass through this, so matching can
// assume lowercase terms.
func (l Lexicon) normalize() Lexicon {
	out := make(Lexicon, len(l))
	for name, terms := range l {
		var cleaned []string
		for _, t := range terms {
			t = strings.ToLower(strings.TrimSpace(t))
			if t != "" {
				cleaned = append(cleaned, t)
			}
		}
		if len(cleaned) > 0 {
			out[name] = cleaned
		}
	}
	return out
}

// LoadFromFileJSON reads a lexicon from a JSON file of the shape
// {"category": ["term", ...], ...}.
func LoadFromFileJSON(path string) (Lexicon, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading lexicon file: %w", err)
	}
	var lex Lexicon
	if err := json.Unmarshal(raw, &lex); err != nil {
		return nil, fmt.Errorf("parsing lexicon file: %w", err)
	}
	if len(lex) == 0 {
		return nil, fmt.Errorf("lexicon file contained no categories: %s", path)
	}
	return lex.normalize(), nil
}

// Default returns the built-in category lexicon. This is a starter set; real
// deployments are expected to supply a richer lexicon via LoadFromFileJSON.
func Default() Lexicon {
	return Lexicon{
		"violence": {
			"kill", "murder", "destroy", "massacre", "slaughter", "attack them",
		},
		"hate": {
			"subhuman", "vermin", "dehumanize", "racial war",
		},
		"threats": {
			"you will regret", "watch your back", "i know where you live",
			"going to hurt you",
		},
		"extremism": {
			"supremacy", "day of the rope", "blood and soil", "holy war",
			"armed uprising",
		},
		"self_harm": {
			"kill myself", "end it all", "no reason to live",
		},
		"harassment": {
			"nobody likes you", "loser", "pathetic", "worthless",
		},
	}.normalize()
}
