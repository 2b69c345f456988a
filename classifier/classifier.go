// Package classifier implements the stateless per-message risk classifier.
//
// Classification is pure and total: any input, including empty text, yields a
// well-formed Assessment with a risk score clamped to [0,1]. The scalar score
// is deliberately lossy (many matched categories saturate the clamp the same
// way a single heavy one does); downstream consumers that need the full
// signal must read Flags and CategoryMatches, not just RiskScore.
package classifier

import (
	"strings"
	"time"
	"unicode"

	"github.com/haven-community/vigil/lexicon"
	"github.com/haven-community/vigil/sentiment"
)

// Behavioral flags attached to assessments in addition to category names.
const (
	FlagExcessiveCaps = "excessive_caps"
	FlagSpamPattern   = "spam_pattern"
)

const (
	// negative sentiment is divided by this before contributing to risk
	sentimentScale = 20.0
	// ceiling on the sentiment channel, so pure negative affect alone can
	// never reach the high-risk band
	sentimentRiskCap = 0.3

	// per matched term within one category
	categoryTermRisk = 0.15
	// ceiling per category; distinct categories stack independently
	categoryRiskCap = 0.5

	capsRatioThreshold = 0.5
	capsMinLength      = 10
	capsRisk           = 0.1

	spamRunLength = 5
	spamRisk      = 0.05
)

// CategoryMatch records how one lexicon category matched a message.
type CategoryMatch struct {
	Count int      `json:"count"`
	Terms []string `json:"terms"`
}

// Assessment is the result of classifying a single message. It is created
// fresh per message and never mutated after construction.
type Assessment struct {
	RiskScore       float64                  `json:"riskScore"`
	SentimentScore  float64                  `json:"sentimentScore"`
	Flags           []string                 `json:"flags"`
	CategoryMatches map[string]CategoryMatch `json:"categoryMatches,omitempty"`
	AnalyzedAt      time.Time                `json:"analyzedAt"`
}

// HasFlag reports whether the assessment carries the named flag.
func (a *Assessment) HasFlag(flag string) bool {
	for _, f := range a.Flags {
		if f == flag {
			return true
		}
	}
	return false
}

// Classifier scores individual messages against a fixed lexicon and a
// sentiment scorer. It holds no mutable state and is safe for concurrent use.
type Classifier struct {
	Lexicon   lexicon.Lexicon
	Sentiment sentiment.Scorer
	// Now is the clock used for Assessment.AnalyzedAt; defaults to time.Now.
	Now func() time.Time
}

// New returns a classifier over the given lexicon and sentiment scorer.
func New(lex lexicon.Lexicon, scorer sentiment.Scorer) *Classifier {
	return &Classifier{
		Lexicon:   lex,
		Sentiment: scorer,
		Now:       time.Now,
	}
}

// Analyze classifies one message. It never fails: degenerate input (empty or
// whitespace-only content) yields the zero assessment, because this sits on
// the hot per-message path and must not halt intake.
func (c *Classifier) Analyze(content string) *Assessment {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	out := &Assessment{
		Flags:      []string{},
		AnalyzedAt: now().UTC(),
	}
	if strings.TrimSpace(content) == "" {
		return out
	}

	var risk float64
	lowered := strings.ToLower(content)

	// sentiment channel: only negative polarity maps to risk
	polarity := c.Sentiment.Score(content)
	out.SentimentScore = polarity
	if polarity < 0 {
		risk += min(-polarity/sentimentScale, sentimentRiskCap)
	}

	// category channel: diminishing returns within a category, categories
	// stack independently
	for _, category := range c.Lexicon.Categories() {
		count, terms := c.Lexicon.MatchCategory(category, lowered)
		if count == 0 {
			continue
		}
		if out.CategoryMatches == nil {
			out.CategoryMatches = make(map[string]CategoryMatch)
		}
		out.CategoryMatches[category] = CategoryMatch{Count: count, Terms: terms}
		out.Flags = append(out.Flags, category)
		risk += min(float64(count)*categoryTermRisk, categoryRiskCap)
	}

	// behavioral heuristics run against the original text, not the
	// lowercased copy
	if hasExcessiveCaps(content) {
		out.Flags = append(out.Flags, FlagExcessiveCaps)
		risk += capsRisk
	}
	if hasSpamPattern(content) {
		out.Flags = append(out.Flags, FlagSpamPattern)
		risk += spamRisk
	}

	out.RiskScore = min(risk, 1.0)
	return out
}

// hasExcessiveCaps reports whether more than half of the message (by rune
// count, whitespace included) is uppercase letters, for messages longer than
// capsMinLength runes.
func hasExcessiveCaps(content string) bool {
	var upper, total int
	for _, r := range content {
		total++
		if unicode.IsUpper(r) {
			upper++
		}
	}
	if total <= capsMinLength {
		return false
	}
	return float64(upper)/float64(total) > capsRatioThreshold
}

// hasSpamPattern reports whether any rune repeats spamRunLength or more times
// consecutively.
func hasSpamPattern(content string) bool {
	var prev rune
	run := 0
	for _, r := range content {
		if r == prev {
			run++
			if run >= spamRunLength {
				return true
			}
		} else {
			prev = r
			run = 1
		}
	}
	return false
}
