package profile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/haven-community/vigil/classifier"
)

var testTime = time.Date(2024, 11, 20, 12, 0, 0, 0, time.UTC)

func asmtWithScore(score float64, flags ...string) *classifier.Assessment {
	if flags == nil {
		flags = []string{}
	}
	return &classifier.Assessment{
		RiskScore:  score,
		Flags:      flags,
		AnalyzedAt: testTime,
	}
}

func TestAggregateFreshProfile(t *testing.T) {
	assert := assert.New(t)
	cfg := DefaultAggregatorConfig()

	p := Aggregate(nil, "author-1", asmtWithScore(0.4, "violence"), cfg, testTime)
	assert.Equal("author-1", p.AuthorID)
	assert.Equal(int64(1), p.MessageCount)
	assert.Equal(0.4, p.TotalRiskScore)
	assert.InDelta(0.4/(1*cfg.Decay+1), p.AverageRiskScore, 1e-12)
	assert.Equal(int64(1), p.FlagHistory["violence"])
	assert.False(p.TrendingUp)
	assert.NotNil(p.LastAnalyzedAt)
	assert.Equal(testTime, *p.LastAnalyzedAt)
}

func TestAggregateDecayShape(t *testing.T) {
	assert := assert.New(t)
	cfg := DefaultAggregatorConfig()

	var p *Profile
	total := 0.0
	for i := 0; i < 4; i++ {
		p = Aggregate(p, "author-1", asmtWithScore(0.5), cfg, testTime)
		total = total*cfg.Decay + 0.5
		assert.InDelta(total, p.TotalRiskScore, 1e-12)
		assert.InDelta(total/(float64(i+1)*cfg.Decay+1), p.AverageRiskScore, 1e-12)
	}

	// the average stays bounded in [0,1] under sustained repetition, even
	// with maximum-risk messages
	p = nil
	for i := 0; i < 500; i++ {
		p = Aggregate(p, "author-1", asmtWithScore(1.0), cfg, testTime)
		assert.GreaterOrEqual(p.AverageRiskScore, 0.0)
		assert.LessOrEqual(p.AverageRiskScore, 1.0)
	}
}

func TestAggregateMonotonicity(t *testing.T) {
	assert := assert.New(t)
	cfg := DefaultAggregatorConfig()

	p := NewProfile("author-1")
	p.MessageCount = 7
	p.FlagHistory["spam_pattern"] = 3
	p.TotalRiskScore = 1.1

	next := Aggregate(p, "author-1", asmtWithScore(0.0, "hate"), cfg, testTime)
	assert.Equal(p.MessageCount+1, next.MessageCount)
	for f, n := range p.FlagHistory {
		assert.GreaterOrEqual(next.FlagHistory[f], n)
	}
	assert.Equal(int64(1), next.FlagHistory["hate"])

	// the input profile is left untouched
	assert.Equal(int64(7), p.MessageCount)
	assert.Equal(int64(3), p.FlagHistory["spam_pattern"])
}

func TestAggregateHighRiskCounting(t *testing.T) {
	assert := assert.New(t)
	cfg := DefaultAggregatorConfig()

	p := Aggregate(nil, "author-1", asmtWithScore(0.85), cfg, testTime)
	assert.Equal(int64(1), p.HighRiskCount)

	p = Aggregate(p, "author-1", asmtWithScore(0.79), cfg, testTime)
	assert.Equal(int64(1), p.HighRiskCount)

	// exactly at threshold counts
	p = Aggregate(p, "author-1", asmtWithScore(0.8), cfg, testTime)
	assert.Equal(int64(2), p.HighRiskCount)
}

func TestAggregateTrendGating(t *testing.T) {
	assert := assert.New(t)
	cfg := DefaultAggregatorConfig()

	// below the gate the prior trending value is preserved, whatever the score
	var p *Profile
	for i := 0; i < 5; i++ {
		p = Aggregate(p, "author-1", asmtWithScore(1.0), cfg, testTime)
		assert.False(p.TrendingUp, "message %d", i+1)
	}

	// sixth message is evaluated: a spike over 1.2x the updated average trends
	p = Aggregate(p, "author-1", asmtWithScore(1.0), cfg, testTime)
	// average after six 1.0-scores is well below 1.0/1.2, so this trends
	assert.True(p.TrendingUp)

	// quiet messages clear the signal once eligible
	p = Aggregate(p, "author-1", asmtWithScore(0.0), cfg, testTime)
	assert.False(p.TrendingUp)

	// gate preserves a previously-set value too
	held := NewProfile("author-2")
	held.TrendingUp = true
	held.MessageCount = 2
	next := Aggregate(held, "author-2", asmtWithScore(0.0), cfg, testTime)
	assert.True(next.TrendingUp)
}

func TestAggregateTrendComparesPostUpdateAverage(t *testing.T) {
	assert := assert.New(t)
	cfg := DefaultAggregatorConfig()

	// build a profile with six low-risk messages
	var p *Profile
	for i := 0; i < 6; i++ {
		p = Aggregate(p, "author-1", asmtWithScore(0.1), cfg, testTime)
	}
	assert.False(p.TrendingUp)

	// a spike must beat the average that already includes the spike itself
	spiked := Aggregate(p, "author-1", asmtWithScore(0.9), cfg, testTime)
	assert.True(spiked.TrendingUp)
	assert.Greater(0.9, spiked.AverageRiskScore*trendFactor)
}
