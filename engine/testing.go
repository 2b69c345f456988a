package engine

import (
	"log/slog"
	"time"

	"github.com/haven-community/vigil/alertstore"
	"github.com/haven-community/vigil/assessmentstore"
	"github.com/haven-community/vigil/classifier"
	"github.com/haven-community/vigil/countstore"
	"github.com/haven-community/vigil/lexicon"
	"github.com/haven-community/vigil/notify"
	"github.com/haven-community/vigil/profile"
	"github.com/haven-community/vigil/profilestore"
	"github.com/haven-community/vigil/sentiment"
)

// EngineTestFixture returns a fully in-memory engine with a fixed clock, for
// use in tests.
func EngineTestFixture() *Engine {
	logger := slog.Default()
	clk := func() time.Time { return time.Date(2024, 11, 20, 12, 0, 0, 0, time.UTC) }
	cls := classifier.New(lexicon.Default(), sentiment.NewTermScorer())
	cls.Now = clk
	return &Engine{
		Logger:     logger,
		Classifier: cls,
		Profiles:   profilestore.NewMemProfileStore(),
		Alerts:     alertstore.NewMemAlertStore(),
		History:    assessmentstore.NewMemAssessmentStore(),
		Counters:   countstore.NewMemCountStore(),
		Notifier:   &notify.LogNotifier{Logger: logger},
		AggConfig:  profile.DefaultAggregatorConfig(),
		Thresholds: profile.DefaultThresholds(),
		Now:        clk,
	}
}
