package profile

import (
	"fmt"

	"github.com/haven-community/vigil/classifier"
)

// Severity bands for a risk score.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Thresholds partitions [0,1] into Low/Medium/High/Critical bands
// (inclusive-lower, exclusive-upper, top band unbounded above). The three
// values must be strictly increasing.
type Thresholds struct {
	Low    float64
	Medium float64
	High   float64
}

func DefaultThresholds() Thresholds {
	return Thresholds{Low: 0.3, Medium: 0.6, High: 0.8}
}

// Validate checks the threshold ordering.
func (t Thresholds) Validate() error {
	if !(t.Low < t.Medium && t.Medium < t.High) {
		return fmt.Errorf("alert thresholds must be strictly increasing: %v < %v < %v", t.Low, t.Medium, t.High)
	}
	return nil
}

// Band maps a score to its severity band.
func (t Thresholds) Band(score float64) Severity {
	switch {
	case score >= t.High:
		return SeverityCritical
	case score >= t.Medium:
		return SeverityHigh
	case score >= t.Low:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// Decision is the alert outcome for one assessment. It is derived purely
// from the configured thresholds and the triggering per-message score (never
// from the running average) and is not itself persisted; when ShouldAlert is
// set, the caller notifies the external channel with both the assessment and
// the updated profile.
type Decision struct {
	ShouldAlert bool     `json:"shouldAlert"`
	Severity    Severity `json:"severity"`
}

// Decide produces the alert decision for an assessment. It performs no I/O.
func (t Thresholds) Decide(asmt *classifier.Assessment) Decision {
	return Decision{
		ShouldAlert: asmt.RiskScore >= t.High,
		Severity:    t.Band(asmt.RiskScore),
	}
}
